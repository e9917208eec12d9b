package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmilen/solsentry/internal/source"
)

func parse(t *testing.T, path, src string) *Tree {
	t.Helper()
	return Parse(source.NewUnit(path, src))
}

func TestLexClassifiesCommentsAndStrings(t *testing.T) {
	t.Parallel()
	toks := Lex(`uint x; // function fake() {}
string s = "contract NotReal {";
/* delegatecall in a comment */`)
	var kinds = map[TokenKind]int{}
	for _, tok := range toks {
		kinds[tok.Kind]++
	}
	assert.Equal(t, 2, kinds[TokComment])
	assert.Equal(t, 1, kinds[TokString])
	// code-like text inside comments must not surface as identifiers
	for _, tok := range toks {
		if tok.Kind == TokIdent {
			assert.NotEqual(t, "fake", tok.Text)
			assert.NotEqual(t, "NotReal", tok.Text)
			assert.NotEqual(t, "delegatecall", tok.Text)
		}
	}
}

func TestLexRustLifetimeDoesNotSwallowFile(t *testing.T) {
	t.Parallel()
	toks := Lex("fn get<'a>(x: &'a str) -> &'a str { x }\nfn other() {}")
	names := map[string]bool{}
	for _, tok := range toks {
		if tok.Kind == TokIdent {
			names[tok.Text] = true
		}
	}
	assert.True(t, names["other"], "tokens after the lifetime should still lex")
}

func TestParseSolidityContract(t *testing.T) {
	t.Parallel()
	tree := parse(t, "vault.sol", `
pragma solidity 0.8.19;

contract Vault is Ownable, ReentrancyGuard {
    address public owner;
    uint256 private totalDeposits;
    mapping(address => uint256) balances;

    function deposit() external payable {
        balances[msg.sender] += msg.value;
    }

    function sweep(address to) public onlyOwner nonReentrant returns (bool) {
        payable(to).transfer(address(this).balance);
        return true;
    }
}
`)
	require.Len(t, tree.Contracts, 1)
	c := tree.Contracts[0]
	assert.Equal(t, "Vault", c.Name)
	assert.Equal(t, KindContract, c.Kind)
	assert.Equal(t, []string{"Ownable", "ReentrancyGuard"}, c.Inherits)
	require.Len(t, c.Funcs, 2)
	require.Len(t, c.Vars, 3)

	dep := tree.Functions[c.Funcs[0]]
	assert.Equal(t, "deposit", dep.Name)
	assert.Equal(t, "external", dep.Visibility)
	assert.Equal(t, "payable", dep.Mutability)
	assert.False(t, dep.Partial)

	sweep := tree.Functions[c.Funcs[1]]
	assert.Equal(t, "sweep", sweep.Name)
	assert.Equal(t, "public", sweep.Visibility)
	assert.Contains(t, sweep.Modifiers, "onlyOwner")
	assert.Contains(t, sweep.Modifiers, "nonReentrant")

	vars := map[string]string{}
	for _, vi := range c.Vars {
		vars[tree.StateVars[vi].Name] = tree.StateVars[vi].Type
	}
	assert.Equal(t, "address", vars["owner"])
	assert.Equal(t, "mapping", vars["balances"])
	assert.Empty(t, tree.Errors)
}

func TestParseMultipleContractsPerFile(t *testing.T) {
	t.Parallel()
	tree := parse(t, "multi.sol", `
interface IToken { function transfer(address to, uint256 v) external; }
library SafeOps { function add(uint a, uint b) internal pure returns (uint) { return a + b; } }
contract Token {}
`)
	require.Len(t, tree.Contracts, 3)
	assert.Equal(t, KindInterface, tree.Contracts[0].Kind)
	assert.Equal(t, KindLibrary, tree.Contracts[1].Kind)
	assert.Equal(t, "Token", tree.Contracts[2].Name)
	// interface function has no body and is not partial
	fi := tree.Contracts[0].Funcs[0]
	assert.False(t, tree.Functions[fi].Partial)
	assert.Zero(t, tree.Functions[fi].BodyStart)
}

func TestParseRustFileContainer(t *testing.T) {
	t.Parallel()
	tree := parse(t, "program.rs", `
pub fn process_instruction(accounts: &[AccountInfo]) -> ProgramResult {
    Ok(())
}

fn helper() -> u8 { 1 }
`)
	require.Len(t, tree.Contracts, 1)
	assert.Equal(t, KindFile, tree.Contracts[0].Kind)
	assert.Equal(t, "program", tree.Contracts[0].Name)
	require.Len(t, tree.Contracts[0].Funcs, 2)
	assert.Equal(t, "process_instruction", tree.Functions[0].Name)
	assert.Equal(t, "public", tree.Functions[0].Visibility)
	assert.Equal(t, "helper", tree.Functions[1].Name)
}

func TestParseMoveModule(t *testing.T) {
	t.Parallel()
	tree := parse(t, "coin.move", `
module 0x1::coin {
    public fun mint(amount: u64) { }
    fun burn(amount: u64) { }
}
`)
	require.Len(t, tree.Contracts, 1)
	assert.Equal(t, KindModule, tree.Contracts[0].Kind)
	assert.Equal(t, "coin", tree.Contracts[0].Name)
	require.Len(t, tree.Contracts[0].Funcs, 2)
	assert.Equal(t, "public", tree.Functions[0].Visibility)
}

func TestParseUnbalancedBracesMarksPartial(t *testing.T) {
	t.Parallel()
	tree := parse(t, "broken.sol", `
contract Broken {
    function bad() public {
        x = 1;
`)
	require.NotEmpty(t, tree.Errors)
	require.Len(t, tree.Functions, 1)
	assert.True(t, tree.Functions[0].Partial)
}

func TestParseRecoversAfterBadFunction(t *testing.T) {
	t.Parallel()
	tree := parse(t, "broken2.sol", `
contract Broken {
    function bad() public {
        if (true) {
            x = 1;
    }

    function good() public {
        y = 2;
    }
}
`)
	require.NotEmpty(t, tree.Errors)
	names := map[string]bool{}
	for _, f := range tree.Functions {
		names[f.Name] = true
	}
	assert.True(t, names["good"], "well-formed functions survive a bad sibling")
}

func TestParseConstructorAndFallback(t *testing.T) {
	t.Parallel()
	tree := parse(t, "c.sol", `
contract C {
    constructor(address o) { owner = o; }
    fallback() external payable {}
    receive() external payable {}
}
`)
	require.Len(t, tree.Contracts[0].Funcs, 3)
	assert.Equal(t, "constructor", tree.Functions[0].Name)
	assert.Equal(t, "fallback", tree.Functions[1].Name)
	assert.Equal(t, "receive", tree.Functions[2].Name)
}

func TestFunctionTypedStateVariable(t *testing.T) {
	t.Parallel()
	tree := parse(t, "hooks.sol", `
contract Hooks {
    function(uint256) external returns (bool) callback;
    function(bytes memory) internal pure onDone;

    function run() public { callback(1); }
}
`)
	require.Len(t, tree.Contracts, 1)
	c := tree.Contracts[0]
	require.Len(t, c.Funcs, 1, "a function-typed variable is not a function declaration")
	assert.Equal(t, "run", tree.Functions[c.Funcs[0]].Name)

	vars := map[string]string{}
	for _, vi := range c.Vars {
		vars[tree.StateVars[vi].Name] = tree.StateVars[vi].Type
	}
	assert.Equal(t, "function", vars["callback"])
	assert.Equal(t, "function", vars["onDone"])
}

func TestOldStyleUnnamedFallbackStaysFunction(t *testing.T) {
	t.Parallel()
	tree := parse(t, "old.sol", `
contract Old {
    function() external payable {}
    function() external;
}
`)
	require.Len(t, tree.Contracts[0].Vars, 0)
	require.Len(t, tree.Contracts[0].Funcs, 2)
	assert.Equal(t, "fallback", tree.Functions[0].Name)
	assert.Equal(t, "fallback", tree.Functions[1].Name)
}

func TestContractAndFunctionAt(t *testing.T) {
	t.Parallel()
	tree := parse(t, "n.sol", `
contract Outer {
    function f() public { g(); }
}
contract Inner {
    function g() public {}
}
`)
	require.Len(t, tree.Contracts, 2)
	f := tree.Functions[0]
	ci := tree.ContractAt(f.BodyStart + 2)
	assert.Equal(t, "Outer", tree.Contracts[ci].Name)
	fi := tree.FunctionAt(f.BodyStart + 2)
	assert.Equal(t, "f", tree.Functions[fi].Name)
	assert.Equal(t, -1, tree.ContractAt(0))
}
