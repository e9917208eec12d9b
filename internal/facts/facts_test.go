package facts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmilen/solsentry/internal/lang"
	"github.com/0xmilen/solsentry/internal/source"
)

func extract(t *testing.T, path, src string) []*Table {
	t.Helper()
	tree := lang.Parse(source.NewUnit(path, src))
	ts := Extract(tree)
	require.NotEmpty(t, ts)
	return ts
}

func TestWordBoundaryMatching(t *testing.T) {
	t.Parallel()
	ts := extract(t, "feed.sol", `
contract Feed {
    address public priceOracleAddress;
    address public oracle;
}
`)
	table := ts[0]
	// "oracle" must not match inside the identifier priceOracleAddress
	assert.Equal(t, 1, table.CountWord("oracle", ScopeCode))
	// substring mode is an explicit opt-in
	assert.Equal(t, 2, table.CountSubstring("oracle", ScopeCode))
}

func TestScopedOccurrences(t *testing.T) {
	t.Parallel()
	ts := extract(t, "scoped.sol", `
contract Scoped {
    // the oracle lives in a comment
    string greeting = "hello oracle";
    uint x;
}
`)
	table := ts[0]
	assert.Equal(t, 0, table.CountWord("oracle", ScopeCode))
	assert.Equal(t, 1, table.CountWord("oracle", ScopeComment))
	assert.Equal(t, 1, table.CountWord("oracle", ScopeString))
	assert.Equal(t, 1, table.CountWord("oracle", ScopeDefault))
	assert.Equal(t, 2, table.CountWord("oracle", ScopeAll))
}

func TestConstructDetection(t *testing.T) {
	t.Parallel()
	ts := extract(t, "c.sol", `
pragma solidity ^0.8.0;

contract Risky {
    function run(address target, bytes memory data) public {
        require(tx.origin == owner);
        (bool ok, ) = target.delegatecall(data);
        selfdestruct(payable(msg.sender));
        unchecked { counter += 1; }
    }
}
`)
	table := ts[0]
	assert.True(t, table.HasConstruct(ConstructDelegatecall))
	assert.True(t, table.HasConstruct(ConstructLowLevelCall))
	assert.True(t, table.HasConstruct(ConstructTxOrigin))
	assert.True(t, table.HasConstruct(ConstructSelfdestruct))
	assert.True(t, table.HasConstruct(ConstructUnchecked))
	assert.True(t, table.HasConstruct(ConstructFloatingPragma))
}

func TestCallInLoop(t *testing.T) {
	t.Parallel()
	ts := extract(t, "loop.sol", `
contract Payout {
    function payAll(address[] memory users) public {
        for (uint i = 0; i < users.length; i++) {
            users[i].call{value: 1 ether}("");
        }
    }
    function paySingle(address user) public {
        user.call{value: 1 ether}("");
    }
}
`)
	table := ts[0]
	require.True(t, table.HasConstruct(ConstructCallInLoop))
	sites := table.Constructs[ConstructCallInLoop]
	require.Len(t, sites, 1)
	assert.Equal(t, "payAll", table.Functions[sites[0].Function].Name)
}

func TestCallBeforeStateWrite(t *testing.T) {
	t.Parallel()
	ts := extract(t, "reentrant.sol", `
contract Bank {
    function withdraw(uint amount) public {
        msg.sender.call{value: amount}("");
        balances[msg.sender] = 0;
    }
    function deposit() public payable {
        balances[msg.sender] = msg.value;
    }
}
`)
	table := ts[0]
	require.True(t, table.HasConstruct(ConstructCallBeforeWrite))
	sites := table.Constructs[ConstructCallBeforeWrite]
	require.Len(t, sites, 1)
	assert.Equal(t, "withdraw", table.Functions[sites[0].Function].Name)
}

func TestComparisonIsNotAStateWrite(t *testing.T) {
	t.Parallel()
	ts := extract(t, "cmp.sol", `
contract Cmp {
    function check(uint a) public view returns (bool) {
        return a == limit && a <= cap && a != 0;
    }
}
`)
	require.Len(t, ts[0].Functions, 1)
	assert.Empty(t, ts[0].Functions[0].StateWriteLines)
}

func TestRecursionDetection(t *testing.T) {
	t.Parallel()
	ts := extract(t, "rec.sol", `
contract Rec {
    function spin(uint n) public {
        if (n > 0) { this.spin(n - 1); }
    }
    function calm() public { spinCounter = 1; }
}
`)
	table := ts[0]
	require.True(t, table.HasConstruct(ConstructRecursion))
	sites := table.Constructs[ConstructRecursion]
	require.Len(t, sites, 1)
	assert.Equal(t, "spin", table.Functions[sites[0].Function].Name)
}

func TestAccessControlDetection(t *testing.T) {
	t.Parallel()
	ts := extract(t, "ac.sol", `
contract Admin {
    function guardedByModifier(uint v) public onlyOwner { value = v; }
    function guardedByRequire(uint v) public {
        require(msg.sender == owner);
        value = v;
    }
    function open(uint v) public { value = v; }
}
`)
	table := ts[0]
	byName := map[string]FunctionFacts{}
	for _, f := range table.Functions {
		byName[f.Name] = f
	}
	assert.True(t, byName["guardedByModifier"].HasAccessControl)
	assert.True(t, byName["guardedByRequire"].HasAccessControl)
	assert.False(t, byName["open"].HasAccessControl)

	require.True(t, table.HasConstruct(ConstructUnprotectedFn))
	sites := table.Constructs[ConstructUnprotectedFn]
	require.Len(t, sites, 1)
	assert.Equal(t, "open", table.Functions[sites[0].Function].Name)
}

func TestPartialPropagation(t *testing.T) {
	t.Parallel()
	ts := extract(t, "partial.sol", `
contract P {
    function broken() public {
        x = 1;
`)
	assert.True(t, ts[0].Partial)
	require.Len(t, ts[0].Functions, 1)
	assert.True(t, ts[0].Functions[0].Partial)
}

func TestReplayGuardFromStateVar(t *testing.T) {
	t.Parallel()
	ts := extract(t, "replay.sol", `
contract Relay {
    mapping(address => uint256) public nonces;
    function execute(bytes memory sig) public {
        done = true;
    }
}
`)
	assert.True(t, ts[0].HasConstruct(ConstructReplayGuard))
}

func TestSolanaCPIAndSigner(t *testing.T) {
	t.Parallel()
	ts := extract(t, "prog.rs", `
pub fn process(accounts: &[AccountInfo]) -> ProgramResult {
    let target = next_account_info(iter)?;
    invoke(&ix, accounts)?;
    if !payer.is_signer {
        return Err(ProgramError::MissingRequiredSignature);
    }
    Ok(())
}
`)
	table := ts[0]
	assert.True(t, table.HasConstruct(ConstructExternalCall))
	require.Len(t, table.Functions, 1)
	assert.True(t, table.Functions[0].HasAccessControl)
}
