package rules

import (
	"github.com/0xmilen/solsentry/internal/facts"
	"github.com/0xmilen/solsentry/internal/model"
)

// Builtin returns the compiled-in rule set. Detectors are intentionally
// overlapping; none suppresses another.
func Builtin() []Definition {
	return []Definition{
		{
			ID:       "ai-agent-decision-manipulation",
			Title:    "AI agent decision executed without validation or consensus",
			Severity: model.SeverityCritical,
			Category: "ai-agent",
			Message:  "AI decision path executes on-chain effects without a validation or consensus step",
			FixSuggestion: "Gate AI-driven decisions behind an on-chain validation step or a multi-party consensus check " +
				"before any state change or transfer.",
			Require: []Group{
				{Any: []string{"aidecision", "ai_decision", "executeaidecision", "agentdecision", "agent_decision"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{
					{Any: []string{"validate", "validated", "validation"}},
					{Any: []string{"consensus", "quorum"}},
				}},
			},
		},
		{
			ID:            "oracle-single-source",
			Title:         "Single price oracle dependency",
			Severity:      model.SeverityHigh,
			Category:      "oracle",
			Message:       "Contract depends on exactly one oracle source; a single feed is a single point of manipulation",
			FixSuggestion: "Aggregate multiple independent oracle feeds (median or TWAP) before acting on a price.",
			Require: []Group{
				{Any: []string{"oracle", "chainlink"}},
			},
			Counts: []Count{
				{Group: Group{Any: []string{"oracle", "chainlink"}}, Op: CountExactly, N: 1},
			},
		},
		{
			ID:            "missing-signer-check",
			Title:         "Account mutated without signer verification",
			Severity:      model.SeverityCritical,
			Category:      "solana",
			Message:       "Lamports or account data are modified without verifying the authorizing account signed",
			FixSuggestion: "Check account.is_signer before debiting or mutating the account and fail with MissingRequiredSignature.",
			References:    []string{"https://github.com/coral-xyz/sealevel-attacks"},
			Require: []Group{
				{Any: []string{"lamports", "try_borrow_mut_lamports", "account_info"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"is_signer"}}}},
			},
		},
		{
			ID:            "missing-owner-check",
			Title:         "Account trusted without owner verification",
			Severity:      model.SeverityHigh,
			Category:      "solana",
			Message:       "Account data is deserialized and trusted without verifying the owning program",
			FixSuggestion: "Compare account.owner against the expected program id before trusting account data.",
			References:    []string{"https://github.com/coral-xyz/sealevel-attacks"},
			Require: []Group{
				{Any: []string{"next_account_info", "account_info"}},
				{Any: []string{"deserialize", "try_from_slice", "unpack"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"owner"}}}},
			},
		},
		{
			ID:            "arbitrary-cpi",
			Title:         "Cross-program invocation of an unverified program",
			Severity:      model.SeverityHigh,
			Category:      "solana",
			Message:       "invoke/invoke_signed targets a program account whose id is never verified",
			FixSuggestion: "Pin the callee program id and require the passed program account to match it before invoking.",
			Require: []Group{
				{Any: []string{"invoke", "invoke_signed"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"check_program_account", "check_id"}}}},
			},
		},
		{
			ID:            "reinitialization",
			Title:         "Initialization path lacks an already-initialized guard",
			Severity:      model.SeverityMedium,
			Category:      "lifecycle",
			Message:       "An initialize entry point can be replayed to reset privileged state",
			FixSuggestion: "Record an is_initialized flag (or discriminator) and reject repeated initialization.",
			Require: []Group{
				{Any: []string{"initialize", "init"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"is_initialized", "initialized", "initializer"}}}},
			},
		},
		{
			ID:            "rent-exemption",
			Title:         "Lamport balance handled without a rent exemption check",
			Severity:      model.SeverityMedium,
			Category:      "solana",
			Message:       "Lamports are moved or accepted without keeping the account rent exempt; the runtime can garbage collect it",
			FixSuggestion: "Verify Rent::get()?.is_exempt(lamports, data_len) on initialization and keep minimum_balance(data_len) behind on withdrawal.",
			References:    []string{"https://github.com/coral-xyz/sealevel-attacks"},
			Require: []Group{
				{Any: []string{"lamports", "try_borrow_mut_lamports"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"minimum_balance", "is_exempt"}, Scope: facts.ScopeCode}}},
			},
		},
		{
			ID:            "pda-validation",
			Title:         "Program derived address accepted without derivation check",
			Severity:      model.SeverityHigh,
			Category:      "solana",
			Message:       "A PDA account is trusted without re-deriving it through find_program_address; crafted seeds or a non-canonical bump pass",
			FixSuggestion: "Derive the expected PDA with Pubkey::find_program_address (canonical bump) and compare it against the passed account key.",
			References:    []string{"https://github.com/coral-xyz/sealevel-attacks"},
			Require: []Group{
				{Any: []string{"pda", "seeds", "create_program_address"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"find_program_address"}, Scope: facts.ScopeCode}}},
			},
		},
		{
			ID:            "type-confusion",
			Title:         "Multiple account layouts deserialized without a discriminator",
			Severity:      model.SeverityHigh,
			Category:      "solana",
			Message:       "More than one account struct is deserialized from raw account data with no type discriminator to tell them apart",
			FixSuggestion: "Prefix every account layout with a unique discriminator field and verify it right after deserializing.",
			References:    []string{"https://github.com/coral-xyz/sealevel-attacks"},
			Require: []Group{
				{Any: []string{"try_from_slice", "deserialize", "unpack"}},
			},
			Counts: []Count{
				{Group: Group{Any: []string{"try_from_slice", "deserialize", "unpack"}, Scope: facts.ScopeCode}, Op: CountAtLeast, N: 2},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"discriminator", "discriminant"}, Scope: facts.ScopeCode}}},
			},
		},
		{
			ID:            "unchecked-arithmetic",
			Title:         "Arithmetic inside an unchecked block",
			Severity:      model.SeverityMedium,
			Category:      "arithmetic",
			Message:       "unchecked arithmetic silently wraps on overflow and underflow",
			FixSuggestion: "Keep arithmetic checked unless the bound is locally provable; document any unchecked block.",
			Constructs:    []facts.Construct{facts.ConstructUnchecked},
		},
		{
			ID:            "arithmetic-overflow",
			Title:         "Overflow-prone arithmetic without checked math",
			Severity:      model.SeverityMedium,
			Category:      "arithmetic",
			Message:       "Arithmetic flagged as overflow-prone never uses a checked_* or saturating_* counterpart",
			FixSuggestion: "Use checked_add/checked_sub/checked_mul (or the saturating variants) and fail on None.",
			Require: []Group{
				{Any: []string{"overflow", "underflow"}},
			},
			Forbid: []Forbid{
				{AnyPresent: []Group{{
					Any: []string{"checked_add", "checked_sub", "checked_mul", "checked_div",
						"saturating_add", "saturating_sub", "saturating_mul"},
					Scope: facts.ScopeCode,
				}}},
			},
		},
		{
			ID:            "reentrancy-order",
			Title:         "External call before state update",
			Severity:      model.SeverityHigh,
			Category:      "reentrancy",
			Message:       "An external call precedes the state write it should follow; callee can re-enter mid-update",
			FixSuggestion: "Apply checks-effects-interactions: update state first, or guard with a reentrancy lock.",
			References:    []string{"SWC-107"},
			Constructs:    []facts.Construct{facts.ConstructCallBeforeWrite},
			Forbid: []Forbid{
				{AnyPresent: []Group{{Any: []string{"nonreentrant", "reentrancyguard"}}}},
			},
			NeedsFullBody: true,
		},
		{
			ID:            "delegatecall-injection",
			Title:         "delegatecall into externally influenced target",
			Severity:      model.SeverityCritical,
			Category:      "call",
			Message:       "delegatecall executes foreign code in this contract's storage context",
			FixSuggestion: "Restrict delegatecall targets to immutable, audited implementations.",
			References:    []string{"SWC-112"},
			Constructs:    []facts.Construct{facts.ConstructDelegatecall},
		},
		{
			ID:            "tx-origin-auth",
			Title:         "tx.origin used for authorization",
			Severity:      model.SeverityHigh,
			Category:      "auth",
			Message:       "tx.origin authorization is phishable through intermediary contracts",
			FixSuggestion: "Authorize with msg.sender, not tx.origin.",
			References:    []string{"SWC-115"},
			Constructs:    []facts.Construct{facts.ConstructTxOrigin},
		},
		{
			ID:            "missing-access-control",
			Title:         "State-changing public function without access control",
			Severity:      model.SeverityHigh,
			Category:      "auth",
			Message:       "A public or external function mutates state with no modifier or caller check",
			FixSuggestion: "Add an access modifier (onlyOwner/onlyRole) or an explicit caller check.",
			References:    []string{"SWC-105"},
			Constructs:    []facts.Construct{facts.ConstructUnprotectedFn},
			NeedsFullBody: true,
		},
		{
			ID:            "weak-randomness",
			Title:         "Block values used as randomness",
			Severity:      model.SeverityHigh,
			Category:      "randomness",
			Message:       "block.timestamp/number are miner-influenced and predictable as entropy",
			FixSuggestion: "Use a verifiable randomness source (VRF) or commit-reveal.",
			References:    []string{"SWC-120"},
			Constructs:    []facts.Construct{facts.ConstructBlockTimestamp},
			Require: []Group{
				{Any: []string{"random", "randomness", "seed", "lottery", "winner", "raffle"}},
			},
		},
		{
			ID:            "floating-pragma",
			Title:         "Floating compiler version pragma",
			Severity:      model.SeverityLow,
			Category:      "configuration",
			Message:       "Unpinned pragma compiles under untested compiler versions",
			FixSuggestion: "Pin the pragma to a single tested compiler version.",
			References:    []string{"SWC-103"},
			Constructs:    []facts.Construct{facts.ConstructFloatingPragma},
		},
		{
			ID:            "prompt-injection-surface",
			Title:         "Unsanitized prompt content reaches an AI consumer",
			Severity:      model.SeverityHigh,
			Category:      "ai-agent",
			Message:       "Prompt-bearing data flows onward without sanitization",
			FixSuggestion: "Sanitize or allow-list prompt content before forwarding it to an agent.",
			Require: []Group{
				{Any: []string{"prompt"}, Scope: facts.ScopeAll, Substring: true},
			},
			Forbid: []Forbid{
				{AllPresent: []Group{
					{Any: []string{"sanitize", "sanitized"}},
					{Any: []string{"validate", "validated"}},
				}},
			},
		},
		{
			ID:            "selfdestruct-exposure",
			Title:         "Contract can be destroyed",
			Severity:      model.SeverityCritical,
			Category:      "lifecycle",
			Message:       "selfdestruct removes the contract and forwards its balance",
			FixSuggestion: "Remove selfdestruct or restrict it behind timelocked governance.",
			References:    []string{"SWC-106"},
			Constructs:    []facts.Construct{facts.ConstructSelfdestruct},
		},
		{
			ID:               "signature-replay",
			Title:            "Signature verification without replay protection",
			Severity:         model.SeverityHigh,
			Category:         "auth",
			Message:          "Signatures are verified but no nonce or used-hash guard prevents replay",
			FixSuggestion:    "Track a per-signer nonce (or consumed digest set) inside the signed payload.",
			References:       []string{"SWC-121"},
			Require:          []Group{{Any: []string{"ecrecover", "signature", "permit"}}},
			ForbidConstructs: []facts.Construct{facts.ConstructReplayGuard},
		},
		{
			ID:            "unchecked-low-level-call",
			Title:         "Low-level call result not checked",
			Severity:      model.SeverityMedium,
			Category:      "call",
			Message:       "A low-level call's success flag appears to go unchecked",
			FixSuggestion: "Require the returned success flag (or use a reverting wrapper).",
			References:    []string{"SWC-104"},
			Constructs:    []facts.Construct{facts.ConstructLowLevelCall},
			Forbid: []Forbid{
				{AllPresent: []Group{
					{Any: []string{"success", "ok"}},
					{Any: []string{"require", "revert", "assert"}},
				}},
			},
		},
		{
			ID:            "call-in-loop",
			Title:         "External call inside a loop",
			Severity:      model.SeverityMedium,
			Category:      "denial-of-service",
			Message:       "One failing callee or unbounded iteration can block the whole loop",
			FixSuggestion: "Prefer pull-payments; bound the iteration and isolate per-callee failures.",
			References:    []string{"SWC-113"},
			Constructs:    []facts.Construct{facts.ConstructCallInLoop},
			NeedsFullBody: true,
		},
		{
			ID:            "unbounded-recursion",
			Title:         "Function recurses into itself",
			Severity:      model.SeverityLow,
			Category:      "denial-of-service",
			Message:       "Direct or this.-qualified recursion can exhaust gas or stack depth",
			FixSuggestion: "Convert the recursion to an iterative form with an explicit bound.",
			Constructs:    []facts.Construct{facts.ConstructRecursion},
			NeedsFullBody: true,
		},
	}
}
