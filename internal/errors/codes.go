// Package errors provides structured error handling for game verbs.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Ledger errors
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount     Code = "INVALID_AMOUNT"

	// Inventory errors
	CodeInsufficientQuantity Code = "INSUFFICIENT_QUANTITY"
	CodeItemNotFound         Code = "ITEM_NOT_FOUND"
	CodeOwnershipCapReached  Code = "OWNERSHIP_CAP_REACHED"

	// Sack errors
	CodeInsufficientCapacity Code = "INSUFFICIENT_CAPACITY"
	CodeFishNotFound         Code = "FISH_NOT_FOUND"
	CodeSackEmpty            Code = "SACK_EMPTY"

	// Status effect errors
	CodeEffectNotFound Code = "EFFECT_NOT_FOUND"

	// Quest errors
	CodeQuestNotFound     Code = "QUEST_NOT_FOUND"
	CodeAlreadyCompleted  Code = "QUEST_ALREADY_COMPLETED"
	CodeRequirementUnmet  Code = "QUEST_REQUIREMENT_UNMET"
	CodeNoQuestsClaimable Code = "NO_QUESTS_CLAIMABLE"

	// Trophy errors
	CodeTrophyCaseFull    Code = "TROPHY_CASE_FULL"
	CodeTrophyNotFound    Code = "TROPHY_NOT_FOUND"
	CodeInvalidTrophySlot Code = "INVALID_TROPHY_SLOT"

	// Identity errors
	CodeInvalidCode      Code = "LINK_CODE_INVALID"
	CodeExpired          Code = "LINK_CODE_EXPIRED"
	CodeSelfLink         Code = "LINK_SELF"
	CodeConflictingLinks Code = "LINK_CONFLICT"

	// Dispatcher errors
	CodeUnknownVerb Code = "UNKNOWN_VERB"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// GRPCCode maps domain codes to gRPC status codes. The HTTP front door
// derives its response status from this mapping.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - validation failures, bad input
	case CodeInvalidAmount,
		CodeInvalidTrophySlot,
		CodeSelfLink,
		CodeUnknownVerb:
		return codes.InvalidArgument

	// FailedPrecondition - state doesn't allow operation
	case CodeInsufficientFunds,
		CodeInsufficientQuantity,
		CodeInsufficientCapacity,
		CodeOwnershipCapReached,
		CodeSackEmpty,
		CodeAlreadyCompleted,
		CodeRequirementUnmet,
		CodeNoQuestsClaimable,
		CodeTrophyCaseFull,
		CodeExpired,
		CodeConflictingLinks:
		return codes.FailedPrecondition

	// NotFound - missing entities
	case CodeNotFound,
		CodeItemNotFound,
		CodeFishNotFound,
		CodeEffectNotFound,
		CodeQuestNotFound,
		CodeTrophyNotFound,
		CodeInvalidCode:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
