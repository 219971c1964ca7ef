package i18n

// Error codes must match the codes defined in internal/errors/codes.go.
// These are duplicated as strings to avoid an import cycle.
const (
	CodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeItemNotFound         = "ITEM_NOT_FOUND"
	CodeOwnershipCapReached  = "OWNERSHIP_CAP_REACHED"
	CodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"
	CodeFishNotFound         = "FISH_NOT_FOUND"
	CodeSackEmpty            = "SACK_EMPTY"
	CodeEffectNotFound       = "EFFECT_NOT_FOUND"
	CodeQuestNotFound        = "QUEST_NOT_FOUND"
	CodeAlreadyCompleted     = "QUEST_ALREADY_COMPLETED"
	CodeRequirementUnmet     = "QUEST_REQUIREMENT_UNMET"
	CodeNoQuestsClaimable    = "NO_QUESTS_CLAIMABLE"
	CodeTrophyCaseFull       = "TROPHY_CASE_FULL"
	CodeTrophyNotFound       = "TROPHY_NOT_FOUND"
	CodeInvalidTrophySlot    = "INVALID_TROPHY_SLOT"
	CodeInvalidCode          = "LINK_CODE_INVALID"
	CodeExpired              = "LINK_CODE_EXPIRED"
	CodeSelfLink             = "LINK_SELF"
	CodeConflictingLinks     = "LINK_CONFLICT"
	CodeUnknownVerb          = "UNKNOWN_VERB"
	CodeNotFound             = "NOT_FOUND"
)

var enUSCatalog = &Catalog{
	locale: "en-US",
	messages: map[Code]string{
		// Ledger errors
		CodeInsufficientFunds: "Insufficient funds. Your current balance is {{.Balance}}.",
		CodeInvalidAmount:     "No way jose, pick a number greater than 0.",

		// Inventory errors
		CodeInsufficientQuantity: "Not enough {{.Item}} in inventory to remove.",
		CodeItemNotFound:         "You don't have any {{.Item}}.",
		CodeOwnershipCapReached:  "You can only own {{.Max}}x {{.Item}}.",

		// Sack errors
		CodeInsufficientCapacity: "Your sack can only hold {{.Capacity}} fish.",
		CodeFishNotFound:         "There were no '{{.Fish}}' found in your sack.",
		CodeSackEmpty:            "Your sack is empty.",

		// Status effect errors
		CodeEffectNotFound: "Effect '{{.Effect}}' not found.",

		// Quest errors
		CodeQuestNotFound:    "No daily quest available.",
		CodeAlreadyCompleted: "Daily quest already completed. New quest in 24h.",
		CodeRequirementUnmet: "Missing items: need {{.Needed}}x {{.Item}}, you have {{.Held}}.",
		CodeNoQuestsClaimable: "Nothing to claim right now.",

		// Trophy errors
		CodeTrophyCaseFull:    "Trophy case is full! Remove a trophy first (max {{.Max}}).",
		CodeTrophyNotFound:    "You don't have any trophies.",
		CodeInvalidTrophySlot: "Invalid trophy number. You have {{.Count}} trophies.",

		// Identity errors
		CodeInvalidCode:      "Invalid code. Please check and try again.",
		CodeExpired:          "Code has expired. Please generate a new one.",
		CodeSelfLink:         "Cannot link an account to itself.",
		CodeConflictingLinks: "Cannot link accounts that are already linked to different account IDs.",

		// Dispatcher errors
		CodeUnknownVerb: "Unknown command '{{.Verb}}'.",

		// Storage errors
		CodeNotFound: "Not found.",
	},
}
