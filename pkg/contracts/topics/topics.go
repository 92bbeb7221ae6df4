package topics

const (
	// Resolver -> settlement-worker
	CommitmentResolved = "commitment_resolved"

	// Ledger
	WagerPlaced  = "wager_placed"
	WagerSettled = "wager_settled"

	// DLQs
	CommitmentResolvedDLQ = "commitment_resolved_dlq"
)
