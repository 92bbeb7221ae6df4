package events

type WagerPlaced struct {
	WagerID      string `json:"wager_id"`
	CommitmentID string `json:"commitment_id"`
	BettorID     string `json:"bettor_id"`
	Direction    string `json:"direction"` // "will_complete" | "will_fail"
	Amount       int64  `json:"amount"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}

type WagerCancelled struct {
	WagerID      string `json:"wager_id"`
	CommitmentID string `json:"commitment_id"`
	BettorID     string `json:"bettor_id"`
	Refunded     int64  `json:"refunded"`
	TsUnixMs     int64  `json:"ts_unix_ms"`
}
