package events

import "time"

// Evento emitido pelo settlement-worker após liquidar um commitment.
type SettledWager struct {
	WagerID  string `json:"wager_id"`
	BettorID string `json:"bettor_id"`
	Payout   int64  `json:"payout"` // resultado líquido: +ganho, -perda, 0 reembolso
	Credited int64  `json:"credited"`
}

type WagerSettled struct {
	CommitmentID string         `json:"commitment_id"`
	Outcome      string         `json:"outcome"`
	Wagers       []SettledWager `json:"wagers"`
	LoserPool    int64          `json:"loser_pool"`
	Ts           time.Time      `json:"ts"`
}
