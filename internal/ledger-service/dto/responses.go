package dto

import (
	"time"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

type WagerResponse struct {
	ID           string    `json:"id"`
	CommitmentID string    `json:"commitment_id"`
	BettorID     string    `json:"bettor_id"`
	Direction    string    `json:"direction"`
	Amount       int64     `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
	Resolved     bool      `json:"resolved"`
	Payout       *int64    `json:"payout"`
}

func FromWager(w domain.Wager) WagerResponse {
	return WagerResponse{
		ID:           w.ID,
		CommitmentID: w.CommitmentID,
		BettorID:     w.BettorID,
		Direction:    string(w.Direction),
		Amount:       w.Amount,
		CreatedAt:    w.CreatedAt,
		Resolved:     w.Resolved,
		Payout:       w.Payout,
	}
}

type BalanceResponse struct {
	Balance int64 `json:"balance"`
}

type CancelResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ErrorResponse segue o contrato da API: erro de validação vira 4xx com
// detail legível; falha transitória de storage vira 5xx retryable.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
