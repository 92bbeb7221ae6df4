package domain

import "time"

// Direction é o lado apostado sobre o desfecho de um commitment.
type Direction string

const (
	WillComplete Direction = "will_complete"
	WillFail     Direction = "will_fail"
)

// Valid reporta se o valor veio de um payload conhecido.
func (d Direction) Valid() bool {
	return d == WillComplete || d == WillFail
}

// CommitmentStatus espelha o status do serviço dono dos commitments.
type CommitmentStatus string

const (
	StatusPending   CommitmentStatus = "pending"
	StatusCompleted CommitmentStatus = "completed"
	StatusFailed    CommitmentStatus = "failed"
	StatusExpired   CommitmentStatus = "expired"
)

// Terminal reporta se o status encerra o mercado de apostas.
func (s CommitmentStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusExpired
}

// WinningDirection traduz um outcome terminal no lado vencedor.
// Expired não tem vencedor (ok=false): todo mundo é reembolsado.
func (s CommitmentStatus) WinningDirection() (Direction, bool) {
	switch s {
	case StatusCompleted:
		return WillComplete, true
	case StatusFailed:
		return WillFail, true
	}
	return "", false
}

// StartingBalance é o saldo semeado quando a conta de um usuário é criada.
const StartingBalance int64 = 500

// Account guarda o saldo de pontos de um usuário. Saldo nunca fica negativo.
type Account struct {
	UserID  string
	Balance int64
}

// Wager é uma aposta persistida.
// Payout fica nil até a liquidação; depois guarda o resultado líquido
// (+ganho, -perda, 0 reembolso). Aposta resolvida é imutável.
type Wager struct {
	ID           string
	CommitmentID string
	BettorID     string
	Direction    Direction
	Amount       int64
	CreatedAt    time.Time
	Resolved     bool
	Payout       *int64
}

// Commitment é a projeção mínima consumida do resolver.
type Commitment struct {
	ID       string           `json:"id"`
	OwnerID  string           `json:"owner_id"`
	Status   CommitmentStatus `json:"status"`
	Deadline time.Time        `json:"deadline"`
}

// Open reporta se o commitment ainda aceita apostas/cancelamentos.
func (c Commitment) Open(now time.Time) bool {
	return c.Status == StatusPending && now.Before(c.Deadline)
}
