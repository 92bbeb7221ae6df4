package domain

import "errors"

// Erros de validação: determinísticos, não-retryable, expostos 1:1 na API.
var (
	ErrInvalidAmount     = errors.New("bet amount must be positive")
	ErrInvalidDirection  = errors.New("invalid bet direction")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrSelfBet           = errors.New("cannot bet on your own commitment")
	ErrCommitmentClosed  = errors.New("commitment is not open for betting")
	ErrNotFound          = errors.New("not found")
	ErrNotOwner          = errors.New("wager belongs to another user")
	ErrAlreadyClosed     = errors.New("wager is already resolved")
	ErrSettlePending     = errors.New("cannot settle a pending commitment")
)

// ErrConflict sinaliza que uma mutação concorrente invalidou a pré-condição
// entre a checagem e o commit; o engine tenta de novo uma vez com estado novo.
var ErrConflict = errors.New("concurrent update conflict")
