package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/commitment"
	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
	"github.com/commitcast/wager-ledger/internal/shared/metrics"
	"github.com/commitcast/wager-ledger/pkg/contracts/events"
)

// Publisher emite eventos do ledger (best-effort; a transação do store é a
// fonte de verdade, o evento é notificação).
type Publisher interface {
	PublishWagerPlaced(ctx context.Context, e events.WagerPlaced) error
	PublishWagerCancelled(ctx context.Context, e events.WagerCancelled) error
}

// WagerEngine valida e executa colocação/cancelamento de apostas.
// As pré-condições de mercado (status, deadline, dono) são checadas aqui;
// a checagem de saldo vive dentro da unidade atômica do store.
type WagerEngine struct {
	log         *zap.Logger
	store       repo.Store
	commitments commitment.Provider
	publ        Publisher

	now func() time.Time // injetável nos testes
}

func NewWagerEngine(log *zap.Logger, store repo.Store, cp commitment.Provider, publ Publisher) *WagerEngine {
	return &WagerEngine{
		log:         log,
		store:       store,
		commitments: cp,
		publ:        publ,
		now:         time.Now,
	}
}

// PlaceWager aplica as pré-condições e delega débito+insert ao store.
// Conflito concorrente é tentado de novo uma vez com estado fresco.
func (e *WagerEngine) PlaceWager(ctx context.Context, bettorID, commitmentID string, dir domain.Direction, amount int64) (domain.Wager, error) {
	if amount <= 0 {
		return domain.Wager{}, e.reject(domain.ErrInvalidAmount)
	}
	if !dir.Valid() {
		return domain.Wager{}, e.reject(domain.ErrInvalidDirection)
	}

	cm, err := e.commitments.Get(ctx, commitmentID)
	if err != nil {
		return domain.Wager{}, err
	}
	if cm.OwnerID == bettorID {
		return domain.Wager{}, e.reject(domain.ErrSelfBet)
	}
	if !cm.Open(e.now()) {
		return domain.Wager{}, e.reject(domain.ErrCommitmentClosed)
	}

	w, err := e.store.PlaceWager(ctx, bettorID, commitmentID, dir, amount)
	if errors.Is(err, domain.ErrConflict) {
		w, err = e.store.PlaceWager(ctx, bettorID, commitmentID, dir, amount)
	}
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			return domain.Wager{}, e.reject(err)
		}
		return domain.Wager{}, err
	}

	metrics.WagersPlaced.Inc()
	e.log.Info("wager placed",
		zap.String("wagerId", w.ID),
		zap.String("commitmentId", w.CommitmentID),
		zap.String("direction", string(w.Direction)),
		zap.Int64("amount", w.Amount),
	)
	if e.publ != nil {
		_ = e.publ.PublishWagerPlaced(ctx, events.WagerPlaced{
			WagerID:      w.ID,
			CommitmentID: w.CommitmentID,
			BettorID:     w.BettorID,
			Direction:    string(w.Direction),
			Amount:       w.Amount,
		})
	}
	return w, nil
}

// CancelWager devolve o stake integral enquanto a aposta não foi resolvida e
// o commitment segue aberto. Depois que o relógio ou o desfecho congelou o
// pool, o stake fica preso: ninguém escapa de posição perdedora com
// informação nova.
func (e *WagerEngine) CancelWager(ctx context.Context, bettorID, wagerID string) (int64, error) {
	w, err := e.store.GetWager(ctx, wagerID)
	if err != nil {
		return 0, err
	}
	if w.BettorID != bettorID {
		return 0, domain.ErrNotOwner
	}
	if w.Resolved {
		return 0, domain.ErrAlreadyClosed
	}

	cm, err := e.commitments.Get(ctx, w.CommitmentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// resolver não conhece mais o commitment; deixa o store decidir
	case err != nil:
		return 0, err
	case !cm.Open(e.now()):
		return 0, domain.ErrAlreadyClosed
	}

	// O store é a autoridade: se uma liquidação venceu a corrida, a linha
	// já está resolvida e ele devolve ErrAlreadyClosed
	refunded, err := e.store.CancelWager(ctx, bettorID, wagerID)
	if errors.Is(err, domain.ErrConflict) {
		refunded, err = e.store.CancelWager(ctx, bettorID, wagerID)
	}
	if err != nil {
		return 0, err
	}

	metrics.WagersCancelled.Inc()
	e.log.Info("wager cancelled",
		zap.String("wagerId", w.ID),
		zap.String("commitmentId", w.CommitmentID),
		zap.Int64("refunded", refunded),
	)
	if e.publ != nil {
		_ = e.publ.PublishWagerCancelled(ctx, events.WagerCancelled{
			WagerID:      w.ID,
			CommitmentID: w.CommitmentID,
			BettorID:     w.BettorID,
			Refunded:     refunded,
		})
	}
	return refunded, nil
}

// ListWagers expõe as apostas de um commitment (resolvidas e abertas).
func (e *WagerEngine) ListWagers(ctx context.Context, commitmentID string) ([]domain.Wager, error) {
	return e.store.ListWagers(ctx, commitmentID)
}

// Balance retorna (criando se preciso) a conta do usuário.
func (e *WagerEngine) Balance(ctx context.Context, userID string) (domain.Account, error) {
	return e.store.GetOrCreateAccount(ctx, userID)
}

func (e *WagerEngine) reject(err error) error {
	metrics.WagersRejected.WithLabelValues(rejectReason(err)).Inc()
	return err
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, domain.ErrInvalidDirection):
		return "invalid_direction"
	case errors.Is(err, domain.ErrSelfBet):
		return "self_bet"
	case errors.Is(err, domain.ErrCommitmentClosed):
		return "commitment_closed"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_balance"
	}
	return "other"
}
