package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
)

type fakeResolver struct {
	commitments map[string]domain.Commitment
}

func (f *fakeResolver) Get(_ context.Context, id string) (domain.Commitment, error) {
	cm, ok := f.commitments[id]
	if !ok {
		return domain.Commitment{}, domain.ErrNotFound
	}
	return cm, nil
}

func newTestEngine(store repo.Store, cms ...domain.Commitment) *WagerEngine {
	resolver := &fakeResolver{commitments: map[string]domain.Commitment{}}
	for _, cm := range cms {
		resolver.commitments[cm.ID] = cm
	}
	return NewWagerEngine(zap.NewNop(), store, resolver, nil)
}

func openCommitment(id, owner string) domain.Commitment {
	return domain.Commitment{
		ID:       id,
		OwnerID:  owner,
		Status:   domain.StatusPending,
		Deadline: time.Now().Add(24 * time.Hour),
	}
}

func TestPlaceWagerValidation(t *testing.T) {
	ctx := context.Background()
	past := domain.Commitment{ID: "late", OwnerID: "owner", Status: domain.StatusPending, Deadline: time.Now().Add(-time.Hour)}
	done := domain.Commitment{ID: "done", OwnerID: "owner", Status: domain.StatusCompleted, Deadline: time.Now().Add(time.Hour)}

	tests := []struct {
		name         string
		bettor       string
		commitmentID string
		direction    domain.Direction
		amount       int64
		wantErr      error
	}{
		{"zero amount", "u1", "open", domain.WillComplete, 0, domain.ErrInvalidAmount},
		{"negative amount", "u1", "open", domain.WillFail, -5, domain.ErrInvalidAmount},
		{"bad direction", "u1", "open", "maybe", 10, domain.ErrInvalidDirection},
		{"unknown commitment", "u1", "nope", domain.WillComplete, 10, domain.ErrNotFound},
		{"self bet", "owner", "open", domain.WillComplete, 10, domain.ErrSelfBet},
		{"past deadline", "u1", "late", domain.WillComplete, 10, domain.ErrCommitmentClosed},
		{"already resolved", "u1", "done", domain.WillFail, 10, domain.ErrCommitmentClosed},
		{"insufficient balance", "u1", "open", domain.WillComplete, 501, domain.ErrInsufficientFunds},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := repo.NewMemory()
			eng := newTestEngine(store, openCommitment("open", "owner"), past, done)

			_, err := eng.PlaceWager(ctx, tc.bettor, tc.commitmentID, tc.direction, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)

			// falha de validação não pode alterar estado
			wagers, lerr := store.ListWagers(ctx, tc.commitmentID)
			require.NoError(t, lerr)
			require.Empty(t, wagers)
		})
	}
}

func TestPlaceWagerDebitsBalance(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	eng := newTestEngine(store, openCommitment("c1", "owner"))

	w, err := eng.PlaceWager(ctx, "u1", "c1", domain.WillComplete, 120)
	require.NoError(t, err)
	require.False(t, w.Resolved)
	require.Nil(t, w.Payout)
	require.EqualValues(t, 380, store.Balance("u1"))
}

func TestCancelWagerRefundExactness(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	eng := newTestEngine(store, openCommitment("c1", "owner"))

	w, err := eng.PlaceWager(ctx, "u1", "c1", domain.WillComplete, 77)
	require.NoError(t, err)
	before := store.Balance("u1")

	refunded, err := eng.CancelWager(ctx, "u1", w.ID)
	require.NoError(t, err)
	require.EqualValues(t, 77, refunded)
	require.Equal(t, before+77, store.Balance("u1"))

	_, err = store.GetWager(ctx, w.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCancelWagerNotOwner(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	eng := newTestEngine(store, openCommitment("c1", "owner"))

	w, err := eng.PlaceWager(ctx, "u1", "c1", domain.WillFail, 10)
	require.NoError(t, err)

	_, err = eng.CancelWager(ctx, "u2", w.ID)
	require.ErrorIs(t, err, domain.ErrNotOwner)
	require.EqualValues(t, 500, store.Balance("u2"))
}

func TestCancelWagerAfterMarketClosed(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	cm := openCommitment("c1", "owner")
	resolver := &fakeResolver{commitments: map[string]domain.Commitment{"c1": cm}}
	eng := NewWagerEngine(zap.NewNop(), store, resolver, nil)

	w, err := eng.PlaceWager(ctx, "u1", "c1", domain.WillComplete, 10)
	require.NoError(t, err)

	// o commitment fecha depois da aposta
	cm.Status = domain.StatusCompleted
	resolver.commitments["c1"] = cm

	_, err = eng.CancelWager(ctx, "u1", w.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	require.EqualValues(t, 490, store.Balance("u1"))
}

func TestCancelWagerAfterSettlement(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	eng := newTestEngine(store, openCommitment("c1", "owner"))

	w, err := eng.PlaceWager(ctx, "u1", "c1", domain.WillComplete, 10)
	require.NoError(t, err)
	_, err = eng.PlaceWager(ctx, "u2", "c1", domain.WillFail, 10)
	require.NoError(t, err)

	settler := NewSettlementEngine(zap.NewNop(), store)
	_, err = settler.Settle(ctx, "c1", domain.StatusFailed)
	require.NoError(t, err)

	// a linha já está resolvida; cancelamento falha limpo, sem crédito
	_, err = eng.CancelWager(ctx, "u1", w.ID)
	require.ErrorIs(t, err, domain.ErrAlreadyClosed)
	require.EqualValues(t, 490, store.Balance("u1"))
}

func TestConcurrentPlaceOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemory()
	store.SetBalance("u1", 100)
	eng := newTestEngine(store, openCommitment("c1", "owner"))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.PlaceWager(ctx, "u1", "c1", domain.WillComplete, 100)
		}(i)
	}
	wg.Wait()

	// exatamente uma colocação passa pela checagem de saldo
	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		default:
			require.ErrorIs(t, err, domain.ErrInsufficientFunds)
			insufficient++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, 1, insufficient)
	require.EqualValues(t, 0, store.Balance("u1"))
}

func TestBalanceSeedsNewAccount(t *testing.T) {
	store := repo.NewMemory()
	eng := newTestEngine(store)

	acc, err := eng.Balance(context.Background(), "fresh")
	require.NoError(t, err)
	require.Equal(t, domain.StartingBalance, acc.Balance)
}
