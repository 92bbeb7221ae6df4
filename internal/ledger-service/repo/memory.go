package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

// Memory é um Store em memória com as mesmas garantias de atomicidade do
// Postgres (um mutex serializa cada unidade). Usado nos testes e em modo local.
type Memory struct {
	mu       sync.Mutex
	accounts map[string]int64
	wagers   map[string]domain.Wager
	seq      int64
}

func NewMemory() *Memory {
	return &Memory{
		accounts: make(map[string]int64),
		wagers:   make(map[string]domain.Wager),
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) getOrSeed(userID string) int64 {
	bal, ok := m.accounts[userID]
	if !ok {
		bal = domain.StartingBalance
		m.accounts[userID] = bal
	}
	return bal
}

func (m *Memory) GetOrCreateAccount(_ context.Context, userID string) (domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.Account{UserID: userID, Balance: m.getOrSeed(userID)}, nil
}

func (m *Memory) PlaceWager(_ context.Context, bettorID, commitmentID string, dir domain.Direction, amount int64) (domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.getOrSeed(bettorID)
	if bal < amount {
		return domain.Wager{}, domain.ErrInsufficientFunds
	}
	m.accounts[bettorID] = bal - amount

	// seq desempata created_at em testes que apostam no mesmo instante
	m.seq++
	w := domain.Wager{
		ID:           uuid.NewString(),
		CommitmentID: commitmentID,
		BettorID:     bettorID,
		Direction:    dir,
		Amount:       amount,
		CreatedAt:    time.Now().UTC().Add(time.Duration(m.seq) * time.Microsecond),
	}
	m.wagers[w.ID] = w
	return w, nil
}

func (m *Memory) CancelWager(_ context.Context, bettorID, wagerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wagers[wagerID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if w.BettorID != bettorID {
		return 0, domain.ErrNotOwner
	}
	if w.Resolved {
		return 0, domain.ErrAlreadyClosed
	}

	delete(m.wagers, wagerID)
	m.accounts[w.BettorID] += w.Amount
	return w.Amount, nil
}

func (m *Memory) GetWager(_ context.Context, wagerID string) (domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.wagers[wagerID]
	if !ok {
		return domain.Wager{}, domain.ErrNotFound
	}
	return w, nil
}

func (m *Memory) ListWagers(_ context.Context, commitmentID string) ([]domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Wager
	for _, w := range m.wagers {
		if w.CommitmentID == commitmentID {
			out = append(out, w)
		}
	}
	sortWagers(out)
	return out, nil
}

func (m *Memory) SettlePool(_ context.Context, commitmentID string, fn SettleFunc) ([]domain.Wager, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var pool []domain.Wager
	for _, w := range m.wagers {
		if w.CommitmentID == commitmentID && !w.Resolved {
			pool = append(pool, w)
		}
	}
	if len(pool) == 0 {
		return nil, nil
	}
	sortWagers(pool)

	entries, err := fn(pool)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*domain.Wager, len(pool))
	for i := range pool {
		byID[pool[i].ID] = &pool[i]
	}

	for _, e := range entries {
		w, ok := byID[e.WagerID]
		if !ok {
			return nil, fmt.Errorf("settle: payout for unknown wager %s", e.WagerID)
		}
		payout := e.Payout
		w.Resolved = true
		w.Payout = &payout
		m.wagers[w.ID] = *w
		if e.Credit > 0 {
			m.accounts[w.BettorID] += e.Credit
		}
	}
	return pool, nil
}

// Balance é um atalho de teste: lê o saldo sem semear conta nova.
func (m *Memory) Balance(userID string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts[userID]
}

// SetBalance é um atalho de teste para montar cenários.
func (m *Memory) SetBalance(userID string, balance int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[userID] = balance
}

func sortWagers(ws []domain.Wager) {
	sort.Slice(ws, func(i, j int) bool {
		if !ws[i].CreatedAt.Equal(ws[j].CreatedAt) {
			return ws[i].CreatedAt.Before(ws[j].CreatedAt)
		}
		return ws[i].ID < ws[j].ID
	})
}
