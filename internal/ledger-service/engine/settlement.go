package engine

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
	"github.com/commitcast/wager-ledger/internal/ledger-service/repo"
	"github.com/commitcast/wager-ledger/internal/shared/metrics"
)

// SettlementEngine converte todas as apostas abertas de um commitment em
// registros resolvidos e pagos, numa única unidade atômica do store.
// O pool é soma-zero: pontos do lado perdedor viram ganho do lado vencedor,
// nada é criado nem destruído.
type SettlementEngine struct {
	log   *zap.Logger
	store repo.Store
}

func NewSettlementEngine(log *zap.Logger, store repo.Store) *SettlementEngine {
	return &SettlementEngine{log: log, store: store}
}

// Settle liquida o commitment com o outcome terminal informado.
// Idempotente: segunda chamada encontra o pool vazio e retorna lista vazia.
// Expired devolve todos os stakes integrais (nenhum desfecho foi julgado).
func (s *SettlementEngine) Settle(ctx context.Context, commitmentID string, outcome domain.CommitmentStatus) ([]domain.Wager, error) {
	if !outcome.Terminal() {
		return nil, domain.ErrSettlePending
	}

	fn := func(pool []domain.Wager) ([]repo.PayoutEntry, error) {
		return computePayouts(pool, outcome), nil
	}

	resolved, err := s.store.SettlePool(ctx, commitmentID, fn)
	if errors.Is(err, domain.ErrConflict) {
		resolved, err = s.store.SettlePool(ctx, commitmentID, fn)
	}
	if err != nil {
		return nil, err
	}

	if len(resolved) == 0 {
		// pool já liquidado (ou nunca houve apostas); retrigger seguro
		return nil, nil
	}

	var redistributed int64
	for _, w := range resolved {
		if w.Payout != nil && *w.Payout > 0 {
			redistributed += *w.Payout
		}
	}

	metrics.Settlements.WithLabelValues(string(outcome)).Inc()
	metrics.PointsRedistributed.Add(float64(redistributed))
	s.log.Info("commitment settled",
		zap.String("commitmentId", commitmentID),
		zap.String("outcome", string(outcome)),
		zap.Int("wagers", len(resolved)),
		zap.Int64("redistributed", redistributed),
	)
	return resolved, nil
}

// computePayouts reparte o pool perdedor entre vencedores proporcionalmente
// ao stake, só com aritmética inteira. Regras:
//   - expired, lado vencedor vazio ou lado perdedor vazio: reembolso integral
//     (payout 0) -- não há o que redistribuir nem contraparte pra confiscar
//   - vencedor w recebe floor(loserPool * w.amount / winnerPool)
//   - a sobra da divisão inteira vai pro vencedor de maior stake (empate:
//     created_at mais antigo, depois id), garantindo que o pool perdedor é
//     distribuído por inteiro
func computePayouts(pool []domain.Wager, outcome domain.CommitmentStatus) []repo.PayoutEntry {
	winDir, judged := outcome.WinningDirection()

	var winners, losers []domain.Wager
	if judged {
		for _, w := range pool {
			if w.Direction == winDir {
				winners = append(winners, w)
			} else {
				losers = append(losers, w)
			}
		}
	}

	var winnerPool, loserPool int64
	for _, w := range winners {
		winnerPool += w.Amount
	}
	for _, l := range losers {
		loserPool += l.Amount
	}

	if !judged || winnerPool == 0 || loserPool == 0 {
		entries := make([]repo.PayoutEntry, 0, len(pool))
		for _, w := range pool {
			entries = append(entries, repo.PayoutEntry{WagerID: w.ID, Payout: 0, Credit: w.Amount})
		}
		return entries
	}

	shares := make([]int64, len(winners))
	var distributed int64
	top := 0
	for i, w := range winners {
		shares[i] = loserPool * w.Amount / winnerPool
		distributed += shares[i]
		if i > 0 && biggerStake(w, winners[top]) {
			top = i
		}
	}
	if rem := loserPool - distributed; rem > 0 {
		shares[top] += rem
	}

	entries := make([]repo.PayoutEntry, 0, len(pool))
	for i, w := range winners {
		entries = append(entries, repo.PayoutEntry{
			WagerID: w.ID,
			Payout:  shares[i],
			Credit:  w.Amount + shares[i],
		})
	}
	for _, l := range losers {
		entries = append(entries, repo.PayoutEntry{WagerID: l.ID, Payout: -l.Amount, Credit: 0})
	}
	return entries
}

// biggerStake decide quem fica com a sobra: maior stake vence; empate vai pro
// created_at mais antigo e, por fim, pro menor id (ordem estável).
func biggerStake(a, b domain.Wager) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID < b.ID
}
