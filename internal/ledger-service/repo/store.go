package repo

import (
	"context"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

// PayoutEntry é o resultado calculado para uma aposta dentro de uma liquidação.
// Payout é o líquido gravado na aposta; Credit é o que volta pra conta do
// apostador (stake + ganho nos vencedores, stake nos reembolsos, 0 nos perdedores).
type PayoutEntry struct {
	WagerID string
	Payout  int64
	Credit  int64
}

// SettleFunc calcula os payouts de um pool de apostas não resolvidas.
// Roda dentro da unidade atômica do store, com as linhas travadas.
type SettleFunc func(wagers []domain.Wager) ([]PayoutEntry, error)

// Store é o contrato do ledger: toda mutação multi-linha (debitar + inserir,
// deletar + creditar, liquidar N apostas) é tudo-ou-nada. Nenhum leitor
// concorrente enxerga estado parcial.
type Store interface {
	GetOrCreateAccount(ctx context.Context, userID string) (domain.Account, error)

	// PlaceWager debita o saldo e insere a aposta numa única transação.
	// Retorna domain.ErrInsufficientFunds sem alterar estado se faltar saldo.
	PlaceWager(ctx context.Context, bettorID, commitmentID string, dir domain.Direction, amount int64) (domain.Wager, error)

	// CancelWager deleta a aposta e devolve o stake integral, atomicamente.
	CancelWager(ctx context.Context, bettorID, wagerID string) (refunded int64, err error)

	GetWager(ctx context.Context, wagerID string) (domain.Wager, error)
	ListWagers(ctx context.Context, commitmentID string) ([]domain.Wager, error)

	// SettlePool trava todas as apostas não resolvidas do commitment, chama fn
	// pra calcular os payouts e aplica tudo numa transação só. Pool vazio
	// retorna (nil, nil) sem chamar fn -- é o que torna a liquidação idempotente.
	SettlePool(ctx context.Context, commitmentID string, fn SettleFunc) ([]domain.Wager, error)
}
