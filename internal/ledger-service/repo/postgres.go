package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/commitcast/wager-ledger/internal/ledger-service/domain"
)

// Postgres implementa o Store sobre database/sql com lock pessimista
// (SELECT ... FOR UPDATE) nas linhas de conta e aposta.
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var _ Store = (*Postgres)(nil)

// GetOrCreateAccount retorna a conta do usuário, semeando o saldo inicial
// na primeira leitura (comportamento herdado do cadastro de usuários)
func (p *Postgres) GetOrCreateAccount(ctx context.Context, userID string) (domain.Account, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Account{}, mapErr(err)
	}
	defer tx.Rollback()

	// ON CONFLICT cobre duas primeiras leituras simultâneas do mesmo usuário
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO accounts(user_id, balance) VALUES($1,$2) ON CONFLICT (user_id) DO NOTHING`,
		userID, domain.StartingBalance); err != nil {
		return domain.Account{}, mapErr(err)
	}

	var bal int64
	if err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id=$1`, userID).Scan(&bal); err != nil {
		return domain.Account{}, mapErr(err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Account{}, mapErr(err)
	}
	return domain.Account{UserID: userID, Balance: bal}, nil
}

// PlaceWager debita o stake e insere a aposta na mesma transação.
// O FOR UPDATE na conta garante que duas colocações simultâneas do mesmo
// usuário nunca passem as duas pela checagem de saldo.
func (p *Postgres) PlaceWager(ctx context.Context, bettorID, commitmentID string, dir domain.Direction, amount int64) (domain.Wager, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.Wager{}, mapErr(err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO accounts(user_id, balance) VALUES($1,$2) ON CONFLICT (user_id) DO NOTHING`,
		bettorID, domain.StartingBalance); err != nil {
		return domain.Wager{}, mapErr(err)
	}

	var balance int64
	if err = tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE user_id=$1 FOR UPDATE`, bettorID).Scan(&balance); err != nil {
		return domain.Wager{}, mapErr(err)
	}

	if balance < amount {
		return domain.Wager{}, domain.ErrInsufficientFunds
	}

	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $1 WHERE user_id=$2`, amount, bettorID); err != nil {
		return domain.Wager{}, mapErr(err)
	}

	w := domain.Wager{
		ID:           uuid.NewString(),
		CommitmentID: commitmentID,
		BettorID:     bettorID,
		Direction:    dir,
		Amount:       amount,
		CreatedAt:    time.Now().UTC(),
	}
	if _, err = tx.ExecContext(ctx, `
		INSERT INTO wagers (id, commitment_id, bettor_id, direction, amount, created_at, resolved)
		VALUES ($1,$2,$3,$4,$5,$6,FALSE)`,
		w.ID, w.CommitmentID, w.BettorID, string(w.Direction), w.Amount, w.CreatedAt); err != nil {
		return domain.Wager{}, mapErr(err)
	}

	if err = tx.Commit(); err != nil {
		return domain.Wager{}, mapErr(err)
	}
	return w, nil
}

// CancelWager deleta a aposta e credita o stake de volta, atomicamente.
// Se uma liquidação concorrente venceu a corrida, a linha já está resolvida
// e o cancelamento falha limpo com ErrAlreadyClosed.
func (p *Postgres) CancelWager(ctx context.Context, bettorID, wagerID string) (int64, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, mapErr(err)
	}
	defer tx.Rollback()

	var owner string
	var amount int64
	var resolved bool
	err = tx.QueryRowContext(ctx,
		`SELECT bettor_id, amount, resolved FROM wagers WHERE id=$1 FOR UPDATE`, wagerID).
		Scan(&owner, &amount, &resolved)
	if err == sql.ErrNoRows {
		return 0, domain.ErrNotFound
	} else if err != nil {
		return 0, mapErr(err)
	}

	if owner != bettorID {
		return 0, domain.ErrNotOwner
	}
	if resolved {
		return 0, domain.ErrAlreadyClosed
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM wagers WHERE id=$1`, wagerID); err != nil {
		return 0, mapErr(err)
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $1 WHERE user_id=$2`, amount, owner); err != nil {
		return 0, mapErr(err)
	}

	if err = tx.Commit(); err != nil {
		return 0, mapErr(err)
	}
	return amount, nil
}

func (p *Postgres) GetWager(ctx context.Context, wagerID string) (domain.Wager, error) {
	w, err := scanWager(p.db.QueryRowContext(ctx, `
		SELECT id, commitment_id, bettor_id, direction, amount, created_at, resolved, payout
		FROM wagers WHERE id=$1`, wagerID))
	if err == sql.ErrNoRows {
		return domain.Wager{}, domain.ErrNotFound
	} else if err != nil {
		return domain.Wager{}, mapErr(err)
	}
	return w, nil
}

func (p *Postgres) ListWagers(ctx context.Context, commitmentID string) ([]domain.Wager, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, commitment_id, bettor_id, direction, amount, created_at, resolved, payout
		FROM wagers WHERE commitment_id=$1 ORDER BY created_at, id`, commitmentID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, w)
	}
	return out, mapErr(rows.Err())
}

// SettlePool trava o conjunto de apostas não resolvidas do commitment e aplica
// os payouts calculados por fn numa única transação. Conjunto vazio é no-op.
func (p *Postgres) SettlePool(ctx context.Context, commitmentID string, fn SettleFunc) ([]domain.Wager, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, mapErr(err)
	}
	defer tx.Rollback()

	// Ordem estável (created_at, id) também define a ordem de lock,
	// evitando deadlock entre dois gatilhos de liquidação concorrentes
	rows, err := tx.QueryContext(ctx, `
		SELECT id, commitment_id, bettor_id, direction, amount, created_at, resolved, payout
		FROM wagers WHERE commitment_id=$1 AND resolved=FALSE
		ORDER BY created_at, id FOR UPDATE`, commitmentID)
	if err != nil {
		return nil, mapErr(err)
	}

	var pool []domain.Wager
	for rows.Next() {
		w, err := scanWager(rows)
		if err != nil {
			rows.Close()
			return nil, mapErr(err)
		}
		pool = append(pool, w)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, mapErr(err)
	}

	if len(pool) == 0 {
		return nil, nil
	}

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
		if _, err = tx.ExecContext(ctx,
			`UPDATE wagers SET resolved=TRUE, payout=$1 WHERE id=$2`, e.Payout, e.WagerID); err != nil {
			return nil, mapErr(err)
		}
		if e.Credit > 0 {
			if _, err = tx.ExecContext(ctx,
				`UPDATE accounts SET balance = balance + $1 WHERE user_id=$2`, e.Credit, w.BettorID); err != nil {
				return nil, mapErr(err)
			}
		}
		payout := e.Payout
		w.Resolved = true
		w.Payout = &payout
	}

	if err = tx.Commit(); err != nil {
		return nil, mapErr(err)
	}
	return pool, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanWager(r rowScanner) (domain.Wager, error) {
	var w domain.Wager
	var dir string
	var payout sql.NullInt64
	if err := r.Scan(&w.ID, &w.CommitmentID, &w.BettorID, &dir, &w.Amount, &w.CreatedAt, &w.Resolved, &payout); err != nil {
		return domain.Wager{}, err
	}
	w.Direction = domain.Direction(dir)
	if payout.Valid {
		v := payout.Int64
		w.Payout = &v
	}
	return w, nil
}

// mapErr traduz falhas de serialização/deadlock do Postgres em ErrConflict,
// que o engine tenta de novo uma vez antes de expor ao chamador.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return fmt.Errorf("%w: %v", domain.ErrConflict, err)
		}
	}
	return err
}
