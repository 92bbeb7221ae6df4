package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

func ConnectPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// Migrate cria as tabelas do ledger caso não existam.
// Toda mutação de saldo passa por accounts + wagers dentro de uma transação.
func Migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			user_id TEXT PRIMARY KEY,
			balance BIGINT NOT NULL DEFAULT 0,
			CONSTRAINT balance_non_negative CHECK (balance >= 0)
		)`,
		`CREATE TABLE IF NOT EXISTS wagers (
			id            TEXT PRIMARY KEY,
			commitment_id TEXT NOT NULL,
			bettor_id     TEXT NOT NULL,
			direction     TEXT NOT NULL,
			amount        BIGINT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			resolved      BOOLEAN NOT NULL DEFAULT FALSE,
			payout        BIGINT,
			CONSTRAINT amount_positive CHECK (amount > 0)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_wagers_commitment ON wagers (commitment_id) WHERE resolved = FALSE`,
	}

	for _, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("migrate ledger schema: %w", err)
		}
	}
	return nil
}
