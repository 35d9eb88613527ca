package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/valerieholtz/fraud-mlops-pipeline/internal/core/domain"
	ports "github.com/valerieholtz/fraud-mlops-pipeline/internal/core/ports/output"
)

const createTableStmt = `
CREATE TABLE IF NOT EXISTS transactions (
	step INTEGER,
	type TEXT,
	amount REAL,
	nameOrig TEXT,
	oldbalanceOrg REAL,
	newbalanceOrig REAL,
	nameDest TEXT,
	oldbalanceDest REAL,
	newbalanceDest REAL,
	isFraud INTEGER,
	isFlaggedFraud INTEGER
)`

type transactionStore struct {
	db *sql.DB
}

// NewTransactionStore opens (and if needed initializes) the SQLite file the
// training pipeline reads from.
func NewTransactionStore(path string) (ports.TransactionStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(createTableStmt); err != nil {
		db.Close()
		return nil, fmt.Errorf("init transactions table: %w", err)
	}
	return &transactionStore{db: db}, nil
}

func (s *transactionStore) Recent(ctx context.Context, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT step, type, amount, nameOrig, oldbalanceOrg, newbalanceOrig,
		        nameDest, oldbalanceDest, newbalanceDest, isFraud, isFlaggedFraud
		 FROM transactions
		 ORDER BY rowid DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := []*domain.Transaction{}
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(
			&t.Step, &t.Type, &t.Amount, &t.NameOrig,
			&t.OldBalanceOrg, &t.NewBalanceOrig,
			&t.NameDest, &t.OldBalanceDest, &t.NewBalanceDest,
			&t.IsFraud, &t.IsFlaggedFraud,
		); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *transactionStore) InsertBatch(ctx context.Context, batch []*domain.Transaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO transactions
			(step, type, amount, nameOrig, oldbalanceOrg, newbalanceOrig,
			 nameDest, oldbalanceDest, newbalanceDest, isFraud, isFlaggedFraud)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range batch {
		if _, err := stmt.ExecContext(ctx,
			t.Step, t.Type, t.Amount, t.NameOrig,
			t.OldBalanceOrg, t.NewBalanceOrig,
			t.NameDest, t.OldBalanceDest, t.NewBalanceDest,
			t.IsFraud, t.IsFlaggedFraud,
		); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
	}

	return tx.Commit()
}

func (s *transactionStore) Close() error {
	return s.db.Close()
}
