package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bendahara/internal/core"

	"github.com/google/uuid"
)

// TransactionFilter narrows ListTransactions. Zero value lists everything,
// newest first.
type TransactionFilter struct {
	PocketID *string
	Since    *time.Time
	Limit    int
}

// PendingExportTransaction is the minimal row the export worker needs to queue
// work without loading full transactions.
type PendingExportTransaction struct {
	ID       string
	Attempts int64
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return createTransaction(ctx, r.db, t)
}

// CreateTransaction on a Tx participates in the surrounding SQL transaction.
func (t *Tx) CreateTransaction(ctx context.Context, txn core.Transaction) (core.Transaction, error) {
	return createTransaction(ctx, t.tx, txn)
}

func createTransaction(ctx context.Context, db dbtx, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	var pocketID sql.NullString
	if t.PocketID != nil {
		pocketID = sql.NullString{String: *t.PocketID, Valid: true}
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO transactions (id, amount_cents, type, category, description, date, pocket_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Amount.Cents, string(t.Type), t.Category, t.Description, t.Date.UTC(), pocketID)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	logWrite(ctx, "transaction", t.ID, "type", string(t.Type), "amount_cents", t.Amount.Cents)
	return t, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, amount_cents, type, category, description, date, pocket_id
		FROM transactions WHERE id = ?
	`, id)

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, filter TransactionFilter) ([]core.Transaction, error) {
	query := `
		SELECT id, amount_cents, type, category, description, date, pocket_id
		FROM transactions WHERE 1=1`
	args := []any{}
	if filter.PocketID != nil {
		query += " AND pocket_id = ?"
		args = append(args, *filter.PocketID)
	}
	if filter.Since != nil {
		query += " AND date >= ?"
		args = append(args, filter.Since.UTC())
	}
	query += " ORDER BY date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// GlobalSums returns income and expense totals over every transaction,
// pocketed or not.
func (r *SQLiteRepository) GlobalSums(ctx context.Context) (incomeCents, expenseCents int64, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount_cents ELSE 0 END), 0)
		FROM transactions
	`)
	if err := row.Scan(&incomeCents, &expenseCents); err != nil {
		return 0, 0, fmt.Errorf("global sums: %w", err)
	}
	return incomeCents, expenseCents, nil
}

// PocketSums returns income and expense totals for one pocket's transactions.
func (r *SQLiteRepository) PocketSums(ctx context.Context, pocketID string) (incomeCents, expenseCents int64, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN type = 'INCOME' THEN amount_cents ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN type = 'EXPENSE' THEN amount_cents ELSE 0 END), 0)
		FROM transactions WHERE pocket_id = ?
	`, pocketID)
	if err := row.Scan(&incomeCents, &expenseCents); err != nil {
		return 0, 0, fmt.Errorf("pocket sums for %s: %w", pocketID, err)
	}
	return incomeCents, expenseCents, nil
}

// GetPendingExportTransactions returns transactions not yet written to the
// audit sheet, oldest first.
func (r *SQLiteRepository) GetPendingExportTransactions(ctx context.Context, limit int) ([]PendingExportTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, export_attempts FROM transactions
		WHERE export_state = 'pending'
		ORDER BY created_at ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending export transactions: %w", err)
	}
	defer rows.Close()

	var out []PendingExportTransaction
	for rows.Next() {
		var p PendingExportTransaction
		if err := rows.Scan(&p.ID, &p.Attempts); err != nil {
			return nil, fmt.Errorf("scan pending export transaction: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkExported marks a transaction as written to the audit sheet.
func (r *SQLiteRepository) MarkExported(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = 'exported' WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

// MarkExportError records a failed export attempt; the pending scan retries it.
func (r *SQLiteRepository) MarkExportError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET export_state = 'pending', export_attempts = export_attempts + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark transaction export error: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t        core.Transaction
		txType   string
		pocketID sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Amount.Cents, &txType, &t.Category, &t.Description, &t.Date, &pocketID); err != nil {
		return core.Transaction{}, err
	}
	t.Type = core.TransactionType(txType)
	if pocketID.Valid {
		t.PocketID = &pocketID.String
	}
	return t, nil
}
