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

func (r *SQLiteRepository) CreatePocket(ctx context.Context, p core.Pocket) (core.Pocket, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pockets (id, name, balance_cents, created_at)
		VALUES (?, ?, ?, ?)
	`, p.ID, p.Name, p.Balance.Cents, p.CreatedAt)
	if err != nil {
		return core.Pocket{}, fmt.Errorf("insert pocket: %w", err)
	}

	logWrite(ctx, "pocket", p.ID, "name", p.Name, "balance_cents", p.Balance.Cents)
	return p, nil
}

func (r *SQLiteRepository) GetPocket(ctx context.Context, id string) (core.Pocket, error) {
	var p core.Pocket
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, balance_cents, created_at FROM pockets WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Balance.Cents, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Pocket{}, fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
		}
		return core.Pocket{}, fmt.Errorf("get pocket: %w", err)
	}
	return p, nil
}

// ListPockets returns all pockets, newest first.
func (r *SQLiteRepository) ListPockets(ctx context.Context) ([]core.Pocket, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, balance_cents, created_at FROM pockets ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list pockets: %w", err)
	}
	defer rows.Close()

	var out []core.Pocket
	for rows.Next() {
		var p core.Pocket
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance.Cents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pocket: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePocketBalance overwrites the cached balance. Only the reconciliation
// pass calls this.
func (r *SQLiteRepository) UpdatePocketBalance(ctx context.Context, id string, balanceCents int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pockets SET balance_cents = ? WHERE id = ?`, balanceCents, id)
	if err != nil {
		return fmt.Errorf("update pocket balance: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
	}
	logWrite(ctx, "pocket", id, "balance_cents", balanceCents)
	return nil
}

// DeletePocket removes the pocket row only. Its transactions keep their
// pocket_id and become orphans.
func (r *SQLiteRepository) DeletePocket(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pockets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete pocket: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
	}
	logWrite(ctx, "pocket", id, "deleted", true)
	return nil
}
