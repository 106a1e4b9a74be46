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

func (r *SQLiteRepository) CreateEvent(ctx context.Context, e core.SucEvent) (core.SucEvent, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suc_events (id, title, amount_required_cents, deadline, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.AmountRequired.Cents, e.Deadline.UTC(), e.CreatedAt)
	if err != nil {
		return core.SucEvent{}, fmt.Errorf("insert suc event: %w", err)
	}

	logWrite(ctx, "suc_event", e.ID, "title", e.Title)
	return e, nil
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (core.SucEvent, error) {
	var e core.SucEvent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, amount_required_cents, deadline, created_at
		FROM suc_events WHERE id = ?
	`, id).Scan(&e.ID, &e.Title, &e.AmountRequired.Cents, &e.Deadline, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SucEvent{}, fmt.Errorf("suc event %s: %w", id, core.ErrNotFound)
		}
		return core.SucEvent{}, fmt.Errorf("get suc event: %w", err)
	}
	return e, nil
}

// LatestEvent returns the most recently created collection cycle.
func (r *SQLiteRepository) LatestEvent(ctx context.Context) (core.SucEvent, error) {
	var e core.SucEvent
	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, amount_required_cents, deadline, created_at
		FROM suc_events ORDER BY created_at DESC LIMIT 1
	`).Scan(&e.ID, &e.Title, &e.AmountRequired.Cents, &e.Deadline, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SucEvent{}, fmt.Errorf("latest suc event: %w", core.ErrNotFound)
		}
		return core.SucEvent{}, fmt.Errorf("latest suc event: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) CreateSucRecord(ctx context.Context, rec core.SucRecord) (core.SucRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Status == "" {
		rec.Status = core.Unpaid
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO suc_records (id, member_id, event_id, billed_amount_cents, status)
		VALUES (?, ?, ?, ?, ?)
	`, rec.ID, rec.MemberID, rec.EventID, rec.BilledAmount.Cents, string(rec.Status))
	if err != nil {
		return core.SucRecord{}, fmt.Errorf("insert suc record: %w", err)
	}

	logWrite(ctx, "suc_record", rec.ID, "member_id", rec.MemberID, "event_id", rec.EventID)
	return rec, nil
}

// GetSucRecord resolves the record by its (member, event) composite key.
func (r *SQLiteRepository) GetSucRecord(ctx context.Context, memberID, eventID string) (core.SucRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, member_id, event_id, billed_amount_cents, status, paid_at
		FROM suc_records WHERE member_id = ? AND event_id = ?
	`, memberID, eventID)

	rec, err := scanSucRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.SucRecord{}, fmt.Errorf("suc record (member=%s, event=%s): %w", memberID, eventID, core.ErrRecordNotFound)
		}
		return core.SucRecord{}, fmt.Errorf("get suc record: %w", err)
	}
	return rec, nil
}

// CountSucRecords returns total and paid record counts for an event.
func (r *SQLiteRepository) CountSucRecords(ctx context.Context, eventID string) (total, paid int, err error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN status = 'PAID' THEN 1 ELSE 0 END), 0)
		FROM suc_records WHERE event_id = ?
	`, eventID)
	if err := row.Scan(&total, &paid); err != nil {
		return 0, 0, fmt.Errorf("count suc records: %w", err)
	}
	return total, paid, nil
}

// ListSucRecordDetails returns an event's records joined with their members,
// ordered by member name.
func (r *SQLiteRepository) ListSucRecordDetails(ctx context.Context, eventID string) ([]core.SucRecordDetail, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT r.id, r.member_id, r.event_id, r.billed_amount_cents, r.status, r.paid_at,
		       m.id, m.name, m.division, m.role, m.status
		FROM suc_records r
		JOIN members m ON m.id = r.member_id
		WHERE r.event_id = ?
		ORDER BY m.name ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list suc record details: %w", err)
	}
	defer rows.Close()

	var out []core.SucRecordDetail
	for rows.Next() {
		var (
			d      core.SucRecordDetail
			status string
			role   string
			paidAt sql.NullTime
		)
		err := rows.Scan(
			&d.Record.ID, &d.Record.MemberID, &d.Record.EventID, &d.Record.BilledAmount.Cents, &status, &paidAt,
			&d.Member.ID, &d.Member.Name, &d.Member.Division, &role, &d.Member.Status,
		)
		if err != nil {
			return nil, fmt.Errorf("scan suc record detail: %w", err)
		}
		d.Record.Status = core.SucStatus(status)
		if paidAt.Valid {
			t := paidAt.Time
			d.Record.PaidAt = &t
		}
		d.Member.Role = core.MemberRole(role)
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkRecordPaid flips the record UNPAID -> PAID inside the surrounding
// transaction. The WHERE status clause is the compare-and-set: it reports
// false when another writer already flipped the record, so the caller knows
// not to append a second income transaction.
func (t *Tx) MarkRecordPaid(ctx context.Context, recordID string, paidAt time.Time) (bool, error) {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE suc_records SET status = 'PAID', paid_at = ?
		WHERE id = ? AND status = 'UNPAID'
	`, paidAt.UTC(), recordID)
	if err != nil {
		return false, fmt.Errorf("mark record paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark record paid rows affected: %w", err)
	}
	return n == 1, nil
}

// MarkPaidAndLogIncome is the atomic pair behind the payment transition: the
// UNPAID -> PAID flip and the income transaction commit together or not at
// all. When the flip reports false (another writer won) nothing is inserted
// and the zero Transaction is returned.
func (r *SQLiteRepository) MarkPaidAndLogIncome(ctx context.Context, recordID string, txn core.Transaction) (bool, core.Transaction, error) {
	var (
		flipped bool
		created core.Transaction
	)
	err := r.RunInTx(ctx, func(t *Tx) error {
		var err error
		flipped, err = t.MarkRecordPaid(ctx, recordID, txn.Date)
		if err != nil {
			return err
		}
		if !flipped {
			return nil
		}
		created, err = t.CreateTransaction(ctx, txn)
		return err
	})
	if err != nil {
		return false, core.Transaction{}, err
	}
	return flipped, created, nil
}

func scanSucRecord(row rowScanner) (core.SucRecord, error) {
	var (
		rec    core.SucRecord
		status string
		paidAt sql.NullTime
	)
	if err := row.Scan(&rec.ID, &rec.MemberID, &rec.EventID, &rec.BilledAmount.Cents, &status, &paidAt); err != nil {
		return core.SucRecord{}, err
	}
	rec.Status = core.SucStatus(status)
	if paidAt.Valid {
		t := paidAt.Time
		rec.PaidAt = &t
	}
	return rec, nil
}
