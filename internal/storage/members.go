package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bendahara/internal/core"

	"github.com/google/uuid"
)

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = "ACTIVE"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (id, name, division, role, status)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID, m.Name, m.Division, string(m.Role), m.Status)
	if err != nil {
		return core.Member{}, fmt.Errorf("insert member: %w", err)
	}

	logWrite(ctx, "member", m.ID, "name", m.Name, "role", string(m.Role))
	return m, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	var (
		m    core.Member
		role string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, division, role, status FROM members WHERE id = ?
	`, id).Scan(&m.ID, &m.Name, &m.Division, &role, &m.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Member{}, fmt.Errorf("member %s: %w", id, core.ErrNotFound)
		}
		return core.Member{}, fmt.Errorf("get member: %w", err)
	}
	m.Role = core.MemberRole(role)
	return m, nil
}

// ListActiveMembers returns the roster eligible for a new collection cycle.
func (r *SQLiteRepository) ListActiveMembers(ctx context.Context) ([]core.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, division, role, status FROM members
		WHERE status = 'ACTIVE'
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	defer rows.Close()

	var out []core.Member
	for rows.Next() {
		var (
			m    core.Member
			role string
		)
		if err := rows.Scan(&m.ID, &m.Name, &m.Division, &role, &m.Status); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		m.Role = core.MemberRole(role)
		out = append(out, m)
	}
	return out, rows.Err()
}
