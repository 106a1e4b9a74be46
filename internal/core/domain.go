package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Unpaid SucStatus = "UNPAID"
	Paid   SucStatus = "PAID"
)

const (
	RolePI    MemberRole = "PI"
	RoleBPH   MemberRole = "BPH"
	RoleStaff MemberRole = "STAFF"
)

type (
	TransactionType string
	SucStatus       string
	MemberRole      string

	Money struct {
		Cents int64
	}

	// Transaction is a single money movement. Transactions are immutable once
	// created: there is no update or delete path in normal operation.
	Transaction struct {
		ID          string          `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type"`
		Category    string          `json:"category"`
		Description string          `json:"description"`
		Date        time.Time       `json:"date"`
		// PocketID is the pocket this transaction counts toward. nil means the
		// transaction is unassigned; a value that no longer resolves to a pocket
		// means the pocket was deleted and the transaction is orphaned. Both are
		// valid, permanent states.
		PocketID *string `json:"pocketId,omitempty"`
	}

	// Pocket is a named money container. Balance is a cached aggregate over the
	// pocket's transactions; the transaction log is the ground truth and the
	// reconciliation pass corrects drift.
	Pocket struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Balance   Money     `json:"balance"`
		CreatedAt time.Time `json:"createdAt"`
	}

	// Member is static roster data.
	Member struct {
		ID       string     `json:"id"`
		Name     string     `json:"name"`
		Division string     `json:"division"`
		Role     MemberRole `json:"role"`
		Status   string     `json:"status"`
	}

	// SucEvent is one collection cycle of the recurring SUC due.
	SucEvent struct {
		ID             string    `json:"id"`
		Title          string    `json:"title"`
		AmountRequired Money     `json:"amountRequired"`
		Deadline       time.Time `json:"deadline"`
		CreatedAt      time.Time `json:"createdAt"`
	}

	// SucRecord tracks one member's payment for one event. At most one record
	// exists per (MemberID, EventID). Status moves UNPAID -> PAID exactly once;
	// PAID is terminal.
	SucRecord struct {
		ID           string     `json:"id"`
		MemberID     string     `json:"memberId"`
		EventID      string     `json:"eventId"`
		BilledAmount Money      `json:"billedAmount"`
		Status       SucStatus  `json:"status"`
		PaidAt       *time.Time `json:"paidAt,omitempty"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyDescription = errors.New("empty description")
)

func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if t.Date.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (p Pocket) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return errors.New("name too long (max 100 characters)")
	}
	return nil
}
