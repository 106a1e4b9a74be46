package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"bendahara/internal/core"
)

// ExportPublisher queues a committed transaction for the audit-sheet export.
// Publishing is best effort everywhere: the store is the source of truth and
// the worker's pending scan recovers lost messages.
type ExportPublisher interface {
	PublishTransactionExport(ctx context.Context, transactionID string) error
}

// TransactionStore is the slice of the repository the entry flow needs.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetPocket(ctx context.Context, id string) (core.Pocket, error)
}

// TransactionService records generic income and expense movements.
type TransactionService struct {
	store     TransactionStore
	publisher ExportPublisher
}

func NewTransactionService(store TransactionStore, publisher ExportPublisher) *TransactionService {
	return &TransactionService{store: store, publisher: publisher}
}

// RecordTransaction validates and persists a transaction, then queues it for
// the audit export. When a pocket is named it must exist at entry time;
// afterwards the association may go stale (pocket deleted, transaction
// orphaned) and that is fine.
func (s *TransactionService) RecordTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %v", core.ErrValidationFailed, err)
	}
	if t.PocketID != nil {
		if _, err := s.store.GetPocket(ctx, *t.PocketID); err != nil {
			return core.Transaction{}, asCoreErr(err)
		}
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, asCoreErr(err)
	}

	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", created.ID,
		"transaction_type", string(created.Type),
		"category", created.Category,
		"amount_cents", created.Amount.Cents)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionExport(ctx, created.ID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish export message",
				"transaction_id", created.ID, "error", err)
		}
	}
	return created, nil
}
