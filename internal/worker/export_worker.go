// Package worker moves committed transactions to the external audit sheet.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"bendahara/internal/amqp"
	"bendahara/internal/core"
	"bendahara/internal/sheets"
	"bendahara/internal/storage"
)

// ExportStore is the storage surface the export worker needs.
type ExportStore interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	GetPendingExportTransactions(ctx context.Context, limit int) ([]storage.PendingExportTransaction, error)
	MarkExported(ctx context.Context, id string) error
	MarkExportError(ctx context.Context, id string) error
}

// ExportWorker consumes export messages and appends the referenced
// transactions to the audit ledger. The pending scan is the backup path for
// messages lost between publish and consume.
type ExportWorker struct {
	store     ExportStore
	ledger    sheets.LedgerWriter
	batchSize int
}

func NewExportWorker(store ExportStore, ledger sheets.LedgerWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		store:     store,
		ledger:    ledger,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single transaction export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.TransactionExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "transaction_id", msg.ID)

	txn, err := w.store.GetTransaction(ctx, msg.ID)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.exportTransaction(ctx, txn); err != nil {
		return fmt.Errorf("export transaction: %w", err)
	}

	return nil
}

// ProcessPendingExports exports any transactions the AMQP path missed.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.store.GetPendingExportTransactions(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("get pending export transactions: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, p := range pending {
		txn, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "transaction_id", p.ID, "error", err)
			if err := w.store.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", p.ID, "error", err)
			}
			continue
		}

		if err := w.exportTransaction(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction", "transaction_id", p.ID, "error", err)
			continue
		}
	}

	return nil
}

// StartupExportCheck drains the pending backlog once at worker startup. It
// uses a larger batch to recover from worker downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.store.GetPendingExportTransactions(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("get pending export transactions for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, p := range pending {
		txn, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction for startup export",
				"transaction_id", p.ID, "error", err)
			if err := w.store.MarkExportError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", p.ID, "error", err)
			}
			errorCount++
			continue
		}

		if err := w.exportTransaction(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to export transaction during startup",
				"transaction_id", p.ID, "error", err)
			errorCount++
			continue
		}

		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}

func (w *ExportWorker) exportTransaction(ctx context.Context, txn core.Transaction) error {
	ref, err := w.ledger.AppendTransaction(ctx, txn)
	if err != nil {
		if markErr := w.store.MarkExportError(ctx, txn.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark export error", "transaction_id", txn.ID, "error", markErr)
		}
		return fmt.Errorf("append to audit ledger: %w", err)
	}

	if err := w.store.MarkExported(ctx, txn.ID); err != nil {
		// The append already succeeded; surfacing this would requeue and
		// duplicate the row.
		slog.ErrorContext(ctx, "Failed to mark as exported", "transaction_id", txn.ID, "error", err)
	}

	slog.InfoContext(ctx, "Exported transaction to audit ledger",
		"transaction_id", txn.ID,
		"sheets_ref", ref,
		"amount_cents", txn.Amount.Cents)

	return nil
}
