package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"bendahara/internal/core"
	"bendahara/internal/storage"

	"golang.org/x/sync/errgroup"
)

// reconcileConcurrency bounds the per-pocket fan-out. Pockets share no state,
// so the passes are independent.
const reconcileConcurrency = 4

// LedgerStore is the slice of the repository the pocket ledger needs.
type LedgerStore interface {
	ListPockets(ctx context.Context) ([]core.Pocket, error)
	GetPocket(ctx context.Context, id string) (core.Pocket, error)
	CreatePocket(ctx context.Context, p core.Pocket) (core.Pocket, error)
	DeletePocket(ctx context.Context, id string) error
	UpdatePocketBalance(ctx context.Context, id string, balanceCents int64) error
	PocketSums(ctx context.Context, pocketID string) (incomeCents, expenseCents int64, err error)
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
}

// LedgerService keeps each pocket's cached balance consistent with its
// transaction log.
type LedgerService struct {
	store LedgerStore
}

func NewLedgerService(store LedgerStore) *LedgerService {
	return &LedgerService{store: store}
}

// Reconcile recomputes every pocket's balance from its transactions and
// persists only the ones that drifted. It returns the number of pockets
// corrected, never touches transactions, and is idempotent: a second run with
// no new transactions corrects nothing.
//
// Each pocket's update is its own atomic write. A failure partway through
// leaves already-corrected pockets corrected and the rest stale, which is
// acceptable for a maintenance pass.
func (s *LedgerService) Reconcile(ctx context.Context) (int, error) {
	pockets, err := s.store.ListPockets(ctx)
	if err != nil {
		return 0, asCoreErr(err)
	}

	var corrected atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(reconcileConcurrency)
	for _, pocket := range pockets {
		g.Go(func() error {
			incomeCents, expenseCents, err := s.store.PocketSums(gctx, pocket.ID)
			if err != nil {
				return fmt.Errorf("sums for pocket %s: %w", pocket.ID, err)
			}
			newBalance := incomeCents - expenseCents
			if newBalance == pocket.Balance.Cents {
				return nil
			}
			if err := s.store.UpdatePocketBalance(gctx, pocket.ID, newBalance); err != nil {
				return fmt.Errorf("update pocket %s: %w", pocket.ID, err)
			}
			corrected.Add(1)
			slog.InfoContext(gctx, "Pocket balance corrected",
				"pocket_id", pocket.ID,
				"pocket_name", pocket.Name,
				"stale_cents", pocket.Balance.Cents,
				"balance_cents", newBalance)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(corrected.Load()), asCoreErr(err)
	}

	slog.InfoContext(ctx, "Reconciliation pass completed",
		"pockets", len(pockets),
		"corrected", corrected.Load())
	return int(corrected.Load()), nil
}

// CreatePocket creates a pocket whose balance starts at initialBalanceCents
// even though no transaction backs that amount. Reconciliation will overwrite
// an unbacked initial balance; callers that want it to stick must also record
// an offsetting income transaction dated at creation.
func (s *LedgerService) CreatePocket(ctx context.Context, name string, initialBalanceCents int64) (core.Pocket, error) {
	p := core.Pocket{Name: name, Balance: core.Money{Cents: initialBalanceCents}}
	if err := p.Validate(); err != nil {
		return core.Pocket{}, fmt.Errorf("%w: %v", core.ErrValidationFailed, err)
	}
	if initialBalanceCents < 0 {
		return core.Pocket{}, fmt.Errorf("%w: initial balance cannot be negative", core.ErrValidationFailed)
	}

	created, err := s.store.CreatePocket(ctx, p)
	if err != nil {
		return core.Pocket{}, asCoreErr(err)
	}
	if initialBalanceCents != 0 {
		slog.WarnContext(ctx, "Pocket created with unbacked initial balance; reconciliation will overwrite it",
			"pocket_id", created.ID,
			"balance_cents", initialBalanceCents)
	}
	return created, nil
}

// ListPockets returns every pocket, newest first.
func (s *LedgerService) ListPockets(ctx context.Context) ([]core.Pocket, error) {
	pockets, err := s.store.ListPockets(ctx)
	if err != nil {
		return nil, asCoreErr(err)
	}
	return pockets, nil
}

// DeletePocket removes the pocket only. Its transactions keep their pocket
// reference and become orphans: excluded from every pocket aggregate, still
// present in the global totals.
func (s *LedgerService) DeletePocket(ctx context.Context, id string) error {
	return asCoreErr(s.store.DeletePocket(ctx, id))
}

// PocketDetails returns the pocket, its transactions newest first, and income
// and expense sums computed freshly from that list rather than the cached
// balance, so callers can see reconciliation drift.
func (s *LedgerService) PocketDetails(ctx context.Context, id string) (core.PocketDetails, error) {
	pocket, err := s.store.GetPocket(ctx, id)
	if err != nil {
		return core.PocketDetails{}, asCoreErr(err)
	}

	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{PocketID: &id})
	if err != nil {
		return core.PocketDetails{}, asCoreErr(err)
	}

	details := core.PocketDetails{Pocket: pocket, Transactions: txs}
	for _, t := range txs {
		switch t.Type {
		case core.Income:
			details.TotalIncome.Cents += t.Amount.Cents
		case core.Expense:
			details.TotalExpense.Cents += t.Amount.Cents
		}
	}
	return details, nil
}
