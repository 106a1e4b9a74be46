package services

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"bendahara/internal/core"
)

// SucPaymentCategory tags the income transactions appended by MarkAsPaid.
const SucPaymentCategory = "SUC Payment"

// CollectionStore is the slice of the repository the due-collection tracker
// needs. MarkPaidAndLogIncome is the store's atomic multi-write primitive.
type CollectionStore interface {
	GetEvent(ctx context.Context, id string) (core.SucEvent, error)
	LatestEvent(ctx context.Context) (core.SucEvent, error)
	GetMember(ctx context.Context, id string) (core.Member, error)
	GetSucRecord(ctx context.Context, memberID, eventID string) (core.SucRecord, error)
	CountSucRecords(ctx context.Context, eventID string) (total, paid int, err error)
	ListSucRecordDetails(ctx context.Context, eventID string) ([]core.SucRecordDetail, error)
	MarkPaidAndLogIncome(ctx context.Context, recordID string, txn core.Transaction) (bool, core.Transaction, error)
}

// CollectionService tracks per-member payment status for SUC collection
// cycles.
type CollectionService struct {
	store     CollectionStore
	publisher ExportPublisher
	now       func() time.Time
}

func NewCollectionService(store CollectionStore, publisher ExportPublisher) *CollectionService {
	return &CollectionService{
		store:     store,
		publisher: publisher,
		now:       time.Now,
	}
}

// MarkAsPaid transitions a member's record for an event from UNPAID to PAID
// and appends the matching income transaction in the same store transaction.
// A record that is already PAID makes the call a no-op returning success, so
// repeated submissions never double-count a payment. Records are created by
// the seeding step; a missing record is reported, not repaired.
func (s *CollectionService) MarkAsPaid(ctx context.Context, memberID, eventID string) error {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return asCoreErr(err)
	}
	member, err := s.store.GetMember(ctx, memberID)
	if err != nil {
		return asCoreErr(err)
	}

	record, err := s.store.GetSucRecord(ctx, memberID, eventID)
	if err != nil {
		return asCoreErr(err)
	}
	if record.Status == core.Paid {
		slog.InfoContext(ctx, "SUC record already paid, nothing to do",
			"record_id", record.ID,
			"member_id", memberID,
			"event_id", eventID)
		return nil
	}

	txn := core.Transaction{
		Amount:      record.BilledAmount,
		Type:        core.Income,
		Category:    SucPaymentCategory,
		Description: fmt.Sprintf("SUC Payment: %s - %s (%s)", event.Title, member.Name, member.Division),
		Date:        s.now().UTC(),
	}

	flipped, created, err := s.store.MarkPaidAndLogIncome(ctx, record.ID, txn)
	if err != nil {
		return asCoreErr(err)
	}
	if !flipped {
		// Lost the race to a concurrent call; that call appended the income.
		slog.InfoContext(ctx, "SUC record flipped by a concurrent payment",
			"record_id", record.ID,
			"member_id", memberID,
			"event_id", eventID)
		return nil
	}

	slog.InfoContext(ctx, "SUC payment recorded",
		"record_id", record.ID,
		"member_id", memberID,
		"event_id", eventID,
		"transaction_id", created.ID,
		"amount_cents", created.Amount.Cents)

	if s.publisher != nil {
		if err := s.publisher.PublishTransactionExport(ctx, created.ID); err != nil {
			// The payment is committed; the pending scan picks the export up.
			slog.ErrorContext(ctx, "Failed to publish export message for SUC payment",
				"transaction_id", created.ID, "error", err)
		}
	}
	return nil
}

// Progress reports how far an event's collection has come. An event with no
// records reports zero percent rather than dividing by zero.
func (s *CollectionService) Progress(ctx context.Context, eventID string) (core.CollectionProgress, error) {
	total, paid, err := s.store.CountSucRecords(ctx, eventID)
	if err != nil {
		return core.CollectionProgress{}, asCoreErr(err)
	}
	if total == 0 {
		return core.CollectionProgress{}, nil
	}

	percentage := float64(paid) / float64(total) * 100
	percentage = math.Round(percentage*100) / 100

	return core.CollectionProgress{
		Percentage: percentage,
		Total:      total,
		Paid:       paid,
	}, nil
}

// EventDetails returns an event's records with member info, ordered by member
// name.
func (s *CollectionService) EventDetails(ctx context.Context, eventID string) ([]core.SucRecordDetail, error) {
	details, err := s.store.ListSucRecordDetails(ctx, eventID)
	if err != nil {
		return nil, asCoreErr(err)
	}
	return details, nil
}

// LatestEvent returns the most recently created collection cycle.
func (s *CollectionService) LatestEvent(ctx context.Context) (core.SucEvent, error) {
	event, err := s.store.LatestEvent(ctx)
	if err != nil {
		return core.SucEvent{}, asCoreErr(err)
	}
	return event, nil
}
