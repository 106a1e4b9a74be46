package services

import (
	"context"
	"sort"
	"time"

	"bendahara/internal/core"
	"bendahara/internal/storage"
)

// ReportStore is the read-only slice of the repository the aggregation views
// consume.
type ReportStore interface {
	GlobalSums(ctx context.Context) (incomeCents, expenseCents int64, err error)
	ListPockets(ctx context.Context) ([]core.Pocket, error)
	ListTransactions(ctx context.Context, filter storage.TransactionFilter) ([]core.Transaction, error)
}

// ReportService computes read-only derived figures. It never mutates state.
type ReportService struct {
	store ReportStore
}

func NewReportService(store ReportStore) *ReportService {
	return &ReportService{store: store}
}

// DashboardTotals returns the headline figures. Income and expense sum over
// all transactions regardless of pocket; the balance sums the pockets' cached
// balances instead of income minus expense, so orphaned transactions and
// unbacked seed balances don't distort it. The two views may diverge; see
// DashboardTotals.LedgerGap.
func (s *ReportService) DashboardTotals(ctx context.Context) (core.DashboardTotals, error) {
	incomeCents, expenseCents, err := s.store.GlobalSums(ctx)
	if err != nil {
		return core.DashboardTotals{}, asCoreErr(err)
	}

	pockets, err := s.store.ListPockets(ctx)
	if err != nil {
		return core.DashboardTotals{}, asCoreErr(err)
	}
	var balanceCents int64
	for _, p := range pockets {
		balanceCents += p.Balance.Cents
	}

	return core.DashboardTotals{
		TotalIncome:  core.Money{Cents: incomeCents},
		TotalExpense: core.Money{Cents: expenseCents},
		TotalBalance: core.Money{Cents: balanceCents},
	}, nil
}

// ChartSeries buckets the last windowDays of transactions by calendar day.
// Days without transactions produce no point (sparse, not zero-filled); the
// result is ordered ascending by date string.
func (s *ReportService) ChartSeries(ctx context.Context, windowDays int) ([]core.ChartPoint, error) {
	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Since: &since})
	if err != nil {
		return nil, asCoreErr(err)
	}

	buckets := make(map[string]*core.ChartPoint)
	for _, t := range txs {
		key := t.Date.UTC().Format(time.DateOnly)
		point, ok := buckets[key]
		if !ok {
			point = &core.ChartPoint{Date: key}
			buckets[key] = point
		}
		switch t.Type {
		case core.Income:
			point.Income.Cents += t.Amount.Cents
		case core.Expense:
			point.Expense.Cents += t.Amount.Cents
		}
	}

	series := make([]core.ChartPoint, 0, len(buckets))
	for _, point := range buckets {
		series = append(series, *point)
	}
	sort.Slice(series, func(i, j int) bool { return series[i].Date < series[j].Date })
	return series, nil
}

// RecentTransactions returns the n newest transactions.
func (s *ReportService) RecentTransactions(ctx context.Context, n int) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{Limit: n})
	if err != nil {
		return nil, asCoreErr(err)
	}
	return txs, nil
}

// AllTransactions returns the full log, newest first.
func (s *ReportService) AllTransactions(ctx context.Context) ([]core.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, storage.TransactionFilter{})
	if err != nil {
		return nil, asCoreErr(err)
	}
	return txs, nil
}
