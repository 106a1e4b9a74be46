package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"bendahara/internal/core"
	"bendahara/internal/storage"
)

// memStore is an in-memory stand-in for the SQLite repository. It implements
// every store interface in this package so one fixture serves all tests.
type memStore struct {
	mu           sync.Mutex
	pockets      map[string]core.Pocket
	transactions []core.Transaction
	members      map[string]core.Member
	events       map[string]core.SucEvent
	records      map[string]core.SucRecord
	failWith     error
	nextID       int
}

func newMemStore() *memStore {
	return &memStore{
		pockets: make(map[string]core.Pocket),
		members: make(map[string]core.Member),
		events:  make(map[string]core.SucEvent),
		records: make(map[string]core.SucRecord),
	}
}

func (s *memStore) id(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *memStore) ListPockets(context.Context) ([]core.Pocket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	out := make([]core.Pocket, 0, len(s.pockets))
	for _, p := range s.pockets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) GetPocket(_ context.Context, id string) (core.Pocket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Pocket{}, s.failWith
	}
	p, ok := s.pockets[id]
	if !ok {
		return core.Pocket{}, fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
	}
	return p, nil
}

func (s *memStore) CreatePocket(_ context.Context, p core.Pocket) (core.Pocket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Pocket{}, s.failWith
	}
	if p.ID == "" {
		p.ID = s.id("pocket")
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	s.pockets[p.ID] = p
	return p, nil
}

func (s *memStore) DeletePocket(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if _, ok := s.pockets[id]; !ok {
		return fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
	}
	delete(s.pockets, id)
	return nil
}

func (s *memStore) UpdatePocketBalance(_ context.Context, id string, balanceCents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	p, ok := s.pockets[id]
	if !ok {
		return fmt.Errorf("pocket %s: %w", id, core.ErrNotFound)
	}
	p.Balance = core.Money{Cents: balanceCents}
	s.pockets[id] = p
	return nil
}

func (s *memStore) PocketSums(_ context.Context, pocketID string) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, 0, s.failWith
	}
	var income, expense int64
	for _, t := range s.transactions {
		if t.PocketID == nil || *t.PocketID != pocketID {
			continue
		}
		switch t.Type {
		case core.Income:
			income += t.Amount.Cents
		case core.Expense:
			expense += t.Amount.Cents
		}
	}
	return income, expense, nil
}

func (s *memStore) GlobalSums(context.Context) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, 0, s.failWith
	}
	var income, expense int64
	for _, t := range s.transactions {
		switch t.Type {
		case core.Income:
			income += t.Amount.Cents
		case core.Expense:
			expense += t.Amount.Cents
		}
	}
	return income, expense, nil
}

func (s *memStore) ListTransactions(_ context.Context, filter storage.TransactionFilter) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.Transaction
	for _, t := range s.transactions {
		if filter.PocketID != nil && (t.PocketID == nil || *t.PocketID != *filter.PocketID) {
			continue
		}
		if filter.Since != nil && t.Date.Before(*filter.Since) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Transaction{}, s.failWith
	}
	t = s.insertTransaction(t)
	return t, nil
}

// insertTransaction must be called with the lock held.
func (s *memStore) insertTransaction(t core.Transaction) core.Transaction {
	if t.ID == "" {
		t.ID = s.id("txn")
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}
	s.transactions = append(s.transactions, t)
	return t
}

func (s *memStore) GetMember(_ context.Context, id string) (core.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.Member{}, s.failWith
	}
	m, ok := s.members[id]
	if !ok {
		return core.Member{}, fmt.Errorf("member %s: %w", id, core.ErrNotFound)
	}
	return m, nil
}

func (s *memStore) GetEvent(_ context.Context, id string) (core.SucEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.SucEvent{}, s.failWith
	}
	e, ok := s.events[id]
	if !ok {
		return core.SucEvent{}, fmt.Errorf("suc event %s: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *memStore) LatestEvent(context.Context) (core.SucEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.SucEvent{}, s.failWith
	}
	var latest core.SucEvent
	found := false
	for _, e := range s.events {
		if !found || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
			found = true
		}
	}
	if !found {
		return core.SucEvent{}, fmt.Errorf("latest suc event: %w", core.ErrNotFound)
	}
	return latest, nil
}

func (s *memStore) GetSucRecord(_ context.Context, memberID, eventID string) (core.SucRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return core.SucRecord{}, s.failWith
	}
	for _, r := range s.records {
		if r.MemberID == memberID && r.EventID == eventID {
			return r, nil
		}
	}
	return core.SucRecord{}, fmt.Errorf("suc record (member=%s, event=%s): %w", memberID, eventID, core.ErrRecordNotFound)
}

func (s *memStore) CountSucRecords(_ context.Context, eventID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return 0, 0, s.failWith
	}
	total, paid := 0, 0
	for _, r := range s.records {
		if r.EventID != eventID {
			continue
		}
		total++
		if r.Status == core.Paid {
			paid++
		}
	}
	return total, paid, nil
}

func (s *memStore) ListSucRecordDetails(_ context.Context, eventID string) ([]core.SucRecordDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	var out []core.SucRecordDetail
	for _, r := range s.records {
		if r.EventID != eventID {
			continue
		}
		out = append(out, core.SucRecordDetail{Record: r, Member: s.members[r.MemberID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Member.Name < out[j].Member.Name })
	return out, nil
}

func (s *memStore) MarkPaidAndLogIncome(_ context.Context, recordID string, txn core.Transaction) (bool, core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return false, core.Transaction{}, s.failWith
	}
	r, ok := s.records[recordID]
	if !ok {
		return false, core.Transaction{}, fmt.Errorf("suc record %s: %w", recordID, core.ErrRecordNotFound)
	}
	if r.Status != core.Unpaid {
		return false, core.Transaction{}, nil
	}
	paidAt := txn.Date
	r.Status = core.Paid
	r.PaidAt = &paidAt
	s.records[recordID] = r
	created := s.insertTransaction(txn)
	return true, created, nil
}

// fakePublisher records published transaction IDs.
type fakePublisher struct {
	mu        sync.Mutex
	published []string
	failWith  error
}

func (p *fakePublisher) PublishTransactionExport(_ context.Context, transactionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, transactionID)
	return nil
}

func (p *fakePublisher) ids() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.published))
	copy(out, p.published)
	return out
}

func strptr(s string) *string { return &s }
