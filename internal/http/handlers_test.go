package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bendahara/internal/core"
)

type fakeReports struct {
	totals     core.DashboardTotals
	series     []core.ChartPoint
	recent     []core.Transaction
	totalsErr  error
	chartCalls int
}

func (f *fakeReports) DashboardTotals(context.Context) (core.DashboardTotals, error) {
	return f.totals, f.totalsErr
}

func (f *fakeReports) ChartSeries(context.Context, int) ([]core.ChartPoint, error) {
	f.chartCalls++
	return f.series, nil
}

func (f *fakeReports) RecentTransactions(_ context.Context, n int) ([]core.Transaction, error) {
	if n > len(f.recent) {
		n = len(f.recent)
	}
	return f.recent[:n], nil
}

func (f *fakeReports) AllTransactions(context.Context) ([]core.Transaction, error) {
	return f.recent, nil
}

type fakeLedger struct {
	pockets   []core.Pocket
	corrected int
	deleteErr error
	createErr error
}

func (f *fakeLedger) ListPockets(context.Context) ([]core.Pocket, error) {
	return f.pockets, nil
}

func (f *fakeLedger) CreatePocket(_ context.Context, name string, initialBalanceCents int64) (core.Pocket, error) {
	if f.createErr != nil {
		return core.Pocket{}, f.createErr
	}
	p := core.Pocket{ID: "p1", Name: name, Balance: core.Money{Cents: initialBalanceCents}, CreatedAt: time.Now()}
	f.pockets = append(f.pockets, p)
	return p, nil
}

func (f *fakeLedger) DeletePocket(context.Context, string) error {
	return f.deleteErr
}

func (f *fakeLedger) PocketDetails(_ context.Context, id string) (core.PocketDetails, error) {
	for _, p := range f.pockets {
		if p.ID == id {
			return core.PocketDetails{Pocket: p}, nil
		}
	}
	return core.PocketDetails{}, core.ErrNotFound
}

func (f *fakeLedger) Reconcile(context.Context) (int, error) {
	return f.corrected, nil
}

type fakeCollection struct {
	payErr   error
	progress core.CollectionProgress
	details  []core.SucRecordDetail
	latest   core.SucEvent
	paid     [][2]string
}

func (f *fakeCollection) MarkAsPaid(_ context.Context, memberID, eventID string) error {
	if f.payErr != nil {
		return f.payErr
	}
	f.paid = append(f.paid, [2]string{memberID, eventID})
	return nil
}

func (f *fakeCollection) Progress(context.Context, string) (core.CollectionProgress, error) {
	return f.progress, nil
}

func (f *fakeCollection) EventDetails(context.Context, string) ([]core.SucRecordDetail, error) {
	return f.details, nil
}

func (f *fakeCollection) LatestEvent(context.Context) (core.SucEvent, error) {
	if f.latest.ID == "" {
		return core.SucEvent{}, core.ErrNotFound
	}
	return f.latest, nil
}

type fakeEntry struct {
	created core.Transaction
	err     error
}

func (f *fakeEntry) RecordTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.err != nil {
		return core.Transaction{}, f.err
	}
	t.ID = "t1"
	f.created = t
	return t, nil
}

type serverFixture struct {
	srv        *Server
	reports    *fakeReports
	ledger     *fakeLedger
	collection *fakeCollection
	entry      *fakeEntry
}

func newTestServer(t *testing.T, secret string) *serverFixture {
	t.Helper()
	f := &serverFixture{
		reports:    &fakeReports{},
		ledger:     &fakeLedger{},
		collection: &fakeCollection{},
		entry:      &fakeEntry{},
	}
	f.srv = NewServer(":0", f.reports, f.ledger, f.collection, f.entry, secret, 30)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.srv.Shutdown(ctx)
	})
	return f
}

func (f *serverFixture) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDashboardEndpoint(t *testing.T) {
	f := newTestServer(t, "")
	f.reports.totals = core.DashboardTotals{
		TotalIncome:  core.Money{Cents: 1500},
		TotalExpense: core.Money{Cents: 300},
		TotalBalance: core.Money{Cents: 1000},
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, float64(1500), data["totalIncome"])
	assert.Equal(t, float64(300), data["totalExpense"])
	assert.Equal(t, float64(1000), data["totalBalance"])
}

func TestDashboardRequiresCookieWhenSecretSet(t *testing.T) {
	f := newTestServer(t, "s3cret")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, rec)["errorKind"])

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_auth", Value: "wrong"})
	rec = f.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: "dashboard_auth", Value: "s3cret"})
	rec = f.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChartEndpointCachesSeries(t *testing.T) {
	f := newTestServer(t, "")
	f.reports.series = []core.ChartPoint{
		{Date: "2026-08-01", Income: core.Money{Cents: 100}},
		{Date: "2026-08-02", Expense: core.Money{Cents: 40}},
	}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/chart", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Second hit comes from the cache.
	assert.Equal(t, 1, f.reports.chartCalls)

	body := decodeBody(t, rec)
	data := body["data"].([]any)
	require.Len(t, data, 2)
	first := data[0].(map[string]any)
	assert.Equal(t, "2026-08-01", first["date"])
	assert.Equal(t, float64(100), first["income"])
}

func TestChartEndpointRejectsBadWindow(t *testing.T) {
	f := newTestServer(t, "")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/chart?days=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationFailed", decodeBody(t, rec)["errorKind"])
}

func TestCreateTransactionEndpoint(t *testing.T) {
	f := newTestServer(t, "")

	payload := `{"amountCents":5000,"type":"expense","category":"Supplies","description":"Markers","pocketId":"p1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload))
	rec := f.do(req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, core.Expense, f.entry.created.Type)
	assert.Equal(t, int64(5000), f.entry.created.Amount.Cents)
	require.NotNil(t, f.entry.created.PocketID)
	assert.Equal(t, "p1", *f.entry.created.PocketID)
}

func TestCreateTransactionDecimalAmount(t *testing.T) {
	f := newTestServer(t, "")

	payload := `{"amount":"1700.50","type":"INCOME","category":"Dues"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, int64(170050), f.entry.created.Amount.Cents)
}

func TestCreateTransactionValidationFailure(t *testing.T) {
	f := newTestServer(t, "")
	f.entry.err = core.ErrValidationFailed

	payload := `{"amountCents":-1,"type":"INCOME","category":"Dues"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "ValidationFailed", decodeBody(t, rec)["errorKind"])
}

func TestPocketEndpoints(t *testing.T) {
	f := newTestServer(t, "")

	payload := `{"name":"Operational","initialBalanceCents":0}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/pockets", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/pockets", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].([]any)
	require.Len(t, data, 1)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/pockets/p1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodDelete, "/api/pockets/p1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/pockets/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NotFound", decodeBody(t, rec)["errorKind"])
}

func TestReconcileEndpoint(t *testing.T) {
	f := newTestServer(t, "")
	f.ledger.corrected = 3

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/reconcile", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(3), decodeBody(t, rec)["corrected"])

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/reconcile", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSucPayEndpoint(t *testing.T) {
	f := newTestServer(t, "")

	payload := `{"memberId":"m1","eventId":"e1"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/suc/pay", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.collection.paid, 1)
	assert.Equal(t, [2]string{"m1", "e1"}, f.collection.paid[0])
}

func TestSucPayMissingRecord(t *testing.T) {
	f := newTestServer(t, "")
	f.collection.payErr = core.ErrRecordNotFound

	payload := `{"memberId":"m1","eventId":"e1"}`
	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/suc/pay", strings.NewReader(payload)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RecordNotFound", decodeBody(t, rec)["errorKind"])
}

func TestSucPayRequiresIDs(t *testing.T) {
	f := newTestServer(t, "")

	rec := f.do(httptest.NewRequest(http.MethodPost, "/api/suc/pay", strings.NewReader(`{"memberId":""}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.collection.paid)
}

func TestSucProgressFallsBackToLatestEvent(t *testing.T) {
	f := newTestServer(t, "")
	f.collection.latest = core.SucEvent{ID: "e1", Title: "SUC Agustus 2026"}
	f.collection.progress = core.CollectionProgress{Percentage: 33.33, Total: 3, Paid: 1}

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/suc/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, 33.33, data["percentage"])
	assert.Equal(t, float64(3), data["total"])
	assert.Equal(t, float64(1), data["paid"])
}

func TestSucProgressNoEvents(t *testing.T) {
	f := newTestServer(t, "")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/suc/progress", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	f := newTestServer(t, "s3cret")

	// Health and readiness stay open even with auth configured.
	rec := f.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWriteInvalidatesDashboardCache(t *testing.T) {
	f := newTestServer(t, "")

	rec := f.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	// Cached zero totals would mask the new transaction without invalidation.
	f.reports.totals = core.DashboardTotals{TotalIncome: core.Money{Cents: 100}}
	payload := `{"amountCents":100,"type":"INCOME","category":"Dues"}`
	rec = f.do(httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(payload)))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, float64(100), data["totalIncome"])
}
