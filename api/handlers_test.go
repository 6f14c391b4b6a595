package api_test

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernbank/savings-engine/api"
	"github.com/fernbank/savings-engine/factory"
	"github.com/fernbank/savings-engine/schedule"
	"github.com/fernbank/savings-engine/store/sqlite"
)

// =============================================================================
// TEST HARNESS
// =============================================================================

// newTestServer spins up the full router over an in-memory store with the
// clock pinned to 2000-04-01, so omitted as_of fields stay reproducible.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	h := api.NewHandler(st)
	h.Clock = func() schedule.Date { return schedule.NewDate(2000, 4, 1) }

	srv := httptest.NewServer(api.NewRouter(h, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func strPtr(s string) *string { return &s }

// createDailyModel posts the shared fixture: contribute 1 every 2 days from
// 2000-04-02, open-ended, seen from 2000-04-01.
func createDailyModel(t *testing.T, srv *httptest.Server) api.ModelDTO {
	t.Helper()

	resp := do(t, srv, http.MethodPost, "/api/models", api.CreateModelRequest{
		Name:     "coffee fund",
		Category: "coffee",
		Value:    api.ValueDTO{Amount: "1"},
		Rule:     factory.RuleJSON{Type: "daily", Interval: 2},
		Start:    "2000-04-02",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[api.ModelDTO](t, resp)
}

// =============================================================================
// MODEL LIFECYCLE
// =============================================================================

func TestCreateModel(t *testing.T) {
	srv := newTestServer(t)

	// WHEN creating an open-ended daily model
	model := createDailyModel(t, srv)

	// THEN the persisted model carries the computed chain
	assert.NotZero(t, model.ID)
	assert.Equal(t, "coffee fund", model.Name)
	assert.Equal(t, "coffee", model.Category)
	assert.Equal(t, "2000-04-01", model.CalculationDate)

	require.Len(t, model.Segments, 2)
	assert.Equal(t, api.SegmentDTO{
		Regular:    "0.5",
		Start:      "2000-04-01",
		End:        strPtr("2000-04-02"),
		PeriodDays: 2,
	}, model.Segments[0])
	assert.Equal(t, api.SegmentDTO{
		Regular:    "0.6666666666666667",
		Last:       strPtr("0.6666666666666666"),
		Start:      "2000-04-03",
		PeriodDays: 3,
	}, model.Segments[1])
}

func TestGetModel(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	resp := do(t, srv, http.MethodGet, fmt.Sprintf("/api/models/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[api.ModelDTO](t, resp)
	assert.Equal(t, created, got)
}

func TestGetModel_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/models/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListModels(t *testing.T) {
	srv := newTestServer(t)
	createDailyModel(t, srv)

	resp := do(t, srv, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	models := decode[[]api.ModelDTO](t, resp)
	require.Len(t, models, 1)
	assert.Equal(t, "coffee fund", models[0].Name)
}

func TestDeleteModel(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	resp := do(t, srv, http.MethodDelete, fmt.Sprintf("/api/models/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, fmt.Sprintf("/api/models/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/models/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateModel_Validation(t *testing.T) {
	srv := newTestServer(t)

	base := func() api.CreateModelRequest {
		return api.CreateModelRequest{
			Name:  "m",
			Value: api.ValueDTO{Amount: "1"},
			Rule:  factory.RuleJSON{Type: "daily", Interval: 2},
			Start: "2000-04-02",
		}
	}

	t.Run("missing name", func(t *testing.T) {
		req := base()
		req.Name = ""
		resp := do(t, srv, http.MethodPost, "/api/models", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("unknown rule type", func(t *testing.T) {
		req := base()
		req.Rule = factory.RuleJSON{Type: "hourly"}
		resp := do(t, srv, http.MethodPost, "/api/models", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("both fixed and variable value", func(t *testing.T) {
		req := base()
		req.Value = api.ValueDTO{Amount: "1", Lower: "1", Upper: "2"}
		resp := do(t, srv, http.MethodPost, "/api/models", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("start in the past", func(t *testing.T) {
		req := base()
		req.Start = "2000-03-01"
		resp := do(t, srv, http.MethodPost, "/api/models", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("malformed date", func(t *testing.T) {
		req := base()
		req.Start = "April 2nd"
		resp := do(t, srv, http.MethodPost, "/api/models", req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

// =============================================================================
// RECALCULATION AND AMELIORATION
// =============================================================================

func TestRecalculateModel(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	// WHEN recalculating one day later
	resp := do(t, srv, http.MethodPost,
		fmt.Sprintf("/api/models/%d/recalculate", created.ID),
		api.RecalculateRequest{AsOf: "2000-04-02"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// THEN the chain is rebuilt wholesale against the new date
	got := decode[api.ModelDTO](t, resp)
	assert.Equal(t, "2000-04-02", got.CalculationDate)
	require.Len(t, got.Segments, 2)
	assert.Equal(t, api.SegmentDTO{
		Regular:    "1",
		Start:      "2000-04-02",
		End:        strPtr("2000-04-02"),
		PeriodDays: 1,
	}, got.Segments[0])
	assert.Equal(t, "2000-04-03", got.Segments[1].Start)
}

func TestAmeliorateModel(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	// WHEN absorbing a 0.50 overspend observed on 2000-04-06
	resp := do(t, srv, http.MethodPost,
		fmt.Sprintf("/api/models/%d/ameliorate", created.ID),
		api.AmeliorateRequest{Amount: "0.5", Date: "2000-04-06"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	got := decode[api.ModelDTO](t, resp)

	// THEN a recovery segment covers the shortfall over the current period
	require.Len(t, got.Ameliorations, 1)
	assert.Equal(t, api.SegmentDTO{
		Regular:    "0.9166666666666667",
		Last:       strPtr("0.9166666666666666"),
		Start:      "2000-04-07",
		End:        strPtr("2000-04-08"),
		PeriodDays: 2,
	}, got.Ameliorations[0])

	// AND the base schedule is trimmed and resumed after the recovery
	require.Len(t, got.Segments, 4)
	assert.Equal(t, strPtr("2000-04-06"), got.Segments[1].End)
	assert.Equal(t, "2000-04-09", got.Segments[2].Start)
	assert.Nil(t, got.Segments[3].End)

	// AND the change was persisted
	resp = do(t, srv, http.MethodGet, fmt.Sprintf("/api/models/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, got, decode[api.ModelDTO](t, resp))
}

func TestAmeliorateModel_OutsideSchedule(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	resp := do(t, srv, http.MethodPost,
		fmt.Sprintf("/api/models/%d/ameliorate", created.ID),
		api.AmeliorateRequest{Amount: "1", Date: "2000-03-15"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetModelRate(t *testing.T) {
	srv := newTestServer(t)
	created := createDailyModel(t, srv)

	resp := do(t, srv, http.MethodGet,
		fmt.Sprintf("/api/models/%d/rate?date=2000-04-03", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	rate := decode[api.RateDTO](t, resp)
	assert.Equal(t, api.RateDTO{Date: "2000-04-03", Rate: "0.6666666666666667"}, rate)

	// Outside the schedule the rate is zero, not an error.
	resp = do(t, srv, http.MethodGet,
		fmt.Sprintf("/api/models/%d/rate?date=2000-03-01", created.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "0", decode[api.RateDTO](t, resp).Rate)
}

// =============================================================================
// SCHEDULE PREVIEW
// =============================================================================

func TestPreviewSchedule(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/schedule/preview", api.PreviewRequest{
		Value: api.ValueDTO{Amount: "1"},
		Rule:  factory.RuleJSON{Type: "daily", Interval: 2},
		Start: "2000-04-02",
		End:   strPtr("2000-04-10"),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	preview := decode[api.PreviewDTO](t, resp)
	require.Len(t, preview.Segments, 1)
	assert.Equal(t, api.SegmentDTO{
		Regular:    "0.5",
		Start:      "2000-04-01",
		End:        strPtr("2000-04-10"),
		PeriodDays: 10,
	}, preview.Segments[0])

	// Nothing was persisted.
	resp = do(t, srv, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]api.ModelDTO](t, resp))
}

func TestPreviewSchedule_Infeasible(t *testing.T) {
	srv := newTestServer(t)

	// A value this small rounds to a zero daily rate.
	resp := do(t, srv, http.MethodPost, "/api/schedule/preview", api.PreviewRequest{
		Value: api.ValueDTO{Amount: "0.00000000000000001"},
		Rule:  factory.RuleJSON{Type: "once"},
		Start: "2000-04-02",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func TestTransactionLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Amount:      "12.50",
		Category:    "groceries",
		Description: "corner shop",
		Date:        "2000-04-03",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[api.TransactionDTO](t, resp)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "12.5", created.Amount)

	resp = do(t, srv, http.MethodGet, "/api/transactions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	txs := decode[[]api.TransactionDTO](t, resp)
	require.Len(t, txs, 1)
	assert.Equal(t, created, txs[0])

	resp = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodDelete, fmt.Sprintf("/api/transactions/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListTransactions_Window(t *testing.T) {
	srv := newTestServer(t)

	for _, date := range []string{"2000-04-01", "2000-04-05", "2000-04-09"} {
		resp := do(t, srv, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
			Amount: "1", Category: "groceries", Date: date,
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := do(t, srv, http.MethodGet, "/api/transactions?from=2000-04-02&to=2000-04-08", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	txs := decode[[]api.TransactionDTO](t, resp)
	require.Len(t, txs, 1)
	assert.Equal(t, "2000-04-05", txs[0].Date)
}

// =============================================================================
// AFFORDABILITY REPORT
// =============================================================================

func TestGetAffordability(t *testing.T) {
	srv := newTestServer(t)

	// GIVEN a model committing 1 per day over five days
	resp := do(t, srv, http.MethodPost, "/api/models", api.CreateModelRequest{
		Name:     "groceries",
		Category: "groceries",
		Value:    api.ValueDTO{Amount: "1"},
		Rule:     factory.RuleJSON{Type: "daily", Interval: 1},
		Start:    "2000-04-01",
		End:      strPtr("2000-04-05"),
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// AND a claimed transaction on day two
	resp = do(t, srv, http.MethodPost, "/api/transactions", api.CreateTransactionRequest{
		Amount: "2", Category: "groceries", Date: "2000-04-02",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// WHEN requesting the report over days one through three
	resp = do(t, srv, http.MethodGet,
		"/api/reports/affordability?from=2000-04-01&to=2000-04-03", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	report := decode[api.AffordabilityDTO](t, resp)
	assert.True(t, report.Affordable)
	assert.Nil(t, report.Shortfall)
	require.Len(t, report.Days, 3)
	assert.Equal(t, api.DayBalanceDTO{
		Date: "2000-04-02", Committed: "1", Spent: "2", Balance: "0",
	}, report.Days[1])
	assert.Equal(t, "1", report.Days[2].Balance)
}

func TestGetAffordability_InvalidWindow(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/reports/affordability?to=2000-04-03", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// RESET
// =============================================================================

func TestReset(t *testing.T) {
	srv := newTestServer(t)
	createDailyModel(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/reset", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/models", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]api.ModelDTO](t, resp))
}
