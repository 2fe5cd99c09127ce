package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pnl_dashboard/config"
	"pnl_dashboard/goals"
	"pnl_dashboard/internal/cache"
	"pnl_dashboard/internal/sheets"
	"pnl_dashboard/internal/store"
	"pnl_dashboard/metrics"
	"pnl_dashboard/rollups"
)

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func testRefs() config.Tables {
	return config.Tables{
		Sales:        config.TableRef{SheetID: "sales", Tab: "Sheet1"},
		CallLogs:     config.TableRef{SheetID: "calls", Tab: "Report"},
		Commission:   config.TableRef{SheetID: "comm", Tab: "Sheet1"},
		Pricing:      config.TableRef{SheetID: "goals", Tab: "Publisher Pricing"},
		CompanyGoals: config.TableRef{SheetID: "goals", Tab: "Company Daily Goals"},
		AgentGoals:   config.TableRef{SheetID: "goals", Tab: "Agent Daily Goals"},
	}
}

func seed(t *testing.T, st *store.Store, refs config.Tables) {
	t.Helper()
	ctx := context.Background()
	tables := []struct {
		ref     config.TableRef
		headers []string
		rows    [][]string
	}{
		{refs.Sales, []string{"Agent", "Lead Source", "Carrier", "Product", "Monthly Premium", "Application Submitted Date", "Placed?"}, [][]string{
			{"Jane Doe", "VENDOR-X", "CICA Life", "Standard Whole Life", "50", "3/1/2024", "Active"},
			{"William Smith", "VENDOR-X", "Americo", "Eagle Select", "100", "3/5/2024", "Declined"},
		}},
		{refs.CallLogs, []string{"Date", "Rep", "Campaign", "Duration", "Call Status"}, [][]string{
			{"2024-03-01", "Bill S", "VENDOR-X (promo) 7", "0:02:15", "Sale"},
			{"2024-03-02", "Jane Doe", "VENDOR-X", "0:00:30", ""},
		}},
		{refs.Commission, []string{"Carrier", "Product", "Commission Rate", "Age range"}, [][]string{
			{"CICA", "Standard Whole Life", "100%", "n/a"},
		}},
		{refs.Pricing, []string{"Campaign Code", "Vendor", "Price per Billable Call ($)", "Buffer", "Status"}, [][]string{
			{"VENDOR-X", "Vendor X", "$40", "60", "Active"},
		}},
		{refs.AgentGoals, []string{"Agent", "Apps/Day", "Premium Target", "Close Rate"}, [][]string{
			{"Jane Doe", "3", "$1,200", "12%"},
		}},
	}
	for _, tbl := range tables {
		if err := st.ReplaceTable(ctx, tbl.ref, tbl.headers, tbl.rows); err != nil {
			t.Fatalf("seed %s: %v", tbl.ref.Key(), err)
		}
	}
}

func setupTest(t *testing.T) (http.Handler, *metrics.Metrics) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "tables.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })
	refs := testRefs()
	seed(t, st, refs)

	m := metrics.New()
	tables := sheets.NewCached(sheets.NewSQLite(st), cache.NewMemory(), time.Minute, m)
	handler := NewHandler(Deps{
		Rollups: rollups.NewService(tables, refs, m).WithClock(func() time.Time { return fixedNow }),
		Goals:   goals.NewService(tables, refs),
		Tables:  tables,
		Refs:    refs,
		Metrics: m,
		Health:  st.Health,
		Backend: config.BackendSQLite,
	})
	return NewRouter(handler), m
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %s: %v", rr.Body.String(), err)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	h, m := setupTest(t)
	rr := do(t, h, http.MethodGet, "/api/dashboard?start=2024-03-01&end=3/31/2024", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rr.Code, rr.Body.String())
	}
	if rr.Header().Get("X-Request-Id") == "" {
		t.Fatal("expected a request id header")
	}
	var out struct {
		PNL []struct {
			Key        string   `json:"key"`
			LeadSpend  float64  `json:"leadSpend"`
			NetRevenue float64  `json:"netRevenue"`
			CPA        *float64 `json:"cpa"`
		} `json:"pnl"`
		Meta struct {
			PolicyCount int               `json:"policyCount"`
			DateRange   map[string]string `json:"dateRange"`
		} `json:"meta"`
	}
	decode(t, rr, &out)
	if len(out.PNL) != 1 || out.PNL[0].Key != "VENDOR-X" || out.PNL[0].LeadSpend != 40 || out.PNL[0].NetRevenue != 210 {
		t.Fatalf("unexpected pnl %+v", out.PNL)
	}
	if out.Meta.PolicyCount != 2 || out.Meta.DateRange["end"] != "2024-03-31" {
		t.Fatalf("unexpected meta %+v", out.Meta)
	}
	if m.Snapshot().Builds != 1 {
		t.Fatalf("expected a recorded build")
	}
}

func TestDashboardRejectsBadDates(t *testing.T) {
	h, _ := setupTest(t)
	for _, target := range []string{"/api/dashboard?start=yesterday", "/api/dashboard?start=2024-04-01&end=2024-03-01"} {
		rr := do(t, h, http.MethodGet, target, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rr.Code)
		}
		var body errorResponse
		decode(t, rr, &body)
		if body.Error == "" || body.RequestID == "" {
			t.Fatalf("expected error payload, got %+v", body)
		}
	}
}

func TestListingEndpoints(t *testing.T) {
	h, _ := setupTest(t)
	var sales struct {
		Policies []map[string]any `json:"policies"`
		Total    int              `json:"total"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/sales?start=2024-03-02", ""), &sales)
	if sales.Total != 1 || sales.Policies[0]["agent"] != "William Smith" {
		t.Fatalf("unexpected sales %+v", sales)
	}

	var calls struct {
		Calls []map[string]any `json:"calls"`
		Total int              `json:"total"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/calllogs", ""), &calls)
	if calls.Total != 2 || calls.Calls[0]["rep"] != "William Smith" {
		t.Fatalf("unexpected calls %+v", calls)
	}

	var rates struct {
		Rates []map[string]any `json:"rates"`
	}
	decode(t, do(t, h, http.MethodGet, "/api/commissions", ""), &rates)
	if len(rates.Rates) != 1 || rates.Rates[0]["commissionRate"] != float64(1) {
		t.Fatalf("unexpected rates %+v", rates)
	}

	var g goals.Goals
	decode(t, do(t, h, http.MethodGet, "/api/goals", ""), &g)
	if g.Company["cpa"] != 250 || g.Agents["Jane Doe"].PremiumTarget != 1200 {
		t.Fatalf("unexpected goals %+v", g)
	}
}

func TestSettingsReadAndEdit(t *testing.T) {
	h, _ := setupTest(t)

	var section sectionPayload
	rr := do(t, h, http.MethodGet, "/api/settings?section=agentGoals", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"_rowIndex":2`) {
		t.Fatalf("rows should carry sheet row numbers: %s", rr.Body.String())
	}
	decode(t, rr, &section)
	if len(section.Headers) != 4 {
		t.Fatalf("unexpected headers %v", section.Headers)
	}

	rr = do(t, h, http.MethodPost, "/api/settings", `{"section":"agentGoals","action":"update","rowNumber":2,"rowData":{"Agent":"Jane Doe","Apps/Day":5,"Premium Target":"$1,500","Close Rate":"15%"}}`)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"updated"`) {
		t.Fatalf("update failed: %d %s", rr.Code, rr.Body.String())
	}
	var g goals.Goals
	decode(t, do(t, h, http.MethodGet, "/api/goals", ""), &g)
	if g.Agents["Jane Doe"].AppsPerDay != 5 || g.Agents["Jane Doe"].PremiumTarget != 1500 {
		t.Fatalf("edit should be visible immediately, got %+v", g.Agents)
	}

	rr = do(t, h, http.MethodPost, "/api/settings", `{"section":"agentGoals","action":"add","rowData":{"Agent":"Ann Lee","Apps/Day":"2"}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("add failed: %d %s", rr.Code, rr.Body.String())
	}
	rr = do(t, h, http.MethodPost, "/api/settings", `{"section":"agentGoals","action":"delete","rowNumber":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rr.Code, rr.Body.String())
	}
	decode(t, do(t, h, http.MethodGet, "/api/goals", ""), &g)
	if _, ok := g.Agents["Jane Doe"]; ok || g.Agents["Ann Lee"].AppsPerDay != 2 {
		t.Fatalf("unexpected agents after add/delete %+v", g.Agents)
	}
}

func TestSettingsValidation(t *testing.T) {
	h, _ := setupTest(t)
	cases := []struct {
		method, target, body string
		want                 int
	}{
		{http.MethodGet, "/api/settings?section=sales", "", http.StatusBadRequest},
		{http.MethodGet, "/api/settings?section=companyGoals", "", http.StatusNotFound},
		{http.MethodPost, "/api/settings", `{"section":"pricing","action":"update","rowData":{}}`, http.StatusBadRequest},
		{http.MethodPost, "/api/settings", `{"section":"pricing","action":"rename"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/settings", `{"section":"nope","action":"add"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/settings", `{not json`, http.StatusBadRequest},
		{http.MethodPost, "/api/settings", `{"section":"pricing","action":"delete","rowNumber":40}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		rr := do(t, h, tc.method, tc.target, tc.body)
		if rr.Code != tc.want {
			t.Errorf("%s %s %s: expected %d, got %d (%s)", tc.method, tc.target, tc.body, tc.want, rr.Code, rr.Body.String())
		}
	}
}

func TestSettingsAllReportsMissingSections(t *testing.T) {
	h, _ := setupTest(t)
	var out map[string]sectionPayload
	decode(t, do(t, h, http.MethodGet, "/api/settings?section=all", ""), &out)
	if len(out) != 4 {
		t.Fatalf("expected 4 sections, got %d", len(out))
	}
	if out["companyGoals"].Error == "" || len(out["companyGoals"].Headers) != 0 {
		t.Fatalf("missing section should report an error, got %+v", out["companyGoals"])
	}
	if out["pricing"].Error != "" || len(out["pricing"].Headers) != 5 {
		t.Fatalf("unexpected pricing section %+v", out["pricing"])
	}
}

func TestReadOnlyBackendRejectsWrites(t *testing.T) {
	refs := testRefs()
	tables := sheets.NewCached(sheets.NewCSVDir(t.TempDir()), cache.NewMemory(), time.Minute, nil)
	h := NewRouter(NewHandler(Deps{Tables: tables, Refs: refs}))
	rr := do(t, h, http.MethodPost, "/api/settings", `{"section":"pricing","action":"add","rowData":{"Campaign Code":"X"}}`)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409 for read-only backend, got %d", rr.Code)
	}
}

func TestOpsEndpoints(t *testing.T) {
	h, _ := setupTest(t)
	if rr := do(t, h, http.MethodGet, "/ops/health", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	var status map[string]any
	decode(t, do(t, h, http.MethodGet, "/ops/status", ""), &status)
	if status["backend"] != config.BackendSQLite || status["metrics"] == nil {
		t.Fatalf("unexpected status %v", status)
	}

	var inv struct {
		Invalidated []string `json:"invalidated"`
	}
	decode(t, do(t, h, http.MethodPost, "/ops/cache/invalidate?table=pricing", ""), &inv)
	if len(inv.Invalidated) != 1 || inv.Invalidated[0] != "goals:Publisher Pricing" {
		t.Fatalf("unexpected invalidation %+v", inv)
	}
	decode(t, do(t, h, http.MethodPost, "/ops/cache/invalidate", ""), &inv)
	if len(inv.Invalidated) != 6 {
		t.Fatalf("expected all tables invalidated, got %+v", inv)
	}
	if rr := do(t, h, http.MethodPost, "/ops/cache/invalidate?table=bogus", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown table, got %d", rr.Code)
	}
	if rr := do(t, h, http.MethodGet, "/nowhere", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	h, _ := setupTest(t)
	req := httptest.NewRequest(http.MethodGet, "/ops/status", nil)
	req.Header.Set("X-Request-Id", "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Header().Get("X-Request-Id") != "abc-123" {
		t.Fatalf("expected request id to be echoed, got %q", rr.Header().Get("X-Request-Id"))
	}
}
