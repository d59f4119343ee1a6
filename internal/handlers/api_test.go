package handlers

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
	"sales-dashboard/internal/services"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTx(invoice, customer, gender string, age int, category string, qty int, price, payment, mall string, date time.Time) models.Transaction {
	return models.Transaction{
		InvoiceNo:     invoice,
		CustomerID:    customer,
		Gender:        gender,
		Age:           age,
		Category:      category,
		Quantity:      qty,
		Price:         decimal.RequireFromString(price),
		PaymentMethod: payment,
		ShoppingMall:  mall,
		InvoiceDate:   date,
	}
}

func createTestAnalytics() *services.Analytics {
	a := services.NewAnalytics("sales.csv", nil, services.DefaultOptions(), quietLogger())
	a.SetData([]models.Transaction{
		testTx("I001", "C001", "Female", 30, "Clothing", 2, "100.00", "Credit Card", "Kanyon",
			time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)),
		testTx("I002", "C002", "Male", 45, "Shoes", 1, "50.50", "Cash", "Forum Istanbul",
			time.Date(2022, 2, 10, 0, 0, 0, 0, time.UTC)),
		testTx("I003", "C001", "Female", 22, "Books", 3, "15.15", "Cash", "Kanyon",
			time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC)),
	})
	return a
}

// unavailableAnalytics points at a file that does not exist.
func unavailableAnalytics(t *testing.T) *services.Analytics {
	t.Helper()
	path := filepath.Join(t.TempDir(), "missing.csv")
	return services.NewAnalytics(path, nil, services.DefaultOptions(), quietLogger())
}

type dashboardResponse struct {
	Success bool             `json:"success"`
	Data    models.ViewModel `json:"data"`
}

type errorResponse struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string `json:"code"`
		Details string `json:"details"`
	} `json:"error"`
}

func TestNewAPIHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	handlers := NewAPIHandlers(analytics, slog.Default())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewAPIHandlers() should set analytics field")
	}
}

func TestSelectorsFromQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantErr      bool
		wantGenders  []string
		wantMalls    []string
		wantStartSet bool
	}{
		{name: "no parameters", query: ""},
		{name: "repeated values", query: "gender=Female&gender=Male", wantGenders: []string{"Female", "Male"}},
		{name: "blank value selects nothing", query: "mall=", wantMalls: []string{}},
		{name: "values are trimmed", query: "mall=%20Kanyon%20&mall=", wantMalls: []string{"Kanyon"}},
		{name: "start date", query: "start=2022-01-01", wantStartSet: true},
		{name: "bad date", query: "start=01/01/2022", wantErr: true},
		{name: "reversed interval", query: "start=2022-02-01&end=2022-01-01", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard?"+tt.query, nil)
			sel, err := selectorsFromQuery(req.URL.Query())
			if (err != nil) != tt.wantErr {
				t.Fatalf("selectorsFromQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if (sel.Genders == nil) != (tt.wantGenders == nil) || len(sel.Genders) != len(tt.wantGenders) {
				t.Errorf("Genders = %#v, want %#v", sel.Genders, tt.wantGenders)
			}
			if (sel.Malls == nil) != (tt.wantMalls == nil) || len(sel.Malls) != len(tt.wantMalls) {
				t.Errorf("Malls = %#v, want %#v", sel.Malls, tt.wantMalls)
			}
			if !sel.Start.IsZero() != tt.wantStartSet {
				t.Errorf("Start = %v, want set %v", sel.Start, tt.wantStartSet)
			}
		})
	}
}

func TestAPIHandlers_HandleDashboard(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	tests := []struct {
		name      string
		query     string
		wantRows  int
		wantSales float64
	}{
		{name: "everything", query: "", wantRows: 3, wantSales: 295.95},
		{name: "one gender", query: "gender=Female", wantRows: 2, wantSales: 245.45},
		{name: "date range", query: "start=2022-01-01&end=2022-12-31", wantRows: 2, wantSales: 250.50},
		{name: "empty category set", query: "category=", wantRows: 0, wantSales: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/dashboard?"+tt.query, nil)
			w := httptest.NewRecorder()
			handlers.HandleDashboard(w, req)

			if w.Code != http.StatusOK {
				t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected JSON content type, got %q", ct)
			}

			var resp dashboardResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !resp.Success {
				t.Error("expected success=true")
			}
			if resp.Data.Summary.Rows != tt.wantRows {
				t.Errorf("rows = %d, want %d", resp.Data.Summary.Rows, tt.wantRows)
			}
			if math.Abs(resp.Data.Summary.TotalSales-tt.wantSales) > 1e-9 {
				t.Errorf("total sales = %v, want %v", resp.Data.Summary.TotalSales, tt.wantSales)
			}
		})
	}
}

func TestAPIHandlers_HandleDashboard_InvalidSelectors(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard?start=2023-01-01&end=2022-01-01", nil)
	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success || resp.Error.Code != "BAD_REQUEST" {
		t.Errorf("unexpected error envelope: %+v", resp)
	}
	if !strings.Contains(resp.Error.Details, "before start date") {
		t.Errorf("details should explain the interval, got %q", resp.Error.Details)
	}
}

func TestAPIHandlers_Unavailable(t *testing.T) {
	handlers := NewAPIHandlers(unavailableAnalytics(t), quietLogger())

	for _, tc := range []struct {
		path    string
		handler http.HandlerFunc
	}{
		{"/api/dashboard", handlers.HandleDashboard},
		{"/api/domains", handlers.HandleDomains},
		{"/api/export.csv", handlers.HandleExport},
	} {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.handler(w, httptest.NewRequest(http.MethodGet, tc.path, nil))

			if w.Code != http.StatusServiceUnavailable {
				t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, w.Code)
			}
			var resp errorResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if resp.Error.Code != "SERVICE_UNAVAILABLE" {
				t.Errorf("code = %q", resp.Error.Code)
			}
			if resp.Error.Details != "" {
				t.Errorf("server errors must not leak details, got %q", resp.Error.Details)
			}
		})
	}
}

func TestAPIHandlers_HandleDomains(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/domains", nil)
	w := httptest.NewRecorder()
	handlers.HandleDomains(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if cc := w.Header().Get("Cache-Control"); cc != cacheDomains {
		t.Errorf("Cache-Control = %q", cc)
	}

	var resp struct {
		Data models.SelectorDomains `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got := strings.Join(resp.Data.Categories, ","); got != "Books,Clothing,Shoes" {
		t.Errorf("categories = %q", got)
	}
	if got := strings.Join(resp.Data.PaymentMethods, ","); got != "Cash,Credit Card" {
		t.Errorf("payment methods = %q", got)
	}
	if !resp.Data.MinDate.Equal(time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("min date = %v", resp.Data.MinDate)
	}
	if !resp.Data.MaxDate.Equal(time.Date(2023, 3, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("max date = %v", resp.Data.MaxDate)
	}
}

func TestAPIHandlers_HandleExport(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/export.csv?mall=Kanyon", nil)
	w := httptest.NewRecorder()
	handlers.HandleExport(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.Contains(cd, "sales_export.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	records, err := csv.NewReader(w.Body).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected header and 2 rows, got %d records", len(records))
	}
	if records[0][0] != "invoice_no" {
		t.Errorf("first header = %q", records[0][0])
	}
	for _, rec := range records[1:] {
		if rec[9] != "Kanyon" {
			t.Errorf("exported row from mall %q", rec[9])
		}
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Success bool              `json:"success"`
		Data    map[string]string `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data["status"] != "healthy" || resp.Data["version"] != version {
		t.Errorf("unexpected health payload: %v", resp.Data)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestAnalytics(), quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	var resp struct {
		Data map[string]any `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data["loaded"] != true {
		t.Errorf("loaded = %v", resp.Data["loaded"])
	}
	if resp.Data["record_count"] != float64(3) {
		t.Errorf("record_count = %v", resp.Data["record_count"])
	}
}

func TestAPIHandlers_HandleReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	writeFile(t, path, "invoice_no,customer_id,gender,age,category,quantity,price,payment_method,invoice_date,shopping_mall\n"+
		"I1,C1,Female,28,Clothing,5,1500.40,Credit Card,5/8/2022,Kanyon\n")

	analytics := services.NewAnalytics(path, nil, services.DefaultOptions(), quietLogger())
	handlers := NewAPIHandlers(analytics, quietLogger())

	w := httptest.NewRecorder()
	handlers.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	var before dashboardResponse
	if err := json.NewDecoder(w.Body).Decode(&before); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if before.Data.Summary.Rows != 1 {
		t.Fatalf("rows before reload = %d", before.Data.Summary.Rows)
	}

	writeFile(t, path, "invoice_no,customer_id,gender,age,category,quantity,price,payment_method,invoice_date,shopping_mall\n"+
		"I1,C1,Female,28,Clothing,5,1500.40,Credit Card,5/8/2022,Kanyon\n"+
		"I2,C2,Male,21,Shoes,3,600.17,Debit Card,12/12/2021,Forum Istanbul\n")

	w = httptest.NewRecorder()
	handlers.HandleReload(w, httptest.NewRequest(http.MethodPost, "/admin/reload", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("reload status = %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	handlers.HandleDashboard(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	var after dashboardResponse
	if err := json.NewDecoder(w.Body).Decode(&after); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if after.Data.Summary.Rows != 2 {
		t.Errorf("rows after reload = %d, want 2", after.Data.Summary.Rows)
	}
}
