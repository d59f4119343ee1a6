package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sales-dashboard/internal/dataset"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestAnalytics() *Analytics {
	a := NewAnalytics("memory.csv", nil, DefaultOptions(), testLogger())
	a.SetData(salesTable().Rows())
	return a
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics("data.csv", nil, DefaultOptions(), nil)
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.cache == nil {
		t.Error("cache should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_Render(t *testing.T) {
	a := newTestAnalytics()

	vm, err := a.Render(context.Background(), Selectors{})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}

	if vm.Summary.Rows != 10 || vm.Summary.TotalOrders != 10 || vm.Summary.TotalCustomers != 10 {
		t.Errorf("summary = %+v", vm.Summary)
	}
	if math.Abs(vm.Summary.TotalSales-41094.28) > epsilon {
		t.Errorf("TotalSales = %f, want 41094.28", vm.Summary.TotalSales)
	}
	if vm.Summary.TotalQuantity != 31 {
		t.Errorf("TotalQuantity = %f, want 31", vm.Summary.TotalQuantity)
	}
	if math.Abs(vm.Summary.AverageOrderValue-4109.428) > epsilon {
		t.Errorf("AverageOrderValue = %f", vm.Summary.AverageOrderValue)
	}

	if len(vm.CategorySales) != 4 || len(vm.CategoryQuantity) != 4 {
		t.Errorf("category panels = %v / %v", vm.CategorySales, vm.CategoryQuantity)
	}
	if len(vm.TopMalls) != 5 {
		t.Errorf("TopMalls should be limited to 5, got %d", len(vm.TopMalls))
	}
	if len(vm.PaymentMethods) != 3 || vm.PaymentMethods[0].Label != "Credit Card" {
		t.Errorf("PaymentMethods = %v", vm.PaymentMethods)
	}
	if len(vm.YearlySales) != 2 || vm.YearlySales[0].Label != "2021" {
		t.Errorf("YearlySales = %v", vm.YearlySales)
	}
	if len(vm.GenderSplit) != 2 || len(vm.AgeDistribution) != 5 {
		t.Errorf("GenderSplit = %v, AgeDistribution = %v", vm.GenderSplit, vm.AgeDistribution)
	}
	if len(vm.TopCustomers) != 10 {
		t.Errorf("TopCustomers = %d, want 10", len(vm.TopCustomers))
	}
	if len(vm.Preview) != 10 || vm.Preview[0].InvoiceNo != "I138884" {
		t.Errorf("Preview = %d rows", len(vm.Preview))
	}
}

func TestAnalytics_RenderFiltered(t *testing.T) {
	a := newTestAnalytics()

	vm, err := a.Render(context.Background(), Selectors{Categories: []string{"Shoes"}})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if vm.Summary.Rows != 2 {
		t.Errorf("Rows = %d, want 2", vm.Summary.Rows)
	}
	if len(vm.CategorySales) != 1 || vm.CategorySales[0].Label != "Shoes" {
		t.Errorf("CategorySales = %v", vm.CategorySales)
	}
}

func TestAnalytics_RenderEmptySelection(t *testing.T) {
	a := newTestAnalytics()

	vm, err := a.Render(context.Background(), Selectors{Genders: []string{}})
	if err != nil {
		t.Fatalf("empty selection is not an error, got %v", err)
	}
	if vm.Summary.Rows != 0 || vm.Summary.TotalSales != 0 || vm.Summary.AverageOrderValue != 0 {
		t.Errorf("summary = %+v", vm.Summary)
	}
	if len(vm.CategorySales) != 0 || len(vm.MonthlySales) != 0 || len(vm.Preview) != 0 {
		t.Error("panels should be empty")
	}
}

func TestAnalytics_RenderInvalidSelectors(t *testing.T) {
	a := newTestAnalytics()

	_, err := a.Render(context.Background(), Selectors{Start: day(2022, 2, 1), End: day(2022, 1, 1)})
	if !errors.Is(err, ErrInvalidSelectors) {
		t.Errorf("Render() error = %v, want ErrInvalidSelectors", err)
	}
}

func TestAnalytics_LoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sales.csv")
	csv := `invoice_no,customer_id,gender,age,category,quantity,price,payment_method,invoice_date,shopping_mall
I1,C1,Female,28,Clothing,5,10,Cash,5/8/2022,Kanyon
I2,C2,Male,21,Shoes,3,20,Cash,bad,Kanyon
`
	if err := os.WriteFile(path, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	a := NewAnalytics(path, nil, DefaultOptions(), testLogger())
	if err := a.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	stats := a.Stats()
	if stats["record_count"] != 1 || stats["dropped_dates"] != 1 {
		t.Errorf("stats = %v", stats)
	}

	if err := a.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if got := a.Stats()["loads"]; got != int64(2) {
		t.Errorf("loads = %v, want 2", got)
	}
}

func TestAnalytics_LoadMissingFile(t *testing.T) {
	a := NewAnalytics(filepath.Join(t.TempDir(), "nope.csv"), nil, DefaultOptions(), testLogger())

	err := a.Load(context.Background())
	if !errors.Is(err, dataset.ErrFileAccess) {
		t.Errorf("Load() error = %v, want ErrFileAccess", err)
	}
	if _, err := a.Render(context.Background(), Selectors{}); !errors.Is(err, dataset.ErrFileAccess) {
		t.Errorf("Render() error = %v, want ErrFileAccess", err)
	}
	if a.Stats()["loaded"] != false {
		t.Error("stats should report nothing loaded")
	}
}

func TestAnalytics_Export(t *testing.T) {
	a := newTestAnalytics()
	var buf bytes.Buffer

	if err := a.Export(context.Background(), Selectors{Categories: []string{"Books"}}, &buf); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header and one row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "invoice_no,customer_id") {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "I337046") || !strings.Contains(lines[1], "24/10/2021") {
		t.Errorf("row = %q", lines[1])
	}

	// the export loads back
	back, err := dataset.LoadReader(strings.NewReader(buf.String()))
	if err != nil {
		t.Fatalf("LoadReader() error = %v", err)
	}
	if back.Len() != 1 || back.Row(0).Price.String() != "60.6" {
		t.Errorf("round trip row = %+v", back.Row(0))
	}
}

func TestAnalytics_ConcurrentRender(t *testing.T) {
	a := newTestAnalytics()

	done := make(chan error, 10)
	for i := 0; i < 10; i++ {
		go func() {
			_, err := a.Render(context.Background(), Selectors{Genders: []string{"Female"}})
			done <- err
		}()
	}
	for i := 0; i < 10; i++ {
		if err := <-done; err != nil {
			t.Errorf("Render() error = %v", err)
		}
	}
}
