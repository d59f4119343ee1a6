package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

const maxWorkers = 4

type Options struct {
	TopN           int
	TopCustomers   int
	PreviewRows    int
	AgeBucketWidth int
}

func DefaultOptions() Options {
	return Options{
		TopN:           5,
		TopCustomers:   10,
		PreviewRows:    10,
		AgeBucketWidth: DefaultAgeBucket,
	}
}

// Analytics turns a selector configuration into a ViewModel over the cached
// snapshot of one source file.
type Analytics struct {
	cache   *dataset.Cache
	path    string
	opts    Options
	logger  *slog.Logger
	renders atomic.Int64
}

func NewAnalytics(path string, cache *dataset.Cache, opts Options, logger *slog.Logger) *Analytics {
	if cache == nil {
		cache = dataset.NewCache(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		cache:  cache,
		path:   path,
		opts:   opts,
		logger: logger,
	}
}

// SetData derives rows and installs them as the snapshot, bypassing the file.
func (a *Analytics) SetData(rows []models.Transaction) {
	a.cache.Store(a.path, dataset.Derive(dataset.NewTable(rows)))
}

// Load warms the cache and logs what the loader kept and dropped.
func (a *Analytics) Load(ctx context.Context) error {
	ctx, span := observability.StartSpan(ctx, "analytics.load")
	defer span.End(a.logger)
	span.SetTag("path", a.path)

	start := time.Now()
	t, err := a.cache.GetOrLoad(ctx, a.path)
	if err != nil {
		span.SetError(err)
		return fmt.Errorf("load dataset: %w", err)
	}

	report := t.Report()
	a.logger.Info("dataset loaded",
		"path", a.path,
		"rows_read", report.RowsRead,
		"rows_kept", report.RowsKept,
		"dropped_dates", report.DroppedDates,
		"dropped_invalid", report.DroppedInvalid,
		"duration", time.Since(start),
	)
	for _, e := range report.DateErrors {
		a.logger.Debug("row dropped", "reason", "date", "error", e.Error())
	}
	for _, e := range report.RowErrors {
		a.logger.Debug("row dropped", "reason", "malformed", "error", e.Error())
	}
	if report.RowsKept == 0 {
		a.logger.Warn("dataset is empty", "path", a.path)
	}
	return nil
}

// Reload drops the snapshot and reads the source file again.
func (a *Analytics) Reload(ctx context.Context) error {
	a.cache.Invalidate(a.path)
	return a.Load(ctx)
}

func (a *Analytics) table(ctx context.Context) (*dataset.Table, error) {
	t, err := a.cache.GetOrLoad(ctx, a.path)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	return t, nil
}

func (a *Analytics) Domains(ctx context.Context) (models.SelectorDomains, error) {
	t, err := a.table(ctx)
	if err != nil {
		return models.SelectorDomains{}, err
	}
	return Domains(t), nil
}

// Filtered returns the snapshot rows matching sel.
func (a *Analytics) Filtered(ctx context.Context, sel Selectors) (*dataset.Table, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	t, err := a.table(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(t, sel), nil
}

// Render filters the snapshot with sel and computes every dashboard panel.
func (a *Analytics) Render(ctx context.Context, sel Selectors) (*models.ViewModel, error) {
	ctx, span := observability.StartSpan(ctx, "analytics.render")
	defer span.End(a.logger)

	t, err := a.Filtered(ctx, sel)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	span.SetTag("rows", fmt.Sprint(t.Len()))
	a.renders.Add(1)

	vm := &models.ViewModel{}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)

	panels := []func(){
		func() { vm.Summary = summarize(t) },
		func() { vm.CategorySales = SumBy(t, dataset.ColCategory, dataset.ColTotalAmount) },
		func() { vm.CategoryQuantity = SumBy(t, dataset.ColCategory, dataset.ColQuantity) },
		func() { vm.PaymentMethods = ValueCounts(t, dataset.ColPaymentMethod) },
		func() { vm.TopMalls = TopN(t, dataset.ColShoppingMall, dataset.ColTotalAmount, a.opts.TopN) },
		func() { vm.MonthlySales = SumBy(t, dataset.ColMonth, dataset.ColTotalAmount) },
		func() { vm.YearlySales = SumBy(t, dataset.ColYear, dataset.ColTotalAmount) },
		func() { vm.GenderSplit = SumBy(t, dataset.ColGender, dataset.ColTotalAmount) },
		func() { vm.AgeDistribution = AgeHistogram(t, a.opts.AgeBucketWidth) },
		func() { vm.TopCustomers = TopN(t, dataset.ColCustomerID, dataset.ColTotalAmount, a.opts.TopCustomers) },
		func() { vm.Preview = t.Head(a.opts.PreviewRows) },
	}
	for _, panel := range panels {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			panel()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.SetError(err)
		return nil, err
	}

	return vm, nil
}

func summarize(t *dataset.Table) models.Summary {
	s := models.Summary{
		TotalSales:     Sum(t, dataset.ColTotalAmount),
		TotalOrders:    CountDistinct(t, dataset.ColInvoiceNo),
		TotalCustomers: CountDistinct(t, dataset.ColCustomerID),
		TotalQuantity:  Sum(t, dataset.ColQuantity),
		Rows:           t.Len(),
	}
	if s.TotalOrders > 0 {
		s.AverageOrderValue = s.TotalSales / float64(s.TotalOrders)
	}
	return s
}

// Export writes the rows matching sel as CSV.
func (a *Analytics) Export(ctx context.Context, sel Selectors, w io.Writer) error {
	t, err := a.Filtered(ctx, sel)
	if err != nil {
		return err
	}
	if err := t.DataFrame().WriteCSV(w); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// Stats is for monitoring only; it never triggers a load.
func (a *Analytics) Stats() map[string]any {
	stats := map[string]any{
		"path":    a.path,
		"loads":   a.cache.Loads(),
		"renders": a.renders.Load(),
		"loaded":  false,
	}

	if t, ok := a.cache.Peek(a.path); ok {
		report := t.Report()
		stats["loaded"] = true
		stats["record_count"] = t.Len()
		stats["rows_read"] = report.RowsRead
		stats["dropped_dates"] = report.DroppedDates
		stats["dropped_invalid"] = report.DroppedInvalid
		stats["last_loaded"] = report.LoadedAt
	}
	return stats
}
