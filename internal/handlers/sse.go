package handlers

import (
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
	"sales-dashboard/internal/services"
)

const maxTableRows = 50

var summaryTemplate = template.Must(template.New("summary").Parse(`
<section id="summary" class="summary-cards">
<div class="card"><span class="label">Total Sales</span><strong>{{printf "%.2f" .TotalSales}}</strong></div>
<div class="card"><span class="label">Orders</span><strong>{{.TotalOrders}}</strong></div>
<div class="card"><span class="label">Customers</span><strong>{{.TotalCustomers}}</strong></div>
<div class="card"><span class="label">Units Sold</span><strong>{{printf "%.0f" .TotalQuantity}}</strong></div>
<div class="card"><span class="label">Avg. Order Value</span><strong>{{printf "%.2f" .AverageOrderValue}}</strong></div>
</section>`))

var previewTemplate = template.Must(template.New("preview").Parse(`
<section id="preview">
{{if .Rows}}<table class="modern-table">
<thead><tr><th>Invoice</th><th>Customer</th><th>Gender</th><th>Age</th><th>Category</th><th>Qty</th><th>Price</th><th>Total</th><th>Payment</th><th>Date</th><th>Mall</th></tr></thead>
<tbody>
{{range .Rows}}<tr>
<td>{{.InvoiceNo}}</td>
<td>{{.CustomerID}}</td>
<td>{{.Gender}}</td>
<td>{{.Age}}</td>
<td><span class="category-badge">{{.Category}}</span></td>
<td>{{.Quantity}}</td>
<td>{{.Price.StringFixed 2}}</td>
<td><strong>{{.TotalAmount.StringFixed 2}}</strong></td>
<td>{{.PaymentMethod}}</td>
<td>{{.InvoiceDate.Format "02/01/2006"}}</td>
<td>{{.ShoppingMall}}</td>
</tr>{{end}}
</tbody>
</table>
<p class="muted">Showing {{len .Rows}} of {{.Total}} matching rows</p>
{{else}}<p class="empty">No transactions match the current filters.</p>{{end}}
</section>`))

// chartData is the client-side shape of one chart.
type chartData struct {
	Labels []string  `json:"labels"`
	Values []float64 `json:"values"`
}

func chart(s models.Series) chartData {
	return chartData{Labels: s.Labels(), Values: s.Values()}
}

func chartSignals(vm *models.ViewModel) map[string]chartData {
	return map[string]chartData{
		"categorySales":    chart(vm.CategorySales),
		"categoryQuantity": chart(vm.CategoryQuantity),
		"paymentMethods":   chart(vm.PaymentMethods),
		"topMalls":         chart(vm.TopMalls),
		"monthlySales":     chart(vm.MonthlySales),
		"yearlySales":      chart(vm.YearlySales),
		"genderSplit":      chart(vm.GenderSplit),
		"ageDistribution":  chart(vm.AgeDistribution),
		"topCustomers":     chart(vm.TopCustomers),
	}
}

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// dashboardSignals is the part of the client signal store the server reads.
type dashboardSignals struct {
	Filters filterSignals `json:"filters"`
}

func renderFragment(tmpl *template.Template, data any) (string, error) {
	var buf strings.Builder
	err := tmpl.Execute(&buf, data)
	return buf.String(), err
}

// patchDashboard renders sel and streams the summary, the preview table and
// the chart data to the client.
func (h *SSEHandlers) patchDashboard(sse *datastar.ServerSentEventGenerator, r *http.Request, sel services.Selectors) error {
	vm, err := h.analytics.Render(r.Context(), sel)
	if err != nil {
		return err
	}

	summary, err := renderFragment(summaryTemplate, vm.Summary)
	if err != nil {
		return err
	}
	if err := sse.PatchElements(summary); err != nil {
		return err
	}

	rows := vm.Preview
	if len(rows) > maxTableRows {
		rows = rows[:maxTableRows]
	}
	preview, err := renderFragment(previewTemplate, map[string]any{
		"Rows":  rows,
		"Total": vm.Summary.Rows,
	})
	if err != nil {
		return err
	}
	if err := sse.PatchElements(preview); err != nil {
		return err
	}

	charts, err := json.Marshal(map[string]any{"charts": chartSignals(vm)})
	if err != nil {
		return err
	}
	return sse.PatchSignals(charts)
}

// HandleDashboard re-renders every panel for the filters currently held in
// the client's signals.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	requestID := observability.GetRequestID(r.Context())

	var signals dashboardSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		errors.WriteError(w, h.logger, errors.BadRequestWrap(err, "Invalid signals"), requestID)
		return
	}
	sel, err := signals.Filters.selectors()
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := h.patchDashboard(sse, r, sel); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("patch dashboard", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleReset selects every value of every domain again and re-renders.
func (h *SSEHandlers) HandleReset(w http.ResponseWriter, r *http.Request) {
	domains, err := h.analytics.Domains(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	sel := services.FullDomain(domains)

	filters, err := json.Marshal(map[string]any{"filters": signalsFromSelectors(sel)})
	if err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("marshal filters", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	if err := sse.PatchSignals(filters); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("patch filters", "error", err)
		return
	}
	if err := h.patchDashboard(sse, r, sel); err != nil {
		observability.RequestLogger(r.Context(), h.logger).Error("patch dashboard", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}
