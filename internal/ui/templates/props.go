// Package templates renders the dashboard page shell. Panel contents are
// streamed in afterwards over Datastar SSE.
package templates

import (
	"encoding/json"

	"sales-dashboard/internal/models"
)

// DashboardProps seeds the filter form.
type DashboardProps struct {
	Title   string
	Domains models.SelectorDomains
}

type chartPanel struct {
	ID    string
	Title string
	Kind  string
}

var panels = []chartPanel{
	{"categorySales", "Sales by Category", "bar"},
	{"categoryQuantity", "Units by Category", "bar"},
	{"paymentMethods", "Payment Methods", "pie"},
	{"topMalls", "Top Shopping Malls", "bar"},
	{"monthlySales", "Monthly Sales", "line"},
	{"yearlySales", "Yearly Sales", "bar"},
	{"genderSplit", "Sales by Gender", "doughnut"},
	{"ageDistribution", "Customer Age Distribution", "bar"},
	{"topCustomers", "Top Customers", "bar"},
}

type checkboxGroup struct {
	Legend string
	Signal string
	Values []string
}

func checkboxGroups(d models.SelectorDomains) []checkboxGroup {
	return []checkboxGroup{
		{"Gender", "gender", d.Genders},
		{"Category", "category", d.Categories},
		{"Shopping mall", "mall", d.Malls},
		{"Payment method", "payment", d.PaymentMethods},
	}
}

func pageTitle(props DashboardProps) string {
	if props.Title == "" {
		return "Sales Dashboard"
	}
	return props.Title
}

// checkboxLabel shows blank cells as a readable option.
func checkboxLabel(value string) string {
	if value == "" {
		return "(blank)"
	}
	return value
}

// initialSignals selects every value of every domain.
func initialSignals(d models.SelectorDomains) (string, error) {
	filters := map[string]any{
		"start":    formatDate(d.MinDate),
		"end":      formatDate(d.MaxDate),
		"gender":   nonNil(d.Genders),
		"category": nonNil(d.Categories),
		"mall":     nonNil(d.Malls),
		"payment":  nonNil(d.PaymentMethods),
	}
	raw, err := json.Marshal(map[string]any{"filters": filters, "charts": map[string]any{}})
	return string(raw), err
}
