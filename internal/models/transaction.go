package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one invoice line item. Month, Year, Day and TotalAmount are
// filled in by the deriver and never touched afterwards.
type Transaction struct {
	InvoiceNo     string          `json:"invoice_no"`
	CustomerID    string          `json:"customer_id"`
	Gender        string          `json:"gender"`
	Age           int             `json:"age"`
	Category      string          `json:"category"`
	Quantity      int             `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PaymentMethod string          `json:"payment_method"`
	ShoppingMall  string          `json:"shopping_mall"`
	InvoiceDate   time.Time       `json:"invoice_date"`

	TotalAmount decimal.Decimal `json:"total_amount"`
	Month       string          `json:"month"`
	Year        int             `json:"year"`
	Day         int             `json:"day"`
}

// Point is one labelled value of an aggregation result.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// Series is an ordered key to number mapping.
type Series []Point

// Labels returns the keys in order.
func (s Series) Labels() []string {
	labels := make([]string, len(s))
	for i, p := range s {
		labels[i] = p.Label
	}
	return labels
}

// Values returns the numbers in order.
func (s Series) Values() []float64 {
	values := make([]float64, len(s))
	for i, p := range s {
		values[i] = p.Value
	}
	return values
}

type Summary struct {
	TotalSales        float64 `json:"total_sales"`
	TotalOrders       int     `json:"total_orders"`
	TotalCustomers    int     `json:"total_customers"`
	TotalQuantity     float64 `json:"total_quantity"`
	AverageOrderValue float64 `json:"average_order_value"`
	Rows              int     `json:"rows"`
}

// ViewModel is everything the dashboard shows for one selector configuration.
type ViewModel struct {
	Summary          Summary       `json:"summary"`
	CategorySales    Series        `json:"category_sales"`
	CategoryQuantity Series        `json:"category_quantity"`
	PaymentMethods   Series        `json:"payment_methods"`
	TopMalls         Series        `json:"top_malls"`
	MonthlySales     Series        `json:"monthly_sales"`
	YearlySales      Series        `json:"yearly_sales"`
	GenderSplit      Series        `json:"gender_split"`
	AgeDistribution  Series        `json:"age_distribution"`
	TopCustomers     Series        `json:"top_customers"`
	Preview          []Transaction `json:"preview"`
}

// SelectorDomains lists the values each selector can take, enumerated from
// the loaded data.
type SelectorDomains struct {
	Genders        []string  `json:"genders"`
	Categories     []string  `json:"categories"`
	Malls          []string  `json:"malls"`
	PaymentMethods []string  `json:"payment_methods"`
	MinDate        time.Time `json:"min_date"`
	MaxDate        time.Time `json:"max_date"`
}
