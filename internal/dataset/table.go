// Package dataset loads the sales CSV into an immutable in-memory table and
// keeps one snapshot per source path for the life of the process.
package dataset

import (
	"fmt"
	"strconv"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// Column names, as they appear in the source header and in derived output.
const (
	ColInvoiceNo     = "invoice_no"
	ColCustomerID    = "customer_id"
	ColGender        = "gender"
	ColAge           = "age"
	ColCategory      = "category"
	ColQuantity      = "quantity"
	ColPrice         = "price"
	ColPaymentMethod = "payment_method"
	ColInvoiceDate   = "invoice_date"
	ColShoppingMall  = "shopping_mall"

	ColTotalAmount = "Total_Amount"
	ColMonth       = "Month"
	ColYear        = "Year"
	ColDay         = "Day"
)

const (
	// SourceDateLayout is day-first and accepts unpadded day and month.
	SourceDateLayout = "2/1/2006"
	isoDateLayout    = "2006-01-02"
	monthLayout      = "2006-01"
)

// SourceColumns is the required header of the input file.
var SourceColumns = []string{
	ColInvoiceNo, ColCustomerID, ColGender, ColAge, ColCategory,
	ColQuantity, ColPrice, ColPaymentMethod, ColInvoiceDate, ColShoppingMall,
}

var dimensions = map[string]bool{
	ColInvoiceNo: true, ColCustomerID: true, ColGender: true, ColAge: true,
	ColCategory: true, ColPaymentMethod: true, ColShoppingMall: true,
	ColInvoiceDate: true, ColMonth: true, ColYear: true, ColDay: true,
}

var measures = map[string]bool{
	ColAge: true, ColQuantity: true, ColPrice: true, ColTotalAmount: true,
}

var derivedColumns = map[string]bool{
	ColTotalAmount: true, ColMonth: true, ColYear: true, ColDay: true,
}

// MustDimension panics unless column can be used as a group-by key.
func MustDimension(column string) {
	if !dimensions[column] {
		panic(fmt.Sprintf("dataset: unknown dimension column %q", column))
	}
}

// MustMeasure panics unless metric is a numeric column.
func MustMeasure(metric string) {
	if !measures[metric] {
		panic(fmt.Sprintf("dataset: unknown measure column %q", metric))
	}
}

// Table is a read-only set of transactions. A nil *Table behaves as empty.
type Table struct {
	rows    []models.Transaction
	derived bool
	report  LoadReport
}

// NewTable copies rows into a new, underived table.
func NewTable(rows []models.Transaction) *Table {
	return &Table{rows: append([]models.Transaction(nil), rows...)}
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

func (t *Table) Row(i int) models.Transaction {
	return t.rows[i]
}

// Rows returns a copy of every row.
func (t *Table) Rows() []models.Transaction {
	if t == nil {
		return nil
	}
	return append([]models.Transaction(nil), t.rows...)
}

// Head returns a copy of at most n leading rows.
func (t *Table) Head(n int) []models.Transaction {
	if n > t.Len() {
		n = t.Len()
	}
	if n <= 0 {
		return []models.Transaction{}
	}
	return append([]models.Transaction(nil), t.rows[:n]...)
}

// Derived reports whether the derived columns are populated.
func (t *Table) Derived() bool {
	return t != nil && t.derived
}

// Report describes the load that produced this table.
func (t *Table) Report() LoadReport {
	if t == nil {
		return LoadReport{}
	}
	return t.report
}

// Subset returns a new table holding the rows at indices, in that order.
func (t *Table) Subset(indices []int) *Table {
	rows := make([]models.Transaction, len(indices))
	for i, idx := range indices {
		rows[i] = t.rows[idx]
	}
	return &Table{rows: rows, derived: t.Derived(), report: t.Report()}
}

// Dimension returns the value of column at row i as a group key.
func (t *Table) Dimension(i int, column string) string {
	t.checkDerived(column)
	tx := t.rows[i]
	switch column {
	case ColInvoiceNo:
		return tx.InvoiceNo
	case ColCustomerID:
		return tx.CustomerID
	case ColGender:
		return tx.Gender
	case ColAge:
		return strconv.Itoa(tx.Age)
	case ColCategory:
		return tx.Category
	case ColPaymentMethod:
		return tx.PaymentMethod
	case ColShoppingMall:
		return tx.ShoppingMall
	case ColInvoiceDate:
		return tx.InvoiceDate.Format(isoDateLayout)
	case ColMonth:
		return tx.Month
	case ColYear:
		return strconv.Itoa(tx.Year)
	case ColDay:
		return strconv.Itoa(tx.Day)
	}
	MustDimension(column)
	return ""
}

// Measure returns the numeric value of metric at row i.
func (t *Table) Measure(i int, metric string) decimal.Decimal {
	t.checkDerived(metric)
	tx := t.rows[i]
	switch metric {
	case ColAge:
		return decimal.NewFromInt(int64(tx.Age))
	case ColQuantity:
		return decimal.NewFromInt(int64(tx.Quantity))
	case ColPrice:
		return tx.Price
	case ColTotalAmount:
		return tx.TotalAmount
	}
	MustMeasure(metric)
	return decimal.Zero
}

func (t *Table) checkDerived(column string) {
	if derivedColumns[column] && !t.Derived() {
		panic(fmt.Sprintf("dataset: column %q read from an underived table", column))
	}
}

// DataFrame converts the table to a gota DataFrame in source column order,
// followed by the derived columns when present. Dates are written day-first
// so the output loads back through Load.
func (t *Table) DataFrame() dataframe.DataFrame {
	n := t.Len()
	invoices := make([]string, n)
	customers := make([]string, n)
	genders := make([]string, n)
	ages := make([]int, n)
	categories := make([]string, n)
	quantities := make([]int, n)
	prices := make([]string, n)
	payments := make([]string, n)
	dates := make([]string, n)
	malls := make([]string, n)

	for i := 0; i < n; i++ {
		tx := t.rows[i]
		invoices[i] = tx.InvoiceNo
		customers[i] = tx.CustomerID
		genders[i] = tx.Gender
		ages[i] = tx.Age
		categories[i] = tx.Category
		quantities[i] = tx.Quantity
		prices[i] = tx.Price.String()
		payments[i] = tx.PaymentMethod
		dates[i] = tx.InvoiceDate.Format("02/01/2006")
		malls[i] = tx.ShoppingMall
	}

	cols := []series.Series{
		series.New(invoices, series.String, ColInvoiceNo),
		series.New(customers, series.String, ColCustomerID),
		series.New(genders, series.String, ColGender),
		series.New(ages, series.Int, ColAge),
		series.New(categories, series.String, ColCategory),
		series.New(quantities, series.Int, ColQuantity),
		series.New(prices, series.String, ColPrice),
		series.New(payments, series.String, ColPaymentMethod),
		series.New(dates, series.String, ColInvoiceDate),
		series.New(malls, series.String, ColShoppingMall),
	}

	if t.Derived() {
		totals := make([]string, n)
		months := make([]string, n)
		years := make([]int, n)
		days := make([]int, n)
		for i := 0; i < n; i++ {
			tx := t.rows[i]
			totals[i] = tx.TotalAmount.String()
			months[i] = tx.Month
			years[i] = tx.Year
			days[i] = tx.Day
		}
		cols = append(cols,
			series.New(totals, series.String, ColTotalAmount),
			series.New(months, series.String, ColMonth),
			series.New(years, series.Int, ColYear),
			series.New(days, series.Int, ColDay),
		)
	}

	return dataframe.New(cols...)
}
