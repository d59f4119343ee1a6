package dataset

import (
	"github.com/shopspring/decimal"

	"sales-dashboard/internal/models"
)

// Derive returns a copy of t with line total, month bucket, year and day
// computed for every row. Deriving an already derived table recomputes the
// same values.
func Derive(t *Table) *Table {
	rows := make([]models.Transaction, t.Len())
	for i := range rows {
		rows[i] = deriveRow(t.rows[i])
	}
	return &Table{rows: rows, derived: true, report: t.Report()}
}

func deriveRow(tx models.Transaction) models.Transaction {
	tx.TotalAmount = tx.Price.Mul(decimal.NewFromInt(int64(tx.Quantity)))
	tx.Month = tx.InvoiceDate.Format(monthLayout)
	tx.Year = tx.InvoiceDate.Year()
	tx.Day = tx.InvoiceDate.Day()
	return tx
}
