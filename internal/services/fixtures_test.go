package services

import (
	"time"

	"github.com/shopspring/decimal"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func tx(invoice, customer, gender string, age int, category string, qty int, price string, payment, mall string, date time.Time) models.Transaction {
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

// salesTable mirrors a slice of customer_shopping_data.csv.
func salesTable() *dataset.Table {
	return dataset.Derive(dataset.NewTable([]models.Transaction{
		tx("I138884", "C241288", "Female", 28, "Clothing", 5, "1500.40", "Credit Card", "Kanyon", day(2022, 8, 5)),
		tx("I317333", "C111565", "Male", 21, "Shoes", 3, "1800.51", "Debit Card", "Forum Istanbul", day(2021, 12, 12)),
		tx("I127801", "C266599", "Male", 20, "Clothing", 1, "300.08", "Cash", "Metrocity", day(2021, 11, 9)),
		tx("I173702", "C988172", "Female", 66, "Shoes", 5, "3000.85", "Credit Card", "Metropol AVM", day(2021, 5, 16)),
		tx("I337046", "C189076", "Female", 53, "Books", 4, "60.60", "Cash", "Kanyon", day(2021, 10, 24)),
		tx("I227836", "C657758", "Female", 28, "Clothing", 5, "1500.40", "Credit Card", "Forum Istanbul", day(2022, 5, 24)),
		tx("I121056", "C151197", "Female", 49, "Cosmetics", 1, "40.66", "Cash", "Istinye Park", day(2022, 3, 13)),
		tx("I293112", "C176086", "Female", 32, "Clothing", 2, "600.16", "Credit Card", "Mall of Istanbul", day(2021, 1, 13)),
		tx("I293455", "C159642", "Male", 69, "Clothing", 3, "900.24", "Credit Card", "Metrocity", day(2021, 11, 4)),
		tx("I326945", "C283361", "Female", 60, "Clothing", 2, "600.16", "Credit Card", "Kanyon", day(2021, 8, 22)),
	}))
}

// threeRowTable is the (A,2,10) (A,1,5) (B,3,1) scenario.
func threeRowTable() *dataset.Table {
	d := day(2022, 1, 1)
	return dataset.Derive(dataset.NewTable([]models.Transaction{
		tx("I1", "C1", "Female", 30, "A", 2, "10", "Cash", "M1", d),
		tx("I2", "C2", "Male", 40, "A", 1, "5", "Cash", "M1", d),
		tx("I3", "C3", "Female", 50, "B", 3, "1", "Cash", "M2", d),
	}))
}
