package services

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"sales-dashboard/internal/dataset"
	"sales-dashboard/internal/models"
)

var ErrInvalidSelectors = errors.New("invalid selectors")

// Selectors is the user's current filter configuration.
//
// A nil value set leaves that column unrestricted; a non-nil empty set
// matches nothing. Zero Start or End leaves that side of the date interval
// open. Both bounds are inclusive and compared on the calendar date only.
type Selectors struct {
	Start          time.Time
	End            time.Time
	Genders        []string
	Categories     []string
	Malls          []string
	PaymentMethods []string
}

func (s Selectors) Validate() error {
	if !s.Start.IsZero() && !s.End.IsZero() && dateOnly(s.End).Before(dateOnly(s.Start)) {
		return fmt.Errorf("%w: end date %s is before start date %s",
			ErrInvalidSelectors, s.End.Format(time.DateOnly), s.Start.Format(time.DateOnly))
	}
	return nil
}

// FullDomain selects every value of every domain over the observed range.
func FullDomain(d models.SelectorDomains) Selectors {
	return Selectors{
		Start:          d.MinDate,
		End:            d.MaxDate,
		Genders:        slices.Clone(d.Genders),
		Categories:     slices.Clone(d.Categories),
		Malls:          slices.Clone(d.Malls),
		PaymentMethods: slices.Clone(d.PaymentMethods),
	}
}

type membership struct {
	column  string
	allowed map[string]bool
}

// Filter returns the rows of t matching every selector. t is not modified
// and row order is preserved.
func Filter(t *dataset.Table, sel Selectors) *dataset.Table {
	var sets []membership
	for _, m := range []struct {
		column string
		values []string
	}{
		{dataset.ColGender, sel.Genders},
		{dataset.ColCategory, sel.Categories},
		{dataset.ColShoppingMall, sel.Malls},
		{dataset.ColPaymentMethod, sel.PaymentMethods},
	} {
		if m.values == nil {
			continue
		}
		if len(m.values) == 0 {
			return t.Subset(nil)
		}
		sets = append(sets, membership{column: m.column, allowed: toSet(m.values)})
	}

	bounded := !sel.Start.IsZero() || !sel.End.IsZero()
	if len(sets) == 0 && !bounded {
		return t
	}

	indices := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		if bounded && !withinDays(t.Row(i).InvoiceDate, sel.Start, sel.End) {
			continue
		}
		pass := true
		for _, s := range sets {
			if !s.allowed[t.Dimension(i, s.column)] {
				pass = false
				break
			}
		}
		if pass {
			indices = append(indices, i)
		}
	}

	return t.Subset(indices)
}

// Domains enumerates the selectable values of t, each sorted, and the
// observed invoice date range.
func Domains(t *dataset.Table) models.SelectorDomains {
	d := models.SelectorDomains{
		Genders:        UniqueValues(t, dataset.ColGender),
		Categories:     UniqueValues(t, dataset.ColCategory),
		Malls:          UniqueValues(t, dataset.ColShoppingMall),
		PaymentMethods: UniqueValues(t, dataset.ColPaymentMethod),
	}

	for i := 0; i < t.Len(); i++ {
		date := t.Row(i).InvoiceDate
		if d.MinDate.IsZero() || date.Before(d.MinDate) {
			d.MinDate = date
		}
		if d.MaxDate.IsZero() || date.After(d.MaxDate) {
			d.MaxDate = date
		}
	}
	return d
}

// UniqueValues returns the sorted distinct values of column. A blank cell is
// a value like any other, so the full domain still selects those rows.
func UniqueValues(t *dataset.Table, column string) []string {
	dataset.MustDimension(column)
	seen := make(map[string]bool)
	values := []string{}
	for i := 0; i < t.Len(); i++ {
		v := t.Dimension(i, column)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	slices.SortFunc(values, compareKeys)
	return values
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func withinDays(t, start, end time.Time) bool {
	d := dateOnly(t)
	if !start.IsZero() && d.Before(dateOnly(start)) {
		return false
	}
	if !end.IsZero() && d.After(dateOnly(end)) {
		return false
	}
	return true
}
