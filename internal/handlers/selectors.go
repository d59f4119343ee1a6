package handlers

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"sales-dashboard/internal/services"
)

const dateLayout = time.DateOnly

// Query parameter names for the selectors.
const (
	paramStart    = "start"
	paramEnd      = "end"
	paramGender   = "gender"
	paramCategory = "category"
	paramMall     = "mall"
	paramPayment  = "payment"
)

// filterSignals is the Datastar signal shape of the filter form. Missing or
// null lists leave a column unrestricted; empty lists select nothing.
type filterSignals struct {
	Start    string   `json:"start"`
	End      string   `json:"end"`
	Gender   []string `json:"gender"`
	Category []string `json:"category"`
	Mall     []string `json:"mall"`
	Payment  []string `json:"payment"`
}

func (f filterSignals) selectors() (services.Selectors, error) {
	start, err := parseDate(paramStart, f.Start)
	if err != nil {
		return services.Selectors{}, err
	}
	end, err := parseDate(paramEnd, f.End)
	if err != nil {
		return services.Selectors{}, err
	}

	sel := services.Selectors{
		Start:          start,
		End:            end,
		Genders:        f.Gender,
		Categories:     f.Category,
		Malls:          f.Mall,
		PaymentMethods: f.Payment,
	}
	return sel, sel.Validate()
}

func signalsFromSelectors(sel services.Selectors) filterSignals {
	f := filterSignals{
		Gender:   sel.Genders,
		Category: sel.Categories,
		Mall:     sel.Malls,
		Payment:  sel.PaymentMethods,
	}
	if !sel.Start.IsZero() {
		f.Start = sel.Start.Format(dateLayout)
	}
	if !sel.End.IsZero() {
		f.End = sel.End.Format(dateLayout)
	}
	return f
}

// selectorsFromQuery reads selectors from URL parameters. An absent list
// parameter leaves the column unrestricted; a present but blank one
// (e.g. "category=") selects nothing.
func selectorsFromQuery(q url.Values) (services.Selectors, error) {
	return filterSignals{
		Start:    q.Get(paramStart),
		End:      q.Get(paramEnd),
		Gender:   listParam(q, paramGender),
		Category: listParam(q, paramCategory),
		Mall:     listParam(q, paramMall),
		Payment:  listParam(q, paramPayment),
	}.selectors()
}

func listParam(q url.Values, key string) []string {
	raw, ok := q[key]
	if !ok {
		return nil
	}
	values := []string{}
	for _, v := range raw {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func parseDate(name, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s date %q must be YYYY-MM-DD", services.ErrInvalidSelectors, name, value)
	}
	return t, nil
}
