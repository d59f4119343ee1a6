package templates

import "time"

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
