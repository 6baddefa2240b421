package category

import "strings"

// Category is a spending category.
type Category string

const (
	Food          Category = "Food"
	Transport     Category = "Transport"
	Shopping      Category = "Shopping"
	Entertainment Category = "Entertainment"
	Utilities     Category = "Utilities"
	Health        Category = "Health"

	// General is used when a receipt could not be classified.
	General Category = "General"
)

// All lists the categories a classifier may choose from.
var All = []Category{Food, Transport, Shopping, Entertainment, Utilities, Health}

// Parse matches s against All, ignoring case and surrounding whitespace.
// General is not a valid classifier answer and is rejected.
func Parse(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range All {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

// OrGeneral returns the canonical category for s, or General.
func OrGeneral(s string) Category {
	if c, ok := Parse(s); ok {
		return c
	}
	return General
}

// Names returns All as plain strings, e.g. for prompts.
func Names() []string {
	names := make([]string, len(All))
	for i, c := range All {
		names[i] = string(c)
	}
	return names
}
