package models

import (
	"sort"
	"strings"
)

// Defaults applied to new records when the caller leaves a field blank.
const (
	DefaultCategory  = "Clothing"
	DefaultCondition = "Good"
	DefaultLocation  = "Spare Room"
	DefaultStatus    = "Draft"
)

// Well-known statuses referenced by reports and exports.
const (
	StatusSold   = "Sold"
	StatusListed = "Listed"
	StatusToList = "To List"
)

// Categories are the built-in category suggestions. Products may use any string.
var Categories = []string{
	"Clothing", "Shoes", "Accessories", "Bags", "Jewelry", "Beauty", "Kids", "Home", "Electronics", "Other",
}

// Conditions are the suggested variant conditions.
var Conditions = []string{
	"New with tags", "New without tags", "Like new", "Good", "Fair", "Poor", "Vintage", "Defective",
}

// Statuses are the suggested variant statuses. The data layer does not restrict
// status to this list, but bulk updates and dashboard filters only accept these.
var Statuses = []string{
	"Draft", "To Photograph", "To List", "Listed", "Reserved", "Sold", "Returned", "Donated",
}

// IsKnownStatus reports whether s is one of Statuses.
func IsKnownStatus(s string) bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// MergeCategories returns the built-in categories plus the non-empty stored ones,
// de-duplicated and sorted.
func MergeCategories(stored []string) []string {
	seen := make(map[string]struct{}, len(Categories)+len(stored))
	for _, c := range Categories {
		seen[c] = struct{}{}
	}
	for _, c := range stored {
		c = strings.TrimSpace(c)
		if c != "" {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
