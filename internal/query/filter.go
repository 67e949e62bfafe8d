// Package query turns request filter, sort and cursor parameters into
// bounded, deterministic scans against the record store.
//
// Filters are an explicit tagged set of supported kinds rather than
// arbitrary key/value pairs, closing off query injection through the store's
// query interface: unknown fields and kinds are rejected at plan time.
package query

import (
	"fmt"
	"sort"
	"strings"
)

// FilterKind tags the supported filter shapes.
type FilterKind string

const (
	// KindText is a case-insensitive substring search across the Spec's
	// identity columns.
	KindText FilterKind = "text"
	// KindEquals is categorical equality on a single column.
	KindEquals FilterKind = "eq"
	// KindMin is an inclusive numeric lower bound.
	KindMin FilterKind = "min"
	// KindMax is an inclusive numeric upper bound.
	KindMax FilterKind = "max"
	// KindAnyOf is set-membership on a multi-valued column: at least one
	// of the supplied values must be present.
	KindAnyOf FilterKind = "any"
)

// Filter is one predicate; a request's filters combine with logical AND.
type Filter struct {
	Kind   FilterKind
	Field  string
	Value  string
	Number float64
	Values []string
}

// Text builds a substring-search filter. The field is implicit: the Spec's
// identity columns are searched together.
func Text(value string) Filter {
	return Filter{Kind: KindText, Value: value}
}

// Equals builds a categorical equality filter.
func Equals(field, value string) Filter {
	return Filter{Kind: KindEquals, Field: field, Value: value}
}

// Min builds an inclusive numeric lower-bound filter.
func Min(field string, value float64) Filter {
	return Filter{Kind: KindMin, Field: field, Number: value}
}

// Max builds an inclusive numeric upper-bound filter.
func Max(field string, value float64) Filter {
	return Filter{Kind: KindMax, Field: field, Number: value}
}

// AnyOf builds a set-membership filter on a multi-valued field.
func AnyOf(field string, values []string) Filter {
	return Filter{Kind: KindAnyOf, Field: field, Values: values}
}

// Normalize serializes a filter set into a canonical string usable as a
// cache key: ordering and AnyOf value order do not affect the result, so
// equivalent queries share one memoized count.
func Normalize(filters []Filter) string {
	if len(filters) == 0 {
		return ""
	}

	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		switch f.Kind {
		case KindText:
			parts = append(parts, fmt.Sprintf("text=%s", strings.ToLower(f.Value)))
		case KindEquals:
			parts = append(parts, fmt.Sprintf("%s:eq=%s", f.Field, f.Value))
		case KindMin:
			parts = append(parts, fmt.Sprintf("%s:min=%g", f.Field, f.Number))
		case KindMax:
			parts = append(parts, fmt.Sprintf("%s:max=%g", f.Field, f.Number))
		case KindAnyOf:
			values := append([]string(nil), f.Values...)
			sort.Strings(values)
			parts = append(parts, fmt.Sprintf("%s:any=%s", f.Field, strings.Join(values, ",")))
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, "&")
}
