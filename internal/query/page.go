package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

const (
	// DefaultLimit applies when a request omits the page size.
	DefaultLimit = 50
	// MaxLimit is the hard cap on page size.
	MaxLimit = 100
)

// SortOrder is the direction of the primary sort key.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// PageRequest describes one page of a filtered, sorted scan.
type PageRequest struct {
	// Cursor resumes a scan strictly after the position it encodes.
	// Empty for the first page.
	Cursor string
	// Page is the advisory page number echoed back to the caller; keyset
	// pagination does not use it to position the scan.
	Page int
	// Limit is clamped to [1, MaxLimit]; zero means DefaultLimit.
	Limit     int
	SortField string
	SortOrder SortOrder
	Filters   []Filter
}

// ClampedLimit resolves the effective page size.
func (r PageRequest) ClampedLimit() int {
	switch {
	case r.Limit <= 0:
		return DefaultLimit
	case r.Limit > MaxLimit:
		return MaxLimit
	default:
		return r.Limit
	}
}

// PageResult is one page of records in stable sort order.
type PageResult[T any] struct {
	Records []T
	// Total is computed only for the first page of a query; nil otherwise.
	Total *int64
	// NextCursor resumes the scan after the last returned record; empty
	// when the page was not full.
	NextCursor string
	// HasMore is exact: the scan fetched one row beyond the page to
	// disambiguate a dataset that ends exactly on a page boundary.
	HasMore bool
	Page    int
	Limit   int
}

// cursorToken pins a scan position: the sort key value and record id of the
// last row returned, plus the sort parameters it is only valid for.
type cursorToken struct {
	SortField string    `json:"f"`
	SortOrder SortOrder `json:"o"`
	SortValue any       `json:"v"`
	LastID    string    `json:"id"`
}

// EncodeCursor builds an opaque resume token from the last row of a page.
func EncodeCursor(sortField string, order SortOrder, sortValue any, lastID string) string {
	raw, err := json.Marshal(cursorToken{
		SortField: sortField,
		SortOrder: order,
		SortValue: sortValue,
		LastID:    lastID,
	})
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeCursor parses a resume token and verifies it belongs to the same
// sort the request asks for; a cursor from a differently sorted query would
// otherwise skip or duplicate records.
func DecodeCursor(cursor, sortField string, order SortOrder) (cursorToken, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return cursorToken{}, fmt.Errorf("malformed cursor: %w", err)
	}

	var token cursorToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return cursorToken{}, fmt.Errorf("malformed cursor: %w", err)
	}

	if token.SortField != sortField || token.SortOrder != order {
		return cursorToken{}, fmt.Errorf("cursor does not match the requested sort")
	}
	if token.LastID == "" {
		return cursorToken{}, fmt.Errorf("cursor is missing a record position")
	}
	return token, nil
}
