package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/placetrack/placetrack/internal/errors"
	"github.com/placetrack/placetrack/internal/query"
)

// maxBodyBytes caps request bodies; record payloads are small.
const maxBodyBytes = 1 << 20

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.NewInvalidInputError("Request body is not valid JSON: " + err.Error())
	}
	return nil
}

// Pagination is the page envelope returned alongside list data. Count is
// the number of records on this page; Total is computed only for the first
// page of a query and omitted on cursor pages.
type Pagination struct {
	Count      int    `json:"count"`
	Total      *int64 `json:"total,omitempty"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// ListResponse is the standard list payload.
type ListResponse[T any] struct {
	Data       []T        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

func listResponse[T any](result *query.PageResult[T]) ListResponse[T] {
	records := result.Records
	if records == nil {
		records = []T{}
	}
	return ListResponse[T]{
		Data: records,
		Pagination: Pagination{
			Count:      len(records),
			Total:      result.Total,
			Page:       result.Page,
			Limit:      result.Limit,
			HasMore:    result.HasMore,
			NextCursor: result.NextCursor,
		},
	}
}

// parsePageParams reads the shared pagination and sort query parameters.
// Filter parameters are endpoint-specific and parsed by each handler.
func parsePageParams(r *http.Request) (query.PageRequest, error) {
	q := r.URL.Query()
	req := query.PageRequest{
		Cursor:    q.Get("cursor"),
		SortField: q.Get("sort"),
		Page:      1,
	}

	switch strings.ToLower(q.Get("order")) {
	case "", "asc":
		req.SortOrder = query.SortAsc
	case "desc":
		req.SortOrder = query.SortDesc
	default:
		return req, apperrors.NewInvalidInputError("order must be asc or desc")
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return req, apperrors.NewInvalidInputError("limit must be a positive integer")
		}
		req.Limit = limit
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return req, apperrors.NewInvalidInputError("page must be a positive integer")
		}
		req.Page = page
	}

	return req, nil
}

func parseFloatParam(raw, name string) (float64, bool, error) {
	if raw == "" {
		return 0, false, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false, apperrors.NewInvalidInputError(name + " must be a number")
	}
	return value, true, nil
}

func splitListParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
