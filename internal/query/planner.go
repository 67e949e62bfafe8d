package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/placetrack/placetrack/internal/cache"
)

// Spec whitelists how one record type may be filtered and sorted. Fields use
// API names; the maps translate them to store columns, so nothing a caller
// supplies reaches the store verbatim.
type Spec[T any] struct {
	// Table names the store table, used in SQL and in count cache keys.
	Table string
	// IDColumn is the unique ascending tie-breaker column.
	IDColumn string
	// TextColumns are the identity columns a text filter searches.
	TextColumns []string
	// EqualsColumns, RangeColumns and SetColumns map filterable API fields
	// to columns. Set columns hold JSON string arrays.
	EqualsColumns map[string]string
	RangeColumns  map[string]string
	SetColumns    map[string]string
	// SortColumns maps sortable API fields to columns.
	SortColumns map[string]string
	// DefaultSort is used when a request names no sort field.
	DefaultSort string
	// ID and SortValue extract cursor components from a record.
	ID        func(T) string
	SortValue func(T, string) any
}

// Plan is a bounded scan the store can execute directly.
type Plan struct {
	// Where is an AND-combined predicate list without the WHERE keyword;
	// empty when unfiltered.
	Where string
	Args  []any
	// OrderBy is the stable sort clause, always ending with the id column
	// ascending.
	OrderBy string
	// Limit includes the one extra row used to disambiguate HasMore.
	Limit int
}

// CountPlan is the predicate subset of a Plan used for totals.
type CountPlan struct {
	Where string
	Args  []any
}

// Store executes plans for one record type.
type Store[T any] interface {
	SelectPage(ctx context.Context, plan Plan) ([]T, error)
	CountRecords(ctx context.Context, plan CountPlan) (int64, error)
}

// Planner converts page requests into store scans, memoizing first-page
// totals in the TTL cache so subsequent pages of the same query never
// recount.
type Planner[T any] struct {
	spec     Spec[T]
	store    Store[T]
	counts   *cache.Cache
	countTTL time.Duration
}

// NewPlanner wires a planner to its store and count cache.
func NewPlanner[T any](spec Spec[T], store Store[T], counts *cache.Cache, countTTL time.Duration) *Planner[T] {
	if countTTL <= 0 {
		countTTL = 2 * time.Minute
	}
	return &Planner[T]{spec: spec, store: store, counts: counts, countTTL: countTTL}
}

// Page executes one page of the request. The scan fetches limit+1 rows so
// HasMore is exact rather than the "full page implies more" heuristic.
func (p *Planner[T]) Page(ctx context.Context, req PageRequest) (*PageResult[T], error) {
	limit := req.ClampedLimit()

	sortField, sortColumn, err := p.resolveSort(req)
	if err != nil {
		return nil, err
	}
	order := req.SortOrder
	if order != SortDesc {
		order = SortAsc
	}

	where, args, err := p.buildWhere(req.Filters)
	if err != nil {
		return nil, err
	}

	if req.Cursor != "" {
		token, err := DecodeCursor(req.Cursor, sortField, order)
		if err != nil {
			return nil, err
		}
		cursorPred, cursorArgs := keysetPredicate(sortColumn, p.spec.IDColumn, order, token)
		where = append(where, cursorPred)
		args = append(args, cursorArgs...)
	}

	direction := "ASC"
	if order == SortDesc {
		direction = "DESC"
	}

	plan := Plan{
		Where:   strings.Join(where, " AND "),
		Args:    args,
		OrderBy: fmt.Sprintf("%s %s, %s ASC", sortColumn, direction, p.spec.IDColumn),
		Limit:   limit + 1,
	}

	records, err := p.store.SelectPage(ctx, plan)
	if err != nil {
		return nil, err
	}

	hasMore := len(records) > limit
	if hasMore {
		records = records[:limit]
	}

	result := &PageResult[T]{
		Records: records,
		HasMore: hasMore,
		Page:    maxInt(req.Page, 1),
		Limit:   limit,
	}

	if hasMore && len(records) > 0 {
		last := records[len(records)-1]
		result.NextCursor = EncodeCursor(sortField, order, p.spec.SortValue(last, sortField), p.spec.ID(last))
	}

	// Totals are expensive over large datasets and only needed on the
	// first page; later pages of the same query reuse the memoized value.
	if req.Cursor == "" {
		total, err := p.total(ctx, req.Filters)
		if err != nil {
			return nil, err
		}
		result.Total = &total
	}

	return result, nil
}

// CountKey is the normalized cache key for a filter set's total.
func (p *Planner[T]) CountKey(filters []Filter) string {
	return fmt.Sprintf("count:%s?%s", p.spec.Table, Normalize(filters))
}

func (p *Planner[T]) total(ctx context.Context, filters []Filter) (int64, error) {
	where, args, err := p.buildWhere(filters)
	if err != nil {
		return 0, err
	}
	countPlan := CountPlan{Where: strings.Join(where, " AND "), Args: args}

	if p.counts == nil {
		return p.store.CountRecords(ctx, countPlan)
	}

	value, _, err := p.counts.GetOrSet(ctx, p.CountKey(filters), p.countTTL, func(ctx context.Context) (any, error) {
		return p.store.CountRecords(ctx, countPlan)
	})
	if err != nil {
		return 0, err
	}
	total, ok := value.(int64)
	if !ok {
		return 0, fmt.Errorf("unexpected cached count type %T", value)
	}
	return total, nil
}

func (p *Planner[T]) resolveSort(req PageRequest) (field, column string, err error) {
	field = req.SortField
	if field == "" {
		field = p.spec.DefaultSort
	}
	column, ok := p.spec.SortColumns[field]
	if !ok {
		return "", "", fmt.Errorf("unsupported sort field %q", req.SortField)
	}
	return field, column, nil
}

func (p *Planner[T]) buildWhere(filters []Filter) ([]string, []any, error) {
	var clauses []string
	var args []any

	for _, f := range filters {
		switch f.Kind {
		case KindText:
			if len(p.spec.TextColumns) == 0 {
				return nil, nil, fmt.Errorf("text search is not supported for %s", p.spec.Table)
			}
			likes := make([]string, len(p.spec.TextColumns))
			pattern := "%" + escapeLike(f.Value) + "%"
			for i, column := range p.spec.TextColumns {
				likes[i] = fmt.Sprintf("%s LIKE ? ESCAPE '\\'", column)
				args = append(args, pattern)
			}
			clauses = append(clauses, "("+strings.Join(likes, " OR ")+")")
		case KindEquals:
			column, ok := p.spec.EqualsColumns[f.Field]
			if !ok {
				return nil, nil, fmt.Errorf("unsupported equality filter field %q", f.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s = ?", column))
			args = append(args, f.Value)
		case KindMin:
			column, ok := p.spec.RangeColumns[f.Field]
			if !ok {
				return nil, nil, fmt.Errorf("unsupported range filter field %q", f.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s >= ?", column))
			args = append(args, f.Number)
		case KindMax:
			column, ok := p.spec.RangeColumns[f.Field]
			if !ok {
				return nil, nil, fmt.Errorf("unsupported range filter field %q", f.Field)
			}
			clauses = append(clauses, fmt.Sprintf("%s <= ?", column))
			args = append(args, f.Number)
		case KindAnyOf:
			column, ok := p.spec.SetColumns[f.Field]
			if !ok {
				return nil, nil, fmt.Errorf("unsupported set filter field %q", f.Field)
			}
			if len(f.Values) == 0 {
				continue
			}
			placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(f.Values)), ", ")
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM json_each(%s) WHERE json_each.value IN (%s))",
				column, placeholders,
			))
			for _, v := range f.Values {
				args = append(args, v)
			}
		default:
			return nil, nil, fmt.Errorf("unsupported filter kind %q", f.Kind)
		}
	}

	return clauses, args, nil
}

// keysetPredicate resumes a scan strictly after the cursor position under
// the stable (sort column, id) order. Forward-only: there is no way to jump
// to an arbitrary offset.
func keysetPredicate(sortColumn, idColumn string, order SortOrder, token cursorToken) (string, []any) {
	comparator := ">"
	if order == SortDesc {
		comparator = "<"
	}
	predicate := fmt.Sprintf("(%s %s ? OR (%s = ? AND %s > ?))",
		sortColumn, comparator, sortColumn, idColumn)
	return predicate, []any{token.SortValue, token.SortValue, token.LastID}
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
