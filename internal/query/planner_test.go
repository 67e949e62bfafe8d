package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/placetrack/internal/cache"
)

type planRecord struct {
	ID     string
	Name   string
	Branch string
	CGPA   float64
}

// planStore serves pre-sorted records (name ascending, id ascending) and
// applies the keyset predicate so cursor chains behave like the real store.
type planStore struct {
	records []planRecord
	selects []Plan
	counts  int
}

func (s *planStore) SelectPage(_ context.Context, plan Plan) ([]planRecord, error) {
	s.selects = append(s.selects, plan)

	rows := s.records
	if strings.Contains(plan.Where, "(name > ? OR (name = ? AND id > ?))") {
		n := len(plan.Args)
		sortValue := plan.Args[n-3].(string)
		lastID := plan.Args[n-1].(string)
		var filtered []planRecord
		for _, r := range rows {
			if r.Name > sortValue || (r.Name == sortValue && r.ID > lastID) {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}
	if plan.Limit < len(rows) {
		rows = rows[:plan.Limit]
	}
	return rows, nil
}

func (s *planStore) CountRecords(_ context.Context, _ CountPlan) (int64, error) {
	s.counts++
	return int64(len(s.records)), nil
}

func recordSpec() Spec[planRecord] {
	return Spec[planRecord]{
		Table:         "students",
		IDColumn:      "id",
		TextColumns:   []string{"name", "roll_number"},
		EqualsColumns: map[string]string{"branch": "branch"},
		RangeColumns:  map[string]string{"cgpa": "cgpa"},
		SetColumns:    map[string]string{"skills": "skills"},
		SortColumns:   map[string]string{"name": "name", "cgpa": "cgpa"},
		DefaultSort:   "name",
		ID:            func(r planRecord) string { return r.ID },
		SortValue: func(r planRecord, field string) any {
			if field == "cgpa" {
				return r.CGPA
			}
			return r.Name
		},
	}
}

func newTestPlanner(records []planRecord) (*Planner[planRecord], *planStore) {
	store := &planStore{records: records}
	counts := cache.New(4)
	return NewPlanner(recordSpec(), store, counts, time.Minute), store
}

func TestPageBoundaryDatasetChain(t *testing.T) {
	// Four identically structured records with the page size at three:
	// the first page must report more data exactly, and the cursor must
	// surface the remaining record once.
	records := []planRecord{
		{ID: "s1", Name: "Asha"},
		{ID: "s2", Name: "Bilal"},
		{ID: "s3", Name: "Chitra"},
		{ID: "s4", Name: "Dev"},
	}
	planner, store := newTestPlanner(records)

	first, err := planner.Page(context.Background(), PageRequest{Limit: 3})
	require.NoError(t, err)
	require.Len(t, first.Records, 3)
	assert.True(t, first.HasMore)
	assert.NotEmpty(t, first.NextCursor)
	require.NotNil(t, first.Total)
	assert.Equal(t, int64(4), *first.Total)
	assert.Equal(t, 4, store.selects[0].Limit)

	second, err := planner.Page(context.Background(), PageRequest{Limit: 3, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	assert.Equal(t, "s4", second.Records[0].ID)
	assert.False(t, second.HasMore)
	assert.Empty(t, second.NextCursor)
	assert.Nil(t, second.Total, "totals are only computed for first pages")
	assert.Equal(t, 1, store.counts)
}

func TestPageExactlyFullFinalPage(t *testing.T) {
	records := []planRecord{
		{ID: "s1", Name: "Asha"},
		{ID: "s2", Name: "Bilal"},
		{ID: "s3", Name: "Chitra"},
	}
	planner, _ := newTestPlanner(records)

	page, err := planner.Page(context.Background(), PageRequest{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, page.Records, 3)
	assert.False(t, page.HasMore, "a dataset ending on the page boundary is not more data")
	assert.Empty(t, page.NextCursor)
}

func TestPageDuplicateSortKeysDoNotSkip(t *testing.T) {
	records := []planRecord{
		{ID: "s1", Name: "Asha"},
		{ID: "s2", Name: "Asha"},
		{ID: "s3", Name: "Asha"},
	}
	planner, _ := newTestPlanner(records)

	first, err := planner.Page(context.Background(), PageRequest{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Records, 2)
	require.True(t, first.HasMore)

	second, err := planner.Page(context.Background(), PageRequest{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Records, 1)
	assert.Equal(t, "s3", second.Records[0].ID)
}

func TestPageMemoizesCountsAcrossEquivalentQueries(t *testing.T) {
	planner, store := newTestPlanner([]planRecord{{ID: "s1", Name: "Asha", Branch: "CS"}})

	filtersA := []Filter{Equals("branch", "CS"), Min("cgpa", 7)}
	filtersB := []Filter{Min("cgpa", 7), Equals("branch", "CS")}

	_, err := planner.Page(context.Background(), PageRequest{Filters: filtersA})
	require.NoError(t, err)
	_, err = planner.Page(context.Background(), PageRequest{Filters: filtersB})
	require.NoError(t, err)

	assert.Equal(t, 1, store.counts, "reordered but equivalent filters share one count")
}

func TestPageDistinctFiltersCountSeparately(t *testing.T) {
	planner, store := newTestPlanner([]planRecord{{ID: "s1", Name: "Asha"}})

	_, err := planner.Page(context.Background(), PageRequest{Filters: []Filter{Min("cgpa", 7)}})
	require.NoError(t, err)
	_, err = planner.Page(context.Background(), PageRequest{Filters: []Filter{Min("cgpa", 8)}})
	require.NoError(t, err)

	assert.Equal(t, 2, store.counts)
}

func TestPageClampsLimit(t *testing.T) {
	planner, store := newTestPlanner(nil)

	page, err := planner.Page(context.Background(), PageRequest{Limit: 5000})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, page.Limit)
	assert.Equal(t, MaxLimit+1, store.selects[0].Limit)

	page, err = planner.Page(context.Background(), PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, page.Limit)
}

func TestPageRejectsUnknownFields(t *testing.T) {
	planner, _ := newTestPlanner(nil)

	_, err := planner.Page(context.Background(), PageRequest{SortField: "salary"})
	assert.Error(t, err)

	_, err = planner.Page(context.Background(), PageRequest{Filters: []Filter{Equals("password", "x")}})
	assert.Error(t, err)

	_, err = planner.Page(context.Background(), PageRequest{Filters: []Filter{Min("age", 18)}})
	assert.Error(t, err)
}

func TestPageRejectsCursorFromDifferentSort(t *testing.T) {
	planner, _ := newTestPlanner(nil)

	cursor := EncodeCursor("cgpa", SortAsc, 8.5, "s1")
	_, err := planner.Page(context.Background(), PageRequest{Cursor: cursor, SortField: "name"})
	assert.ErrorContains(t, err, "sort")
}

func TestBuildWhereClauses(t *testing.T) {
	planner, store := newTestPlanner(nil)

	_, err := planner.Page(context.Background(), PageRequest{Filters: []Filter{
		Text("50%"),
		Equals("branch", "CS"),
		Min("cgpa", 7.5),
		AnyOf("skills", []string{"go", "sql"}),
	}})
	require.NoError(t, err)

	plan := store.selects[0]
	assert.Contains(t, plan.Where, `name LIKE ? ESCAPE '\'`)
	assert.Contains(t, plan.Where, `roll_number LIKE ? ESCAPE '\'`)
	assert.Contains(t, plan.Where, "branch = ?")
	assert.Contains(t, plan.Where, "cgpa >= ?")
	assert.Contains(t, plan.Where, "EXISTS (SELECT 1 FROM json_each(skills) WHERE json_each.value IN (?, ?))")
	assert.Equal(t, `%50\%%`, plan.Args[0], "LIKE wildcards in user input are escaped")
	assert.Equal(t, "name ASC, id ASC", plan.OrderBy)
}
