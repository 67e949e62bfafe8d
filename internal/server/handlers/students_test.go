package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/core/store"
	"github.com/placetrack/placetrack/internal/query"
)

type fakeStudentStore struct {
	students map[string]*core.Student
	nextID   int
	conflict bool
	branches []string
}

func newFakeStudentStore() *fakeStudentStore {
	return &fakeStudentStore{students: map[string]*core.Student{}}
}

func (f *fakeStudentStore) CreateStudent(_ context.Context, student *core.Student) error {
	if f.conflict {
		return fmt.Errorf("%w: student with this email or roll number", store.ErrConflict)
	}
	f.nextID++
	student.ID = fmt.Sprintf("s%d", f.nextID)
	f.students[student.ID] = student
	return nil
}

func (f *fakeStudentStore) GetStudent(_ context.Context, id string) (*core.Student, error) {
	return f.students[id], nil
}

func (f *fakeStudentStore) UpdateStudent(_ context.Context, student *core.Student) (bool, error) {
	if _, ok := f.students[student.ID]; !ok {
		return false, nil
	}
	f.students[student.ID] = student
	return true, nil
}

func (f *fakeStudentStore) DeleteStudent(_ context.Context, id string) (bool, error) {
	if _, ok := f.students[id]; !ok {
		return false, nil
	}
	delete(f.students, id)
	return true, nil
}

func (f *fakeStudentStore) DistinctBranches(_ context.Context) ([]string, error) {
	return f.branches, nil
}

type fakeStudentPager struct {
	records []core.Student
}

func (f fakeStudentPager) SelectPage(_ context.Context, plan query.Plan) ([]core.Student, error) {
	rows := f.records
	if plan.Limit < len(rows) {
		rows = rows[:plan.Limit]
	}
	return rows, nil
}

func (f fakeStudentPager) CountRecords(_ context.Context, _ query.CountPlan) (int64, error) {
	return int64(len(f.records)), nil
}

func studentRouter(h *StudentHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/students", h.List)
	r.Get("/api/students/branches", h.Branches)
	r.Get("/api/students/{id}", h.Get)
	r.Post("/api/students", h.Create)
	r.Put("/api/students/{id}", h.Update)
	r.Delete("/api/students/{id}", h.Delete)
	return r
}

func validStudentBody() string {
	return `{
		"name": "Asha",
		"email": "asha@example.edu",
		"rollNo": "CS-001",
		"branch": "CS",
		"cgpa": 8.4,
		"backlogs": 0,
		"passingYear": 2026,
		"skills": ["go"]
	}`
}

func TestCreateStudent(t *testing.T) {
	fake := newFakeStudentStore()
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(validStudentBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created core.Student
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Asha", created.Name)
}

func TestCreateStudentValidation(t *testing.T) {
	fake := newFakeStudentStore()
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	body := `{"name": "", "email": "not-an-email", "rollNo": "", "branch": "CS", "cgpa": 11, "passingYear": 2026}`
	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "VALIDATION_FAILED")
	assert.Contains(t, rec.Body.String(), "cgpa")
	assert.Empty(t, fake.students)
}

func TestCreateStudentMalformedJSON(t *testing.T) {
	router := studentRouter(NewStudentHandler(newFakeStudentStore(), nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
}

func TestCreateStudentConflict(t *testing.T) {
	fake := newFakeStudentStore()
	fake.conflict = true
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodPost, "/api/students", strings.NewReader(validStudentBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFLICT")
}

func TestGetStudentNotFound(t *testing.T) {
	router := studentRouter(NewStudentHandler(newFakeStudentStore(), nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/students/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}

func TestUpdateStudentRoundTrip(t *testing.T) {
	fake := newFakeStudentStore()
	fake.students["s1"] = &core.Student{ID: "s1", Name: "Asha"}
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodPut, "/api/students/s1", strings.NewReader(validStudentBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Asha", fake.students["s1"].Name)
	assert.InDelta(t, 8.4, fake.students["s1"].CGPA, 0.001)
}

func TestDeleteStudent(t *testing.T) {
	fake := newFakeStudentStore()
	fake.students["s1"] = &core.Student{ID: "s1", Name: "Asha"}
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodDelete, "/api/students/s1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/students/s1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListStudents(t *testing.T) {
	pager := fakeStudentPager{records: []core.Student{
		{ID: "s1", Name: "Asha"},
		{ID: "s2", Name: "Bilal"},
	}}
	planner := query.NewPlanner(StudentQuerySpec(), pager, nil, 0)
	router := studentRouter(NewStudentHandler(newFakeStudentStore(), planner, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/students?limit=10", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data       []core.Student `json:"data"`
		Pagination Pagination     `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Data, 2)
	require.NotNil(t, body.Pagination.Total)
	assert.EqualValues(t, 2, *body.Pagination.Total)
	assert.False(t, body.Pagination.HasMore)
}

func TestListStudentsRejectsBadParams(t *testing.T) {
	planner := query.NewPlanner(StudentQuerySpec(), fakeStudentPager{}, nil, 0)
	router := studentRouter(NewStudentHandler(newFakeStudentStore(), planner, cache.New(4), time.Minute))

	for _, target := range []string{
		"/api/students?limit=zero",
		"/api/students?order=sideways",
		"/api/students?placed=maybe",
		"/api/students?minCGPA=high",
		"/api/students?sort=salary",
	} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestBranches(t *testing.T) {
	fake := newFakeStudentStore()
	fake.branches = []string{"CS", "EC"}
	router := studentRouter(NewStudentHandler(fake, nil, cache.New(4), time.Minute))

	req := httptest.NewRequest(http.MethodGet, "/api/students/branches", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"branches":["CS","EC"]}`, rec.Body.String())
}
