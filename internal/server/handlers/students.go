package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/placetrack/placetrack/internal/cache"
	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/core/store"
	apperrors "github.com/placetrack/placetrack/internal/errors"
	"github.com/placetrack/placetrack/internal/metrics"
	"github.com/placetrack/placetrack/internal/query"
)

// StudentStore is the slice of the store the student handler needs.
type StudentStore interface {
	CreateStudent(ctx context.Context, student *core.Student) error
	GetStudent(ctx context.Context, id string) (*core.Student, error)
	UpdateStudent(ctx context.Context, student *core.Student) (bool, error)
	DeleteStudent(ctx context.Context, id string) (bool, error)
	DistinctBranches(ctx context.Context) ([]string, error)
}

// StudentHandler serves the /api/students routes.
type StudentHandler struct {
	store   StudentStore
	planner *query.Planner[core.Student]
	cache   *cache.Cache
	ttl     time.Duration
}

// NewStudentHandler wires the student routes to their store and planner.
// The cache serves the distinct-branches lookup with a short TTL.
func NewStudentHandler(s StudentStore, planner *query.Planner[core.Student], c *cache.Cache, ttl time.Duration) *StudentHandler {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &StudentHandler{store: s, planner: planner, cache: c, ttl: ttl}
}

// StudentQuerySpec whitelists the filterable and sortable student fields.
func StudentQuerySpec() query.Spec[core.Student] {
	return query.Spec[core.Student]{
		Table:       "students",
		IDColumn:    "id",
		TextColumns: []string{"name", "roll_number", "email"},
		EqualsColumns: map[string]string{
			"branch": "branch",
			"placed": "placed",
		},
		RangeColumns: map[string]string{
			"cgpa":        "cgpa",
			"backlogs":    "backlogs",
			"passingYear": "passing_year",
		},
		SetColumns: map[string]string{"skills": "skills"},
		SortColumns: map[string]string{
			"name":      "name",
			"cgpa":      "cgpa",
			"createdAt": "created_at",
		},
		DefaultSort: "name",
		ID:          func(s core.Student) string { return s.ID },
		SortValue: func(s core.Student, field string) any {
			switch field {
			case "cgpa":
				return s.CGPA
			case "createdAt":
				return s.CreatedAt.Unix()
			default:
				return s.Name
			}
		},
	}
}

// List serves GET /api/students with filtering, sorting and keyset pagination.
func (h *StudentHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageParams(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	filters, err := parseStudentFilters(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	req.Filters = filters

	result, err := h.planner.Page(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, "Invalid student query"))
		return
	}

	metrics.RecordPageQuery("students", result.Total != nil)
	respondJSON(w, http.StatusOK, listResponse(result))
}

func parseStudentFilters(r *http.Request) ([]query.Filter, error) {
	q := r.URL.Query()
	var filters []query.Filter

	if text := strings.TrimSpace(q.Get("q")); text != "" {
		filters = append(filters, query.Text(text))
	}
	if branch := strings.TrimSpace(q.Get("branch")); branch != "" {
		filters = append(filters, query.Equals("branch", branch))
	}
	switch strings.ToLower(q.Get("placed")) {
	case "":
	case "true":
		filters = append(filters, query.Equals("placed", "1"))
	case "false":
		filters = append(filters, query.Equals("placed", "0"))
	default:
		return nil, apperrors.NewInvalidInputError("placed must be true or false")
	}
	if minCGPA, ok, err := parseFloatParam(q.Get("minCGPA"), "minCGPA"); err != nil {
		return nil, err
	} else if ok {
		filters = append(filters, query.Min("cgpa", minCGPA))
	}
	if maxCGPA, ok, err := parseFloatParam(q.Get("maxCGPA"), "maxCGPA"); err != nil {
		return nil, err
	} else if ok {
		filters = append(filters, query.Max("cgpa", maxCGPA))
	}
	if maxBacklogs, ok, err := parseFloatParam(q.Get("maxBacklogs"), "maxBacklogs"); err != nil {
		return nil, err
	} else if ok {
		filters = append(filters, query.Max("backlogs", maxBacklogs))
	}
	if year, ok, err := parseFloatParam(q.Get("passingYear"), "passingYear"); err != nil {
		return nil, err
	} else if ok {
		// exact-year match expressed as a degenerate range
		filters = append(filters, query.Min("passingYear", year), query.Max("passingYear", year))
	}
	if skills := splitListParam(q.Get("skills")); len(skills) > 0 {
		filters = append(filters, query.AnyOf("skills", skills))
	}

	return filters, nil
}

// Create serves POST /api/students.
func (h *StudentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var student core.Student
	if err := decodeJSON(w, r, &student); err != nil {
		respondWithError(w, r, err)
		return
	}
	student.ID = ""

	if err := validateStudent(&student); err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.store.CreateStudent(r.Context(), &student); err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondWithError(w, r, apperrors.NewConflictError("A student with this email or roll number already exists"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to create student"))
		return
	}

	respondJSON(w, http.StatusCreated, student)
}

// Get serves GET /api/students/{id}.
func (h *StudentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	student, err := h.store.GetStudent(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch student"))
		return
	}
	if student == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Student not found"))
		return
	}

	respondJSON(w, http.StatusOK, student)
}

// Update serves PUT /api/students/{id}.
func (h *StudentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var student core.Student
	if err := decodeJSON(w, r, &student); err != nil {
		respondWithError(w, r, err)
		return
	}
	student.ID = id

	if err := validateStudent(&student); err != nil {
		respondWithError(w, r, err)
		return
	}

	found, err := h.store.UpdateStudent(r.Context(), &student)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			respondWithError(w, r, apperrors.NewConflictError("A student with this email or roll number already exists"))
			return
		}
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to update student"))
		return
	}
	if !found {
		respondWithError(w, r, apperrors.NewNotFoundError("Student not found"))
		return
	}

	respondJSON(w, http.StatusOK, student)
}

// Delete serves DELETE /api/students/{id}.
func (h *StudentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.store.DeleteStudent(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to delete student"))
		return
	}
	if !found {
		respondWithError(w, r, apperrors.NewNotFoundError("Student not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Branches serves GET /api/students/branches.
func (h *StudentHandler) Branches(w http.ResponseWriter, r *http.Request) {
	value, _, err := h.cache.GetOrSet(r.Context(), "students:branches", h.ttl,
		func(ctx context.Context) (any, error) {
			branches, err := h.store.DistinctBranches(ctx)
			if err != nil {
				return nil, err
			}
			if branches == nil {
				branches = []string{}
			}
			return branches, nil
		})
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch branches"))
		return
	}

	branches, ok := value.([]string)
	if !ok {
		respondWithError(w, r, apperrors.NewInternalError("Unexpected branches cache entry"))
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"branches": branches})
}

func validateStudent(student *core.Student) error {
	var problems []string

	if strings.TrimSpace(student.Name) == "" {
		problems = append(problems, "name is required")
	}
	if strings.TrimSpace(student.Email) == "" || !strings.Contains(student.Email, "@") {
		problems = append(problems, "a valid email is required")
	}
	if strings.TrimSpace(student.RollNo) == "" {
		problems = append(problems, "rollNo is required")
	}
	if strings.TrimSpace(student.Branch) == "" {
		problems = append(problems, "branch is required")
	}
	if student.CGPA < 0 || student.CGPA > 10 {
		problems = append(problems, "cgpa must be between 0 and 10")
	}
	if student.Backlogs < 0 {
		problems = append(problems, "backlogs cannot be negative")
	}
	if student.PassingYear < 2000 || student.PassingYear > 2100 {
		problems = append(problems, "passingYear is out of range")
	}
	if student.Placed && strings.TrimSpace(student.PlacedCompany) == "" {
		problems = append(problems, "placedCompany is required for placed students")
	}

	if len(problems) > 0 {
		return apperrors.NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}
