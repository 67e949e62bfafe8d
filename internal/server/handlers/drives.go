package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/placetrack/placetrack/internal/core"
	apperrors "github.com/placetrack/placetrack/internal/errors"
	"github.com/placetrack/placetrack/internal/match"
	"github.com/placetrack/placetrack/internal/metrics"
	"github.com/placetrack/placetrack/internal/query"
)

// DriveStore is the slice of the store the drive handler needs.
type DriveStore interface {
	CreateDrive(ctx context.Context, drive *core.Drive) error
	GetDrive(ctx context.Context, id string) (*core.Drive, error)
	UpdateDrive(ctx context.Context, drive *core.Drive) (bool, error)
	DeleteDrive(ctx context.Context, id string) (bool, error)
	GetStudent(ctx context.Context, id string) (*core.Student, error)
}

// DriveHandler serves the /api/drives routes, including both eligibility
// directions: students for a drive and drives for a student.
type DriveHandler struct {
	store   DriveStore
	planner *query.Planner[core.Drive]
	matcher *match.Service
}

// NewDriveHandler wires the drive routes to their store, planner and matcher.
func NewDriveHandler(s DriveStore, planner *query.Planner[core.Drive], matcher *match.Service) *DriveHandler {
	return &DriveHandler{store: s, planner: planner, matcher: matcher}
}

// DriveQuerySpec whitelists the filterable and sortable drive fields.
func DriveQuerySpec() query.Spec[core.Drive] {
	return query.Spec[core.Drive]{
		Table:       "drives",
		IDColumn:    "id",
		TextColumns: []string{"company_name", "role"},
		EqualsColumns: map[string]string{
			"status": "status",
		},
		RangeColumns: map[string]string{
			"package": "package",
			"minCGPA": "min_cgpa",
		},
		SetColumns: map[string]string{"branches": "branches_allowed"},
		SortColumns: map[string]string{
			"recruitmentDate": "recruitment_date",
			"package":         "package",
			"companyName":     "company_name",
		},
		DefaultSort: "recruitmentDate",
		ID:          func(d core.Drive) string { return d.ID },
		SortValue: func(d core.Drive, field string) any {
			switch field {
			case "package":
				return d.Package
			case "companyName":
				return d.CompanyName
			default:
				return d.RecruitmentDate.Unix()
			}
		},
	}
}

// List serves GET /api/drives.
func (h *DriveHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := parsePageParams(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	filters, err := parseDriveFilters(r)
	if err != nil {
		respondWithError(w, r, err)
		return
	}
	req.Filters = filters

	result, err := h.planner.Page(r.Context(), req)
	if err != nil {
		respondWithError(w, r, apperrors.WrapValidationError(r.Context(), err, "Invalid drive query"))
		return
	}

	metrics.RecordPageQuery("drives", result.Total != nil)
	respondJSON(w, http.StatusOK, listResponse(result))
}

func parseDriveFilters(r *http.Request) ([]query.Filter, error) {
	q := r.URL.Query()
	var filters []query.Filter

	if text := strings.TrimSpace(q.Get("q")); text != "" {
		filters = append(filters, query.Text(text))
	}
	if status := strings.TrimSpace(q.Get("status")); status != "" {
		switch core.DriveStatus(status) {
		case core.DriveStatusUpcoming, core.DriveStatusOngoing, core.DriveStatusCompleted:
			filters = append(filters, query.Equals("status", status))
		default:
			return nil, apperrors.NewInvalidInputError("status must be upcoming, ongoing or completed")
		}
	}
	if minPackage, ok, err := parseFloatParam(q.Get("minPackage"), "minPackage"); err != nil {
		return nil, err
	} else if ok {
		filters = append(filters, query.Min("package", minPackage))
	}
	if branches := splitListParam(q.Get("branches")); len(branches) > 0 {
		filters = append(filters, query.AnyOf("branches", branches))
	}

	return filters, nil
}

// Create serves POST /api/drives.
func (h *DriveHandler) Create(w http.ResponseWriter, r *http.Request) {
	var drive core.Drive
	if err := decodeJSON(w, r, &drive); err != nil {
		respondWithError(w, r, err)
		return
	}
	drive.ID = ""
	drive.EligibleCount = 0
	drive.AppliedCount = 0

	if err := validateDrive(&drive); err != nil {
		respondWithError(w, r, err)
		return
	}

	if err := h.store.CreateDrive(r.Context(), &drive); err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to create drive"))
		return
	}

	respondJSON(w, http.StatusCreated, drive)
}

// Get serves GET /api/drives/{id}.
func (h *DriveHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	drive, err := h.store.GetDrive(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch drive"))
		return
	}
	if drive == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Drive not found"))
		return
	}

	respondJSON(w, http.StatusOK, drive)
}

// Update serves PUT /api/drives/{id}.
func (h *DriveHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var drive core.Drive
	if err := decodeJSON(w, r, &drive); err != nil {
		respondWithError(w, r, err)
		return
	}
	drive.ID = id

	if err := validateDrive(&drive); err != nil {
		respondWithError(w, r, err)
		return
	}

	found, err := h.store.UpdateDrive(r.Context(), &drive)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to update drive"))
		return
	}
	if !found {
		respondWithError(w, r, apperrors.NewNotFoundError("Drive not found"))
		return
	}

	respondJSON(w, http.StatusOK, drive)
}

// Delete serves DELETE /api/drives/{id}.
func (h *DriveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	found, err := h.store.DeleteDrive(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to delete drive"))
		return
	}
	if !found {
		respondWithError(w, r, apperrors.NewNotFoundError("Drive not found"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// EligibleStudents serves POST /api/drives/{id}/eligible: the unplaced
// students matching the drive's criteria, best CGPA first.
func (h *DriveHandler) EligibleStudents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	drive, err := h.store.GetDrive(r.Context(), id)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch drive"))
		return
	}
	if drive == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Drive not found"))
		return
	}

	students, err := h.matcher.EligibleStudents(r.Context(), *drive)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to evaluate eligibility"))
		return
	}

	metrics.RecordEligibilityCheck("students_for_drive")
	respondJSON(w, http.StatusOK, map[string]any{
		"driveId":  drive.ID,
		"criteria": drive.Criteria,
		"count":    len(students),
		"data":     students,
	})
}

// EligibleDrives serves GET /api/drives/eligible?student=<id>: the open
// drives whose criteria the student satisfies, soonest first.
func (h *DriveHandler) EligibleDrives(w http.ResponseWriter, r *http.Request) {
	studentID := strings.TrimSpace(r.URL.Query().Get("student"))
	if studentID == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("student query parameter is required"))
		return
	}

	student, err := h.store.GetStudent(r.Context(), studentID)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to fetch student"))
		return
	}
	if student == nil {
		respondWithError(w, r, apperrors.NewNotFoundError("Student not found"))
		return
	}

	drives, err := h.matcher.EligibleDrives(r.Context(), *student)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "Failed to evaluate eligibility"))
		return
	}

	metrics.RecordEligibilityCheck("drives_for_student")
	response := map[string]any{
		"studentId": student.ID,
		"count":     len(drives),
		"data":      drives,
	}
	if student.Placed {
		response["alreadyPlaced"] = true
	}
	respondJSON(w, http.StatusOK, response)
}

func validateDrive(drive *core.Drive) error {
	var problems []string

	if strings.TrimSpace(drive.CompanyName) == "" {
		problems = append(problems, "companyName is required")
	}
	if strings.TrimSpace(drive.Role) == "" {
		problems = append(problems, "role is required")
	}
	if drive.Package < 0 {
		problems = append(problems, "package cannot be negative")
	}
	if drive.Criteria.MinCGPA < 0 || drive.Criteria.MinCGPA > 10 {
		problems = append(problems, "criteria.minCGPA must be between 0 and 10")
	}
	if drive.Criteria.MaxBacklogs < 0 {
		problems = append(problems, "criteria.maxBacklogs cannot be negative")
	}
	if len(drive.Criteria.BranchesAllowed) == 0 {
		problems = append(problems, "criteria.branchesAllowed cannot be empty")
	}
	if drive.RecruitmentDate.IsZero() {
		problems = append(problems, "recruitmentDate is required")
	}
	switch drive.Status {
	case "", core.DriveStatusUpcoming, core.DriveStatusOngoing, core.DriveStatusCompleted:
	default:
		problems = append(problems, "status must be upcoming, ongoing or completed")
	}

	if len(problems) > 0 {
		return apperrors.NewValidationError(strings.Join(problems, "; "))
	}
	return nil
}
