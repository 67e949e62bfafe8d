package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/query"
)

// ErrConflict reports a write that collides with an existing record's unique
// field (email or roll number for students).
var ErrConflict = errors.New("record already exists")

const studentColumns = `id, name, email, phone, roll_number, branch, cgpa, backlogs,
	passing_year, skills, resume_link, placed, placed_company, package, created_at, updated_at`

// CreateStudent inserts a student record, assigning an id when the caller
// did not supply one.
func (s *Store) CreateStudent(ctx context.Context, student *core.Student) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if strings.TrimSpace(student.ID) == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	student.CreatedAt = now
	student.UpdatedAt = now

	skills, err := encodeStrings(student.Skills)
	if err != nil {
		return fmt.Errorf("encode student skills: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO students (`+studentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		student.ID, student.Name, student.Email, student.Phone, student.RollNo,
		student.Branch, student.CGPA, student.Backlogs, student.PassingYear,
		skills, student.ResumeLink, boolToInt(student.Placed),
		nullString(student.PlacedCompany), nullFloat(student.Package),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: student with this email or roll number", ErrConflict)
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetStudent returns a student by id, or nil when no record exists.
func (s *Store) GetStudent(ctx context.Context, id string) (*core.Student, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE id = ?
	`, id)

	student, err := scanStudent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch student: %w", err)
	}
	return student, nil
}

// UpdateStudent replaces a student record. The second return reports whether
// the record existed.
func (s *Store) UpdateStudent(ctx context.Context, student *core.Student) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	student.UpdatedAt = now

	skills, err := encodeStrings(student.Skills)
	if err != nil {
		return false, fmt.Errorf("encode student skills: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE students SET
			name = ?, email = ?, phone = ?, roll_number = ?, branch = ?,
			cgpa = ?, backlogs = ?, passing_year = ?, skills = ?,
			resume_link = ?, placed = ?, placed_company = ?, package = ?,
			updated_at = ?
		WHERE id = ?
	`,
		student.Name, student.Email, student.Phone, student.RollNo, student.Branch,
		student.CGPA, student.Backlogs, student.PassingYear, skills,
		student.ResumeLink, boolToInt(student.Placed),
		nullString(student.PlacedCompany), nullFloat(student.Package),
		now.Unix(), student.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, fmt.Errorf("%w: student with this email or roll number", ErrConflict)
		}
		return false, fmt.Errorf("update student: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update student: %w", err)
	}
	return affected > 0, nil
}

// DeleteStudent removes a student record. The first return reports whether
// the record existed.
func (s *Store) DeleteStudent(ctx context.Context, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete student: %w", err)
	}
	return affected > 0, nil
}

// SelectStudentPage executes one planner scan over the students table.
func (s *Store) SelectStudentPage(ctx context.Context, plan query.Plan) ([]core.Student, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stmt := `SELECT ` + studentColumns + ` FROM students`
	if plan.Where != "" {
		stmt += " WHERE " + plan.Where
	}
	stmt += fmt.Sprintf(" ORDER BY %s LIMIT %d", plan.OrderBy, plan.Limit)

	rows, err := s.DB.QueryContext(ctx, stmt, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var students []core.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan students: %w", err)
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	return students, nil
}

// CountStudents returns the number of students matching a planner predicate.
func (s *Store) CountStudents(ctx context.Context, plan query.CountPlan) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stmt := `SELECT COUNT(*) FROM students`
	if plan.Where != "" {
		stmt += " WHERE " + plan.Where
	}

	var total int64
	if err := s.DB.QueryRowContext(ctx, stmt, plan.Args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count students: %w", err)
	}
	return total, nil
}

// UnplacedStudents returns every student still seeking placement, the
// candidate pool for drive eligibility.
func (s *Store) UnplacedStudents(ctx context.Context) ([]core.Student, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE placed = 0
	`)
	if err != nil {
		return nil, fmt.Errorf("fetch unplaced students: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var students []core.Student
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch unplaced students: %w", err)
		}
		students = append(students, *student)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch unplaced students: %w", err)
	}
	return students, nil
}

// DistinctBranches lists every branch present in the student table.
func (s *Store) DistinctBranches(ctx context.Context) ([]string, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT DISTINCT branch FROM students ORDER BY branch`)
	if err != nil {
		return nil, fmt.Errorf("fetch branches: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var branches []string
	for rows.Next() {
		var branch string
		if err := rows.Scan(&branch); err != nil {
			return nil, fmt.Errorf("fetch branches: %w", err)
		}
		branches = append(branches, branch)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch branches: %w", err)
	}
	return branches, nil
}

// StudentPager adapts the store to the planner's page interface.
func (s *Store) StudentPager() query.Store[core.Student] {
	return studentPager{s: s}
}

type studentPager struct{ s *Store }

func (p studentPager) SelectPage(ctx context.Context, plan query.Plan) ([]core.Student, error) {
	return p.s.SelectStudentPage(ctx, plan)
}

func (p studentPager) CountRecords(ctx context.Context, plan query.CountPlan) (int64, error) {
	return p.s.CountStudents(ctx, plan)
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*core.Student, error) {
	var (
		student       core.Student
		phone         sql.NullString
		skillsJSON    string
		resumeLink    sql.NullString
		placed        int
		placedCompany sql.NullString
		pkg           sql.NullFloat64
		createdAt     int64
		updatedAt     int64
	)

	if err := row.Scan(
		&student.ID, &student.Name, &student.Email, &phone, &student.RollNo,
		&student.Branch, &student.CGPA, &student.Backlogs, &student.PassingYear,
		&skillsJSON, &resumeLink, &placed, &placedCompany, &pkg,
		&createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	skills, err := decodeStrings(skillsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode student skills: %w", err)
	}

	student.Phone = phone.String
	student.Skills = skills
	student.ResumeLink = resumeLink.String
	student.Placed = placed == 1
	student.PlacedCompany = placedCompany.String
	if pkg.Valid {
		student.Package = pkg.Float64
	}
	student.CreatedAt = time.Unix(createdAt, 0).UTC()
	student.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &student, nil
}

func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return []string{}, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, err
	}
	return values, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

func nullFloat(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
