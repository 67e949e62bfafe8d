package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/query"
)

const driveColumns = `id, company_name, role, package, min_cgpa, max_backlogs,
	branches_allowed, skills_required, recruitment_date, eligible_count,
	applied_count, status, description, location, created_at, updated_at`

// CreateDrive inserts a recruitment drive, assigning an id when the caller
// did not supply one.
func (s *Store) CreateDrive(ctx context.Context, drive *core.Drive) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if drive.ID == "" {
		drive.ID = uuid.NewString()
	}
	if drive.Status == "" {
		drive.Status = core.DriveStatusUpcoming
	}
	now := time.Now().UTC()
	drive.CreatedAt = now
	drive.UpdatedAt = now

	branches, err := encodeStrings(drive.Criteria.BranchesAllowed)
	if err != nil {
		return fmt.Errorf("encode drive branches: %w", err)
	}
	skills, err := encodeStrings(drive.Criteria.SkillsRequired)
	if err != nil {
		return fmt.Errorf("encode drive skills: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO drives (`+driveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		drive.ID, drive.CompanyName, drive.Role, drive.Package,
		drive.Criteria.MinCGPA, drive.Criteria.MaxBacklogs, branches, skills,
		drive.RecruitmentDate.UTC().Unix(), drive.EligibleCount, drive.AppliedCount,
		string(drive.Status), nullString(drive.Description), nullString(drive.Location),
		now.Unix(), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert drive: %w", err)
	}
	return nil
}

// GetDrive returns a drive by id, or nil when no record exists.
func (s *Store) GetDrive(ctx context.Context, id string) (*core.Drive, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT `+driveColumns+`
		FROM drives
		WHERE id = ?
	`, id)

	drive, err := scanDrive(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch drive: %w", err)
	}
	return drive, nil
}

// UpdateDrive replaces a drive record. The second return reports whether the
// record existed.
func (s *Store) UpdateDrive(ctx context.Context, drive *core.Drive) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	now := time.Now().UTC()
	drive.UpdatedAt = now

	branches, err := encodeStrings(drive.Criteria.BranchesAllowed)
	if err != nil {
		return false, fmt.Errorf("encode drive branches: %w", err)
	}
	skills, err := encodeStrings(drive.Criteria.SkillsRequired)
	if err != nil {
		return false, fmt.Errorf("encode drive skills: %w", err)
	}

	res, err := s.DB.ExecContext(ctx, `
		UPDATE drives SET
			company_name = ?, role = ?, package = ?, min_cgpa = ?,
			max_backlogs = ?, branches_allowed = ?, skills_required = ?,
			recruitment_date = ?, status = ?, description = ?, location = ?,
			updated_at = ?
		WHERE id = ?
	`,
		drive.CompanyName, drive.Role, drive.Package, drive.Criteria.MinCGPA,
		drive.Criteria.MaxBacklogs, branches, skills,
		drive.RecruitmentDate.UTC().Unix(), string(drive.Status),
		nullString(drive.Description), nullString(drive.Location),
		now.Unix(), drive.ID,
	)
	if err != nil {
		return false, fmt.Errorf("update drive: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update drive: %w", err)
	}
	return affected > 0, nil
}

// DeleteDrive removes a drive record. The first return reports whether the
// record existed.
func (s *Store) DeleteDrive(ctx context.Context, id string) (bool, error) {
	if s == nil || s.DB == nil {
		return false, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM drives WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete drive: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete drive: %w", err)
	}
	return affected > 0, nil
}

// OpenDrives returns drives still accepting candidates, the opportunity pool
// for a student's eligibility lookup.
func (s *Store) OpenDrives(ctx context.Context) ([]core.Drive, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT `+driveColumns+`
		FROM drives
		WHERE status IN (?, ?)
	`, string(core.DriveStatusUpcoming), string(core.DriveStatusOngoing))
	if err != nil {
		return nil, fmt.Errorf("fetch open drives: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var drives []core.Drive
	for rows.Next() {
		drive, err := scanDrive(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch open drives: %w", err)
		}
		drives = append(drives, *drive)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch open drives: %w", err)
	}
	return drives, nil
}

// UpdateEligibleCount records the latest eligible-student count for a drive.
func (s *Store) UpdateEligibleCount(ctx context.Context, driveID string, count int) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	_, err := s.DB.ExecContext(ctx, `
		UPDATE drives SET eligible_count = ?, updated_at = ? WHERE id = ?
	`, count, time.Now().UTC().Unix(), driveID)
	if err != nil {
		return fmt.Errorf("update eligible count: %w", err)
	}
	return nil
}

// SelectDrivePage executes one planner scan over the drives table.
func (s *Store) SelectDrivePage(ctx context.Context, plan query.Plan) ([]core.Drive, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stmt := `SELECT ` + driveColumns + ` FROM drives`
	if plan.Where != "" {
		stmt += " WHERE " + plan.Where
	}
	stmt += fmt.Sprintf(" ORDER BY %s LIMIT %d", plan.OrderBy, plan.Limit)

	rows, err := s.DB.QueryContext(ctx, stmt, plan.Args...)
	if err != nil {
		return nil, fmt.Errorf("scan drives: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var drives []core.Drive
	for rows.Next() {
		drive, err := scanDrive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan drives: %w", err)
		}
		drives = append(drives, *drive)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan drives: %w", err)
	}
	return drives, nil
}

// CountDrives returns the number of drives matching a planner predicate.
func (s *Store) CountDrives(ctx context.Context, plan query.CountPlan) (int64, error) {
	if s == nil || s.DB == nil {
		return 0, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stmt := `SELECT COUNT(*) FROM drives`
	if plan.Where != "" {
		stmt += " WHERE " + plan.Where
	}

	var total int64
	if err := s.DB.QueryRowContext(ctx, stmt, plan.Args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count drives: %w", err)
	}
	return total, nil
}

// DrivePager adapts the store to the planner's page interface.
func (s *Store) DrivePager() query.Store[core.Drive] {
	return drivePager{s: s}
}

type drivePager struct{ s *Store }

func (p drivePager) SelectPage(ctx context.Context, plan query.Plan) ([]core.Drive, error) {
	return p.s.SelectDrivePage(ctx, plan)
}

func (p drivePager) CountRecords(ctx context.Context, plan query.CountPlan) (int64, error) {
	return p.s.CountDrives(ctx, plan)
}

func scanDrive(row rowScanner) (*core.Drive, error) {
	var (
		drive           core.Drive
		branchesJSON    string
		skillsJSON      string
		recruitmentDate int64
		status          string
		description     sql.NullString
		location        sql.NullString
		createdAt       int64
		updatedAt       int64
	)

	if err := row.Scan(
		&drive.ID, &drive.CompanyName, &drive.Role, &drive.Package,
		&drive.Criteria.MinCGPA, &drive.Criteria.MaxBacklogs,
		&branchesJSON, &skillsJSON, &recruitmentDate,
		&drive.EligibleCount, &drive.AppliedCount, &status,
		&description, &location, &createdAt, &updatedAt,
	); err != nil {
		return nil, err
	}

	branches, err := decodeStrings(branchesJSON)
	if err != nil {
		return nil, fmt.Errorf("decode drive branches: %w", err)
	}
	skills, err := decodeStrings(skillsJSON)
	if err != nil {
		return nil, fmt.Errorf("decode drive skills: %w", err)
	}

	drive.Criteria.BranchesAllowed = branches
	drive.Criteria.SkillsRequired = skills
	drive.RecruitmentDate = time.Unix(recruitmentDate, 0).UTC()
	drive.Status = core.DriveStatus(status)
	drive.Description = description.String
	drive.Location = location.String
	drive.CreatedAt = time.Unix(createdAt, 0).UTC()
	drive.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &drive, nil
}
