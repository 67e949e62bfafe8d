package store

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/placetrack/placetrack/internal/core"
)

// DashboardStats computes the aggregate placement snapshot in one pass per
// table. Callers are expected to cache the result.
func (s *Store) DashboardStats(ctx context.Context) (*core.DashboardStats, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stats := &core.DashboardStats{}

	row := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(placed), 0),
			COALESCE(AVG(CASE WHEN placed = 1 THEN package END), 0)
		FROM students
	`)
	if err := row.Scan(&stats.TotalStudents, &stats.PlacedStudents, &stats.AveragePackage); err != nil {
		return nil, fmt.Errorf("aggregate students: %w", err)
	}
	if stats.TotalStudents > 0 {
		rate := float64(stats.PlacedStudents) / float64(stats.TotalStudents) * 100
		stats.PlacementRate = math.Round(rate*100) / 100
	}

	row = s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0)
		FROM drives
	`, string(core.DriveStatusUpcoming), string(core.DriveStatusOngoing))
	if err := row.Scan(&stats.TotalDrives, &stats.OpenDrives); err != nil {
		return nil, fmt.Errorf("aggregate drives: %w", err)
	}

	branchStats, err := s.branchStats(ctx)
	if err != nil {
		return nil, err
	}
	stats.BranchStats = branchStats

	buckets, err := s.cgpaDistribution(ctx)
	if err != nil {
		return nil, err
	}
	stats.CGPADistribution = buckets

	return stats, nil
}

func (s *Store) branchStats(ctx context.Context) ([]core.BranchStats, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT branch, COUNT(*), COALESCE(SUM(placed), 0)
		FROM students
		GROUP BY branch
		ORDER BY branch
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate branches: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var stats []core.BranchStats
	for rows.Next() {
		var bs core.BranchStats
		if err := rows.Scan(&bs.Branch, &bs.Total, &bs.Placed); err != nil {
			return nil, fmt.Errorf("aggregate branches: %w", err)
		}
		if bs.Total > 0 {
			percent := float64(bs.Placed) / float64(bs.Total) * 100
			bs.Percent = math.Round(percent*100) / 100
		}
		stats = append(stats, bs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate branches: %w", err)
	}
	return stats, nil
}

// cgpaDistribution buckets students below 5 and then per whole grade point
// up to 10.
func (s *Store) cgpaDistribution(ctx context.Context) ([]core.CGPABucket, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT
			CASE
				WHEN cgpa < 5 THEN '<5'
				WHEN cgpa < 6 THEN '5-6'
				WHEN cgpa < 7 THEN '6-7'
				WHEN cgpa < 8 THEN '7-8'
				WHEN cgpa < 9 THEN '8-9'
				ELSE '9-10'
			END AS bucket,
			COUNT(*)
		FROM students
		GROUP BY bucket
	`)
	if err != nil {
		return nil, fmt.Errorf("aggregate cgpa distribution: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	counts := map[string]int64{}
	for rows.Next() {
		var (
			label string
			count int64
		)
		if err := rows.Scan(&label, &count); err != nil {
			return nil, fmt.Errorf("aggregate cgpa distribution: %w", err)
		}
		counts[label] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("aggregate cgpa distribution: %w", err)
	}

	// Fixed bucket order, zero-filled so the histogram shape is stable.
	labels := []string{"<5", "5-6", "6-7", "7-8", "8-9", "9-10"}
	buckets := make([]core.CGPABucket, 0, len(labels))
	for _, label := range labels {
		buckets = append(buckets, core.CGPABucket{Label: label, Count: counts[label]})
	}
	return buckets, nil
}

// RecentActivity returns the latest students, drives and placements for the
// dashboard feed.
func (s *Store) RecentActivity(ctx context.Context, limit int) (*core.RecentActivity, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 5
	}

	activity := &core.RecentActivity{
		Students:   []core.StudentSummary{},
		Drives:     []core.Drive{},
		Placements: []core.StudentSummary{},
	}

	students, err := s.recentStudents(ctx, `ORDER BY created_at DESC, id DESC`, "", limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent students: %w", err)
	}
	activity.Students = students

	placements, err := s.recentStudents(ctx, `ORDER BY updated_at DESC, id DESC`, "WHERE placed = 1", limit)
	if err != nil {
		return nil, fmt.Errorf("fetch recent placements: %w", err)
	}
	activity.Placements = placements

	rows, err := s.DB.QueryContext(ctx, fmt.Sprintf(`
		SELECT `+driveColumns+`
		FROM drives
		ORDER BY created_at DESC, id DESC
		LIMIT %d
	`, limit))
	if err != nil {
		return nil, fmt.Errorf("fetch recent drives: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	for rows.Next() {
		drive, err := scanDrive(rows)
		if err != nil {
			return nil, fmt.Errorf("fetch recent drives: %w", err)
		}
		activity.Drives = append(activity.Drives, *drive)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch recent drives: %w", err)
	}

	return activity, nil
}

func (s *Store) recentStudents(ctx context.Context, order, where string, limit int) ([]core.StudentSummary, error) {
	stmt := `SELECT ` + studentColumns + ` FROM students `
	if where != "" {
		stmt += where + " "
	}
	stmt += fmt.Sprintf("%s LIMIT %d", order, limit)

	rows, err := s.DB.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	summaries := []core.StudentSummary{}
	for rows.Next() {
		student, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, student.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return summaries, nil
}
