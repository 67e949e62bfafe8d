// Package match implements eligibility matching between candidate records
// and drive criteria. The predicate is pure and shared by both query
// directions so the rules can never diverge.
package match

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/placetrack/placetrack/internal/core"
	"github.com/placetrack/placetrack/internal/observability"
)

// Eligible reports whether the candidate satisfies every clause of the
// criteria. Bounds are inclusive: a candidate at exactly MinCGPA or exactly
// MaxBacklogs qualifies. A placed candidate is never eligible. An empty
// SkillsRequired set means no skill filter; otherwise one common skill
// suffices (intersection, not subset).
func Eligible(criteria core.Criteria, candidate core.Student) bool {
	if candidate.Placed {
		return false
	}
	if candidate.CGPA < criteria.MinCGPA {
		return false
	}
	if candidate.Backlogs > criteria.MaxBacklogs {
		return false
	}
	if !contains(criteria.BranchesAllowed, candidate.Branch) {
		return false
	}
	if len(criteria.SkillsRequired) == 0 {
		return true
	}
	return intersects(criteria.SkillsRequired, candidate.Skills)
}

func contains(set []string, value string) bool {
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func intersects(a, b []string) bool {
	for _, s := range a {
		if contains(b, s) {
			return true
		}
	}
	return false
}

// CandidateSource supplies the non-placed candidate pool.
type CandidateSource interface {
	UnplacedStudents(ctx context.Context) ([]core.Student, error)
}

// DriveSource supplies drives still accepting candidates.
type DriveSource interface {
	OpenDrives(ctx context.Context) ([]core.Drive, error)
}

// CountWriter persists a drive's denormalized eligible-count.
type CountWriter interface {
	UpdateEligibleCount(ctx context.Context, driveID string, count int) error
}

// Service evaluates the predicate in both directions against the record store.
type Service struct {
	candidates CandidateSource
	drives     DriveSource
	counts     CountWriter
}

// NewService wires the matcher to its record sources.
func NewService(candidates CandidateSource, drives DriveSource, counts CountWriter) *Service {
	return &Service{candidates: candidates, drives: drives, counts: counts}
}

// EligibleStudents returns the candidates that satisfy the drive's criteria,
// sorted by CGPA descending with name then id as tie-breakers. As a side
// effect it refreshes the drive's stored eligible-count. The count is
// advisory denormalized data recomputed on demand, never a source of truth,
// so a failed refresh is logged and does not fail the query.
func (s *Service) EligibleStudents(ctx context.Context, drive core.Drive) ([]core.StudentSummary, error) {
	pool, err := s.candidates.UnplacedStudents(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]core.Student, 0, len(pool))
	for _, candidate := range pool {
		if Eligible(drive.Criteria, candidate) {
			eligible = append(eligible, candidate)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].CGPA != eligible[j].CGPA {
			return eligible[i].CGPA > eligible[j].CGPA
		}
		if eligible[i].Name != eligible[j].Name {
			return eligible[i].Name < eligible[j].Name
		}
		return eligible[i].ID < eligible[j].ID
	})

	if s.counts != nil {
		if err := s.counts.UpdateEligibleCount(ctx, drive.ID, len(eligible)); err != nil {
			if observability.ServerLogger != nil {
				observability.ServerLogger.Warn("Failed to refresh eligible count",
					zap.String("drive_id", drive.ID),
					zap.Error(err))
			}
		}
	}

	summaries := make([]core.StudentSummary, len(eligible))
	for i, candidate := range eligible {
		summaries[i] = candidate.Summary()
	}
	return summaries, nil
}

// EligibleDrives returns the open drives whose criteria the candidate
// satisfies, sorted by recruitment date ascending. A placed candidate gets
// an empty list; callers surface the alreadyPlaced flag.
func (s *Service) EligibleDrives(ctx context.Context, candidate core.Student) ([]core.Drive, error) {
	if candidate.Placed {
		return []core.Drive{}, nil
	}

	open, err := s.drives.OpenDrives(ctx)
	if err != nil {
		return nil, err
	}

	eligible := make([]core.Drive, 0, len(open))
	for _, drive := range open {
		if Eligible(drive.Criteria, candidate) {
			eligible = append(eligible, drive)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		if !eligible[i].RecruitmentDate.Equal(eligible[j].RecruitmentDate) {
			return eligible[i].RecruitmentDate.Before(eligible[j].RecruitmentDate)
		}
		return eligible[i].ID < eligible[j].ID
	})

	return eligible, nil
}
