package match

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placetrack/placetrack/internal/core"
)

func baseCriteria() core.Criteria {
	return core.Criteria{
		MinCGPA:         7.5,
		MaxBacklogs:     0,
		BranchesAllowed: []string{"CS"},
		SkillsRequired:  []string{},
	}
}

func baseCandidate() core.Student {
	return core.Student{
		ID:       "s1",
		Name:     "Asha",
		Branch:   "CS",
		CGPA:     8.0,
		Backlogs: 0,
		Skills:   []string{"go", "sql"},
	}
}

func TestEligibleBoundaries(t *testing.T) {
	criteria := baseCriteria()

	exact := baseCandidate()
	exact.CGPA = criteria.MinCGPA
	assert.True(t, Eligible(criteria, exact), "cgpa exactly at the minimum is eligible")

	below := baseCandidate()
	below.CGPA = criteria.MinCGPA - 0.01
	assert.False(t, Eligible(criteria, below))

	overflow := baseCandidate()
	overflow.Backlogs = criteria.MaxBacklogs + 1
	assert.False(t, Eligible(criteria, overflow), "one backlog over the maximum is never eligible")
}

func TestEligibleExcludesPlacedRegardlessOfFit(t *testing.T) {
	criteria := baseCriteria()

	candidate := baseCandidate()
	candidate.CGPA = 10
	candidate.Placed = true
	assert.False(t, Eligible(criteria, candidate))
}

func TestEligibleBranchMembership(t *testing.T) {
	criteria := baseCriteria()

	candidate := baseCandidate()
	candidate.Branch = "EE"
	assert.False(t, Eligible(criteria, candidate))

	criteria.BranchesAllowed = []string{"CS", "EE"}
	assert.True(t, Eligible(criteria, candidate))
}

func TestEligibleSkillIntersection(t *testing.T) {
	criteria := baseCriteria()
	criteria.SkillsRequired = []string{"go", "rust"}

	candidate := baseCandidate()
	assert.True(t, Eligible(criteria, candidate), "one common skill suffices")

	candidate.Skills = []string{"java"}
	assert.False(t, Eligible(criteria, candidate))

	// Empty requirement means no skill filter at all.
	criteria.SkillsRequired = nil
	assert.True(t, Eligible(criteria, candidate))
}

type fakeStore struct {
	students []core.Student
	drives   []core.Drive

	countDriveID string
	count        int
	countErr     error
}

func (f *fakeStore) UnplacedStudents(context.Context) ([]core.Student, error) {
	var unplaced []core.Student
	for _, s := range f.students {
		if !s.Placed {
			unplaced = append(unplaced, s)
		}
	}
	return unplaced, nil
}

func (f *fakeStore) OpenDrives(context.Context) ([]core.Drive, error) {
	var open []core.Drive
	for _, d := range f.drives {
		if d.Open() {
			open = append(open, d)
		}
	}
	return open, nil
}

func (f *fakeStore) UpdateEligibleCount(_ context.Context, driveID string, count int) error {
	f.countDriveID = driveID
	f.count = count
	return f.countErr
}

func TestEligibleStudentsScenario(t *testing.T) {
	store := &fakeStore{
		students: []core.Student{
			{ID: "s1", Name: "Asha", Branch: "CS", CGPA: 8.0, Backlogs: 0},
			{ID: "s2", Name: "Ravi", Branch: "CS", CGPA: 7.0, Backlogs: 0},
			{ID: "s3", Name: "Meera", Branch: "EE", CGPA: 9.0, Backlogs: 0},
		},
	}
	svc := NewService(store, store, store)

	drive := core.Drive{ID: "d1", Criteria: baseCriteria()}
	eligible, err := svc.EligibleStudents(context.Background(), drive)
	require.NoError(t, err)

	require.Len(t, eligible, 1)
	assert.Equal(t, "s1", eligible[0].ID)

	// The eligible-count side effect was refreshed.
	assert.Equal(t, "d1", store.countDriveID)
	assert.Equal(t, 1, store.count)
}

func TestEligibleStudentsSortedByCGPADescending(t *testing.T) {
	store := &fakeStore{
		students: []core.Student{
			{ID: "s1", Name: "Asha", Branch: "CS", CGPA: 7.6},
			{ID: "s2", Name: "Ravi", Branch: "CS", CGPA: 9.1},
			{ID: "s3", Name: "Meera", Branch: "CS", CGPA: 8.2},
		},
	}
	svc := NewService(store, store, store)

	eligible, err := svc.EligibleStudents(context.Background(), core.Drive{ID: "d1", Criteria: baseCriteria()})
	require.NoError(t, err)

	require.Len(t, eligible, 3)
	assert.Equal(t, []string{"s2", "s3", "s1"}, []string{eligible[0].ID, eligible[1].ID, eligible[2].ID})
}

func TestEligibleStudentsCountRefreshFailureDoesNotFailQuery(t *testing.T) {
	store := &fakeStore{
		students: []core.Student{{ID: "s1", Name: "Asha", Branch: "CS", CGPA: 8.0}},
		countErr: errors.New("store offline"),
	}
	svc := NewService(store, store, store)

	eligible, err := svc.EligibleStudents(context.Background(), core.Drive{ID: "d1", Criteria: baseCriteria()})
	require.NoError(t, err)
	assert.Len(t, eligible, 1)
}

func TestEligibleDrivesForCandidate(t *testing.T) {
	later := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 9, 5, 0, 0, 0, 0, time.UTC)

	store := &fakeStore{
		drives: []core.Drive{
			{ID: "d1", Status: core.DriveStatusUpcoming, RecruitmentDate: later, Criteria: baseCriteria()},
			{ID: "d2", Status: core.DriveStatusOngoing, RecruitmentDate: sooner, Criteria: baseCriteria()},
			{ID: "d3", Status: core.DriveStatusCompleted, RecruitmentDate: sooner, Criteria: baseCriteria()},
			{ID: "d4", Status: core.DriveStatusUpcoming, RecruitmentDate: sooner, Criteria: core.Criteria{
				MinCGPA:         9.5,
				BranchesAllowed: []string{"CS"},
			}},
		},
	}
	svc := NewService(store, store, store)

	drives, err := svc.EligibleDrives(context.Background(), baseCandidate())
	require.NoError(t, err)

	// Completed and out-of-reach drives are excluded; the rest sort by
	// recruitment date ascending.
	require.Len(t, drives, 2)
	assert.Equal(t, "d2", drives[0].ID)
	assert.Equal(t, "d1", drives[1].ID)
}

func TestEligibleDrivesPlacedCandidateGetsEmptyList(t *testing.T) {
	store := &fakeStore{
		drives: []core.Drive{{ID: "d1", Status: core.DriveStatusUpcoming, Criteria: baseCriteria()}},
	}
	svc := NewService(store, store, store)

	candidate := baseCandidate()
	candidate.Placed = true

	drives, err := svc.EligibleDrives(context.Background(), candidate)
	require.NoError(t, err)
	assert.Empty(t, drives)
}
