// Package core defines the domain types shared across the placetrack service.
package core

import "time"

// DriveStatus tracks where a recruitment drive is in its lifecycle.
type DriveStatus string

const (
	DriveStatusUpcoming  DriveStatus = "upcoming"
	DriveStatusOngoing   DriveStatus = "ongoing"
	DriveStatusCompleted DriveStatus = "completed"
)

// OpenDriveStatuses are the statuses in which a drive still accepts candidates.
var OpenDriveStatuses = []DriveStatus{DriveStatusUpcoming, DriveStatusOngoing}

// Criteria is the multi-field eligibility predicate a drive defines.
// BranchesAllowed is never empty; an empty SkillsRequired means no skill filter.
type Criteria struct {
	MinCGPA         float64  `json:"minCGPA" yaml:"min_cgpa"`
	MaxBacklogs     int      `json:"maxBacklogs" yaml:"max_backlogs"`
	BranchesAllowed []string `json:"branchesAllowed" yaml:"branches_allowed"`
	SkillsRequired  []string `json:"skillsRequired" yaml:"skills_required"`
}

// Student is a candidate record.
type Student struct {
	ID            string    `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Email         string    `json:"email" yaml:"email"`
	Phone         string    `json:"phone" yaml:"phone"`
	RollNo        string    `json:"rollNo" yaml:"roll_no"`
	Branch        string    `json:"branch" yaml:"branch"`
	CGPA          float64   `json:"cgpa" yaml:"cgpa"`
	Backlogs      int       `json:"backlogs" yaml:"backlogs"`
	PassingYear   int       `json:"passingYear" yaml:"passing_year"`
	Skills        []string  `json:"skills" yaml:"skills"`
	ResumeLink    string    `json:"resumeLink" yaml:"resume_link"`
	Placed        bool      `json:"placed" yaml:"placed"`
	PlacedCompany string    `json:"placedCompany,omitempty" yaml:"placed_company"`
	Package       float64   `json:"package,omitempty" yaml:"package"`
	CreatedAt     time.Time `json:"createdAt" yaml:"-"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"-"`
}

// StudentSummary is the minimal projection returned by eligibility queries.
type StudentSummary struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	RollNo     string   `json:"rollNo"`
	Branch     string   `json:"branch"`
	CGPA       float64  `json:"cgpa"`
	Backlogs   int      `json:"backlogs"`
	Skills     []string `json:"skills"`
	ResumeLink string   `json:"resumeLink"`
}

// Summary projects a student down to the fields eligibility responses expose.
func (s Student) Summary() StudentSummary {
	return StudentSummary{
		ID:         s.ID,
		Name:       s.Name,
		Email:      s.Email,
		RollNo:     s.RollNo,
		Branch:     s.Branch,
		CGPA:       s.CGPA,
		Backlogs:   s.Backlogs,
		Skills:     s.Skills,
		ResumeLink: s.ResumeLink,
	}
}

// Drive is an employer recruitment opportunity with attached criteria.
type Drive struct {
	ID              string      `json:"id" yaml:"id"`
	CompanyName     string      `json:"companyName" yaml:"company_name"`
	Role            string      `json:"role" yaml:"role"`
	Package         float64     `json:"package" yaml:"package"`
	Criteria        Criteria    `json:"criteria" yaml:"criteria"`
	RecruitmentDate time.Time   `json:"recruitmentDate" yaml:"recruitment_date"`
	EligibleCount   int         `json:"eligibleCount" yaml:"-"`
	AppliedCount    int         `json:"appliedCount" yaml:"-"`
	Status          DriveStatus `json:"status" yaml:"status"`
	Description     string      `json:"description,omitempty" yaml:"description"`
	Location        string      `json:"location,omitempty" yaml:"location"`
	CreatedAt       time.Time   `json:"createdAt" yaml:"-"`
	UpdatedAt       time.Time   `json:"updatedAt" yaml:"-"`
}

// Open reports whether the drive still accepts candidates.
func (d Drive) Open() bool {
	for _, status := range OpenDriveStatuses {
		if d.Status == status {
			return true
		}
	}
	return false
}
