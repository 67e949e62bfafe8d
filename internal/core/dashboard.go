package core

// BranchStats aggregates placement progress for one branch.
type BranchStats struct {
	Branch  string  `json:"branch"`
	Total   int64   `json:"total"`
	Placed  int64   `json:"placed"`
	Percent float64 `json:"percent"`
}

// CGPABucket is one bar of the CGPA distribution histogram.
type CGPABucket struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// DashboardStats is the aggregate snapshot served to the dashboard. It is
// expensive to compute and therefore cached with a short TTL.
type DashboardStats struct {
	TotalStudents    int64        `json:"totalStudents"`
	PlacedStudents   int64        `json:"placedStudents"`
	PlacementRate    float64      `json:"placementRate"`
	TotalDrives      int64        `json:"totalDrives"`
	OpenDrives       int64        `json:"openDrives"`
	AveragePackage   float64      `json:"averagePackage"`
	BranchStats      []BranchStats `json:"branchStats"`
	CGPADistribution []CGPABucket  `json:"cgpaDistribution"`
}

// RecentActivity lists the latest records for the dashboard feed.
type RecentActivity struct {
	Students   []StudentSummary `json:"students"`
	Drives     []Drive          `json:"drives"`
	Placements []StudentSummary `json:"placements"`
}
