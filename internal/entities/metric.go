// Package entities contains core business entities.
package entities

// MetricCell is one computed number destined for the ledger: a value keyed
// by a row label (metric name, engineer, project) and a period column label
// ("March 2024").
type MetricCell struct {
	Sheet       string
	RowLabel    string
	ColumnLabel string
	Value       string
}

// StagePair names the boundaries of a measured cycle-time interval.
type StagePair struct {
	Start string
	End   string
}

// CycleTimeRow configures one row of the cycle-time report: which issues to
// select and which stage interval to measure for them.
type CycleTimeRow struct {
	RowName    string
	IssueTypes []string
	Labels     []string
	Stages     StagePair
}

// BuildCount is a per-project tally of CI job results for one period.
type BuildCount struct {
	Project string
	Passed  int
	Failed  int
	Other   map[string]int
}

// MeetingMetrics aggregates one engineer's Zoom activity for one period.
type MeetingMetrics struct {
	MeetingCount    int
	HoursInMeetings float64
	AdHocCount      int
}
