// Package entities contains core business entities.
package entities

import "time"

// Transition records that an issue moved to a stage at a point in time.
// Transitions arrive in changelog order, which is not necessarily
// chronological.
type Transition struct {
	At    time.Time
	Stage string
}

// IssueTimeline is the lifecycle history of a single tracked issue.
type IssueTimeline struct {
	Key         string
	CreatedAt   time.Time
	ResolvedAt  *time.Time
	Transitions []Transition
}

// Resolved reports whether the issue carries a resolution timestamp.
// Unresolved issues are excluded from cycle-time aggregation.
func (t IssueTimeline) Resolved() bool { return t.ResolvedAt != nil }
