package reminder

import "time"

// Domain identifies what kind of entity a reminder is about.
type Domain string

const (
	DomainClass       Domain = "class"
	DomainSummary     Domain = "summary"
	DomainExam        Domain = "exam"
	DomainMaintenance Domain = "maintenance"
)

// Scope is the lifetime of a fired marker.
type Scope string

const (
	// ScopeSession markers are cleared at local midnight and on process restart.
	ScopeSession Scope = "session"
	// ScopeDurable markers survive restarts and are pruned after a retention window.
	ScopeDurable Scope = "durable"
)

// Class checkpoints, in minutes before the start time.
var ClassCheckpoints = []int{60, 30, 15, 10}

const (
	// StartingNowCheckpoint is the "class is starting now" checkpoint.
	StartingNowCheckpoint = 0
	// ClassTolerance widens each class checkpoint to [c-2, c+2] minutes.
	ClassTolerance = 2
	// SummaryHour is the local hour in which the daily class summary is sent.
	SummaryHour = 7
	// DefaultRetention is how long durable markers are kept before pruning.
	DefaultRetention = 7 * 24 * time.Hour
)

// ExamCheckpoints are days-before-exam values that fire a reminder (exact match).
var ExamCheckpoints = []int{40, 20, 10, 5, 2, 1, 0}

// IsExamCheckpoint reports whether days is a member of ExamCheckpoints.
func IsExamCheckpoint(days int) bool {
	for _, c := range ExamCheckpoints {
		if c == days {
			return true
		}
	}
	return false
}

// Reminder is one outbound event produced by an evaluation pass.
type Reminder struct {
	Key    MarkerKey
	Scope  Scope
	Domain Domain
	Title  string
	Body   string
}
