// Package queue implements the sequential work queue that directory nodes are
// reconciled from, in the order they were enqueued.
package queue

import "time"

// Progress is a snapshot of the processing state of a [GenericQueue].
type Progress struct {
	HasStarted     bool
	HasFinished    bool
	StartTime      time.Time
	FinishTime     time.Time
	ProgressPct    float64
	TotalItems     int
	ProcessedItems int
	DoneItems      int
	FailedItems    int
	ETA            time.Time
	TimeLeft       time.Duration
}
