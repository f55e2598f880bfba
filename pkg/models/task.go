package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	// TaskStatusRunning indicates the task has started and not yet finished.
	TaskStatusRunning TaskStatus = "RUN"
	// TaskStatusSuccess indicates the task finished successfully.
	TaskStatusSuccess TaskStatus = "SUCCESS"
	// TaskStatusError indicates the task finished with an error.
	TaskStatusError TaskStatus = "ERROR"
	// TaskStatusSkipped indicates upstream skipped the task without running it.
	TaskStatusSkipped TaskStatus = "SKIP"
)

// Valid returns true if the status is a known value.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusRunning, TaskStatusSuccess, TaskStatusError, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// Terminal returns true for statuses that end a task's lifetime.
func (s TaskStatus) Terminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusError, TaskStatusSkipped:
		return true
	default:
		return false
	}
}

// Concurrency holds the extremes of the running-task count observed while a
// task was active. Min and Max are meaningless until Observed is set.
type Concurrency struct {
	Observed bool `json:"observed"`
	Min      int  `json:"min"`
	Max      int  `json:"max"`
}

// Observe folds one running-task count into the extremes.
// It returns true when n lowered the minimum (including the first observation).
func (c *Concurrency) Observe(n int) bool {
	if !c.Observed {
		c.Observed = true
		c.Min, c.Max = n, n
		return true
	}
	lowered := n < c.Min
	c.Min = min(c.Min, n)
	c.Max = max(c.Max, n)
	return lowered
}

// Task represents one unit of build work reported by upstream.
type Task struct {
	// ID is the task's ordinal in the batch. Unique among active tasks only.
	ID int `json:"id"`
	// Total is the number of tasks in the batch.
	Total int `json:"total"`
	// Description is the free text label from the latest line.
	Description string `json:"description"`
	// Status is the current state of the task.
	Status TaskStatus `json:"status"`
	// Timestamp is the 8-character clock time from the latest line.
	Timestamp string `json:"timestamp"`
	// StartedAt is when the task entered Running. Nil for skipped tasks.
	StartedAt *time.Time `json:"started_at,omitempty"`
	// Runtime is the elapsed seconds upstream reported at completion.
	Runtime *float64 `json:"runtime,omitempty"`
	// ExitCode is the code reported with a successful completion.
	ExitCode int `json:"exit_code"`
	// Concurrency tracks how many tasks were running alongside this one.
	Concurrency Concurrency `json:"concurrency"`
	// BlockingStartedAt is when this task was first seen running alone.
	BlockingStartedAt *time.Time `json:"blocking_started_at,omitempty"`
}

// Elapsed returns the task's runtime in seconds: the reported runtime once
// finished, otherwise the wall time since it started.
func (t *Task) Elapsed(now time.Time) float64 {
	if t.Runtime != nil {
		return *t.Runtime
	}
	if t.StartedAt == nil {
		return 0
	}
	return now.Sub(*t.StartedAt).Seconds()
}

// RawBlockingTime returns the seconds of the task's runtime that elapsed
// after it became the only running task. Zero when the task was never
// alone or any of the inputs is missing.
func (t *Task) RawBlockingTime() float64 {
	if !t.Concurrency.Observed || t.Concurrency.Min != 1 {
		return 0
	}
	if t.Runtime == nil || t.StartedAt == nil || t.BlockingStartedAt == nil {
		return 0
	}
	lead := t.BlockingStartedAt.Sub(*t.StartedAt).Seconds()
	return math.Max(0, *t.Runtime-lead)
}

// Name returns the model name: the last token of the description once the
// trailing dot leader is removed.
func (t *Task) Name() string {
	fields := strings.Fields(strings.TrimRight(t.Description, ". "))
	if len(fields) == 0 {
		return ""
	}
	return fields[len(fields)-1]
}

// FormatClock renders a number of seconds as HH:MM:SS.hh.
// Negative and non-finite values render as zero; hours are not wrapped at a day.
func FormatClock(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		seconds = 0
	}
	centis := int64(math.Floor(seconds*100 + 1e-6))
	hundredths := centis % 100
	total := centis / 100
	return fmt.Sprintf("%02d:%02d:%02d.%02d", total/3600, total/60%60, total%60, hundredths)
}
