// Package registry tracks the tasks reported by upstream: the active map of
// running tasks and the append-only archive of finished ones.
package registry

import (
	"fmt"
	"sort"
	"time"

	"github.com/ShayCichocki/dbtmon/internal/parser"
	"github.com/ShayCichocki/dbtmon/pkg/models"
)

// UnknownTaskError is returned when a completion references a task that is
// not running. It means the monitor lost sync with upstream.
type UnknownTaskError struct {
	ID int
}

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %d not found", e.ID)
}

// Transition describes the effect of one applied event.
type Transition struct {
	// Task is the record the event created or updated.
	Task *models.Task
	// Replaced is the active record a Started or Skipped event overwrote.
	Replaced *models.Task
	// Archived is true when the event made the task terminal.
	Archived bool
}

// Registry owns every task record. Records are mutated only through its
// methods so the live and archived views never diverge.
type Registry struct {
	active   map[int]*models.Task
	archive  []*models.Task
	finished []*models.Task
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		active: make(map[int]*models.Task),
	}
}

// Apply applies a state-bearing event (Started, Skipped or Finished).
//
// A Started or Skipped event for an id that is already active overwrites the
// active record; the previous record is returned in Transition.Replaced and
// is not archived.
func (r *Registry) Apply(ev parser.Event, now time.Time) (Transition, error) {
	switch e := ev.(type) {
	case parser.Started:
		task := &models.Task{
			ID:          e.ID,
			Total:       e.Total,
			Description: e.Description,
			Status:      models.TaskStatusRunning,
			Timestamp:   e.Timestamp,
			StartedAt:   &now,
		}
		replaced := r.active[e.ID]
		r.active[e.ID] = task
		return Transition{Task: task, Replaced: replaced}, nil

	case parser.Skipped:
		task := &models.Task{
			ID:          e.ID,
			Total:       e.Total,
			Description: e.Description,
			Status:      models.TaskStatusSkipped,
			Timestamp:   e.Timestamp,
		}
		replaced := r.active[e.ID]
		delete(r.active, e.ID)
		r.retire(task)
		return Transition{Task: task, Replaced: replaced, Archived: true}, nil

	case parser.Finished:
		task, ok := r.active[e.ID]
		if !ok {
			return Transition{}, &UnknownTaskError{ID: e.ID}
		}

		runtime := e.Outcome.Seconds()
		task.Timestamp = e.Timestamp
		task.Description = e.Description
		task.Runtime = &runtime
		switch o := e.Outcome.(type) {
		case parser.Success:
			task.Status = models.TaskStatusSuccess
			task.ExitCode = o.ExitCode
		case parser.Error:
			task.Status = models.TaskStatusError
		}

		delete(r.active, e.ID)
		r.retire(task)
		return Transition{Task: task, Archived: true}, nil

	default:
		return Transition{}, fmt.Errorf("event %T carries no task state", ev)
	}
}

// retire appends a terminal task to the archive and queues it for display.
func (r *Registry) retire(task *models.Task) {
	r.archive = append(r.archive, task)
	r.finished = append(r.finished, task)
}

// Get returns the active task with the given id.
func (r *Registry) Get(id int) (*models.Task, bool) {
	task, ok := r.active[id]
	return task, ok
}

// Active returns the running tasks ordered by id.
func (r *Registry) Active() []*models.Task {
	tasks := make([]*models.Task, 0, len(r.active))
	for _, task := range r.active {
		tasks = append(tasks, task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].ID < tasks[j].ID
	})
	return tasks
}

// ActiveCount returns the number of running tasks.
func (r *Registry) ActiveCount() int {
	return len(r.active)
}

// Archive returns the terminal tasks in the order they finished.
func (r *Registry) Archive() []*models.Task {
	out := make([]*models.Task, len(r.archive))
	copy(out, r.archive)
	return out
}

// TakeFinished returns the tasks that became terminal since the previous
// call and clears the queue.
func (r *Registry) TakeFinished() []*models.Task {
	finished := r.finished
	r.finished = nil
	return finished
}

// ObserveConcurrency records the current running-task count on every running
// task and returns that count. A task whose minimum drops to exactly one is
// stamped with now as the moment it started running alone.
func (r *Registry) ObserveConcurrency(now time.Time) int {
	n := len(r.active)
	for _, task := range r.active {
		if task.Concurrency.Observe(n) && n == 1 {
			at := now
			task.BlockingStartedAt = &at
		}
	}
	return n
}
