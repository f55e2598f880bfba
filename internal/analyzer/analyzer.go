// Package analyzer inspects the finished tasks of a run for parallelism
// bottlenecks.
//
// Concurrency is sampled once per render cycle, so a task's blocking start
// can be late by up to one polling interval. Blocking times are therefore
// understated by at most the polling rate.
package analyzer

import (
	"fmt"
	"io"
	"time"

	"github.com/ShayCichocki/dbtmon/pkg/models"
)

// DefaultThreshold is the blocking time below which a task is not reported.
const DefaultThreshold = 60 * time.Second

// BlockingModel is a task that ran alone for longer than the threshold.
type BlockingModel struct {
	Name string
	// BuildTime is the task's total runtime in seconds.
	BuildTime float64
	// BlockingTime is the part of BuildTime spent as the only running task.
	BlockingTime float64
}

func (b BlockingModel) String() string {
	return fmt.Sprintf("[dbtmon] Blocking Model: name=%s build_time=%s blocking_time=%s",
		b.Name, models.FormatClock(b.BuildTime), models.FormatClock(b.BlockingTime))
}

// Analyze returns the archived tasks that were the sole running task for at
// least threshold, in archive order.
func Analyze(archive []*models.Task, threshold time.Duration) []BlockingModel {
	var out []BlockingModel
	for _, task := range archive {
		if !task.Concurrency.Observed || task.Concurrency.Min != 1 {
			continue
		}
		blocking := task.RawBlockingTime()
		if task.Runtime == nil || blocking < threshold.Seconds() {
			continue
		}
		out = append(out, BlockingModel{
			Name:         task.Name(),
			BuildTime:    *task.Runtime,
			BlockingTime: blocking,
		})
	}
	return out
}

// Summary aggregates the outcome of a run.
type Summary struct {
	Tasks           int
	Success         int
	Error           int
	Skipped         int
	PeakConcurrency int
	// BuildTime is the summed runtime of every finished task, in seconds.
	BuildTime float64
}

func (s Summary) String() string {
	return fmt.Sprintf("[dbtmon] Summary: tasks=%d success=%d error=%d skipped=%d peak_concurrency=%d build_time=%s",
		s.Tasks, s.Success, s.Error, s.Skipped, s.PeakConcurrency, models.FormatClock(s.BuildTime))
}

// Summarize counts the archived tasks by status.
func Summarize(archive []*models.Task) Summary {
	var s Summary
	for _, task := range archive {
		s.Tasks++
		switch task.Status {
		case models.TaskStatusSuccess:
			s.Success++
		case models.TaskStatusError:
			s.Error++
		case models.TaskStatusSkipped:
			s.Skipped++
		}
		if task.Concurrency.Observed {
			s.PeakConcurrency = max(s.PeakConcurrency, task.Concurrency.Max)
		}
		if task.Runtime != nil {
			s.BuildTime += *task.Runtime
		}
	}
	return s
}

// Report writes one line per blocking model.
func Report(w io.Writer, blocking []BlockingModel) error {
	for _, m := range blocking {
		if _, err := fmt.Fprintln(w, m.String()); err != nil {
			return err
		}
	}
	return nil
}
