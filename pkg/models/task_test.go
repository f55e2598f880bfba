package models

import (
	"math"
	"testing"
	"time"
)

func TestTaskStatus_Valid(t *testing.T) {
	tests := []struct {
		name   string
		status TaskStatus
		want   bool
	}{
		{"running is valid", TaskStatusRunning, true},
		{"success is valid", TaskStatusSuccess, true},
		{"error is valid", TaskStatusError, true},
		{"skip is valid", TaskStatusSkipped, true},
		{"empty string is invalid", TaskStatus(""), false},
		{"unknown status is invalid", TaskStatus("PASS"), false},
		{"lowercase is invalid", TaskStatus("run"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.status.Valid(); got != tt.want {
				t.Errorf("TaskStatus(%q).Valid() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		status TaskStatus
		want   bool
	}{
		{TaskStatusRunning, false},
		{TaskStatusSuccess, true},
		{TaskStatusError, true},
		{TaskStatusSkipped, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.Terminal(); got != tt.want {
				t.Errorf("TaskStatus(%q).Terminal() = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestConcurrency_Observe(t *testing.T) {
	var c Concurrency

	if !c.Observe(3) {
		t.Error("first observation should lower the minimum")
	}
	if c.Min != 3 || c.Max != 3 {
		t.Errorf("expected min=3 max=3, got min=%d max=%d", c.Min, c.Max)
	}

	if c.Observe(5) {
		t.Error("a higher count should not lower the minimum")
	}
	if c.Observe(3) {
		t.Error("an equal count should not lower the minimum")
	}
	if !c.Observe(1) {
		t.Error("a lower count should lower the minimum")
	}
	if c.Min != 1 || c.Max != 5 {
		t.Errorf("expected min=1 max=5, got min=%d max=%d", c.Min, c.Max)
	}
}

func TestTask_Elapsed(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	now := start.Add(90 * time.Second)

	running := Task{StartedAt: &start}
	if got := running.Elapsed(now); got != 90 {
		t.Errorf("running Elapsed() = %v, want 90", got)
	}

	runtime := 12.5
	finished := Task{StartedAt: &start, Runtime: &runtime}
	if got := finished.Elapsed(now); got != 12.5 {
		t.Errorf("finished Elapsed() = %v, want 12.5", got)
	}

	skipped := Task{Status: TaskStatusSkipped}
	if got := skipped.Elapsed(now); got != 0 {
		t.Errorf("skipped Elapsed() = %v, want 0", got)
	}
}

func TestTask_RawBlockingTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	alone := start.Add(10 * time.Second)
	late := start.Add(200 * time.Second)
	runtime := 100.0

	tests := []struct {
		name string
		task Task
		want float64
	}{
		{
			name: "ran alone after ten seconds",
			task: Task{StartedAt: &start, Runtime: &runtime, BlockingStartedAt: &alone,
				Concurrency: Concurrency{Observed: true, Min: 1, Max: 2}},
			want: 90,
		},
		{
			name: "never alone",
			task: Task{StartedAt: &start, Runtime: &runtime, BlockingStartedAt: &alone,
				Concurrency: Concurrency{Observed: true, Min: 2, Max: 4}},
			want: 0,
		},
		{
			name: "never observed",
			task: Task{StartedAt: &start, Runtime: &runtime},
			want: 0,
		},
		{
			name: "missing blocking start",
			task: Task{StartedAt: &start, Runtime: &runtime,
				Concurrency: Concurrency{Observed: true, Min: 1, Max: 1}},
			want: 0,
		},
		{
			name: "observation later than reported runtime clamps to zero",
			task: Task{StartedAt: &start, Runtime: &runtime, BlockingStartedAt: &late,
				Concurrency: Concurrency{Observed: true, Min: 1, Max: 1}},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.task.RawBlockingTime(); got != tt.want {
				t.Errorf("RawBlockingTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTask_Name(t *testing.T) {
	tests := []struct {
		description string
		want        string
	}{
		{"OK created sql view model proj.a .......... ", "proj.a"},
		{"START sql table model analytics.orders ....", "analytics.orders"},
		{"single", "single"},
		{"", ""},
		{"....", ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			task := Task{Description: tt.description}
			if got := task.Name(); got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.description, got, tt.want)
			}
		})
	}
}

func TestFormatClock(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00:00.00"},
		{5, "00:00:05.00"},
		{5.29, "00:00:05.29"},
		{90, "00:01:30.00"},
		{3725.5, "01:02:05.50"},
		{90000, "25:00:00.00"},
		{-3, "00:00:00.00"},
		{math.Inf(1), "00:00:00.00"},
		{math.NaN(), "00:00:00.00"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatClock(tt.seconds); got != tt.want {
				t.Errorf("FormatClock(%v) = %q, want %q", tt.seconds, got, tt.want)
			}
		})
	}
}
