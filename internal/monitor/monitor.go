// Package monitor drives the display: it reads dbt output one line at a
// time, applies task events to the registry and redraws the live region
// while waiting for the next line.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ShayCichocki/dbtmon/internal/analyzer"
	"github.com/ShayCichocki/dbtmon/internal/config"
	"github.com/ShayCichocki/dbtmon/internal/logger"
	"github.com/ShayCichocki/dbtmon/internal/parser"
	"github.com/ShayCichocki/dbtmon/internal/registry"
	"github.com/ShayCichocki/dbtmon/internal/render"
	"github.com/ShayCichocki/dbtmon/pkg/models"
)

// ErrInterrupted is returned by Run when its context is cancelled before
// the input ends.
var ErrInterrupted = errors.New("interrupted")

// InterruptMessage is printed when the run is cancelled.
const InterruptMessage = "Process terminated by user."

// Options configures a Monitor.
type Options struct {
	// Source supplies the dbt output.
	Source LineSource
	// Out receives the display and the final reports.
	Out io.Writer
	// Width reports the display width. Defaults to the configured width.
	Width render.WidthFunc
	// Config holds the timing and report settings. Defaults if nil.
	Config *config.Config
	// Logger receives diagnostics. Discarded if nil.
	Logger *logger.Logger
	// Now is the clock. Defaults to time.Now.
	Now func() time.Time
}

// Result is the outcome of a completed run.
type Result struct {
	// Archive holds every task that reached a terminal state, in order.
	Archive []*models.Task
	// Blocking lists the models that ran alone past the threshold.
	Blocking []analyzer.BlockingModel
	// Summary is set when summaries are enabled.
	Summary *analyzer.Summary
}

// Monitor owns the registry and renderer for one run. All state is touched
// only from the goroutine calling Run.
type Monitor struct {
	src      LineSource
	out      io.Writer
	cfg      *config.Config
	log      *logger.Logger
	now      func() time.Time
	registry *registry.Registry
	renderer *render.Renderer
}

type lineResult struct {
	line string
	err  error
}

// New creates a Monitor from opts.
func New(opts Options) *Monitor {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	width := opts.Width
	if width == nil {
		width = render.FixedWidth(cfg.Width)
	}

	reg := registry.New()
	return &Monitor{
		src:      opts.Source,
		out:      opts.Out,
		cfg:      cfg,
		log:      log,
		now:      now,
		registry: reg,
		renderer: render.New(opts.Out, reg, width),
	}
}

// Registry exposes the task state for inspection.
func (m *Monitor) Registry() *registry.Registry {
	return m.registry
}

// Run processes the source until it ends or ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) (*Result, error) {
	readCtx, stopReader := context.WithCancel(ctx)
	defer stopReader()

	requests := make(chan struct{})
	lines := make(chan lineResult)
	go m.read(readCtx, requests, lines)

	for {
		select {
		case requests <- struct{}{}:
		case <-ctx.Done():
			return m.interrupted()
		}

		res, err := m.wait(ctx, lines)
		if err != nil {
			return m.interrupted()
		}

		if errors.Is(res.err, io.EOF) {
			return m.report()
		}
		if res.err != nil {
			if ctx.Err() != nil {
				return m.interrupted()
			}
			return nil, fmt.Errorf("read input: %w", res.err)
		}

		if err := m.handle(res.line); err != nil {
			return nil, err
		}
	}
}

// read fetches one line per request so the source is never read ahead of
// the loop.
func (m *Monitor) read(ctx context.Context, requests <-chan struct{}, lines chan<- lineResult) {
	for {
		select {
		case <-requests:
		case <-ctx.Done():
			return
		}

		line, err := m.src.Next(ctx)
		select {
		case lines <- lineResult{line: line, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

// wait blocks for the next line, redrawing running tasks every polling
// interval once the grace period has passed.
func (m *Monitor) wait(ctx context.Context, lines <-chan lineResult) (lineResult, error) {
	grace := time.NewTimer(m.cfg.GraceInterval())
	defer grace.Stop()

	select {
	case res := <-lines:
		return res, nil
	case <-grace.C:
	case <-ctx.Done():
		return lineResult{}, ctx.Err()
	}

	ticker := time.NewTicker(m.cfg.PollingInterval())
	defer ticker.Stop()

	for {
		select {
		case res := <-lines:
			return res, nil
		case <-ticker.C:
			if m.registry.ActiveCount() == 0 {
				continue
			}
			if err := m.renderer.Cycle(m.now()); err != nil {
				m.log.Warnw("redraw failed", "error", err)
			}
		case <-ctx.Done():
			return lineResult{}, ctx.Err()
		}
	}
}

// handle applies one line of input.
func (m *Monitor) handle(line string) error {
	ev, err := parser.Parse(line)
	if err != nil {
		var perr *parser.ParseError
		if errors.As(err, &perr) {
			m.log.Debugw("printing malformed record verbatim",
				"field", perr.Field,
				"reason", perr.Reason,
				"line", perr.Line)
		}
		return m.renderer.Passthrough(line)
	}

	switch ev := ev.(type) {
	case parser.Continuation:
		return m.renderer.Passthrough(ev.Text)
	case parser.PassThrough:
		return m.renderer.Passthrough(ev.Line())
	case parser.Unrecognized:
		m.log.Warnw("unrecognized task status", "status", ev.Status, "timestamp", ev.Timestamp)
		return nil
	}

	now := m.now()
	tr, err := m.registry.Apply(ev, now)
	if err != nil {
		return fmt.Errorf("apply %q: %w", line, err)
	}
	if tr.Replaced != nil {
		m.log.Warnw("task restarted before finishing",
			"id", tr.Replaced.ID,
			"previous", tr.Replaced.Description,
			"description", tr.Task.Description)
	}
	m.log.Debugw("task transition",
		"id", tr.Task.ID,
		"status", tr.Task.Status,
		"archived", tr.Archived)

	return m.renderer.Cycle(now)
}

func (m *Monitor) interrupted() (*Result, error) {
	if _, err := fmt.Fprintln(m.out, InterruptMessage); err != nil {
		return nil, err
	}
	if !m.cfg.DiagnosticsOnInterrupt {
		return &Result{Archive: m.registry.Archive()}, ErrInterrupted
	}
	res, err := m.report()
	if err != nil {
		return nil, err
	}
	return res, ErrInterrupted
}

// report runs the blocking analysis and writes the reports.
func (m *Monitor) report() (*Result, error) {
	archive := m.registry.Archive()
	res := &Result{
		Archive:  archive,
		Blocking: analyzer.Analyze(archive, m.cfg.Threshold()),
	}
	if err := analyzer.Report(m.out, res.Blocking); err != nil {
		return nil, fmt.Errorf("write blocking report: %w", err)
	}

	if m.cfg.Summary {
		summary := analyzer.Summarize(archive)
		res.Summary = &summary
		if _, err := fmt.Fprintln(m.out, summary.String()); err != nil {
			return nil, fmt.Errorf("write summary: %w", err)
		}
	}

	m.log.Debugw("run complete", "tasks", len(archive), "blocking", len(res.Blocking))
	return res, nil
}
