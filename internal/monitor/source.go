package monitor

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"time"
)

// LineSource yields input lines one at a time. Next returns io.EOF once the
// input is exhausted. Trailing newlines are removed.
type LineSource interface {
	Next(ctx context.Context) (string, error)
}

// ReaderSource reads lines from an io.Reader such as stdin. Lines of any
// length are returned whole.
type ReaderSource struct {
	reader *bufio.Reader
}

// NewReaderSource creates a ReaderSource over r.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{reader: bufio.NewReaderSize(r, 64*1024)}
}

// Next blocks until a line is available. A blocked read cannot be
// interrupted; cancellation is observed by the caller.
func (s *ReaderSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	line, err := s.reader.ReadString('\n')
	if err != nil {
		// An unterminated final line is still a line.
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PacedSource delays every line of an underlying source, used to replay a
// captured log at a watchable speed.
type PacedSource struct {
	src   LineSource
	delay time.Duration
}

// NewPacedSource wraps src so each line arrives delay after the previous.
func NewPacedSource(src LineSource, delay time.Duration) *PacedSource {
	return &PacedSource{src: src, delay: delay}
}

func (p *PacedSource) Next(ctx context.Context) (string, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return p.src.Next(ctx)
}

// SliceSource yields a fixed list of lines.
type SliceSource struct {
	lines []string
}

// NewSliceSource creates a source over lines.
func NewSliceSource(lines ...string) *SliceSource {
	return &SliceSource{lines: lines}
}

func (s *SliceSource) Next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.lines) == 0 {
		return "", io.EOF
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

var (
	_ LineSource = (*ReaderSource)(nil)
	_ LineSource = (*PacedSource)(nil)
	_ LineSource = (*SliceSource)(nil)
)
