package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/ShayCichocki/dbtmon/internal/config"
	"github.com/ShayCichocki/dbtmon/internal/exec"
	"github.com/ShayCichocki/dbtmon/internal/logger"
	"github.com/ShayCichocki/dbtmon/internal/monitor"
	"github.com/ShayCichocki/dbtmon/internal/registry"
	"github.com/ShayCichocki/dbtmon/internal/render"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func testSession(width int) *session {
	cfg := config.Default()
	cfg.Width = width
	return &session{cfg: cfg, log: logger.Nop()}
}

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"upstream status", &exitError{code: 3}, 3},
		{"wrapped upstream status", fmt.Errorf("run: %w", &exitError{code: 2}), 2},
		{"interrupted", monitor.ErrInterrupted, exitInterrupted},
		{"unknown task", fmt.Errorf("apply: %w", &registry.UnknownTaskError{ID: 7}), 1},
		{"other", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCodeFor(tt.err); got != tt.expected {
				t.Errorf("exitCodeFor(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestSessionWidth(t *testing.T) {
	width, err := testSession(100).width(&bytes.Buffer{})
	if err != nil {
		t.Fatalf("fixed width should not need a terminal: %v", err)
	}
	if n, _ := width(); n != 100 {
		t.Errorf("expected width 100, got %d", n)
	}

	if _, err := testSession(0).width(&bytes.Buffer{}); !errors.Is(err, render.ErrNoTerminal) {
		t.Errorf("expected ErrNoTerminal, got %v", err)
	}
}

func TestSessionStream(t *testing.T) {
	runner := exec.NewRunner()
	if _, err := runner.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	script := `printf '12:00:00\033[0m1 of 1 START sql view model proj.a [RUN]\n'
printf 'Completed with 1 error\n'
printf '12:00:01\033[0m1 of 1 OK created sql view model proj.a [SUCCESS 1 in 1.00s]\n'
echo oops >&2
exit 3`

	var out bytes.Buffer
	code, err := testSession(80).stream(context.Background(), runner, &out, "sh", []string{"-c", script})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}
	if code != 3 {
		t.Errorf("expected exit code 3, got %d", code)
	}

	got := out.String()
	for _, want := range []string{
		"Completed with 1 error",
		"12:00:01 1 of 1 OK created sql view model proj.a [SUCCESS 1] in 00:00:01.00",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output %q", want, got)
		}
	}
	if strings.Contains(got, "oops") {
		t.Error("stderr must be discarded")
	}
}

func TestSessionStream_UnknownTaskStopsCommand(t *testing.T) {
	runner := exec.NewRunner()
	if _, err := runner.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	script := `printf '12:00:00\033[0m7 of 9 OK created sql view model proj.g [SUCCESS 1 in 1.00s]\n'
exec sleep 5`

	var out bytes.Buffer
	_, err := testSession(80).stream(context.Background(), runner, &out, "sh", []string{"-c", script})
	var unknown *registry.UnknownTaskError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownTaskError, got %v", err)
	}
}

func TestConfigCommand(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	path := filepath.Join(t.TempDir(), "dbtmon.yml")
	if err := os.WriteFile(path, []byte("width: 100\nthreads: 4\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"config", "--config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"polling-rate: 0.2\n",
		"width: 100\n",
		"user: " + path + "\n",
		"project: (none)\n",
		`unknown key "threads"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in output %q", want, got)
		}
	}

	out.Reset()
	rootCmd.SetArgs([]string{"config", "--config", path, "width"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config width failed: %v", err)
	}
	if out.String() != "100\n" {
		t.Errorf("expected %q, got %q", "100\n", out.String())
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out.String(), "dbtmon version ") {
		t.Errorf("unexpected output %q", out.String())
	}
}
