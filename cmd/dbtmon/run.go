package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/dbtmon/internal/exec"
	"github.com/ShayCichocki/dbtmon/internal/monitor"
)

var runDBTPath string

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <dbt args...>",
	Short: "Run dbt and monitor its output",
	Long: `Run dbt with the given arguments and monitor its output.

dbt's stderr is discarded. dbtmon exits with dbt's exit status.

Example:
  dbtmon run -- build --select staging`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		runner := exec.NewRunner()
		if _, err := runner.LookPath(runDBTPath); err != nil {
			return fmt.Errorf("%s not found in PATH: %w", runDBTPath, err)
		}

		ctx, cancel := signalContext()
		defer cancel()

		code, err := s.stream(ctx, runner, cmd.OutOrStdout(), runDBTPath, args)
		if err != nil {
			return err
		}
		if code != 0 {
			return &exitError{code: code}
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVar(&runDBTPath, "dbt", "dbt", "dbt executable")
}

// stream runs name with args and monitors its stdout. The command and the
// monitor share one group: either failing stops the other.
func (s *session) stream(ctx context.Context, runner exec.CommandRunner, out io.Writer, name string, args []string) (int, error) {
	width, err := s.width(out)
	if err != nil {
		return 0, err
	}

	pr, pw := io.Pipe()
	g, gctx := errgroup.WithContext(ctx)

	var exitCode int
	g.Go(func() error {
		code, err := runner.Stream(gctx, "", pw, name, args...)
		exitCode = code
		// A nil error closes the pipe with io.EOF, ending the monitor.
		pw.CloseWithError(err)
		return err
	})

	g.Go(func() error {
		defer pr.Close()
		m := monitor.New(monitor.Options{
			Source: monitor.NewReaderSource(pr),
			Out:    out,
			Width:  width,
			Config: s.cfg,
			Logger: s.log.With("command", name),
		})
		_, err := m.Run(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return exitCode, err
	}
	s.log.Debugw("command finished", "command", name, "exit_code", exitCode)
	return exitCode, nil
}
