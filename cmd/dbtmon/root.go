package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/dbtmon/internal/config"
	"github.com/ShayCichocki/dbtmon/internal/logger"
	"github.com/ShayCichocki/dbtmon/internal/monitor"
	"github.com/ShayCichocki/dbtmon/internal/render"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

var configPath string

var rootCmd = &cobra.Command{
	Use:   "dbtmon",
	Short: "Live progress monitor for dbt runs",
	Long: `dbtmon reads dbt console output and keeps a live view of the models
that are currently running, with elapsed times updated in place.

Pipe dbt into it:

  dbt run | dbtmon

When the run ends, models that ran alone for longer than the blocking
threshold are reported as blocking models.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := signalContext()
		defer cancel()

		return s.monitor(ctx, monitor.NewReaderSource(cmd.InOrStdin()), cmd.OutOrStdout())
	},
}

// exitError carries the status the process should exit with.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// Execute runs the root command
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	code := exitCodeFor(err)
	var exitErr *exitError
	if !errors.As(err, &exitErr) && !errors.Is(err, monitor.ErrInterrupted) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}

// exitCodeFor maps a command error to a process exit status.
func exitCodeFor(err error) int {
	var exitErr *exitError
	switch {
	case err == nil:
		return 0
	case errors.As(err, &exitErr):
		return exitErr.code
	case errors.Is(err, monitor.ErrInterrupted):
		return exitInterrupted
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.UserConfigPath(), "User config file")
	config.RegisterFlags(rootCmd.PersistentFlags())

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// session is the configuration and logger shared by the monitoring commands.
type session struct {
	cfg *config.Config
	log *logger.Logger
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	log = log.With("run", uuid.NewString())

	for _, path := range configFiles() {
		unknown, err := config.UnknownKeys(path)
		if err != nil {
			log.Warnw("could not check config keys", "path", path, "error", err)
			continue
		}
		for _, key := range unknown {
			log.Warnw("unknown config key", "path", path, "key", key)
		}
	}

	return &session{cfg: cfg, log: log}, nil
}

func (s *session) close() {
	_ = s.log.Sync()
}

// monitor runs the display over src until it ends or ctx is cancelled.
func (s *session) monitor(ctx context.Context, src monitor.LineSource, out io.Writer) error {
	width, err := s.width(out)
	if err != nil {
		return err
	}

	m := monitor.New(monitor.Options{
		Source: src,
		Out:    out,
		Width:  width,
		Config: s.cfg,
		Logger: s.log,
	})
	_, err = m.Run(ctx)
	return err
}

// width resolves the display width, failing fast when neither a fixed width
// nor a terminal is available.
func (s *session) width(out io.Writer) (render.WidthFunc, error) {
	if s.cfg.Width > 0 {
		return render.FixedWidth(s.cfg.Width), nil
	}
	f, ok := out.(*os.File)
	if !ok {
		return nil, render.ErrNoTerminal
	}
	width := render.TerminalWidth(f.Fd())
	if _, err := width(); err != nil {
		return nil, err
	}
	return width, nil
}

// configFiles lists the config files that exist, lowest precedence first.
func configFiles() []string {
	var files []string
	if _, err := os.Stat(configPath); err == nil {
		files = append(files, configPath)
	}
	if project := config.ProjectConfigPath(); project != "" {
		files = append(files, project)
	}
	return files
}
