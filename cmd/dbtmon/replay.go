package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ShayCichocki/dbtmon/internal/monitor"
)

var replayDelay time.Duration

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Replay a captured dbt log",
	Long: `Feed a captured dbt console log through the monitor, pausing between
lines so the live view can be watched.

Capture a log with:
  dbt run > run.log`,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open log: %w", err)
		}
		defer f.Close()

		s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.close()

		ctx, cancel := signalContext()
		defer cancel()

		src := monitor.NewPacedSource(monitor.NewReaderSource(f), replayDelay)
		return s.monitor(ctx, src, cmd.OutOrStdout())
	},
}

func init() {
	replayCmd.Flags().DurationVar(&replayDelay, "delay", 50*time.Millisecond, "Pause between lines")
}
