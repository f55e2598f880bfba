package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/dbtmon/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show the effective configuration",
	Long: `Show the configuration dbtmon would run with.

Without arguments, displays every setting and the files it was read from.
With one argument (key), displays the value for that key.

The user config is read from ~/.dbt/dbtmon.yml.
Project-specific overrides can be placed in .dbtmon.yml.
Any key can also be set with a DBTMON_ environment variable or a flag.`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath, cmd.Flags())
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(args) == 1 {
			return displayConfigKey(out, cfg, args[0])
		}
		displayAllConfig(out, cfg)
		displaySources(out)
		return nil
	},
}

// displayAllConfig prints all configuration values in schema order.
func displayAllConfig(w io.Writer, cfg *config.Config) {
	for _, key := range config.Keys {
		value, _ := cfg.Value(key.Name)
		fmt.Fprintf(w, "%s: %v\n", key.Name, value)
	}
}

// displayConfigKey prints a single configuration value.
func displayConfigKey(w io.Writer, cfg *config.Config, name string) error {
	value, ok := cfg.Value(name)
	if !ok {
		return fmt.Errorf("unknown config key: %s", name)
	}
	fmt.Fprintf(w, "%v\n", value)
	return nil
}

// displaySources prints the config files in effect and flags unknown keys.
func displaySources(w io.Writer) {
	warn := color.New(color.FgYellow).SprintFunc()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "sources:")
	fmt.Fprintf(w, "  user: %s%s\n", configPath, missingSuffix(configPath))
	project := config.ProjectConfigPath()
	if project == "" {
		fmt.Fprintf(w, "  project: (none)\n")
	} else {
		fmt.Fprintf(w, "  project: %s\n", project)
	}

	for _, path := range configFiles() {
		unknown, err := config.UnknownKeys(path)
		if err != nil {
			fmt.Fprintf(w, "%s %s: %v\n", warn("warning:"), path, err)
			continue
		}
		for _, key := range unknown {
			fmt.Fprintf(w, "%s unknown key %q in %s\n", warn("warning:"), key, path)
		}
	}
}

func missingSuffix(path string) string {
	if _, err := os.Stat(path); err != nil {
		return " (not found)"
	}
	return ""
}
