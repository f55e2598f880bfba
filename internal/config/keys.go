package config

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/pflag"
	"go.yaml.in/yaml/v3"
)

// Kind is the value type of a configuration key.
type Kind int

const (
	KindFloat Kind = iota
	KindInt
	KindBool
	KindString
)

// Key describes one recognized configuration key. The same schema registers
// the command-line flags and validates config files, so a key is accepted in
// a file exactly when it is accepted as --<name>.
type Key struct {
	Name    string
	Kind    Kind
	Default any
	Usage   string
}

// Keys is the configuration schema.
var Keys = []Key{
	{Name: "polling-rate", Kind: KindFloat, Default: 0.2, Usage: "Seconds between redraws while waiting for input"},
	{Name: "minimum-wait", Kind: KindFloat, Default: 0.025, Usage: "Seconds to wait for input before polling starts"},
	{Name: "blocking-threshold", Kind: KindFloat, Default: 60.0, Usage: "Seconds a model must run alone to be reported as blocking"},
	{Name: "width", Kind: KindInt, Default: 0, Usage: "Display width in columns (0 queries the terminal)"},
	{Name: "summary", Kind: KindBool, Default: false, Usage: "Print a run summary after the blocking report"},
	{Name: "diagnostics-on-interrupt", Kind: KindBool, Default: false, Usage: "Run the blocking report when interrupted"},
	{Name: "log-level", Kind: KindString, Default: "warn", Usage: "Log level for diagnostics on stderr"},
	{Name: "log-encoding", Kind: KindString, Default: "console", Usage: "Log encoding: console or json"},
}

// Lookup returns the schema entry for name.
func Lookup(name string) (Key, bool) {
	for _, key := range Keys {
		if key.Name == name {
			return key, true
		}
	}
	return Key{}, false
}

// RegisterFlags adds one flag per schema key to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, key := range Keys {
		switch key.Kind {
		case KindFloat:
			fs.Float64(key.Name, key.Default.(float64), key.Usage)
		case KindInt:
			fs.Int(key.Name, key.Default.(int), key.Usage)
		case KindBool:
			fs.Bool(key.Name, key.Default.(bool), key.Usage)
		case KindString:
			fs.String(key.Name, key.Default.(string), key.Usage)
		}
	}
}

// UnknownKeys returns the top-level keys of the YAML file at path that are
// not in the schema, sorted. A missing file has no unknown keys.
func UnknownKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	var unknown []string
	for name := range raw {
		if _, ok := Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown, nil
}
