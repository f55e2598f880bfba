// Package exec runs the upstream command whose log dbtmon displays.
package exec

import (
	"context"
	"io"
)

// CommandRunner defines the interface for running external commands.
// This abstraction allows mocking command execution in tests.
type CommandRunner interface {
	// Stream runs name with args, copying its stdout to stdout as it is
	// produced. Stderr is discarded. The exit code of the command is
	// returned; err is set only when the command could not be run at all.
	Stream(ctx context.Context, workDir string, stdout io.Writer, name string, args ...string) (exitCode int, err error)

	// LookPath reports the resolved path of name.
	LookPath(name string) (string, error)
}
