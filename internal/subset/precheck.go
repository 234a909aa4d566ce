package subset

import (
	"context"
	"fmt"
	"time"
)

// precheckTimeout bounds the introspection run; listing tables is cheap.
const precheckTimeout = time.Minute

// Introspector validates a font file by asking the external introspection
// tool (by default ttx) to list its internal tables.
type Introspector struct {
	// Command is the argv prefix of the introspection tool.
	Command []string
}

// NewIntrospector returns an Introspector using the given argv prefix,
// defaulting to ttx when none is given.
func NewIntrospector(command ...string) *Introspector {
	if len(command) == 0 {
		command = []string{"ttx"}
	}
	return &Introspector{Command: command}
}

// Check reports whether the font is well formed enough to list tables.
//
// This is a best-effort pre-check, not a gate: the caller logs a failed check
// as a warning and proceeds with the run.
func (i *Introspector) Check(ctx context.Context, fontPath string) error {
	argv := make([]string, 0, len(i.Command)+2)
	argv = append(argv, i.Command...)
	argv = append(argv, "-l", fontPath)

	out := runTool(ctx, precheckTimeout, argv)
	switch {
	case out.timedOut:
		return fmt.Errorf("font check timed out after %s", precheckTimeout)
	case out.err != nil:
		return fmt.Errorf("font check: %w", out.err)
	case out.exitCode != 0:
		return fmt.Errorf("font check exited with status %d: %s", out.exitCode, out.stderr)
	}
	return nil
}
