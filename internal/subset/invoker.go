package subset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Tool invokes the external subsetting command (by default pyftsubset, the
// fontTools subsetter).
type Tool struct {
	// Command is the argv prefix of the subsetting tool, e.g.
	// {"pyftsubset"} or {"python3", "-m", "fontTools.subset"}.
	Command []string

	// TempDir is where character-list selection files are created.
	// Empty means the system default.
	TempDir string
}

// NewTool returns a Tool using the given argv prefix, defaulting to
// pyftsubset when none is given.
func NewTool(command ...string) *Tool {
	if len(command) == 0 {
		command = []string{"pyftsubset"}
	}
	return &Tool{Command: command}
}

// Subset runs one subsetting job and reports its outcome. All failure paths
// are folded into the Result; an error is never raised past the caller.
//
// Invariants:
//   - The temp file backing character-list selection is removed on every
//     exit path.
//   - Exceeding Timeout yields FailureTimeout, distinct from FailureTool.
//   - A zero exit with a missing/empty output file yields
//     FailureOutputMissing.
func (t *Tool) Subset(ctx context.Context, job Job) Result {
	if err := job.Selection.Validate(); err != nil {
		return Result{Kind: FailureTool, Diagnostic: fmt.Sprintf("invalid job %q: %v", job.Name, err)}
	}

	args := make([]string, 0, len(t.Command)+8)
	args = append(args, t.Command...)
	args = append(args, job.FontPath)

	// Character-list selection goes through a temp file: the explicit set
	// can be far larger than a command line allows.
	if job.Selection.Chars != nil {
		tmp, err := os.CreateTemp(t.TempDir, "fontslice-chars-*.txt")
		if err != nil {
			return Result{Kind: FailureTool, Diagnostic: fmt.Sprintf("creating character list for %q: %v", job.Name, err)}
		}
		defer os.Remove(tmp.Name())
		_, werr := tmp.WriteString(job.Selection.Chars.String())
		cerr := tmp.Close()
		if werr != nil || cerr != nil {
			return Result{Kind: FailureTool, Diagnostic: fmt.Sprintf("writing character list for %q: %v", job.Name, errors.Join(werr, cerr))}
		}
		args = append(args, "--text-file="+tmp.Name())
	} else {
		args = append(args, "--unicodes="+job.Selection.Range.String())
	}

	args = append(args, "--output-file="+job.OutputPath)
	args = append(args, "--flavor="+string(job.Flavor))
	if job.KeepLayoutFeatures {
		args = append(args, "--layout-features=*")
	}
	if job.NoHinting {
		args = append(args, "--no-hinting")
	}
	if job.Verbose {
		args = append(args, "--verbose")
	}

	start := time.Now()
	out := runTool(ctx, job.Timeout, args)
	res := Result{
		Elapsed: time.Since(start),
		Stdout:  out.stdout,
		Stderr:  out.stderr,
	}

	switch {
	case out.timedOut:
		res.Kind = FailureTimeout
		res.Diagnostic = fmt.Sprintf("subset %q exceeded %s ceiling", job.Name, job.Timeout)
		return res
	case out.err != nil:
		res.Kind = FailureTool
		res.Diagnostic = fmt.Sprintf("subset %q: %v", job.Name, out.err)
		return res
	case out.exitCode != 0:
		res.Kind = FailureTool
		res.Diagnostic = fmt.Sprintf("subset %q: tool exited with status %d", job.Name, out.exitCode)
		return res
	}

	// Zero exit is not enough: the output file must exist and be non-empty.
	info, err := os.Stat(job.OutputPath)
	if err != nil || info.Size() == 0 {
		res.Kind = FailureOutputMissing
		res.Diagnostic = fmt.Sprintf("subset %q: tool succeeded but output %q is missing or empty", job.Name, job.OutputPath)
		return res
	}

	res.Ok = true
	res.OutputSize = info.Size()
	return res
}

// toolOutcome is the low-level result of one external process run.
type toolOutcome struct {
	stdout   []byte
	stderr   []byte
	exitCode int
	timedOut bool
	err      error
}

// runTool executes argv with the given wall-clock ceiling, capturing both
// output streams.
//
// The child is placed in its own process group so the ceiling kills the whole
// tree, not just the direct child.
func runTool(ctx context.Context, timeout time.Duration, argv []string) toolOutcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return toolOutcome{err: fmt.Errorf("starting %q: %w", argv[0], err)}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var waitErr error
	select {
	case <-ctx.Done():
		// Ceiling reached: kill the process group (negative pid) and wait
		// for the child to actually exit before returning.
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		<-done
		return toolOutcome{
			stdout:   stdout.Bytes(),
			stderr:   stderr.Bytes(),
			timedOut: true,
		}
	case waitErr = <-done:
	}

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return toolOutcome{
				stdout: stdout.Bytes(),
				stderr: stderr.Bytes(),
				err:    fmt.Errorf("running %q: %w", argv[0], waitErr),
			}
		}
	}

	return toolOutcome{
		stdout:   stdout.Bytes(),
		stderr:   stderr.Bytes(),
		exitCode: exitCode,
	}
}
