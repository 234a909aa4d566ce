// Package subset drives the external font subsetting tool.
//
// The package is split into:
//   - Job/Result: the declarative description of one subsetting invocation
//     and its observed outcome
//   - Subsetter: the narrow capability interface the pipeline depends on
//   - Tool: the concrete implementation that shells out
//
// Keeping the interface narrow lets the pipeline's timeout and validation
// semantics be tested against an in-memory fake without process management.
package subset

import (
	"context"
	"fmt"
	"time"

	"fontslice/internal/ranges"
	"fontslice/internal/scan"
)

// Flavor is the output container format passed to the subsetting tool.
type Flavor string

// FlavorWOFF2 is the only delivery format the pipeline produces.
const FlavorWOFF2 Flavor = "woff2"

// Per-job wall-clock ceilings. A whole-corpus job subsets thousands of
// glyphs and is allowed far longer than a single fixed-range job.
const (
	DefaultRangeTimeout         = 5 * time.Minute
	DefaultComprehensiveTimeout = 15 * time.Minute
)

// Selection is the job's character selection criterion: exactly one of an
// explicit character set or a code point interval.
type Selection struct {
	Chars *scan.CharacterSet
	Range *ranges.Interval
}

// Validate checks that exactly one selection mode is set.
func (s Selection) Validate() error {
	switch {
	case s.Chars == nil && s.Range == nil:
		return fmt.Errorf("selection has neither characters nor a range")
	case s.Chars != nil && s.Range != nil:
		return fmt.Errorf("selection has both characters and a range")
	default:
		return nil
	}
}

// Job describes one subsetting invocation. A Job is created by the pipeline,
// consumed once, and discarded.
type Job struct {
	// Name identifies the subset (bucket name or "comprehensive") in
	// diagnostics and the run summary.
	Name string

	// FontPath is the input font container.
	FontPath string

	// OutputPath is where the subset file must be produced.
	OutputPath string

	// Selection picks the characters to retain.
	Selection Selection

	// Flavor is the output container format.
	Flavor Flavor

	// KeepLayoutFeatures retains all OpenType layout features so ligatures
	// and shaping are not silently dropped for the retained characters.
	KeepLayoutFeatures bool

	// NoHinting drops hinting instructions from the output.
	NoHinting bool

	// Verbose forwards the tool's verbose flag.
	Verbose bool

	// Timeout is the hard wall-clock ceiling for the invocation.
	Timeout time.Duration
}

// FailureKind classifies why a job did not produce a usable subset.
type FailureKind string

const (
	// FailureNone marks a successful job.
	FailureNone FailureKind = ""

	// FailureTool is a non-zero exit status from the external tool.
	FailureTool FailureKind = "tool-failure"

	// FailureTimeout is an invocation killed at its wall-clock ceiling.
	FailureTimeout FailureKind = "timeout"

	// FailureOutputMissing is a zero exit status with a missing or empty
	// output file. It is handled like a tool failure downstream.
	FailureOutputMissing FailureKind = "output-missing"
)

// Result is the outcome of one Job.
//
// Stdout and Stderr hold the external tool's streams verbatim so the operator
// can reproduce and debug the tool's complaint directly; the invoker never
// interprets them.
type Result struct {
	Ok         bool
	Kind       FailureKind
	OutputSize int64
	Elapsed    time.Duration
	Stdout     []byte
	Stderr     []byte

	// Diagnostic is a one-line human-readable failure description.
	Diagnostic string
}

// Subsetter is the capability the pipeline depends on: run one job, report
// one result. Failures are reported in the Result, never as a panic.
type Subsetter interface {
	Subset(ctx context.Context, job Job) Result
}
