package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"fontslice/internal/pipeline"
	"fontslice/internal/ranges"
	"fontslice/internal/subset"
	"fontslice/internal/trace"
)

// CLIResult is the semantic outcome of one invocation. The Summary is
// populated whenever the pipeline was reached, including failed runs.
type CLIResult struct {
	ExitCode int
	Summary  *pipeline.Summary
}

// Options are the seams tests use to run the CLI without a real subsetting
// tool or terminal.
type Options struct {
	// Report receives the human-readable run report. Defaults to io.Discard.
	Report io.Writer

	// Subsetter overrides the external tool.
	Subsetter subset.Subsetter

	// Introspector overrides the external introspection tool.
	Introspector *subset.Introspector
}

// Execute runs a canonical invocation, reporting to stdout.
func Execute(ctx context.Context, inv CLIInvocation) (CLIResult, error) {
	return ExecuteWith(ctx, inv, Options{Report: os.Stdout})
}

// ExecuteWith maps a canonical CLIInvocation to one pipeline run.
//
// Responsibilities:
//   - Load the bucket table override, if any.
//   - Open the trace log before the run starts.
//   - Translate pipeline outcomes to semantic exit codes: a run that
//     reaches DONE exits 0 even when individual buckets failed; only
//     missing preconditions and a fully unreadable corpus exit non-zero.
func ExecuteWith(ctx context.Context, inv CLIInvocation, opts Options) (CLIResult, error) {
	res := CLIResult{ExitCode: ExitInternalError}

	table := ranges.Default()
	if inv.RangesPath != "" {
		loaded, err := ranges.Load(inv.RangesPath)
		if err != nil {
			res.ExitCode = ExitConfigError
			return res, err
		}
		table = loaded
	}

	runID := uuid.NewString()

	var sink trace.Sink
	if inv.TracePath != "" {
		f, err := os.Create(inv.TracePath)
		if err != nil {
			res.ExitCode = ExitConfigError
			return res, fmt.Errorf("opening trace output: %w", err)
		}
		defer f.Close()
		sink = trace.NewLog(f, runID)
	}

	subsetter := opts.Subsetter
	if subsetter == nil {
		subsetter = subset.NewTool(inv.SubsetTool...)
	}
	introspector := opts.Introspector
	if introspector == nil && !inv.SkipPrecheck {
		introspector = subset.NewIntrospector(inv.IntrospectTool...)
	}
	if inv.SkipPrecheck {
		introspector = nil
	}
	report := opts.Report
	if report == nil {
		report = io.Discard
	}

	driver, err := pipeline.NewDriver(pipeline.Config{
		RunID:          runID,
		FontPath:       inv.FontPath,
		CorpusPatterns: inv.CorpusPatterns,
		BaseDir:        inv.WorkDir,
		OutputDir:      inv.OutputDir,
		Family:         inv.Family,
		Mode:           inv.Mode,
		Table:          table,
		Subsetter:      subsetter,
		Introspector:   introspector,
		NoHinting:      inv.NoHinting,
		VerboseTool:    inv.VerboseTool,
		Report:         report,
		Trace:          sink,
	})
	if err != nil {
		// The invocation was already validated; a config the driver
		// rejects is a programming error.
		return res, err
	}

	summary, err := driver.Run(ctx)
	res.Summary = summary
	if err != nil {
		res.ExitCode = ExitPipelineFailure
		return res, err
	}
	res.ExitCode = ExitSuccess
	return res, nil
}
