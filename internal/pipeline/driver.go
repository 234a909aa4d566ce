// Package pipeline composes scanning, classification, subsetting, and
// stylesheet emission into one synchronous run.
//
// A Driver owns every entity it creates for exactly one run; nothing is
// cached or shared across runs. Jobs execute strictly one at a time, so the
// only shared resource is the output directory, and each job writes a
// distinct file there.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"fontslice/internal/corpus"
	"fontslice/internal/css"
	"fontslice/internal/ranges"
	"fontslice/internal/scan"
	"fontslice/internal/subset"
	"fontslice/internal/trace"
)

// Mode selects the subsetting strategy.
type Mode string

const (
	// ModeComprehensive produces a single subset holding every character
	// observed in the corpus.
	ModeComprehensive Mode = "comprehensive"

	// ModePartitioned produces one subset per configured bucket, covering
	// the bucket's fixed interval regardless of observed usage.
	ModePartitioned Mode = "partitioned"
)

// comprehensiveName is the subset identifier used by ModeComprehensive.
const comprehensiveName = "comprehensive"

var (
	// ErrPreconditionMissing marks a fatal, pre-work failure: the input
	// font or the corpus is absent.
	ErrPreconditionMissing = errors.New("required input missing")

	// ErrCorpusUnreadable marks total read failure of the corpus.
	ErrCorpusUnreadable = errors.New("no corpus file could be read")
)

// Config is the constructor-supplied description of one run.
type Config struct {
	// RunID identifies the run in the summary and trace. Generated when
	// empty.
	RunID string

	// FontPath is the input font container file.
	FontPath string

	// CorpusPatterns are the document paths or glob patterns forming the
	// usage corpus.
	CorpusPatterns []string

	// BaseDir anchors relative corpus patterns.
	BaseDir string

	// OutputDir receives the subset files and the stylesheet. Created if
	// absent.
	OutputDir string

	// Family is the logical font family name used for output naming and
	// the emitted font-face rules.
	Family string

	// Mode selects the strategy.
	Mode Mode

	// Table is the bucket classification table. Defaults to
	// ranges.Default(). Only ModePartitioned creates jobs from it.
	Table *ranges.Table

	// Subsetter runs the jobs. Defaults to the external tool.
	Subsetter subset.Subsetter

	// Introspector pre-checks the input font. Nil skips the check.
	Introspector *subset.Introspector

	// NoHinting and VerboseTool are forwarded to every job.
	NoHinting   bool
	VerboseTool bool

	// RangeTimeout and ComprehensiveTimeout override the per-job ceilings.
	RangeTimeout         time.Duration
	ComprehensiveTimeout time.Duration

	// Report receives the human-readable run report. Defaults to
	// io.Discard.
	Report io.Writer

	// Trace receives pipeline events. Nil discards them.
	Trace trace.Sink
}

// Driver executes one run.
type Driver struct {
	cfg   Config
	state State
}

// NewDriver validates the configuration and applies defaults.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.FontPath == "" {
		return nil, fmt.Errorf("font path is required")
	}
	if len(cfg.CorpusPatterns) == 0 {
		return nil, fmt.Errorf("at least one corpus pattern is required")
	}
	if cfg.OutputDir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if cfg.Family == "" {
		return nil, fmt.Errorf("font family name is required")
	}
	switch cfg.Mode {
	case ModeComprehensive, ModePartitioned:
	default:
		return nil, fmt.Errorf("invalid mode %q", cfg.Mode)
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Table == nil {
		cfg.Table = ranges.Default()
	}
	if cfg.Subsetter == nil {
		cfg.Subsetter = subset.NewTool()
	}
	if cfg.RangeTimeout <= 0 {
		cfg.RangeTimeout = subset.DefaultRangeTimeout
	}
	if cfg.ComprehensiveTimeout <= 0 {
		cfg.ComprehensiveTimeout = subset.DefaultComprehensiveTimeout
	}
	if cfg.Report == nil {
		cfg.Report = io.Discard
	}
	return &Driver{cfg: cfg, state: StateIdle}, nil
}

// State returns the driver's current lifecycle state.
func (d *Driver) State() State { return d.state }

// Run executes the pipeline to completion. The returned Summary is always
// non-nil; on a fatal failure its FinalState is FAILED and the error
// describes the precondition that was not met. Per-job subsetting failures
// are not fatal: they land in the summary and the run still reaches DONE.
func (d *Driver) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: d.cfg.RunID, Mode: d.cfg.Mode}

	fail := func(err error) (*Summary, error) {
		_ = d.transition(StateFailed)
		summary.FinalState = StateFailed
		trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventRunFinished, Status: string(StateFailed)})
		return summary, err
	}

	if err := d.transition(StateScanning); err != nil {
		return fail(err)
	}

	// Preconditions: both inputs must exist before any work happens.
	if _, err := os.Stat(d.cfg.FontPath); err != nil {
		return fail(fmt.Errorf("%w: font file %q", ErrPreconditionMissing, d.cfg.FontPath))
	}
	files, err := corpus.NewResolver(d.cfg.BaseDir).Resolve(d.cfg.CorpusPatterns)
	if err != nil {
		return fail(err)
	}
	if len(files) == 0 {
		return fail(fmt.Errorf("%w: no corpus files match %v", ErrPreconditionMissing, d.cfg.CorpusPatterns))
	}
	summary.CorpusFiles = files

	analysis, unreadable := d.scanCorpus(files)
	summary.UnreadableFiles = unreadable
	if len(unreadable) == len(files) {
		return fail(fmt.Errorf("%w: %d file(s)", ErrCorpusUnreadable, len(files)))
	}
	summary.Ideographs = CategoryStat{Distinct: analysis.Ideographs.Len(), Occurrences: analysis.Ideographs.Total()}
	summary.Latin = CategoryStat{Distinct: analysis.Latin.Len(), Occurrences: analysis.Latin.Total()}
	summary.Punctuation = CategoryStat{Distinct: analysis.Punctuation.Len(), Occurrences: analysis.Punctuation.Total()}
	summary.UnionDistinct = analysis.Union.Len()
	trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventScanComplete})
	d.reportScan(analysis, unreadable)

	if err := os.MkdirAll(d.cfg.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("creating output directory: %w", err))
	}

	// Best-effort font pre-check; a failure is a warning, never a gate.
	if d.cfg.Introspector != nil {
		if err := d.cfg.Introspector.Check(ctx, d.cfg.FontPath); err != nil {
			fmt.Fprintf(d.cfg.Report, "warning: %v (continuing)\n", err)
			trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventPrecheckWarning, Subject: d.cfg.FontPath})
		}
	}

	if err := d.transition(StateInvoking); err != nil {
		return fail(err)
	}

	jobs := d.buildJobs(analysis)
	summary.Attempted = len(jobs)
	var sheetRules []css.Rule
	for _, j := range jobs {
		trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventJobStarted, Subject: j.job.Name})
		res := d.cfg.Subsetter.Subset(ctx, j.job)
		status := "ok"
		if !res.Ok {
			status = string(res.Kind)
		}
		trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventJobFinished, Subject: j.job.Name, Status: status})

		summary.Outcomes = append(summary.Outcomes, JobOutcome{
			Name:       j.job.Name,
			OutputFile: filepath.Base(j.job.OutputPath),
			Result:     res,
		})
		d.reportJob(j.job, res)

		// Failed buckets are omitted from the stylesheet; the failure
		// stays visible in the summary and report.
		if res.Ok {
			summary.Succeeded++
			sheetRules = append(sheetRules, css.Rule{
				Family: d.cfg.Family,
				File:   filepath.Base(j.job.OutputPath),
				Format: string(subset.FlavorWOFF2),
				Range:  j.rule,
			})
		}
	}

	if err := d.transition(StateEmitting); err != nil {
		return fail(err)
	}

	sheet := &css.Stylesheet{Header: d.stylesheetHeader(), Rules: sheetRules}
	rendered := []byte(sheet.Render())
	sheetPath := filepath.Join(d.cfg.OutputDir, d.stylesheetName())
	if err := os.WriteFile(sheetPath, rendered, 0o644); err != nil {
		return fail(fmt.Errorf("writing stylesheet: %w", err))
	}
	summary.StylesheetPath = sheetPath
	trace.SafeRecord(d.cfg.Trace, trace.Event{
		Kind:        trace.EventStylesheetEmitted,
		Subject:     sheetPath,
		ContentHash: trace.ContentHash(rendered),
	})

	if err := d.transition(StateDone); err != nil {
		return fail(err)
	}
	summary.FinalState = StateDone
	trace.SafeRecord(d.cfg.Trace, trace.Event{Kind: trace.EventRunFinished, Status: string(StateDone)})
	d.reportSummary(summary)
	return summary, nil
}

// scanCorpus analyzes every corpus file, tolerating individual read failures.
func (d *Driver) scanCorpus(files []string) (scan.Analysis, []string) {
	var analyses []scan.Analysis
	var unreadable []string
	for _, f := range files {
		a, err := scan.AnalyzeFile(f)
		if err != nil {
			unreadable = append(unreadable, f)
			fmt.Fprintf(d.cfg.Report, "warning: %v (document skipped)\n", err)
			continue
		}
		analyses = append(analyses, a)
	}
	return scan.Merge(analyses...), unreadable
}

// plannedJob pairs a subset job with the unicode-range its stylesheet rule
// carries (nil for the comprehensive rule).
type plannedJob struct {
	job  subset.Job
	rule *ranges.Interval
}

// buildJobs plans the job list for the configured mode.
//
// Comprehensive: one job over the deduplicated union set. Partitioned: one
// job per bucket over the bucket's fixed interval, whether or not the corpus
// touched it.
func (d *Driver) buildJobs(analysis scan.Analysis) []plannedJob {
	base := subset.Job{
		FontPath:           d.cfg.FontPath,
		Flavor:             subset.FlavorWOFF2,
		KeepLayoutFeatures: true,
		NoHinting:          d.cfg.NoHinting,
		Verbose:            d.cfg.VerboseTool,
	}

	if d.cfg.Mode == ModeComprehensive {
		j := base
		j.Name = comprehensiveName
		j.OutputPath = d.outputPath(comprehensiveName)
		j.Selection = subset.Selection{Chars: analysis.Union}
		j.Timeout = d.cfg.ComprehensiveTimeout
		return []plannedJob{{job: j}}
	}

	buckets := d.cfg.Table.Buckets()
	jobs := make([]plannedJob, 0, len(buckets))
	for _, b := range buckets {
		iv := b.Range
		j := base
		j.Name = b.Name
		j.OutputPath = d.outputPath(b.Name)
		j.Selection = subset.Selection{Range: &iv}
		j.Timeout = d.cfg.RangeTimeout
		jobs = append(jobs, plannedJob{job: j, rule: &iv})
	}
	return jobs
}

// outputPath names a subset file deterministically from the family and
// subset name.
func (d *Driver) outputPath(name string) string {
	return filepath.Join(d.cfg.OutputDir, fmt.Sprintf("%s_%s.woff2", d.cfg.Family, name))
}

func (d *Driver) stylesheetName() string {
	if d.cfg.Mode == ModeComprehensive {
		return "font-comprehensive.css"
	}
	return "font-subset.css"
}

func (d *Driver) stylesheetHeader() []string {
	if d.cfg.Mode == ModeComprehensive {
		return []string{
			"Comprehensive font subset",
			"One file holding every character observed in the corpus",
		}
	}
	return []string{
		"Partitioned font subsets",
		"Generated font loading rules; ranges fetch on demand",
	}
}
