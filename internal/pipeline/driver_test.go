package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fontslice/internal/ranges"
	"fontslice/internal/subset"
	"fontslice/internal/trace"
)

// fakeSubsetter records jobs and answers from a per-name script. Unless a
// name is listed in fail, it writes a fake output file and succeeds.
type fakeSubsetter struct {
	jobs []subset.Job
	fail map[string]subset.FailureKind
}

func (f *fakeSubsetter) Subset(_ context.Context, job subset.Job) subset.Result {
	f.jobs = append(f.jobs, job)
	if kind, bad := f.fail[job.Name]; bad {
		return subset.Result{
			Kind:       kind,
			Stderr:     []byte("fake tool complaint"),
			Diagnostic: "subset " + job.Name + " failed",
		}
	}
	payload := []byte("FAKEWOFF2")
	if err := os.WriteFile(job.OutputPath, payload, 0o644); err != nil {
		return subset.Result{Kind: subset.FailureTool, Diagnostic: err.Error()}
	}
	return subset.Result{Ok: true, OutputSize: int64(len(payload))}
}

// testConfig builds a runnable config over a small two-document corpus.
func testConfig(t *testing.T, mode Mode, fake *fakeSubsetter) Config {
	t.Helper()
	dir := t.TempDir()

	fontPath := filepath.Join(dir, "font.woff2")
	require.NoError(t, os.WriteFile(fontPath, []byte("not a real font"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"),
		[]byte("<html><body>Hello 世界!</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "about.html"),
		[]byte("<p>你好，world</p>"), 0o644))

	return Config{
		FontPath:       fontPath,
		CorpusPatterns: []string{"*.html"},
		BaseDir:        dir,
		OutputDir:      filepath.Join(dir, "font-subsets"),
		Family:         "WebFont",
		Mode:           mode,
		Subsetter:      fake,
		Report:         &bytes.Buffer{},
	}
}

func smallTable(t *testing.T) *ranges.Table {
	t.Helper()
	table, err := ranges.NewTable([]ranges.Bucket{
		{Name: "basic_latin", Range: ranges.Interval{Lo: 0x0020, Hi: 0x007F}},
		{Name: "cjk_basic", Range: ranges.Interval{Lo: 0x4E00, Hi: 0x9FFF}},
	})
	require.NoError(t, err)
	return table
}

func TestComprehensiveRun(t *testing.T) {
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModeComprehensive, fake)

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateDone, summary.FinalState)
	assert.Equal(t, StateDone, d.State())
	require.Len(t, fake.jobs, 1, "comprehensive mode runs exactly one job")

	job := fake.jobs[0]
	assert.Equal(t, "comprehensive", job.Name)
	require.NotNil(t, job.Selection.Chars, "comprehensive selects an explicit character set")
	assert.Nil(t, job.Selection.Range)
	assert.True(t, job.KeepLayoutFeatures)
	assert.Equal(t, subset.DefaultComprehensiveTimeout, job.Timeout)

	// Union across both documents, deduplicated.
	for _, r := range "Helo 世界!你好，wrd" {
		assert.True(t, job.Selection.Chars.Contains(r), "union must contain %q", r)
	}
	assert.Equal(t, job.Selection.Chars.Len(), summary.UnionDistinct)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Attempted)

	sheet, err := os.ReadFile(summary.StylesheetPath)
	require.NoError(t, err)
	assert.Equal(t, "font-comprehensive.css", filepath.Base(summary.StylesheetPath))
	assert.Contains(t, string(sheet), "WebFont_comprehensive.woff2")
	assert.NotContains(t, string(sheet), "unicode-range",
		"comprehensive rule must not carry a unicode-range restriction")
}

func TestPartitionedRun(t *testing.T) {
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModePartitioned, fake)
	cfg.Table = smallTable(t)

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, fake.jobs, 2, "one job per configured bucket")
	assert.Equal(t, "basic_latin", fake.jobs[0].Name, "jobs follow table order")
	assert.Equal(t, "cjk_basic", fake.jobs[1].Name)
	for _, job := range fake.jobs {
		assert.NotNil(t, job.Selection.Range, "partitioned jobs select by interval")
		assert.Nil(t, job.Selection.Chars)
		assert.Equal(t, subset.DefaultRangeTimeout, job.Timeout)
	}

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 2, summary.Attempted)

	sheet, err := os.ReadFile(summary.StylesheetPath)
	require.NoError(t, err)
	assert.Equal(t, "font-subset.css", filepath.Base(summary.StylesheetPath))
	assert.Contains(t, string(sheet), "unicode-range: U+0020-007F;")
	assert.Contains(t, string(sheet), "unicode-range: U+4E00-9FFF;")
}

// TestPartitionedBucketFailureContinues pins the core failure policy: a
// failed bucket is skipped in the stylesheet but the run continues, reaches
// DONE, and reports the failure in the summary.
func TestPartitionedBucketFailureContinues(t *testing.T) {
	fake := &fakeSubsetter{fail: map[string]subset.FailureKind{"cjk_basic": subset.FailureTimeout}}
	cfg := testConfig(t, ModePartitioned, fake)
	cfg.Table = smallTable(t)
	report := &bytes.Buffer{}
	cfg.Report = report

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())
	require.NoError(t, err, "per-job failure must not fail the run")

	assert.Equal(t, StateDone, summary.FinalState)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, []string{"cjk_basic"}, summary.FailedJobs())

	require.Len(t, summary.Outcomes, 2)
	assert.Equal(t, subset.FailureTimeout, summary.Outcomes[1].Result.Kind)

	sheet, err := os.ReadFile(summary.StylesheetPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(sheet), "@font-face"),
		"exactly one rule for the one successful bucket")
	assert.Contains(t, string(sheet), "basic_latin")
	assert.NotContains(t, string(sheet), "cjk_basic")

	out := report.String()
	assert.Contains(t, out, "1/2 subset(s) succeeded")
	assert.Contains(t, out, "fake tool complaint", "tool stderr is reported verbatim")
}

func TestMissingFontIsFatal(t *testing.T) {
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModeComprehensive, fake)
	cfg.FontPath = filepath.Join(t.TempDir(), "absent.woff2")

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())

	require.ErrorIs(t, err, ErrPreconditionMissing)
	assert.Equal(t, StateFailed, summary.FinalState)
	assert.Empty(t, fake.jobs, "no subsetting may be attempted")
}

func TestEmptyCorpusIsFatal(t *testing.T) {
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModeComprehensive, fake)
	cfg.CorpusPatterns = []string{"nothing-here-*.html"}

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())

	require.ErrorIs(t, err, ErrPreconditionMissing)
	assert.Equal(t, StateFailed, summary.FinalState)
	assert.Empty(t, fake.jobs)
}

func TestUnreadableDocumentSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("file permissions do not block root")
	}
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModeComprehensive, fake)
	blocked := filepath.Join(cfg.BaseDir, "blocked.html")
	require.NoError(t, os.WriteFile(blocked, []byte("<p>秘密</p>"), 0o000))

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	summary, err := d.Run(context.Background())
	require.NoError(t, err, "one unreadable document must not abort the run")

	assert.Equal(t, []string{filepath.ToSlash(blocked)}, summary.UnreadableFiles)
	require.Len(t, fake.jobs, 1)
	assert.False(t, fake.jobs[0].Selection.Chars.Contains('秘'),
		"unreadable document contributes nothing")
}

func TestOutputDirCreated(t *testing.T) {
	fake := &fakeSubsetter{}
	cfg := testConfig(t, ModeComprehensive, fake)
	cfg.OutputDir = filepath.Join(cfg.OutputDir, "deep", "nested")

	_, statErr := os.Stat(cfg.OutputDir)
	require.True(t, os.IsNotExist(statErr))

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	info, err := os.Stat(cfg.OutputDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestTraceEvents(t *testing.T) {
	fake := &fakeSubsetter{fail: map[string]subset.FailureKind{"cjk_basic": subset.FailureTool}}
	cfg := testConfig(t, ModePartitioned, fake)
	cfg.Table = smallTable(t)

	rec := &recordingSink{}
	cfg.Trace = rec

	d, err := NewDriver(cfg)
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rec.events, 7)
	var got []string
	for _, e := range rec.events {
		got = append(got, string(e.Kind)+"/"+e.Subject+"/"+e.Status)
	}
	want := []string{
		"ScanComplete//",
		"JobStarted/basic_latin/",
		"JobFinished/basic_latin/ok",
		"JobStarted/cjk_basic/",
		"JobFinished/cjk_basic/tool-failure",
		"StylesheetEmitted/" + rec.events[5].Subject + "/",
		"RunFinished//DONE",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("trace event mismatch (-want +got):\n%s", diff)
	}
	assert.NotEmpty(t, rec.events[5].ContentHash, "emit event carries the stylesheet hash")
}

type recordingSink struct{ events []trace.Event }

func (r *recordingSink) Record(e trace.Event) { r.events = append(r.events, e) }

func TestNewDriverValidation(t *testing.T) {
	base := Config{
		FontPath:       "f.woff2",
		CorpusPatterns: []string{"*.html"},
		OutputDir:      "out",
		Family:         "F",
		Mode:           ModeComprehensive,
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing font", func(c *Config) { c.FontPath = "" }},
		{"missing corpus", func(c *Config) { c.CorpusPatterns = nil }},
		{"missing output dir", func(c *Config) { c.OutputDir = "" }},
		{"missing family", func(c *Config) { c.Family = "" }},
		{"bad mode", func(c *Config) { c.Mode = "eager" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			_, err := NewDriver(cfg)
			assert.Error(t, err)
		})
	}

	d, err := NewDriver(base)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, d.State())
	assert.NotEmpty(t, d.cfg.RunID, "run id is generated when absent")
	assert.NotNil(t, d.cfg.Table, "bucket table defaults")
}

func TestStateMachineTransitions(t *testing.T) {
	assert.True(t, isAllowedTransition(StateIdle, StateScanning))
	assert.True(t, isAllowedTransition(StateScanning, StateInvoking))
	assert.True(t, isAllowedTransition(StateInvoking, StateEmitting))
	assert.True(t, isAllowedTransition(StateEmitting, StateDone))

	assert.True(t, isAllowedTransition(StateIdle, StateFailed))
	assert.True(t, isAllowedTransition(StateEmitting, StateFailed))
	assert.False(t, isAllowedTransition(StateDone, StateFailed), "terminal states are final")
	assert.False(t, isAllowedTransition(StateFailed, StateFailed))

	assert.False(t, isAllowedTransition(StateIdle, StateInvoking), "no skipping stages")
	assert.False(t, isAllowedTransition(StateDone, StateScanning))
}
