package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fontslice/internal/pipeline"
	"fontslice/internal/subset"
)

// stubSubsetter succeeds for every job by writing a fixed payload.
type stubSubsetter struct {
	jobs []subset.Job
}

func (s *stubSubsetter) Subset(_ context.Context, job subset.Job) subset.Result {
	s.jobs = append(s.jobs, job)
	payload := []byte("FAKEWOFF2")
	if err := os.WriteFile(job.OutputPath, payload, 0o644); err != nil {
		return subset.Result{Kind: subset.FailureTool, Diagnostic: err.Error()}
	}
	return subset.Result{Ok: true, OutputSize: int64(len(payload))}
}

func setupWorkDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "font.woff2"), []byte("fake font"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<p>Hi 世界</p>"), 0o644))
	return dir
}

func invocation(t *testing.T, dir string, extra ...string) CLIInvocation {
	t.Helper()
	args := []string{
		"--workdir", dir,
		"--font", "font.woff2",
		"--corpus", "*.html",
		"--family", "WebFont",
		"--skip-precheck",
	}
	inv, err := ParseInvocation(append(args, extra...))
	require.NoError(t, err)
	return inv
}

func TestExecuteComprehensiveSuccess(t *testing.T) {
	dir := setupWorkDir(t)
	stub := &stubSubsetter{}
	report := &bytes.Buffer{}

	res, err := ExecuteWith(context.Background(), invocation(t, dir), Options{
		Report:    report,
		Subsetter: stub,
	})
	require.NoError(t, err)

	assert.Equal(t, ExitSuccess, res.ExitCode)
	require.NotNil(t, res.Summary)
	assert.Equal(t, pipeline.StateDone, res.Summary.FinalState)
	assert.Equal(t, 1, res.Summary.Succeeded)
	assert.FileExists(t, filepath.Join(dir, "font-subsets", "font-comprehensive.css"))
	assert.Contains(t, report.String(), "1/1 subset(s) succeeded")
}

func TestExecutePartitionedWithRangesFile(t *testing.T) {
	dir := setupWorkDir(t)
	rangesYAML := `
- name: basic_latin
  lo: 0x0020
  hi: 0x007F
- name: cjk_basic
  lo: 0x4E00
  hi: 0x9FFF
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ranges.yaml"), []byte(rangesYAML), 0o644))

	stub := &stubSubsetter{}
	inv := invocation(t, dir, "--mode", "partitioned", "--ranges", "ranges.yaml")
	res, err := ExecuteWith(context.Background(), inv, Options{Subsetter: stub})
	require.NoError(t, err)

	assert.Equal(t, ExitSuccess, res.ExitCode)
	require.Len(t, stub.jobs, 2, "jobs come from the supplied table, not the built-in one")
	assert.Equal(t, "basic_latin", stub.jobs[0].Name)
	assert.Equal(t, "cjk_basic", stub.jobs[1].Name)

	sheet, err := os.ReadFile(filepath.Join(dir, "font-subsets", "font-subset.css"))
	require.NoError(t, err)
	assert.Contains(t, string(sheet), "unicode-range: U+4E00-9FFF;")
}

func TestExecuteBadRangesFileIsConfigError(t *testing.T) {
	dir := setupWorkDir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ranges.yaml"), []byte("::bad"), 0o644))

	inv := invocation(t, dir, "--ranges", "ranges.yaml")
	res, err := ExecuteWith(context.Background(), inv, Options{Subsetter: &stubSubsetter{}})

	require.Error(t, err)
	assert.Equal(t, ExitConfigError, res.ExitCode)
}

func TestExecuteMissingFontIsPipelineFailure(t *testing.T) {
	dir := setupWorkDir(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "font.woff2")))

	res, err := ExecuteWith(context.Background(), invocation(t, dir), Options{Subsetter: &stubSubsetter{}})

	require.ErrorIs(t, err, pipeline.ErrPreconditionMissing)
	assert.Equal(t, ExitPipelineFailure, res.ExitCode)
	require.NotNil(t, res.Summary)
	assert.Equal(t, pipeline.StateFailed, res.Summary.FinalState)
}

func TestExecuteWritesTrace(t *testing.T) {
	dir := setupWorkDir(t)
	inv := invocation(t, dir, "--trace", "run.trace")

	_, err := ExecuteWith(context.Background(), inv, Options{Subsetter: &stubSubsetter{}})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "run.trace"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.NotEmpty(t, lines)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "ScanComplete", first["kind"])
	assert.NotEmpty(t, first["runId"])

	var last map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, "RunFinished", last["kind"])
	assert.Equal(t, "DONE", last["status"])
}

func TestRunMapsInvalidInvocation(t *testing.T) {
	res, err := Run(context.Background(), []string{"--font", "x"})
	require.Error(t, err)
	assert.Equal(t, ExitInvalidInvocation, res.ExitCode)
}
