// Package cli canonicalizes command-line input into a deterministic
// invocation and maps pipeline outcomes to semantic exit codes.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"fontslice/internal/pipeline"
)

const (
	ExitSuccess           = 0
	ExitPipelineFailure   = 1
	ExitInvalidInvocation = 2
	ExitConfigError       = 3
	ExitInternalError     = 4
)

// CLIInvocation is the fully canonicalized, deterministic description of a
// run.
//
// All relative paths are resolved against WorkDir, which must be absolute;
// this removes any dependency on the process working directory.
type CLIInvocation struct {
	WorkDir        string
	FontPath       string
	CorpusPatterns []string
	OutputDir      string
	Family         string
	Mode           pipeline.Mode
	RangesPath     string
	TracePath      string

	// SubsetTool and IntrospectTool are the external command lines, split
	// on whitespace, e.g. "pyftsubset" or "python3 -m fontTools.subset".
	SubsetTool     []string
	IntrospectTool []string

	NoHinting    bool
	VerboseTool  bool
	SkipPrecheck bool
}

// InvocationError carries the semantic exit code for a rejected invocation.
type InvocationError struct {
	ExitCode int
	Message  string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{ExitCode: ExitInvalidInvocation, Message: fmt.Sprintf(format, args...)}
}

// stringList collects a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	if strings.TrimSpace(v) == "" {
		return errors.New("value must not be empty")
	}
	*s = append(*s, v)
	return nil
}

// ParseInvocation parses CLI flags into a canonical CLIInvocation.
//
// It does not read environment variables and does not assume the process
// working directory.
func ParseInvocation(args []string) (CLIInvocation, error) {
	fs := flag.NewFlagSet("fontslice", flag.ContinueOnError)
	fs.SetOutput(io.Discard) // parsing errors are returned, not printed

	var (
		workDir      string
		fontPath     string
		corpus       stringList
		outputDir    string
		family       string
		mode         string
		rangesPath   string
		tracePath    string
		subsetTool   string
		ttxTool      string
		noHinting    bool
		verboseTool  bool
		skipPrecheck bool
	)

	fs.StringVar(&workDir, "workdir", "", "Absolute working directory. Required.")
	fs.StringVar(&fontPath, "font", "", "Input font container file. Required.")
	fs.Var(&corpus, "corpus", "Corpus document path or glob (repeatable). Required.")
	fs.StringVar(&outputDir, "output-dir", "font-subsets", "Directory for subset files and the stylesheet.")
	fs.StringVar(&family, "family", "", "Logical font family name. Required.")
	fs.StringVar(&mode, "mode", string(pipeline.ModeComprehensive), "Strategy: comprehensive|partitioned")
	fs.StringVar(&rangesPath, "ranges", "", "YAML bucket table overriding the built-in one (optional).")
	fs.StringVar(&tracePath, "trace", "", "Trace output path (optional).")
	fs.StringVar(&subsetTool, "subset-tool", "pyftsubset", "Subsetting tool command line.")
	fs.StringVar(&ttxTool, "ttx-tool", "ttx", "Font introspection tool command line.")
	fs.BoolVar(&noHinting, "no-hinting", false, "Drop hinting instructions from subsets.")
	fs.BoolVar(&verboseTool, "verbose-tool", false, "Forward the tool's verbose flag.")
	fs.BoolVar(&skipPrecheck, "skip-precheck", false, "Skip the best-effort font validity check.")

	if err := fs.Parse(args); err != nil {
		return CLIInvocation{}, invalidInvocationf("%v", err)
	}
	if fs.NArg() != 0 {
		return CLIInvocation{}, invalidInvocationf("unexpected positional arguments: %q", strings.Join(fs.Args(), " "))
	}

	workDir = filepath.Clean(workDir)
	if workDir == "" || workDir == "." {
		return CLIInvocation{}, invalidInvocationf("--workdir is required")
	}
	if !filepath.IsAbs(workDir) {
		return CLIInvocation{}, invalidInvocationf("--workdir must be an absolute path (got %q)", workDir)
	}
	if fontPath == "" {
		return CLIInvocation{}, invalidInvocationf("--font is required")
	}
	if len(corpus) == 0 {
		return CLIInvocation{}, invalidInvocationf("at least one --corpus is required")
	}
	if family == "" {
		return CLIInvocation{}, invalidInvocationf("--family is required")
	}

	parsedMode, err := parseMode(mode)
	if err != nil {
		return CLIInvocation{}, err
	}

	subsetArgv := strings.Fields(subsetTool)
	if len(subsetArgv) == 0 {
		return CLIInvocation{}, invalidInvocationf("--subset-tool must not be empty")
	}
	ttxArgv := strings.Fields(ttxTool)
	if len(ttxArgv) == 0 {
		return CLIInvocation{}, invalidInvocationf("--ttx-tool must not be empty")
	}

	inv := CLIInvocation{
		WorkDir:        workDir,
		FontPath:       resolveUnderWorkDir(workDir, fontPath),
		OutputDir:      resolveUnderWorkDir(workDir, outputDir),
		Family:         family,
		Mode:           parsedMode,
		SubsetTool:     subsetArgv,
		IntrospectTool: ttxArgv,
		NoHinting:      noHinting,
		VerboseTool:    verboseTool,
		SkipPrecheck:   skipPrecheck,
	}

	// Corpus patterns stay relative; the resolver anchors them to WorkDir,
	// keeping glob semantics intact.
	inv.CorpusPatterns = append(inv.CorpusPatterns, corpus...)

	if strings.TrimSpace(rangesPath) != "" {
		inv.RangesPath = resolveUnderWorkDir(workDir, rangesPath)
	}
	if strings.TrimSpace(tracePath) != "" {
		inv.TracePath = resolveUnderWorkDir(workDir, tracePath)
	}

	return inv, nil
}

func parseMode(raw string) (pipeline.Mode, error) {
	n := strings.ToLower(strings.TrimSpace(raw))
	switch pipeline.Mode(n) {
	case pipeline.ModeComprehensive, pipeline.ModePartitioned:
		return pipeline.Mode(n), nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected comprehensive|partitioned)", raw)
	}
}

// resolveUnderWorkDir anchors a relative path to the absolute WorkDir.
// Absolute paths are accepted as-is.
func resolveUnderWorkDir(workDir, p string) string {
	clean := filepath.Clean(p)
	if filepath.IsAbs(clean) {
		return clean
	}
	return filepath.Clean(filepath.Join(workDir, clean))
}

// ExitCode extracts a semantic exit code from a ParseInvocation error.
func ExitCode(err error) int {
	var invErr *InvocationError
	if errors.As(err, &invErr) && invErr != nil {
		if invErr.ExitCode != 0 {
			return invErr.ExitCode
		}
		return ExitInvalidInvocation
	}
	if err == nil {
		return ExitSuccess
	}
	return ExitInternalError
}
