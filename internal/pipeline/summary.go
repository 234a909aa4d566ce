package pipeline

import "fontslice/internal/subset"

// CategoryStat is the per-category character tally for one run.
type CategoryStat struct {
	// Distinct is the number of unique code points observed.
	Distinct int

	// Occurrences counts repeats.
	Occurrences int
}

// JobOutcome pairs one subset job with its result.
type JobOutcome struct {
	// Name is the subset identifier (bucket name or "comprehensive").
	Name string

	// OutputFile is the subset file name the job was asked to produce.
	OutputFile string

	Result subset.Result
}

// Summary is the first-class record of one pipeline run. It is returned to
// the caller (not only printed) so calling code and tests can assert on
// exactly which buckets are missing and why.
type Summary struct {
	RunID string
	Mode  Mode

	// Per-category scan statistics over the whole corpus.
	Ideographs  CategoryStat
	Latin       CategoryStat
	Punctuation CategoryStat

	// UnionDistinct is the size of the deduplicated union character set.
	UnionDistinct int

	// CorpusFiles lists the documents that contributed, in resolution order.
	CorpusFiles []string

	// UnreadableFiles lists corpus documents whose read failed. Their
	// contribution is lost but the run continued.
	UnreadableFiles []string

	// Outcomes holds one entry per attempted job, in processing order.
	Outcomes []JobOutcome

	// Succeeded and Attempted give the aggregate job tally.
	Succeeded int
	Attempted int

	// StylesheetPath is where the stylesheet was written, empty if the run
	// failed before emitting.
	StylesheetPath string

	// FinalState is DONE or FAILED.
	FinalState State
}

// FailedJobs returns the names of jobs that did not produce a subset, in
// processing order.
func (s *Summary) FailedJobs() []string {
	var names []string
	for _, o := range s.Outcomes {
		if !o.Result.Ok {
			names = append(names, o.Name)
		}
	}
	return names
}
