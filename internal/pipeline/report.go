package pipeline

import (
	"fmt"

	"fontslice/internal/scan"
	"fontslice/internal/subset"
)

// The report mirrors what an operator watching the run needs: what the scan
// found, how each job went, and the aggregate tally. Failure diagnostics
// reproduce the external tool's streams verbatim.

func (d *Driver) reportScan(a scan.Analysis, unreadable []string) {
	w := d.cfg.Report
	fmt.Fprintf(w, "=== character usage ===\n")
	fmt.Fprintf(w, "ideographs:  %d distinct (%d occurrences)\n", a.Ideographs.Len(), a.Ideographs.Total())
	fmt.Fprintf(w, "latin:       %d distinct (%d occurrences)\n", a.Latin.Len(), a.Latin.Total())
	fmt.Fprintf(w, "punctuation: %d distinct (%d occurrences)\n", a.Punctuation.Len(), a.Punctuation.Total())
	fmt.Fprintf(w, "union:       %d distinct\n", a.Union.Len())
	if len(unreadable) > 0 {
		fmt.Fprintf(w, "skipped %d unreadable document(s)\n", len(unreadable))
	}

	// Listings are sorted (CharacterSet guarantees it) so two runs over the
	// same corpus print identical reports.
	if a.Ideographs.Len() > 0 {
		fmt.Fprintf(w, "\nideographs used (%d):\n%s\n", a.Ideographs.Len(), a.Ideographs)
		fmt.Fprintf(w, "\nmost frequent ideographs:\n")
		for _, rc := range a.Ideographs.MostCommon(20) {
			fmt.Fprintf(w, "  %c: %d\n", rc.Rune, rc.Count)
		}
	}
	fmt.Fprintln(w)
}

func (d *Driver) reportJob(job subset.Job, res subset.Result) {
	w := d.cfg.Report
	if res.Ok {
		fmt.Fprintf(w, "✓ %s: %d bytes in %.2fs -> %s\n", job.Name, res.OutputSize, res.Elapsed.Seconds(), job.OutputPath)
		return
	}
	fmt.Fprintf(w, "✗ %s: %s\n", job.Name, res.Diagnostic)
	if len(res.Stdout) > 0 {
		fmt.Fprintf(w, "--- tool stdout ---\n%s\n", res.Stdout)
	}
	if len(res.Stderr) > 0 {
		fmt.Fprintf(w, "--- tool stderr ---\n%s\n", res.Stderr)
	}
}

func (d *Driver) reportSummary(s *Summary) {
	w := d.cfg.Report
	fmt.Fprintf(w, "\n=== run summary ===\n")
	fmt.Fprintf(w, "%d/%d subset(s) succeeded\n", s.Succeeded, s.Attempted)
	for _, name := range s.FailedJobs() {
		fmt.Fprintf(w, "failed: %s\n", name)
	}
	if s.StylesheetPath != "" {
		fmt.Fprintf(w, "stylesheet: %s\n", s.StylesheetPath)
	}
}
