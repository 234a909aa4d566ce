// Package css renders the @font-face stylesheet binding one logical font
// family to the produced subset files.
//
// Rendering is deliberately dumb string assembly: rules come in pipeline
// order and are emitted in that order, so the output is byte-for-byte
// deterministic for a given run.
package css

import (
	"fmt"
	"strings"

	"fontslice/internal/ranges"
)

// Rule is one delivery unit's font-face binding.
type Rule struct {
	// Family is the logical font family name shared by every rule.
	Family string

	// File is the subset file reference, relative to the stylesheet.
	File string

	// Format is the container format tag, e.g. "woff2".
	Format string

	// Range restricts the rule to a code point interval. Nil means the rule
	// always applies (the comprehensive case) and no unicode-range line is
	// emitted.
	Range *ranges.Interval
}

// Stylesheet is the ordered sequence of rules produced by one run.
type Stylesheet struct {
	// Header lines are emitted as leading comments.
	Header []string

	Rules []Rule
}

// Render produces the stylesheet text.
func (s *Stylesheet) Render() string {
	var b strings.Builder
	for _, line := range s.Header {
		fmt.Fprintf(&b, "/* %s */\n", line)
	}
	if len(s.Header) > 0 {
		b.WriteString("\n")
	}
	for _, r := range s.Rules {
		b.WriteString("@font-face {\n")
		fmt.Fprintf(&b, "    font-family: '%s';\n", r.Family)
		fmt.Fprintf(&b, "    src: url('./%s') format('%s');\n", r.File, r.Format)
		if r.Range != nil {
			fmt.Fprintf(&b, "    unicode-range: %s;\n", r.Range)
		}
		b.WriteString("    font-display: swap;\n")
		b.WriteString("}\n\n")
	}
	return b.String()
}
