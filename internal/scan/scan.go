// Package scan analyzes markup-bearing text and reports which characters a
// browser would actually render, classified into the three coarse categories
// the subsetting pipeline works with: ideographs, Latin/printable ASCII, and
// full-width CJK punctuation.
//
// Analysis is a pure function over the input text. The three matchers are
// independent and deliberately not assumed to be mutually exclusive; the
// usable character set is the union of all matcher outputs.
package scan

import (
	"fmt"
	"os"
	"regexp"
	"unicode"

	"golang.org/x/text/unicode/rangetable"
)

// markupPattern matches angle-bracket delimited tag fragments. Stripping is a
// heuristic, not a parser: malformed markup may leave stray fragments behind
// (fails open) rather than swallowing visible text.
var markupPattern = regexp.MustCompile(`<[^>]*>`)

// StripMarkup removes every angle-bracket delimited substring from s.
// Stripping is idempotent: stripping a stripped string is a no-op.
func StripMarkup(s string) string {
	return markupPattern.ReplaceAllString(s, "")
}

// ideographs covers the CJK unified blocks and their extensions, the
// compatibility ideographs, and the CJK-squared symbol block.
var ideographs = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x3300, Hi: 0x33FF, Stride: 1}, // CJK Compatibility (squared symbols)
		{Lo: 0x3400, Hi: 0x4DBF, Stride: 1}, // Extension A
		{Lo: 0x4E00, Hi: 0x9FFF, Stride: 1}, // CJK Unified Ideographs
		{Lo: 0xF900, Hi: 0xFAFF, Stride: 1}, // Compatibility Ideographs
	},
	R32: []unicode.Range32{
		{Lo: 0x20000, Hi: 0x2A6DF, Stride: 1}, // Extension B
		{Lo: 0x2A700, Hi: 0x2B73F, Stride: 1}, // Extension C
		{Lo: 0x2B740, Hi: 0x2B81F, Stride: 1}, // Extension D
		{Lo: 0x2B820, Hi: 0x2CEAF, Stride: 1}, // Extension E
		{Lo: 0x2CEB0, Hi: 0x2EBEF, Stride: 1}, // Extension F
		{Lo: 0x30000, Hi: 0x3134F, Stride: 1}, // Extension G
		{Lo: 0x31350, Hi: 0x323AF, Stride: 1}, // Extension H
	},
}

// latin covers letters, digits, whitespace, and the fixed allow-list of ASCII
// punctuation a web page routinely renders.
var latin = rangetable.Merge(
	&unicode.RangeTable{
		R16: []unicode.Range16{
			{Lo: '0', Hi: '9', Stride: 1},
			{Lo: 'A', Hi: 'Z', Stride: 1},
			{Lo: 'a', Hi: 'z', Stride: 1},
		},
		LatinOffset: 3,
	},
	unicode.White_Space,
	rangetable.New([]rune("!\"#$%&'()*+,-./:;=?@[\\]^`{|}~")...),
)

// cjkPunctuation is the fixed allow-list of full-width punctuation and shape
// code points observed in CJK web text.
var cjkPunctuation = rangetable.New([]rune(
	"，。！？；：（）【】「」『』—…·《》〈〉〖〗〓" +
		"□■●◆◇○◎△▲※→←↑↓↖↗↘↙")...)

// IsIdeograph reports whether r is an ideographic character.
func IsIdeograph(r rune) bool { return unicode.Is(ideographs, r) }

// IsLatin reports whether r is in the Latin/printable-ASCII allow-list.
func IsLatin(r rune) bool { return unicode.Is(latin, r) }

// IsCJKPunctuation reports whether r is in the full-width punctuation allow-list.
func IsCJKPunctuation(r rune) bool { return unicode.Is(cjkPunctuation, r) }

// Analysis is the scanner's result: one CharacterSet per category plus their
// union. Each set carries occurrence counts for the run report.
type Analysis struct {
	Ideographs  *CharacterSet
	Latin       *CharacterSet
	Punctuation *CharacterSet

	// Union is the deduplicated union of all three matcher outputs. It is
	// the character set the comprehensive subsetting strategy consumes.
	Union *CharacterSet
}

// Analyze strips markup from the document and classifies every remaining
// character. It is a pure function: no I/O, no shared state.
func Analyze(markup string) Analysis {
	text := StripMarkup(markup)

	a := Analysis{
		Ideographs:  newCharacterSet(),
		Latin:       newCharacterSet(),
		Punctuation: newCharacterSet(),
	}
	for _, r := range text {
		if IsIdeograph(r) {
			a.Ideographs.add(r)
		}
		if IsLatin(r) {
			a.Latin.add(r)
		}
		if IsCJKPunctuation(r) {
			a.Punctuation.add(r)
		}
	}
	a.Union = Union(a.Ideographs, a.Latin, a.Punctuation)
	return a
}

// Merge combines per-document analyses into a corpus-wide one.
func Merge(analyses ...Analysis) Analysis {
	out := Analysis{
		Ideographs:  newCharacterSet(),
		Latin:       newCharacterSet(),
		Punctuation: newCharacterSet(),
	}
	ideo := make([]*CharacterSet, 0, len(analyses))
	lat := make([]*CharacterSet, 0, len(analyses))
	punct := make([]*CharacterSet, 0, len(analyses))
	for _, a := range analyses {
		ideo = append(ideo, a.Ideographs)
		lat = append(lat, a.Latin)
		punct = append(punct, a.Punctuation)
	}
	out.Ideographs = Union(ideo...)
	out.Latin = Union(lat...)
	out.Punctuation = Union(punct...)
	out.Union = Union(out.Ideographs, out.Latin, out.Punctuation)
	return out
}

// ReadError reports that a corpus document could not be read. The scanner
// returns it alongside an empty Analysis; the caller decides whether losing
// this document's contribution aborts the run.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("reading corpus file %q: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// AnalyzeFile reads and analyzes one corpus document. On a read failure it
// returns an empty Analysis and a *ReadError; it never panics past the caller.
func AnalyzeFile(path string) (Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Analyze(""), &ReadError{Path: path, Err: err}
	}
	return Analyze(string(data)), nil
}
