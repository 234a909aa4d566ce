// Package ranges defines the named Unicode bucket table used to partition a
// font into delivery units.
//
// It is intentionally split into:
//   - Immutable interval values (Interval): inclusive code point bounds
//   - An ordered, validated bucket table (Table): name -> interval pairs
//
// The table is plain configuration. It is supplied to the pipeline by its
// constructor rather than read from a module-wide constant, so tests can
// substitute a minimal table.
package ranges

import (
	"fmt"
	"sort"
)

// Interval is an inclusive range of Unicode code points.
//
// Lo and Hi are both part of the interval. Intervals are value types and are
// never mutated after construction.
type Interval struct {
	Lo rune
	Hi rune
}

// Contains reports whether r lies within the interval.
func (iv Interval) Contains(r rune) bool {
	return r >= iv.Lo && r <= iv.Hi
}

// Valid reports whether the interval is well formed.
func (iv Interval) Valid() error {
	if iv.Lo < 0 || iv.Hi < 0 {
		return fmt.Errorf("negative code point bound in %q", iv)
	}
	if iv.Lo > iv.Hi {
		return fmt.Errorf("interval lower bound U+%04X above upper bound U+%04X", iv.Lo, iv.Hi)
	}
	return nil
}

// String renders the interval as an uppercase hex unicode-range token,
// e.g. "U+0020-007F". Bounds are inclusive. Code points above U+FFFF render
// with as many digits as needed.
func (iv Interval) String() string {
	return fmt.Sprintf("U+%04X-%04X", iv.Lo, iv.Hi)
}

// Bucket binds a unique human-readable name to an interval.
type Bucket struct {
	Name  string
	Range Interval
}

// Table is an ordered mapping from bucket name to interval.
//
// Invariants enforced at construction:
//   - Names are unique and non-empty.
//   - Every interval is well formed (Lo <= Hi).
//
// Intervals MAY overlap across buckets; each bucket is consumed independently
// by the pipeline, so no invariant forbids it. Iteration order is the
// construction order, which makes downstream output deterministic.
type Table struct {
	buckets []Bucket
	byName  map[string]int
}

// NewTable validates the given buckets and returns a Table preserving their
// order.
func NewTable(buckets []Bucket) (*Table, error) {
	t := &Table{
		buckets: make([]Bucket, len(buckets)),
		byName:  make(map[string]int, len(buckets)),
	}
	copy(t.buckets, buckets)
	for i, b := range t.buckets {
		if b.Name == "" {
			return nil, fmt.Errorf("bucket %d has an empty name", i)
		}
		if _, dup := t.byName[b.Name]; dup {
			return nil, fmt.Errorf("duplicate bucket name %q", b.Name)
		}
		if err := b.Range.Valid(); err != nil {
			return nil, fmt.Errorf("bucket %q: %w", b.Name, err)
		}
		t.byName[b.Name] = i
	}
	return t, nil
}

// Default returns the built-in classification table covering the blocks a
// CJK-plus-Latin web corpus commonly touches.
func Default() *Table {
	t, err := NewTable([]Bucket{
		{Name: "basic_latin", Range: Interval{0x0020, 0x007F}},
		{Name: "latin_extended", Range: Interval{0x00A0, 0x00FF}},
		{Name: "cjk_basic", Range: Interval{0x4E00, 0x9FFF}},
		{Name: "cjk_symbols", Range: Interval{0x3000, 0x303F}},
		{Name: "cjk_radicals", Range: Interval{0x2E80, 0x2EFF}},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(fmt.Sprintf("invalid built-in bucket table: %v", err))
	}
	return t
}

// Len returns the number of buckets.
func (t *Table) Len() int { return len(t.buckets) }

// Buckets returns a copy of the ordered bucket list.
func (t *Table) Buckets() []Bucket {
	out := make([]Bucket, len(t.buckets))
	copy(out, t.buckets)
	return out
}

// Lookup returns the bucket with the given name.
func (t *Table) Lookup(name string) (Bucket, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Bucket{}, false
	}
	return t.buckets[i], true
}

// Classify returns the names of every bucket whose interval contains r, in
// table order. The result is empty when no configured interval contains r.
func (t *Table) Classify(r rune) []string {
	var names []string
	for _, b := range t.buckets {
		if b.Range.Contains(r) {
			names = append(names, b.Name)
		}
	}
	return names
}

// Names returns the bucket names in table order.
func (t *Table) Names() []string {
	names := make([]string, len(t.buckets))
	for i, b := range t.buckets {
		names[i] = b.Name
	}
	return names
}

// SortedNames returns the bucket names in lexicographic order. Useful for
// stable diagnostic listings independent of table order.
func (t *Table) SortedNames() []string {
	names := t.Names()
	sort.Strings(names)
	return names
}
