package scan

import "sort"

// RuneCount pairs a code point with its occurrence count.
type RuneCount struct {
	Rune  rune
	Count int
}

// CharacterSet is a deduplicated set of Unicode code points with per-code-point
// occurrence counts.
//
// A CharacterSet is never mutated after the scanner produces it; combining
// sets yields a new set. All listing accessors sort before returning so that
// output derived from a set is deterministic regardless of map iteration
// order.
type CharacterSet struct {
	counts map[rune]int
	total  int
}

func newCharacterSet() *CharacterSet {
	return &CharacterSet{counts: make(map[rune]int)}
}

func (s *CharacterSet) add(r rune) {
	s.counts[r]++
	s.total++
}

// Len returns the number of distinct code points.
func (s *CharacterSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.counts)
}

// Total returns the total number of observed occurrences, counting repeats.
func (s *CharacterSet) Total() int {
	if s == nil {
		return 0
	}
	return s.total
}

// Contains reports whether r is a member of the set.
func (s *CharacterSet) Contains(r rune) bool {
	if s == nil {
		return false
	}
	_, ok := s.counts[r]
	return ok
}

// Count returns the occurrence count for r, or zero if absent.
func (s *CharacterSet) Count(r rune) int {
	if s == nil {
		return 0
	}
	return s.counts[r]
}

// Runes returns the distinct code points in ascending order.
func (s *CharacterSet) Runes() []rune {
	if s == nil {
		return nil
	}
	out := make([]rune, 0, len(s.counts))
	for r := range s.counts {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// String returns the distinct code points concatenated in ascending order.
// This is the form handed to the subsetting tool's text-file selection mode.
func (s *CharacterSet) String() string {
	return string(s.Runes())
}

// MostCommon returns up to n code points ordered by descending count.
// Ties break on ascending code point so the listing is deterministic.
func (s *CharacterSet) MostCommon(n int) []RuneCount {
	if s == nil || n <= 0 {
		return nil
	}
	all := make([]RuneCount, 0, len(s.counts))
	for r, c := range s.counts {
		all = append(all, RuneCount{Rune: r, Count: c})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Count != all[j].Count {
			return all[i].Count > all[j].Count
		}
		return all[i].Rune < all[j].Rune
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Union combines sets into a new set. Occurrence counts are summed.
func Union(sets ...*CharacterSet) *CharacterSet {
	out := newCharacterSet()
	for _, s := range sets {
		if s == nil {
			continue
		}
		for r, c := range s.counts {
			out.counts[r] += c
			out.total += c
		}
	}
	return out
}
