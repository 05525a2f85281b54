// Package rangeexpr implements the DCSM address-range expression grammar:
//
//	range      := term ( SP* combinator SP* term )*
//	combinator := '+' | '-'
//	term       := address_spec ( SP+ selector )*
//	address_spec := address | address SP 'thru' SP address
//	address    := DIGIT+ '/' DIGIT+ | DIGIT+
//	selector   := 'even' | 'odd' | 'offset' SP DIGIT+
//
// This is the one component of DCSM with real algorithmic content: a small
// expression evaluator over per-universe 512-bit masks.
package rangeexpr

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/bitmask"
)

// Range is a per-universe selection: universe number -> 512-bit mask. A
// universe with no entry is equivalent to an all-zero mask.
type Range struct {
	masks map[addr.UniverseNumber]bitmask.Mask
}

// New returns an empty range.
func New() Range {
	return Range{masks: map[addr.UniverseNumber]bitmask.Mask{}}
}

// Mask returns the mask for universe u (the zero mask if u is unpopulated).
func (r Range) Mask(u addr.UniverseNumber) bitmask.Mask {
	return r.masks[u]
}

// Universes returns the populated universe numbers (those whose mask has
// at least one bit set) in ascending order, which is the iteration order
// required by the offset selector and by every caller that walks a range
// deterministically (set/mset/get/mget).
func (r Range) Universes() []addr.UniverseNumber {
	out := make([]addr.UniverseNumber, 0, len(r.masks))
	for u, m := range r.masks {
		if m.IsZero() {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Range) ensure() {
	if r.masks == nil {
		r.masks = map[addr.UniverseNumber]bitmask.Mask{}
	}
}

func (r *Range) setBit(u addr.UniverseNumber, bit int) {
	r.ensure()
	m := r.masks[u]
	m.Set(bit)
	r.masks[u] = m
}

// Union returns the bitwise-OR, per universe, of r and other.
func (r Range) Union(other Range) Range {
	out := New()
	for u, m := range r.masks {
		out.masks[u] = m
	}
	for u, m := range other.masks {
		out.masks[u] = out.masks[u].Union(m)
	}
	return out
}

// Subtract returns r with every bit set in other cleared, per universe.
func (r Range) Subtract(other Range) Range {
	out := New()
	for u, m := range r.masks {
		out.masks[u] = m
	}
	for u, m := range other.masks {
		out.masks[u] = out.masks[u].Subtract(m)
	}
	return out
}

func (r *Range) applySelector(mask bitmask.Mask) {
	for u, m := range r.masks {
		r.masks[u] = m.Intersect(mask)
	}
}

// applyOffset keeps the 1st, (N+1)th, (2N+1)th, ... set bit across the
// whole range, walking universes in ascending order and, within a
// universe, bits in ascending index order.
func (r *Range) applyOffset(n int) {
	counter := 0
	for _, u := range r.Universes() {
		m := r.masks[u]
		for i := 0; i < bitmask.Bits; i++ {
			if !m.Test(i) {
				continue
			}
			counter++
			if counter != 1 {
				m.Clear(i)
			}
			if counter == n {
				counter = 0
			}
		}
		r.masks[u] = m
	}
}

// Parse parses a complete address-range expression.
func Parse(s string) (Range, error) {
	type combinator struct {
		index int
		ch    byte
	}

	var combinators []combinator
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '+', '-':
			combinators = append(combinators, combinator{i, s[i]})
		}
	}

	if len(combinators) == 0 {
		return parseTerm(strings.TrimSpace(s))
	}

	result, err := parseTerm(strings.TrimSpace(s[:combinators[0].index]))
	if err != nil {
		return Range{}, err
	}

	for i, c := range combinators {
		start := c.index + 1
		end := len(s)
		if i+1 < len(combinators) {
			end = combinators[i+1].index
		}

		term, err := parseTerm(strings.TrimSpace(s[start:end]))
		if err != nil {
			return Range{}, err
		}

		switch c.ch {
		case '+':
			result = result.Union(term)
		case '-':
			result = result.Subtract(term)
		}
	}

	return result, nil
}

// parseTerm parses a single term: an address or a "thru" range, followed
// by zero or more selectors.
func parseTerm(s string) (Range, error) {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return Range{}, fmt.Errorf("rangeexpr: empty term")
	}

	r := New()
	idx := 0

	if len(tokens) >= 3 && tokens[1] == "thru" {
		start, err := addr.Parse(tokens[0])
		if err != nil {
			return Range{}, fmt.Errorf("rangeexpr: malformed thru range: %w", err)
		}
		end, err := addr.Parse(tokens[2])
		if err != nil {
			return Range{}, fmt.Errorf("rangeexpr: malformed thru range: %w", err)
		}
		r = thruRange(start, end)
		idx = 3
	} else {
		pack, err := addr.Parse(tokens[0])
		if err != nil {
			return Range{}, fmt.Errorf("rangeexpr: malformed address: %w", err)
		}
		r.setBit(pack.Universe, int(pack.Local)-1)
		idx = 1
	}

	for idx < len(tokens) {
		switch tokens[idx] {
		case "even":
			r.applySelector(bitmask.EvenMask)
			idx++
		case "odd":
			r.applySelector(bitmask.OddMask)
			idx++
		case "offset":
			idx++
			if idx >= len(tokens) {
				return Range{}, fmt.Errorf("rangeexpr: offset selector missing count")
			}
			n, err := strconv.Atoi(tokens[idx])
			if err != nil || n < 1 {
				return Range{}, fmt.Errorf("rangeexpr: invalid offset count %q", tokens[idx])
			}
			r.applyOffset(n)
			idx++
		default:
			return Range{}, fmt.Errorf("rangeexpr: unknown selector %q", tokens[idx])
		}
	}

	return r, nil
}

// thruRange builds the inclusive address range from start to end, spanning
// every intervening universe. Per spec, start > end (either across
// universes, or same-universe with start.Local > end.Local) yields an
// empty range rather than an error.
func thruRange(start, end addr.Pack) Range {
	r := New()
	for n := int(start.Universe); n <= int(end.Universe); n++ {
		u := addr.UniverseNumber(n)
		lo := 1
		if u == start.Universe {
			lo = int(start.Local)
		}
		hi := bitmask.Bits
		if u == end.Universe {
			hi = int(end.Local)
		}
		for a := lo; a <= hi; a++ {
			r.setBit(u, a-1)
		}
	}
	return r
}
