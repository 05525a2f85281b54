// Package patch implements the DCSM patch table: an input universe
// feeds data to an output universe, optionally filtered by a mask
// universe. Unlike a general many-to-many remap, DCSM restricts a
// patch to (at most) one active mapping per output universe - a
// second patch to the same output replaces the first, and unpat
// removes it outright.
package patch

import (
	"sort"
	"sync"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/bitmask"
)

// Entry is one row of the patch table.
type Entry struct {
	Input  addr.UniverseNumber
	Output addr.UniverseNumber
	Mask   addr.UniverseNumber // 0 means unmasked
}

// Output is the result of propagating one input universe's data
// through the patch table to a single destination.
type Output struct {
	Universe addr.UniverseNumber
	Data     [512]byte
}

// MaskLookup resolves a mask universe's current bits. ok is false if
// the mask universe has never been created.
type MaskLookup func(universe addr.UniverseNumber) (mask bitmask.Mask, ok bool)

// BufferLookup resolves a destination universe's current buffer
// contents, so a masked patch can retain the prior value on channels
// it does not select.
type BufferLookup func(universe addr.UniverseNumber) [512]byte

// Engine holds the live patch table, keyed by output universe.
type Engine struct {
	mu       sync.Mutex
	byOutput map[addr.UniverseNumber]Entry
	byInput  map[addr.UniverseNumber]map[addr.UniverseNumber]bool // input -> set of outputs
}

// NewEngine returns an empty patch table.
func NewEngine() *Engine {
	return &Engine{
		byOutput: make(map[addr.UniverseNumber]Entry),
		byInput:  make(map[addr.UniverseNumber]map[addr.UniverseNumber]bool),
	}
}

// Patch installs or replaces the patch feeding output.
func (e *Engine) Patch(input, output, mask addr.UniverseNumber) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if old, ok := e.byOutput[output]; ok {
		e.removeFromIndexLocked(old)
	}

	entry := Entry{Input: input, Output: output, Mask: mask}
	e.byOutput[output] = entry

	if e.byInput[input] == nil {
		e.byInput[input] = make(map[addr.UniverseNumber]bool)
	}
	e.byInput[input][output] = true
}

// Unpatch removes the patch feeding output, if any.
func (e *Engine) Unpatch(output addr.UniverseNumber) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.byOutput[output]
	if !ok {
		return
	}
	delete(e.byOutput, output)
	e.removeFromIndexLocked(entry)
}

func (e *Engine) removeFromIndexLocked(entry Entry) {
	outputs := e.byInput[entry.Input]
	delete(outputs, entry.Output)
	if len(outputs) == 0 {
		delete(e.byInput, entry.Input)
	}
}

// List returns every active patch, ordered by output universe.
func (e *Engine) List() []Entry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Entry, 0, len(e.byOutput))
	for _, entry := range e.byOutput {
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Output < out[j].Output })
	return out
}

// Propagate computes the output buffers that result from input
// universe `input` carrying `data`, resolving any mask universes via
// maskLookup and each destination's existing contents via
// currentLookup. A masked patch starts from the destination's prior
// value and only overwrites the channels its mask selects; if the
// mask universe does not exist, the destination is left unchanged
// (nothing passes). The returned outputs are ordered by destination
// universe.
func (e *Engine) Propagate(input addr.UniverseNumber, data [512]byte, maskLookup MaskLookup, currentLookup BufferLookup) []Output {
	e.mu.Lock()
	outputs := make([]addr.UniverseNumber, 0, len(e.byInput[input]))
	for out := range e.byInput[input] {
		outputs = append(outputs, out)
	}
	entries := make(map[addr.UniverseNumber]Entry, len(outputs))
	for _, out := range outputs {
		entries[out] = e.byOutput[out]
	}
	e.mu.Unlock()

	sort.Slice(outputs, func(i, j int) bool { return outputs[i] < outputs[j] })

	results := make([]Output, 0, len(outputs))
	for _, dest := range outputs {
		entry := entries[dest]
		var result Output
		result.Universe = dest

		if entry.Mask == 0 {
			result.Data = data
		} else {
			result.Data = currentLookup(dest)
			if mask, ok := maskLookup(entry.Mask); ok {
				for i := 0; i < 512; i++ {
					if mask.Test(i) {
						result.Data[i] = data[i]
					}
				}
			}
		}

		results = append(results, result)
	}
	return results
}
