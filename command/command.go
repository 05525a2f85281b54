// Package command decodes DCSM text commands: a line of the form
// "name rest", tokenized and dispatched to one of fifteen handlers,
// calling through to rangeexpr/value/addr as needed.
package command

import (
	"strconv"
	"strings"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/backend"
	"github.com/patchworks/dcsm/bitmask"
	"github.com/patchworks/dcsm/rangeexpr"
	"github.com/patchworks/dcsm/value"
)

// maxAddresses caps the number of AddressPacks a single get/mget call
// collects before stopping.
const maxAddresses = 100

var ctx = backend.CommandContext{Mode: backend.CommandLine}

type handler func(iface backend.Interface, body string) backend.Status

var handlers = map[string]handler{
	"identify":    handleIdentify,
	"framerate":   handleFramerate,
	"ports":       handlePorts,
	"patches":     handlePatches,
	"masks":       handleMasks,
	"createmask":  handleCreateMask,
	"deletemask":  handleDeleteMask,
	"clearmask":   handleClearMask,
	"unpatch":     handleUnpatch,
	"copy":        handleCopy,
	"patch":       handlePatch,
	"set":         handleSet,
	"mset":        handleMset,
	"get":         handleGet,
	"mget":        handleMget,
}

// Decode tokenizes a text command line and dispatches it to iface.
func Decode(line string, iface backend.Interface) backend.Status {
	name, body := splitCommand(line)
	h, known := handlers[name]
	if !known {
		return backend.MalformedSyntax
	}
	return h(iface, body)
}

func splitCommand(line string) (name, body string) {
	if idx := strings.IndexByte(line, ' '); idx >= 0 {
		return line[:idx], line[idx+1:]
	}
	return line, ""
}

func parseUniverse(s string) (addr.UniverseNumber, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, false
	}
	return addr.UniverseNumber(n), true
}

func handleIdentify(iface backend.Interface, _ string) backend.Status {
	iface.ID(ctx)
	return backend.Success
}

func handleFramerate(iface backend.Interface, body string) backend.Status {
	body = strings.TrimSpace(body)
	if body == "" {
		iface.GetFramerate(ctx)
		return backend.Success
	}
	n, err := strconv.ParseUint(body, 10, 8)
	if err != nil {
		return backend.MalformedSyntax
	}
	iface.SetFramerate(ctx, byte(n))
	return backend.Success
}

func handlePorts(iface backend.Interface, _ string) backend.Status {
	iface.ListUniverses(ctx)
	return backend.Success
}

func handlePatches(iface backend.Interface, _ string) backend.Status {
	iface.ListPatches(ctx)
	return backend.Success
}

func handleMasks(iface backend.Interface, _ string) backend.Status {
	iface.ListMasks(ctx)
	return backend.Success
}

func handleCreateMask(iface backend.Interface, body string) backend.Status {
	u, ok := parseUniverse(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.NewMask(ctx, u)
	return backend.Success
}

func handleDeleteMask(iface backend.Interface, body string) backend.Status {
	u, ok := parseUniverse(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.DeleteMask(ctx, u)
	return backend.Success
}

func handleClearMask(iface backend.Interface, body string) backend.Status {
	u, ok := parseUniverse(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.ClearMask(ctx, u)
	return backend.Success
}

func handleUnpatch(iface backend.Interface, body string) backend.Status {
	u, ok := parseUniverse(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.Unpatch(ctx, u)
	return backend.Success
}

// handleCopy finds the separating "to" by scanning for the first 't'
// followed by 'o', the same restriction the original scanner has: a
// bare "thru" token in these two arguments is never expected, so this
// never needs to distinguish it from a real "to".
func handleCopy(iface backend.Interface, body string) backend.Status {
	toIdx := findTo(body)
	if toIdx < 0 {
		return backend.MalformedSyntax
	}
	src, ok1 := parseUniverse(body[:toIdx])
	dst, ok2 := parseUniverse(body[toIdx+2:])
	if !ok1 || !ok2 {
		return backend.MalformedSyntax
	}
	iface.Copy(ctx, src, dst)
	return backend.Success
}

func handlePatch(iface backend.Interface, body string) backend.Status {
	toIdx := findTo(body)
	if toIdx < 0 {
		return backend.MalformedSyntax
	}
	in, ok := parseUniverse(body[:toIdx])
	if !ok {
		return backend.MalformedSyntax
	}

	rest := body[toIdx+2:]
	var outStr string
	var mask addr.UniverseNumber

	maskIdx := strings.IndexByte(rest, 'm')
	if maskIdx >= 0 {
		if maskIdx+4 > len(rest) || rest[maskIdx:maskIdx+4] != "mask" {
			return backend.MalformedSyntax
		}
		outStr = rest[:maskIdx]
		m, ok := parseUniverse(rest[maskIdx+4:])
		if !ok {
			return backend.MalformedSyntax
		}
		mask = m
	} else {
		outStr = rest
	}

	out, ok := parseUniverse(outStr)
	if !ok {
		return backend.MalformedSyntax
	}

	iface.Patch(ctx, in, out, mask)
	return backend.Success
}

// findTo returns the index of the first 't' in s that is immediately
// followed by 'o', or -1 if none exists.
func findTo(s string) int {
	for i := 0; i < len(s)-1; i++ {
		if s[i] == 't' && s[i+1] == 'o' {
			return i
		}
	}
	return -1
}

func handleSet(iface backend.Interface, body string) backend.Status {
	r, val, ok := parseRangeAndValue(body)
	if !ok {
		return backend.MalformedSyntax
	}
	for _, u := range r.Universes() {
		iface.SetUniformTaggedValue(ctx, u, val, bitmask.Pack(r.Mask(u)))
	}
	return backend.Success
}

func handleMset(iface backend.Interface, body string) backend.Status {
	r, val, ok := parseRangeAndValue(body)
	if !ok {
		return backend.MalformedSyntax
	}
	for _, u := range r.Universes() {
		iface.SetMaskTaggedValue(ctx, u, val, bitmask.Pack(r.Mask(u)))
	}
	return backend.Success
}

func parseRangeAndValue(body string) (rangeexpr.Range, byte, bool) {
	atIdx := strings.IndexByte(body, '@')
	if atIdx < 0 {
		return rangeexpr.Range{}, 0, false
	}
	rangeStr := strings.TrimSpace(body[:atIdx])
	valueStr := strings.TrimSpace(body[atIdx+1:])

	r, err := rangeexpr.Parse(rangeStr)
	if err != nil {
		return rangeexpr.Range{}, 0, false
	}
	v, err := value.Parse(valueStr)
	if err != nil {
		return rangeexpr.Range{}, 0, false
	}
	return r, v, true
}

func handleGet(iface backend.Interface, body string) backend.Status {
	packs, ok := collectAddresses(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.GetAddresses(ctx, packs)
	return backend.Success
}

func handleMget(iface backend.Interface, body string) backend.Status {
	packs, ok := collectAddresses(body)
	if !ok {
		return backend.MalformedSyntax
	}
	iface.GetMaskedAddresses(ctx, packs)
	return backend.Success
}

// collectAddresses walks a parsed range in ascending universe order,
// then ascending local address, collecting up to maxAddresses packs.
func collectAddresses(body string) ([]addr.Pack, bool) {
	r, err := rangeexpr.Parse(strings.TrimSpace(body))
	if err != nil {
		return nil, false
	}

	var packs []addr.Pack
	for _, u := range r.Universes() {
		m := r.Mask(u)
		for i := 0; i < 512; i++ {
			if !m.Test(i) {
				continue
			}
			packs = append(packs, addr.Pack{Universe: u, Local: addr.LocalAddress(i + 1)})
			if len(packs) >= maxAddresses {
				return packs, true
			}
		}
	}
	return packs, true
}
