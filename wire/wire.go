// Package wire decodes DCSM binary direct-control messages: the
// sentinel-prefixed, length-validated frame described by the opcode
// table, dispatched straight onto a backend.Interface.
package wire

import (
	"encoding/binary"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/backend"
)

// Sentinel is the framing byte that marks the start of a direct-control
// message on a shared byte stream.
const Sentinel = 0x00

// HeaderSize is the length of the sentinel + opcode + length prefix.
const HeaderSize = 5

// Opcode identifies a direct-control message body layout.
type Opcode uint16

const (
	OpID      Opcode = 0x0001
	OpSetU    Opcode = 0x0002
	OpSetV    Opcode = 0x0003
	OpGetU    Opcode = 0x0004
	OpSetFR   Opcode = 0x0005
	OpGetFR   Opcode = 0x0006
	OpNewMU   Opcode = 0x0007
	OpListMU  Opcode = 0x0008
	OpDelMU   Opcode = 0x0009
	OpSetMU   Opcode = 0x000A
	OpSetMV   Opcode = 0x000B
	OpGetMU   Opcode = 0x000C
	OpClrMU   Opcode = 0x000D
	OpPatch   Opcode = 0x000E
	OpUnpat   Opcode = 0x000F
	OpListP   Opcode = 0x0010
	OpCopy    Opcode = 0x0011
	OpSetUTV  Opcode = 0x0012
	OpSetMTV  Opcode = 0x0013
	OpListU   Opcode = 0x0014
	OpGetA    Opcode = 0x0015
	OpGetMA   Opcode = 0x0016
)

// MessageHeader is the 4-byte opcode+length pair that follows the
// sentinel byte.
type MessageHeader struct {
	Opcode Opcode
	Length uint16
}

// bodyLenFixed requires an exact body length.
func bodyLenFixed(n int) func(int) bool {
	return func(got int) bool { return got == n }
}

var bodyLenRules = map[Opcode]func(int) bool{
	OpID:     func(int) bool { return true },
	OpSetU:   bodyLenFixed(2 + 512),
	OpSetV:   func(n int) bool { return n%5 == 0 },
	OpGetU:   bodyLenFixed(2),
	OpSetFR:  bodyLenFixed(1),
	OpGetFR:  func(int) bool { return true },
	OpNewMU:  bodyLenFixed(2),
	OpListMU: func(int) bool { return true },
	OpDelMU:  bodyLenFixed(2),
	OpSetMU:  bodyLenFixed(2 + 64 + 512),
	OpSetMV:  func(n int) bool { return n >= 6 && (n-2)%4 == 0 },
	OpGetMU:  bodyLenFixed(2),
	OpClrMU:  bodyLenFixed(2),
	OpPatch:  bodyLenFixed(6),
	OpUnpat:  bodyLenFixed(2),
	OpListP:  func(int) bool { return true },
	OpCopy:   bodyLenFixed(4),
	OpSetUTV: bodyLenFixed(2 + 1 + 64),
	OpSetMTV: bodyLenFixed(2 + 1 + 64),
	OpListU:  func(int) bool { return true },
	OpGetA:   func(n int) bool { return n >= 4 && n%4 == 0 },
	OpGetMA:  func(n int) bool { return n >= 4 && n%4 == 0 },
}

// ctx is the fixed CommandContext every direct-control call is made
// with.
var ctx = backend.CommandContext{Mode: backend.DirectControl}

// DecodeMessageBytes reads the sentinel, header and body from a single
// buffer (the "framed_bytes" entry point) and dispatches to iface.
func DecodeMessageBytes(data []byte, iface backend.Interface) backend.Status {
	if len(data) < 1 || data[0] != Sentinel {
		return backend.InvalidHeader
	}
	if len(data) < HeaderSize {
		return backend.InvalidHeader
	}
	header := MessageHeader{
		Opcode: Opcode(binary.LittleEndian.Uint16(data[1:3])),
		Length: binary.LittleEndian.Uint16(data[3:5]),
	}

	if _, known := bodyLenRules[header.Opcode]; !known {
		return backend.InvalidHeader
	}

	rest := data[HeaderSize:]
	if int(header.Length) > len(rest) {
		return backend.InvalidBodySize
	}
	return DecodeMessage(header, rest[:header.Length], iface)
}

// DecodeMessage dispatches an already-framed header and body.
func DecodeMessage(header MessageHeader, body []byte, iface backend.Interface) backend.Status {
	rule, known := bodyLenRules[header.Opcode]
	if !known {
		return backend.InvalidHeader
	}
	if !rule(len(body)) || len(body) != int(header.Length) {
		return backend.InvalidBodySize
	}

	switch header.Opcode {
	case OpID:
		iface.ID(ctx)

	case OpSetU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		var data [512]byte
		copy(data[:], body[2:514])
		iface.SetUniverse(ctx, universe, data)

	case OpSetV:
		var values []backend.AddressValue
		for i := 0; i+5 <= len(body); i += 5 {
			u := addr.UniverseNumber(binary.LittleEndian.Uint16(body[i : i+2]))
			a := addr.LocalAddress(binary.LittleEndian.Uint16(body[i+2 : i+4]))
			v := body[i+4]
			values = append(values, backend.AddressValue{Address: addr.Pack{Universe: u, Local: a}, Value: v})
		}
		iface.SetValues(ctx, values)

	case OpGetU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.GetUniverse(ctx, universe)

	case OpSetFR:
		iface.SetFramerate(ctx, body[0])

	case OpGetFR:
		iface.GetFramerate(ctx)

	case OpNewMU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.NewMask(ctx, universe)

	case OpListMU:
		iface.ListMasks(ctx)

	case OpDelMU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.DeleteMask(ctx, universe)

	case OpSetMU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		var mask [64]byte
		copy(mask[:], body[2:66])
		var data [512]byte
		copy(data[:], body[66:578])
		iface.SetMaskUniverse(ctx, universe, mask, data)

	case OpSetMV:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		var values []backend.MaskedValue
		for i := 2; i+4 <= len(body); i += 4 {
			local := addr.LocalAddress(binary.LittleEndian.Uint16(body[i : i+2]))
			masked := body[i+2] != 0
			v := body[i+3]
			values = append(values, backend.MaskedValue{Local: local, Masked: masked, Value: v})
		}
		iface.SetMaskValues(ctx, universe, values)

	case OpGetMU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.GetMaskUniverse(ctx, universe)

	case OpClrMU:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.ClearMask(ctx, universe)

	case OpPatch:
		in := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		out := addr.UniverseNumber(binary.LittleEndian.Uint16(body[2:4]))
		mask := addr.UniverseNumber(binary.LittleEndian.Uint16(body[4:6]))
		iface.Patch(ctx, in, out, mask)

	case OpUnpat:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		iface.Unpatch(ctx, universe)

	case OpListP:
		iface.ListPatches(ctx)

	case OpCopy:
		// The original reads both source and destination from offset 0,
		// a documented bug: destination must come from offset 2.
		src := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		dst := addr.UniverseNumber(binary.LittleEndian.Uint16(body[2:4]))
		iface.Copy(ctx, src, dst)

	case OpSetUTV:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		v := body[2]
		var mask [64]byte
		copy(mask[:], body[3:67])
		iface.SetUniformTaggedValue(ctx, universe, v, mask)

	case OpSetMTV:
		universe := addr.UniverseNumber(binary.LittleEndian.Uint16(body[0:2]))
		v := body[2]
		var mask [64]byte
		copy(mask[:], body[3:67])
		iface.SetMaskTaggedValue(ctx, universe, v, mask)

	case OpListU:
		iface.ListUniverses(ctx)

	case OpGetA:
		packs := decodeAddressPacks(body)
		iface.GetAddresses(ctx, packs)

	case OpGetMA:
		packs := decodeAddressPacks(body)
		iface.GetMaskedAddresses(ctx, packs)
	}

	return backend.Success
}

func decodeAddressPacks(body []byte) []addr.Pack {
	var packs []addr.Pack
	for i := 0; i+4 <= len(body); i += 4 {
		u := addr.UniverseNumber(binary.LittleEndian.Uint16(body[i : i+2]))
		a := addr.LocalAddress(binary.LittleEndian.Uint16(body[i+2 : i+4]))
		packs = append(packs, addr.Pack{Universe: u, Local: a})
	}
	return packs
}
