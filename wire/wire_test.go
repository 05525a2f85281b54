package wire

import (
	"encoding/binary"
	"testing"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/backend"
)

type recorder struct {
	backend.NoopInterface
	patchArgs []addr.UniverseNumber
	copyArgs  []addr.UniverseNumber
	calls     int
}

func (r *recorder) Patch(_ backend.CommandContext, in, out, mask addr.UniverseNumber) {
	r.patchArgs = []addr.UniverseNumber{in, out, mask}
	r.calls++
}

func (r *recorder) Copy(_ backend.CommandContext, src, dst addr.UniverseNumber) {
	r.copyArgs = []addr.UniverseNumber{src, dst}
	r.calls++
}

// S8: sentinel 0x00, opcode 0x000E, length 6, body 01 00 02 00 03 00.
func TestPatchMessage(t *testing.T) {
	data := []byte{0x00, 0x0E, 0x00, 0x06, 0x00, 0x01, 0x00, 0x02, 0x00, 0x03, 0x00}
	r := &recorder{}
	status := DecodeMessageBytes(data, r)
	if status != backend.Success {
		t.Fatalf("status=%v want Success", status)
	}
	want := []addr.UniverseNumber{1, 2, 3}
	if r.patchArgs[0] != want[0] || r.patchArgs[1] != want[1] || r.patchArgs[2] != want[2] {
		t.Fatalf("patch args=%v want %v", r.patchArgs, want)
	}
}

// S9: opcode setu (0x0002) with length 513 must reject with InvalidBodySize
// and zero interface calls.
func TestSetUWrongLength(t *testing.T) {
	header := make([]byte, 5)
	header[0] = Sentinel
	binary.LittleEndian.PutUint16(header[1:3], uint16(OpSetU))
	binary.LittleEndian.PutUint16(header[3:5], 513)
	data := append(header, make([]byte, 513)...)

	r := &recorder{}
	status := DecodeMessageBytes(data, r)
	if status != backend.InvalidBodySize {
		t.Fatalf("status=%v want InvalidBodySize", status)
	}
	if r.calls != 0 {
		t.Fatalf("expected zero interface calls, got %d", r.calls)
	}
}

// S10: a framed entry point receiving a non-sentinel leading byte returns
// InvalidHeader with zero interface calls.
func TestMissingSentinel(t *testing.T) {
	r := &recorder{}
	status := DecodeMessageBytes([]byte{0xFF, 0x01, 0x00, 0x00, 0x00}, r)
	if status != backend.InvalidHeader {
		t.Fatalf("status=%v want InvalidHeader", status)
	}
	if r.calls != 0 {
		t.Fatalf("expected zero interface calls, got %d", r.calls)
	}
}

func TestUnknownOpcode(t *testing.T) {
	r := &recorder{}
	data := []byte{Sentinel, 0xFF, 0xFF, 0x00, 0x00}
	status := DecodeMessageBytes(data, r)
	if status != backend.InvalidHeader {
		t.Fatalf("status=%v want InvalidHeader", status)
	}
}

// An unknown opcode must report InvalidHeader even when its declared
// length also exceeds the bytes actually available - opcode resolution
// comes before length bounds checking.
func TestUnknownOpcodeTakesPriorityOverBodySize(t *testing.T) {
	r := &recorder{}
	data := []byte{Sentinel, 0xFF, 0xFF, 0xFF, 0x7F}
	status := DecodeMessageBytes(data, r)
	if status != backend.InvalidHeader {
		t.Fatalf("status=%v want InvalidHeader", status)
	}
	if r.calls != 0 {
		t.Fatalf("expected zero interface calls, got %d", r.calls)
	}
}

// Opcode 0x0011 (copy) reads destination from body offset 2, not offset 0;
// the original reused offset 0 for both fields.
func TestCopyMessageUsesCorrectedOffsets(t *testing.T) {
	body := make([]byte, 4)
	binary.LittleEndian.PutUint16(body[0:2], 100)
	binary.LittleEndian.PutUint16(body[2:4], 200)

	r := &recorder{}
	status := DecodeMessage(MessageHeader{Opcode: OpCopy, Length: 4}, body, r)
	if status != backend.Success {
		t.Fatalf("status=%v", status)
	}
	if r.copyArgs[0] != 100 || r.copyArgs[1] != 200 {
		t.Fatalf("copy args=%v want [100 200]", r.copyArgs)
	}
}

func TestIDMessageIgnoresLength(t *testing.T) {
	r := &recorder{}
	status := DecodeMessage(MessageHeader{Opcode: OpID, Length: 0}, nil, r)
	if status != backend.Success {
		t.Fatalf("status=%v want Success", status)
	}
}

func TestSetMVLengthRule(t *testing.T) {
	cases := []struct {
		bodyLen int
		want    backend.Status
	}{
		{2, backend.InvalidBodySize},  // no entries, too short (< 6)
		{6, backend.Success},           // universe + one (A,B,V) entry
		{10, backend.Success},          // universe + two entries
		{7, backend.InvalidBodySize},   // not 2 + 4k
	}
	for _, c := range cases {
		body := make([]byte, c.bodyLen)
		status := DecodeMessage(MessageHeader{Opcode: OpSetMV, Length: uint16(c.bodyLen)}, body, &recorder{})
		if status != c.want {
			t.Fatalf("bodyLen=%d: status=%v want %v", c.bodyLen, status, c.want)
		}
	}
}

func TestGetALengthRule(t *testing.T) {
	cases := []struct {
		bodyLen int
		want    backend.Status
	}{
		{0, backend.InvalidBodySize},
		{4, backend.Success},
		{8, backend.Success},
		{5, backend.InvalidBodySize},
	}
	for _, c := range cases {
		body := make([]byte, c.bodyLen)
		status := DecodeMessage(MessageHeader{Opcode: OpGetA, Length: uint16(c.bodyLen)}, body, &recorder{})
		if status != c.want {
			t.Fatalf("bodyLen=%d: status=%v want %v", c.bodyLen, status, c.want)
		}
	}
}
