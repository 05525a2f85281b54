// Package artnet frames and parses the subset of the ArtNet protocol
// DCSM actually speaks: ArtDmx output and passive ArtDmx observation.
// DCSM has no ArtNet node identity of its own, so the discovery half
// of the protocol (ArtPoll/ArtPollReply) has no caller here.
package artnet

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	Port = 6454

	OpDmx = 0x5000

	ProtocolVersion = 14
)

var (
	ArtNetID = [8]byte{'A', 'r', 't', '-', 'N', 'e', 't', 0x00}

	ErrInvalidHeader  = errors.New("invalid ArtNet header")
	ErrPacketTooShort = errors.New("packet too short")
)

// Universe is a DCSM universe number reinterpreted as an ArtNet
// universe address. The 16-bit DCSM number is written to the wire
// unchanged, with no net/subnet remapping; Net/SubNet/Universe below
// only split an address into its ArtNet fields for display.
type Universe uint16

func (u Universe) Net() uint8 {
	return uint8((u >> 8) & 0x7F)
}

func (u Universe) SubNet() uint8 {
	return uint8((u >> 4) & 0x0F)
}

func (u Universe) Universe() uint8 {
	return uint8(u & 0x0F)
}

func (u Universe) String() string {
	return fmt.Sprintf("%d.%d.%d", u.Net(), u.SubNet(), u.Universe())
}

// DMXPacket is a parsed ArtDmx packet (OpCode 0x5000).
type DMXPacket struct {
	ProtocolVersion uint16
	Sequence        uint8
	Physical        uint8
	Universe        Universe
	Length          uint16
	Data            [512]byte
}

// ParsePacket parses a raw ArtNet packet and returns its OpCode and,
// for ArtDmx, the decoded *DMXPacket. Other valid OpCodes are returned
// with a nil payload: DCSM only acts on ArtDmx traffic.
func ParsePacket(data []byte) (uint16, interface{}, error) {
	if len(data) < 10 {
		return 0, nil, ErrPacketTooShort
	}

	if !bytes.Equal(data[:8], ArtNetID[:]) {
		return 0, nil, ErrInvalidHeader
	}

	opCode := binary.LittleEndian.Uint16(data[8:10])

	if opCode != OpDmx {
		return opCode, nil, nil
	}

	pkt, err := parseDMXPacket(data)
	return opCode, pkt, err
}

func parseDMXPacket(data []byte) (*DMXPacket, error) {
	if len(data) < 18 {
		return nil, ErrPacketTooShort
	}

	pkt := &DMXPacket{
		ProtocolVersion: binary.BigEndian.Uint16(data[10:12]),
		Sequence:        data[12],
		Physical:        data[13],
		Universe:        Universe(binary.LittleEndian.Uint16(data[14:16])),
		Length:          binary.BigEndian.Uint16(data[16:18]),
	}

	dataLen := int(pkt.Length)
	if dataLen > 512 {
		dataLen = 512
	}
	if len(data) >= 18+dataLen {
		copy(pkt.Data[:], data[18:18+dataLen])
	}

	return pkt, nil
}

// BuildDMXPacket frames universe's DMX data as an ArtDmx packet.
func BuildDMXPacket(universe Universe, sequence uint8, data []byte) []byte {
	dataLen := len(data)
	if dataLen > 512 {
		dataLen = 512
	}
	if dataLen%2 != 0 {
		dataLen++
	}

	buf := make([]byte, 18+dataLen)

	copy(buf[0:8], ArtNetID[:])
	binary.LittleEndian.PutUint16(buf[8:10], OpDmx)

	binary.BigEndian.PutUint16(buf[10:12], ProtocolVersion)
	buf[12] = sequence
	buf[13] = 0
	binary.LittleEndian.PutUint16(buf[14:16], uint16(universe))
	binary.BigEndian.PutUint16(buf[16:18], uint16(dataLen))
	copy(buf[18:], data[:dataLen])

	return buf
}
