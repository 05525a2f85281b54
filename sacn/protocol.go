// Package sacn frames and transmits DMX data over E1.31 (sACN), the
// multicast sibling of DCSM's ArtNet output path. DCSM only ever
// builds and sends these packets; it has no sACN receive side.
package sacn

import (
	"encoding/binary"
	"net"

	"github.com/patchworks/dcsm/addr"
)

const (
	Port = 5568

	VectorRootE131Data      = 0x00000004
	VectorRootE131Extended  = 0x00000008
	VectorE131DataPacket    = 0x00000002
	VectorE131Discovery     = 0x00000002
	VectorDMPSetProperty    = 0x02
	VectorUniverseDiscovery = 0x00000001
)

var packetIdentifier = [12]byte{
	0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00,
}

// BuildDataPacket frames universe's DMX data as an E1.31 data packet.
// data is truncated to 512 bytes, DCSM's fixed universe size.
func BuildDataPacket(universe addr.UniverseNumber, sequence uint8, sourceName string, cid [16]byte, data []byte) []byte {
	dataLen := len(data)
	if dataLen > addr.AddressesPerUniverse {
		dataLen = addr.AddressesPerUniverse
	}

	// Root Layer (38) + Framing Layer (77) + DMP Layer (11 + data)
	pktLen := 126 + dataLen
	buf := make([]byte, pktLen)

	// Root Layer
	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], packetIdentifier[:])
	rootLen := pktLen - 16
	binary.BigEndian.PutUint16(buf[16:18], 0x7000|uint16(rootLen))
	binary.BigEndian.PutUint32(buf[18:22], VectorRootE131Data)
	copy(buf[22:38], cid[:])

	// Framing Layer
	framingLen := pktLen - 38
	binary.BigEndian.PutUint16(buf[38:40], 0x7000|uint16(framingLen))
	binary.BigEndian.PutUint32(buf[40:44], VectorE131DataPacket)
	copy(buf[44:108], sourceName)
	buf[108] = 100 // priority
	binary.BigEndian.PutUint16(buf[109:111], 0)
	buf[111] = sequence
	buf[112] = 0
	binary.BigEndian.PutUint16(buf[113:115], uint16(universe))

	// DMP Layer
	dmpLen := 11 + dataLen
	binary.BigEndian.PutUint16(buf[115:117], 0x7000|uint16(dmpLen))
	buf[117] = VectorDMPSetProperty
	buf[118] = 0xa1
	binary.BigEndian.PutUint16(buf[119:121], 0)
	binary.BigEndian.PutUint16(buf[121:123], 1)
	binary.BigEndian.PutUint16(buf[123:125], uint16(dataLen+1))
	buf[125] = 0 // START code
	copy(buf[126:], data[:dataLen])

	return buf
}

// MulticastAddr returns the universe-specific sACN multicast group
// (239.255.hi.lo) and port for universe.
func MulticastAddr(universe addr.UniverseNumber) *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IPv4(239, 255, byte(universe>>8), byte(universe&0xff)),
		Port: Port,
	}
}

// DiscoveryAddr is the fixed multicast group sACN universe discovery
// packets are sent to.
var DiscoveryAddr = &net.UDPAddr{
	IP:   net.IPv4(239, 255, 250, 214),
	Port: Port,
}

// BuildDiscoveryPacket frames one page of a universe discovery packet
// listing the universes this source is currently transmitting.
func BuildDiscoveryPacket(sourceName string, cid [16]byte, page, lastPage uint8, universes []addr.UniverseNumber) []byte {
	universeCount := len(universes)
	if universeCount > 512 {
		universeCount = 512
	}

	pktLen := 120 + universeCount*2
	buf := make([]byte, pktLen)

	binary.BigEndian.PutUint16(buf[0:2], 0x0010)
	binary.BigEndian.PutUint16(buf[2:4], 0x0000)
	copy(buf[4:16], packetIdentifier[:])
	rootLen := pktLen - 16
	binary.BigEndian.PutUint16(buf[16:18], 0x7000|uint16(rootLen))
	binary.BigEndian.PutUint32(buf[18:22], VectorRootE131Extended)
	copy(buf[22:38], cid[:])

	framingLen := pktLen - 38
	binary.BigEndian.PutUint16(buf[38:40], 0x7000|uint16(framingLen))
	binary.BigEndian.PutUint32(buf[40:44], VectorE131Discovery)
	copy(buf[44:108], sourceName)
	binary.BigEndian.PutUint32(buf[108:112], 0)

	discoveryLen := pktLen - 112
	binary.BigEndian.PutUint16(buf[112:114], 0x7000|uint16(discoveryLen))
	binary.BigEndian.PutUint32(buf[114:118], VectorUniverseDiscovery)
	buf[118] = page
	buf[119] = lastPage
	for i := 0; i < universeCount; i++ {
		binary.BigEndian.PutUint16(buf[120+i*2:122+i*2], uint16(universes[i]))
	}

	return buf
}
