package artnet

import (
	"net"
	"strconv"
	"sync"
)

// Sender transmits ArtDmx packets for the universes DCSM patches onto
// the wire. DCSM has no ArtNet node identity, so only the DMX-sending
// half of the protocol is implemented here.
type Sender struct {
	conn          *net.UDPConn
	broadcastAddr *net.UDPAddr
	sequences     map[Universe]uint8
	seqMu         sync.Mutex
}

// NewSender opens a UDP socket for sending and resolves broadcastHost:
// a bare host is resolved at the ArtNet port; a host:port is resolved
// with the port it names.
func NewSender(broadcastHost string) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}

	if err := conn.SetWriteBuffer(65536); err != nil {
		conn.Close()
		return nil, err
	}

	broadcast, err := net.ResolveUDPAddr("udp4", net.JoinHostPort(broadcastHost, strconv.Itoa(Port)))
	if err != nil {
		broadcast, err = net.ResolveUDPAddr("udp4", broadcastHost)
		if err != nil {
			conn.Close()
			return nil, err
		}
	}

	return &Sender{
		conn:          conn,
		broadcastAddr: broadcast,
		sequences:     make(map[Universe]uint8),
	}, nil
}

// SendDMX sends universe's DMX data to addr, assigning the next
// sequence number for that universe.
func (s *Sender) SendDMX(addr *net.UDPAddr, universe Universe, data []byte) error {
	s.seqMu.Lock()
	seq := s.sequences[universe]
	seq++
	if seq == 0 {
		seq = 1 // 0x00 means "sequence disabled"
	}
	s.sequences[universe] = seq
	s.seqMu.Unlock()

	pkt := BuildDMXPacket(universe, seq, data)
	_, err := s.conn.WriteToUDP(pkt, addr)
	return err
}

// SendDMXBroadcast sends universe's DMX data to the configured
// broadcast address, for targets with no unicast address.
func (s *Sender) SendDMXBroadcast(universe Universe, data []byte) error {
	return s.SendDMX(s.broadcastAddr, universe, data)
}

// Close releases the sender's socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}

// BroadcastAddr returns the configured broadcast address.
func (s *Sender) BroadcastAddr() *net.UDPAddr {
	return s.broadcastAddr
}
