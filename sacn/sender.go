package sacn

import (
	"crypto/rand"
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/patchworks/dcsm/addr"
)

// Sender transmits DMX data over sACN for every universe configured to
// carry it, and periodically announces those universes via the E1.31
// universe discovery packet.
type Sender struct {
	conn       *net.UDPConn
	sourceName string
	cid        [16]byte
	sequences  map[addr.UniverseNumber]uint8
	seqMu      sync.Mutex
	universes  map[addr.UniverseNumber]bool
	done       chan struct{}
}

// NewSender opens a UDP socket for sending, binding its multicast
// interface to ifaceName when non-empty.
func NewSender(sourceName string, ifaceName string) (*Sender, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, err
	}

	if ifaceName != "" {
		iface, err := net.InterfaceByName(ifaceName)
		if err != nil {
			conn.Close()
			return nil, err
		}
		p := ipv4.NewPacketConn(conn)
		if err := p.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, err
		}
	}

	var cid [16]byte
	rand.Read(cid[:])

	return &Sender{
		conn:       conn,
		sourceName: sourceName,
		cid:        cid,
		sequences:  make(map[addr.UniverseNumber]uint8),
		universes:  make(map[addr.UniverseNumber]bool),
		done:       make(chan struct{}),
	}, nil
}

func (s *Sender) nextSequence(universe addr.UniverseNumber) uint8 {
	s.seqMu.Lock()
	defer s.seqMu.Unlock()
	seq := s.sequences[universe]
	s.sequences[universe] = seq + 1
	return seq
}

// SendDMX multicasts universe's DMX data to its sACN multicast group.
func (s *Sender) SendDMX(universe addr.UniverseNumber, data []byte) error {
	pkt := BuildDataPacket(universe, s.nextSequence(universe), s.sourceName, s.cid, data)
	_, err := s.conn.WriteToUDP(pkt, MulticastAddr(universe))
	return err
}

// SendDMXUnicast sends universe's DMX data to a specific address.
func (s *Sender) SendDMXUnicast(target *net.UDPAddr, universe addr.UniverseNumber, data []byte) error {
	pkt := BuildDataPacket(universe, s.nextSequence(universe), s.sourceName, s.cid, data)
	_, err := s.conn.WriteToUDP(pkt, target)
	return err
}

// Close stops the discovery loop, if running, and releases the
// sender's socket.
func (s *Sender) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.conn.Close()
}

// RegisterUniverse marks universe as one this source actively
// transmits, so it is announced in subsequent discovery packets.
func (s *Sender) RegisterUniverse(universe addr.UniverseNumber) {
	s.seqMu.Lock()
	s.universes[universe] = true
	s.seqMu.Unlock()
}

// StartDiscovery begins periodically broadcasting which universes
// this source carries, per the E1.31 universe discovery protocol.
func (s *Sender) StartDiscovery() {
	go s.discoveryLoop()
}

func (s *Sender) discoveryLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	s.sendDiscovery()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.sendDiscovery()
		}
	}
}

func (s *Sender) sendDiscovery() {
	s.seqMu.Lock()
	universes := make([]addr.UniverseNumber, 0, len(s.universes))
	for u := range s.universes {
		universes = append(universes, u)
	}
	s.seqMu.Unlock()

	if len(universes) == 0 {
		return
	}

	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })

	const maxPerPage = 512
	totalPages := (len(universes) + maxPerPage - 1) / maxPerPage

	for page := 0; page < totalPages; page++ {
		start := page * maxPerPage
		end := start + maxPerPage
		if end > len(universes) {
			end = len(universes)
		}
		pkt := BuildDiscoveryPacket(s.sourceName, s.cid, uint8(page), uint8(totalPages-1), universes[start:end])
		s.conn.WriteToUDP(pkt, DiscoveryAddr)
	}
}
