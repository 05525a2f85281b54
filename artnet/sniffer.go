package artnet

import (
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcap"
)

// DMXObserver is called with every ArtDmx packet seen on the wire,
// regardless of whether this host sent it.
type DMXObserver func(universe Universe, data [512]byte)

// Sniffer passively observes ArtDmx traffic via packet capture, without
// binding the ArtNet UDP port itself. This lets the universe store
// list a universe that is being driven on the wire even when nothing
// local has sent to it.
type Sniffer struct {
	handle   *pcap.Handle
	observer DMXObserver
	done     chan struct{}
}

// NewSniffer opens iface for live capture and filters to ArtNet's UDP
// port.
func NewSniffer(iface string, observer DMXObserver) (*Sniffer, error) {
	handle, err := pcap.OpenLive(iface, 1600, true, pcap.BlockForever)
	if err != nil {
		return nil, err
	}

	if err := handle.SetBPFFilter("udp port 6454"); err != nil {
		handle.Close()
		return nil, err
	}

	return &Sniffer{
		handle:   handle,
		observer: observer,
		done:     make(chan struct{}),
	}, nil
}

// Start begins the capture loop in a new goroutine.
func (s *Sniffer) Start() {
	go s.loop()
}

// Stop ends the capture loop and releases the pcap handle.
func (s *Sniffer) Stop() {
	close(s.done)
	s.handle.Close()
}

func (s *Sniffer) loop() {
	source := gopacket.NewPacketSource(s.handle, s.handle.LinkType())

	for {
		select {
		case <-s.done:
			return
		case packet, ok := <-source.Packets():
			if !ok {
				return
			}
			s.handlePacket(packet)
		}
	}
}

func (s *Sniffer) handlePacket(packet gopacket.Packet) {
	udpLayer := packet.Layer(layers.LayerTypeUDP)
	if udpLayer == nil {
		return
	}
	udp, ok := udpLayer.(*layers.UDP)
	if !ok || len(udp.Payload) < 12 {
		return
	}

	opCode, pkt, err := ParsePacket(udp.Payload)
	if err != nil || opCode != OpDmx {
		return
	}

	dmx, ok := pkt.(*DMXPacket)
	if !ok {
		return
	}
	s.observer(dmx.Universe, dmx.Data)
}
