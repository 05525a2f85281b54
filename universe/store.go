// Package universe implements a reference backend.Interface: in-memory
// per-universe data buffers, named masks and a patch table, wired to
// real ArtNet/sACN senders so a connected client's writes are actually
// visible on the wire.
package universe

import (
	"fmt"
	"log"
	"net"
	"sort"
	"sync"

	"github.com/patchworks/dcsm/addr"
	"github.com/patchworks/dcsm/artnet"
	"github.com/patchworks/dcsm/backend"
	"github.com/patchworks/dcsm/bitmask"
	"github.com/patchworks/dcsm/config"
	"github.com/patchworks/dcsm/patch"
	"github.com/patchworks/dcsm/sacn"
)

// target is one configured transmission destination for a universe.
type target struct {
	protocol config.Protocol
	addr     *net.UDPAddr // nil: ArtNet broadcast / sACN multicast
}

// Store is the reference lighting-state implementation. It embeds
// backend.NoopInterface so new backend.Interface methods default to a
// no-op until this type is updated to implement them.
type Store struct {
	backend.NoopInterface

	mu        sync.Mutex
	data      map[addr.UniverseNumber]*[512]byte
	masks     map[addr.UniverseNumber]bitmask.Mask
	observed  map[addr.UniverseNumber][512]byte
	framerate byte

	patches    *patch.Engine
	artSender  *artnet.Sender
	sacnSender *sacn.Sender
	targets    map[addr.UniverseNumber][]target
	debug      bool
}

// NewStore builds a Store from cfg, registering sACN universes and
// installing startup patches before any client connects.
func NewStore(cfg *config.Config, artSender *artnet.Sender, sacnSender *sacn.Sender) (*Store, error) {
	s := &Store{
		data:       make(map[addr.UniverseNumber]*[512]byte),
		masks:      make(map[addr.UniverseNumber]bitmask.Mask),
		observed:   make(map[addr.UniverseNumber][512]byte),
		patches:    patch.NewEngine(),
		artSender:  artSender,
		sacnSender: sacnSender,
		targets:    make(map[addr.UniverseNumber][]target),
		debug:      cfg.Debug,
	}

	for _, t := range cfg.Targets {
		u := addr.UniverseNumber(t.Universe)
		tg := target{protocol: t.Protocol}
		if t.Address != "" {
			resolved, err := net.ResolveUDPAddr("udp4", t.Address)
			if err != nil {
				return nil, fmt.Errorf("universe: target %d: %w", t.Universe, err)
			}
			tg.addr = resolved
		}
		s.targets[u] = append(s.targets[u], tg)
		if t.Protocol == config.ProtocolSACN {
			sacnSender.RegisterUniverse(u)
		}
	}

	for _, p := range cfg.StartupPatches {
		s.patches.Patch(addr.UniverseNumber(p.Input), addr.UniverseNumber(p.Output), addr.UniverseNumber(p.Mask))
	}

	return s, nil
}

// ObserveArtNet feeds a passively-sniffed ArtDmx frame into the
// wire-observed overlay. Meant to be passed as the artnet.Sniffer
// callback.
func (s *Store) ObserveArtNet(universe artnet.Universe, data [512]byte) {
	s.mu.Lock()
	s.observed[addr.UniverseNumber(universe)] = data
	s.mu.Unlock()
}

func (s *Store) bufferLocked(universe addr.UniverseNumber) *[512]byte {
	buf, ok := s.data[universe]
	if !ok {
		buf = &[512]byte{}
		s.data[universe] = buf
	}
	return buf
}

func (s *Store) maskLookupLocked(universe addr.UniverseNumber) (bitmask.Mask, bool) {
	m, ok := s.masks[universe]
	return m, ok
}

// ID logs an identification request. No reply wire format is defined
// for read operations, so this and every other read-only method below
// only logs.
func (s *Store) ID(ctx backend.CommandContext) {
	log.Printf("[universe] id mode=%s", ctx.Mode)
}

func (s *Store) SetUniverse(ctx backend.CommandContext, universe addr.UniverseNumber, data [512]byte) {
	s.mu.Lock()
	*s.bufferLocked(universe) = data
	s.mu.Unlock()
	s.propagateAndTransmit(universe, data)
}

func (s *Store) SetValues(ctx backend.CommandContext, values []backend.AddressValue) {
	touched := make(map[addr.UniverseNumber]bool)

	s.mu.Lock()
	for _, v := range values {
		buf := s.bufferLocked(v.Address.Universe)
		buf[v.Address.Local-1] = v.Value
		touched[v.Address.Universe] = true
	}
	snapshots := make(map[addr.UniverseNumber][512]byte, len(touched))
	for u := range touched {
		snapshots[u] = *s.data[u]
	}
	s.mu.Unlock()

	for u, data := range snapshots {
		s.propagateAndTransmit(u, data)
	}
}

func (s *Store) GetUniverse(ctx backend.CommandContext, universe addr.UniverseNumber) {
	s.mu.Lock()
	buf := s.bufferLocked(universe)
	nonzero := 0
	for _, b := range buf {
		if b != 0 {
			nonzero++
		}
	}
	s.mu.Unlock()
	log.Printf("[universe] getu universe=%d nonzero-channels=%d", universe, nonzero)
}

func (s *Store) SetFramerate(ctx backend.CommandContext, framerate byte) {
	s.mu.Lock()
	s.framerate = framerate
	s.mu.Unlock()
}

func (s *Store) GetFramerate(ctx backend.CommandContext) {
	s.mu.Lock()
	fr := s.framerate
	s.mu.Unlock()
	log.Printf("[universe] getfr framerate=%d", fr)
}

func (s *Store) NewMask(ctx backend.CommandContext, universe addr.UniverseNumber) {
	s.mu.Lock()
	if _, ok := s.masks[universe]; !ok {
		s.masks[universe] = bitmask.Mask{}
	}
	s.mu.Unlock()
}

func (s *Store) ListMasks(ctx backend.CommandContext) {
	s.mu.Lock()
	universes := make([]addr.UniverseNumber, 0, len(s.masks))
	for u := range s.masks {
		universes = append(universes, u)
	}
	s.mu.Unlock()

	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })
	log.Printf("[universe] listmu masks=%v", universes)
}

func (s *Store) DeleteMask(ctx backend.CommandContext, universe addr.UniverseNumber) {
	s.mu.Lock()
	delete(s.masks, universe)
	s.mu.Unlock()
}

func (s *Store) SetMaskUniverse(ctx backend.CommandContext, universe addr.UniverseNumber, mask [64]byte, data [512]byte) {
	m := bitmask.Unpack(mask)

	s.mu.Lock()
	buf := s.bufferLocked(universe)
	for i := 0; i < 512; i++ {
		if m.Test(i) {
			buf[i] = data[i]
		}
	}
	snapshot := *buf
	s.mu.Unlock()

	s.propagateAndTransmit(universe, snapshot)
}

func (s *Store) SetMaskValues(ctx backend.CommandContext, universe addr.UniverseNumber, values []backend.MaskedValue) {
	s.mu.Lock()
	buf := s.bufferLocked(universe)
	for _, v := range values {
		if !v.Masked {
			continue
		}
		buf[v.Local-1] = v.Value
	}
	snapshot := *buf
	s.mu.Unlock()

	s.propagateAndTransmit(universe, snapshot)
}

func (s *Store) GetMaskUniverse(ctx backend.CommandContext, universe addr.UniverseNumber) {
	s.mu.Lock()
	m, ok := s.masks[universe]
	s.mu.Unlock()
	log.Printf("[universe] getmu universe=%d exists=%v bits=%d", universe, ok, m.Count())
}

func (s *Store) ClearMask(ctx backend.CommandContext, universe addr.UniverseNumber) {
	s.mu.Lock()
	if _, ok := s.masks[universe]; ok {
		s.masks[universe] = bitmask.Mask{}
	}
	s.mu.Unlock()
}

func (s *Store) Patch(ctx backend.CommandContext, input, output, mask addr.UniverseNumber) {
	s.patches.Patch(input, output, mask)
}

func (s *Store) Unpatch(ctx backend.CommandContext, output addr.UniverseNumber) {
	s.patches.Unpatch(output)
}

func (s *Store) ListPatches(ctx backend.CommandContext) {
	log.Printf("[universe] listp patches=%v", s.patches.List())
}

func (s *Store) Copy(ctx backend.CommandContext, src, dst addr.UniverseNumber) {
	s.mu.Lock()
	data := *s.bufferLocked(src)
	*s.bufferLocked(dst) = data
	s.mu.Unlock()

	s.propagateAndTransmit(dst, data)
}

func (s *Store) SetUniformTaggedValue(ctx backend.CommandContext, universe addr.UniverseNumber, value byte, mask [64]byte) {
	s.applyTaggedValue(universe, value, mask)
}

func (s *Store) SetMaskTaggedValue(ctx backend.CommandContext, universe addr.UniverseNumber, value byte, mask [64]byte) {
	s.applyTaggedValue(universe, value, mask)
}

// applyTaggedValue writes value into every channel selected by mask.
// setutv and setmtv differ only in the command that produced them; this
// store gives both the same data effect.
func (s *Store) applyTaggedValue(universe addr.UniverseNumber, value byte, mask [64]byte) {
	m := bitmask.Unpack(mask)

	s.mu.Lock()
	buf := s.bufferLocked(universe)
	for i := 0; i < 512; i++ {
		if m.Test(i) {
			buf[i] = value
		}
	}
	snapshot := *buf
	s.mu.Unlock()

	s.propagateAndTransmit(universe, snapshot)
}

func (s *Store) ListUniverses(ctx backend.CommandContext) {
	s.mu.Lock()
	universes := make([]addr.UniverseNumber, 0, len(s.data)+len(s.observed))
	seen := make(map[addr.UniverseNumber]bool)
	for u := range s.data {
		universes = append(universes, u)
		seen[u] = true
	}
	for u := range s.observed {
		if !seen[u] {
			universes = append(universes, u)
		}
	}
	s.mu.Unlock()

	sort.Slice(universes, func(i, j int) bool { return universes[i] < universes[j] })
	log.Printf("[universe] listu universes=%v", universes)
}

func (s *Store) GetAddresses(ctx backend.CommandContext, packs []addr.Pack) {
	log.Printf("[universe] geta count=%d", len(packs))
}

func (s *Store) GetMaskedAddresses(ctx backend.CommandContext, packs []addr.Pack) {
	log.Printf("[universe] getma count=%d", len(packs))
}

var _ backend.Interface = (*Store)(nil)

// propagateAndTransmit transmits universe's own data to its configured
// targets, then fans it out through the patch table to every output it
// feeds, transmitting each of those in turn. Patches are not chained
// recursively: an output universe's own patches (if any) only fire on a
// write to that output universe directly.
func (s *Store) propagateAndTransmit(universe addr.UniverseNumber, data [512]byte) {
	s.transmit(universe, data)

	s.mu.Lock()
	outputs := s.patches.Propagate(universe, data, s.maskLookupLocked, s.currentBufferLocked)
	for _, out := range outputs {
		*s.bufferLocked(out.Universe) = out.Data
	}
	s.mu.Unlock()

	for _, out := range outputs {
		s.transmit(out.Universe, out.Data)
	}
}

func (s *Store) currentBufferLocked(universe addr.UniverseNumber) [512]byte {
	return *s.bufferLocked(universe)
}

func (s *Store) transmit(universe addr.UniverseNumber, data [512]byte) {
	s.mu.Lock()
	targets := s.targets[universe]
	debug := s.debug
	s.mu.Unlock()

	for _, t := range targets {
		switch t.protocol {
		case config.ProtocolArtNet:
			artU := artnet.Universe(universe)
			var err error
			if t.addr != nil {
				err = s.artSender.SendDMX(t.addr, artU, data[:])
			} else {
				err = s.artSender.SendDMXBroadcast(artU, data[:])
			}
			if err != nil {
				log.Printf("[->artnet] error: universe=%d err=%v", universe, err)
			} else if debug {
				log.Printf("[->artnet] universe=%d addr=%s dst=%v", universe, artU, t.addr)
			}

		case config.ProtocolSACN:
			var err error
			if t.addr != nil {
				err = s.sacnSender.SendDMXUnicast(t.addr, universe, data[:])
			} else {
				err = s.sacnSender.SendDMX(universe, data[:])
			}
			if err != nil {
				log.Printf("[->sacn] error: universe=%d err=%v", universe, err)
			} else if debug {
				log.Printf("[->sacn] universe=%d dst=%v", universe, t.addr)
			}
		}
	}
}
