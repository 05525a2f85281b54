// Package addr converts between DCSM master addresses, per-universe local
// addresses, and the wire/text address token format ("U/A" or a bare
// master number).
package addr

import (
	"fmt"
	"strconv"
	"strings"
)

// AddressesPerUniverse is the fixed channel count of a DMX-style universe.
const AddressesPerUniverse = 512

// UniverseNumber identifies a universe. 0 is the null universe.
type UniverseNumber uint16

// LocalAddress is a 1-based channel index within a universe, [1, 512].
// 0 is the null address.
type LocalAddress uint16

// MasterAddress is a 1-based index across all universes. 0 is null.
type MasterAddress uint32

// Pack is a (universe, local) pair.
type Pack struct {
	Universe UniverseNumber
	Local    LocalAddress
}

// ToMaster converts a universe/local pair to a master address. Either
// field being 0 (null) yields the null master address.
func ToMaster(u UniverseNumber, a LocalAddress) MasterAddress {
	if u == 0 || a == 0 {
		return 0
	}
	return MasterAddress(u-1)*AddressesPerUniverse + MasterAddress(a)
}

// FromMaster converts a master address back to a universe/local pair.
// FromMaster(0) is (0, 0).
func FromMaster(m MasterAddress) Pack {
	if m == 0 {
		return Pack{}
	}
	u := (m-1)/AddressesPerUniverse + 1
	a := m - (u-1)*AddressesPerUniverse
	return Pack{Universe: UniverseNumber(u), Local: LocalAddress(a)}
}

// Parse parses a single address token, either "U/A" (decimal universe and
// local address) or "N" (a master address). Master/local address 0 is
// rejected: the original source underflows a bit index on a null address,
// and implementations are expected to reject it as malformed rather than
// reproduce that defect.
func Parse(s string) (Pack, error) {
	if slash := strings.IndexByte(s, '/'); slash >= 0 {
		uStr, aStr := s[:slash], s[slash+1:]
		u, err := strconv.ParseUint(uStr, 10, 16)
		if err != nil {
			return Pack{}, fmt.Errorf("addr: invalid universe %q: %w", uStr, err)
		}
		a, err := strconv.ParseUint(aStr, 10, 16)
		if err != nil {
			return Pack{}, fmt.Errorf("addr: invalid local address %q: %w", aStr, err)
		}
		if u == 0 || a == 0 || a > AddressesPerUniverse {
			return Pack{}, fmt.Errorf("addr: address %q out of range", s)
		}
		return Pack{Universe: UniverseNumber(u), Local: LocalAddress(a)}, nil
	}

	m, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return Pack{}, fmt.Errorf("addr: invalid master address %q: %w", s, err)
	}
	if m == 0 {
		return Pack{}, fmt.Errorf("addr: master address 0 is null, not a valid target")
	}
	if m > uint64(ToMaster(^UniverseNumber(0), AddressesPerUniverse)) {
		return Pack{}, fmt.Errorf("addr: master address %q out of range", s)
	}
	return FromMaster(MasterAddress(m)), nil
}
