// Package dispatch is the facade tying the text-command and
// binary-message decoders to a single backend.Interface.
package dispatch

import (
	"github.com/patchworks/dcsm/backend"
	"github.com/patchworks/dcsm/command"
	"github.com/patchworks/dcsm/wire"
)

// Dispatcher holds a borrowed reference to the interface it calls
// through. It carries no lighting state of its own and is safe to
// construct multiple instances over the same interface; concurrent use
// of a single instance is the caller's responsibility.
type Dispatcher struct {
	iface backend.Interface
}

// NewDispatcher builds a Dispatcher over iface.
func NewDispatcher(iface backend.Interface) *Dispatcher {
	return &Dispatcher{iface: iface}
}

// ProcessCommand decodes and dispatches a single text command line.
func (d *Dispatcher) ProcessCommand(line string) backend.Status {
	return command.Decode(line, d.iface)
}

// ProcessMessage dispatches an already-framed binary header and body.
func (d *Dispatcher) ProcessMessage(header wire.MessageHeader, body []byte) backend.Status {
	return wire.DecodeMessage(header, body, d.iface)
}

// ProcessMessageBytes decodes a sentinel-prefixed binary message from a
// single buffer.
func (d *Dispatcher) ProcessMessageBytes(data []byte) backend.Status {
	return wire.DecodeMessageBytes(data, d.iface)
}
