// Package bridge adapts a local simulation's I/O vectors to a remote
// device Session: change-only input propagation, unconditional output
// overwrite.
package bridge

import "remotelab/internal/pins"

// Simulator is the minimal surface a local logic simulation exposes. The
// schematic editor and simulator themselves are out of scope; only this
// adapter boundary is implemented here.
type Simulator interface {
	// ReadBit returns the current simulated value for the pin mapped as
	// Input with this name.
	ReadBit(name string) bool
	// WriteBit pushes a remote-authoritative value into the simulation for
	// the pin mapped as Output with this name.
	WriteBit(name string, value bool)
}

// Session is the subset of devsession.Session the bridge needs, kept as an
// interface so it can be driven by a fake in tests.
type Session interface {
	SetInput(id uint32, value bool) error
}

// Bridge mirrors MappedPin values between a Simulator and a remote Session
// each simulator tick.
type Bridge struct {
	catalog *pins.Catalog
	session Session
	sim     Simulator
}

func New(catalog *pins.Catalog, session Session, sim Simulator) *Bridge {
	return &Bridge{catalog: catalog, session: session, sim: sim}
}

// Tick reads every mapped Input pin from the simulator and forwards it
// through SetInput, which itself suppresses the call unless the value
// actually changed.
func (b *Bridge) Tick() error {
	for _, mp := range b.catalog.MappedPins() {
		if mp.Direction != pins.Input {
			continue
		}
		ap, ok := b.catalog.AvailablePinByName(mp.Name)
		if !ok {
			continue
		}
		value := b.sim.ReadBit(mp.Name)
		if err := b.session.SetInput(ap.ID, value); err != nil {
			return err
		}
	}
	return nil
}

// ApplyOutput writes a server-pushed UPDATE_OUTPUT value into the
// simulation. The server is authoritative, so this always writes,
// regardless of the simulator's previous value.
func (b *Bridge) ApplyOutput(pinID uint32, value bool) {
	b.catalog.SetOutput(pinID, value)
	for _, mp := range b.catalog.MappedPins() {
		if mp.Direction != pins.Output {
			continue
		}
		ap, ok := b.catalog.AvailablePinByName(mp.Name)
		if ok && ap.ID == pinID {
			b.sim.WriteBit(mp.Name, value)
			return
		}
	}
}
