// Package pins implements the pin catalog and mapping rules: the
// server-authoritative AvailablePinSet, the user-authoritative MappedPin
// set, the mapping rule, and the reconnection-consistency rule.
package pins

import (
	log "github.com/sirupsen/logrus"

	"remotelab/internal/errs"
	"remotelab/internal/protocol"
)

// AvailablePin is one pin the server advertises as reachable on the device.
type AvailablePin struct {
	ID   uint32
	Name string
	Type protocol.PinType
}

// Direction is the concrete role a MappedPin was given by the user.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "Output"
	}
	return "Input"
}

// MappedPin references an AvailablePin by name plus the chosen direction.
type MappedPin struct {
	Name      string
	Direction Direction
}

// Catalog owns the available-pin set, the mapped-pin set, and the
// input/output value tables, and enforces that they all move together.
type Catalog struct {
	available []AvailablePin
	mapped    []MappedPin
	inputs    map[uint32]bool
	outputs   map[uint32]bool

	byName map[string]AvailablePin
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		inputs:  make(map[uint32]bool),
		outputs: make(map[uint32]bool),
		byName:  make(map[string]AvailablePin),
	}
}

// AvailablePins returns the server-advertised pins in server order.
func (c *Catalog) AvailablePins() []AvailablePin {
	out := make([]AvailablePin, len(c.available))
	copy(out, c.available)
	return out
}

// MappedPins returns the user-chosen mapped pins in insertion order.
func (c *Catalog) MappedPins() []MappedPin {
	out := make([]MappedPin, len(c.mapped))
	copy(out, c.mapped)
	return out
}

func (c *Catalog) idFor(name string) (uint32, bool) {
	ap, ok := c.byName[name]
	return ap.ID, ok
}

// AvailablePinByName looks up the server-advertised pin backing a mapped
// name, for callers (e.g. the simulator bridge) that need its id/type.
func (c *Catalog) AvailablePinByName(name string) (AvailablePin, bool) {
	ap, ok := c.byName[name]
	return ap, ok
}

// Reconcile applies the reconnection-consistency rule: the newly-advertised
// pin set replaces available_pins. If available_pins was
// already non-empty (a previous connection) and any newly advertised pin
// (id, name, type) is absent from the old set, mapped_pins is reset
// entirely and a warning returned (ids may have been renumbered).
// Otherwise mapped_pins, inputs, and outputs are preserved.
func (c *Catalog) Reconcile(newPins []AvailablePin) (reset bool) {
	hadPrevious := len(c.available) > 0

	oldSet := make(map[AvailablePin]bool, len(c.available))
	for _, p := range c.available {
		oldSet[p] = true
	}

	changed := false
	if hadPrevious {
		for _, p := range newPins {
			if !oldSet[p] {
				changed = true
				break
			}
		}
	}

	c.available = append([]AvailablePin(nil), newPins...)
	c.byName = make(map[string]AvailablePin, len(newPins))
	for _, p := range newPins {
		c.byName[p.Name] = p
	}

	if hadPrevious && changed {
		c.mapped = nil
		c.inputs = make(map[uint32]bool)
		c.outputs = make(map[uint32]bool)
		log.Warn("pins: advertised pin set changed on reconnect, mapped pins reset")
		return true
	}
	return false
}

// MapPin implements the mapping rule:
//  1. exact name match against AvailablePins, else reject
//  2. the AvailablePin must be GeneralPurpose, or match the requested
//     direction, else reject
//  3. no duplicate MappedPin names
//  4. on success, append and initialise the value table entry to false
func (c *Catalog) MapPin(name string, dir Direction) error {
	ap, ok := c.byName[name]
	if !ok {
		return errs.New(errs.MappingRejected, "no available pin named "+name)
	}

	wantType := protocol.PinInput
	if dir == Output {
		wantType = protocol.PinOutput
	}
	if ap.Type != protocol.PinGeneralPurpose && ap.Type != wantType {
		return errs.New(errs.MappingRejected, "pin "+name+" cannot be mapped as "+dir.String())
	}

	for _, mp := range c.mapped {
		if mp.Name == name {
			return errs.New(errs.MappingRejected, "pin "+name+" already mapped")
		}
	}

	c.mapped = append(c.mapped, MappedPin{Name: name, Direction: dir})
	if dir == Input {
		c.inputs[ap.ID] = false
	} else {
		c.outputs[ap.ID] = false
	}
	return nil
}

// ResetMapping clears all mapped pins and their value tables, keeping the
// available-pin set intact (used before re-applying a saved mapping).
func (c *Catalog) ResetMapping() {
	c.mapped = nil
	c.inputs = make(map[uint32]bool)
	c.outputs = make(map[uint32]bool)
}

// SetInput implements change-only input propagation: it returns true iff
// the stored value actually differed and was updated, which is the
// caller's cue to send UPDATE_INPUT.
func (c *Catalog) SetInput(id uint32, value bool) (changed bool) {
	old, ok := c.inputs[id]
	if ok && old == value {
		return false
	}
	c.inputs[id] = value
	return true
}

// SetOutput applies a server-pushed UPDATE_OUTPUT. The server is
// authoritative, so the value is overwritten unconditionally.
func (c *Catalog) SetOutput(id uint32, value bool) {
	c.outputs[id] = value
}

// Input returns the current stored value for an input pin id.
func (c *Catalog) Input(id uint32) bool { return c.inputs[id] }

// Output returns the current stored value for an output pin id.
func (c *Catalog) Output(id uint32) bool { return c.outputs[id] }

// Inputs and Outputs expose the full value tables, keyed by pin id, for
// simulator mirroring and IO_INFO construction.
func (c *Catalog) Inputs() map[uint32]bool {
	out := make(map[uint32]bool, len(c.inputs))
	for k, v := range c.inputs {
		out[k] = v
	}
	return out
}

func (c *Catalog) Outputs() map[uint32]bool {
	out := make(map[uint32]bool, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// WirePins builds the protocol.MappedPinWire slice for an IO_INFO frame,
// resolving each MappedPin's name back to its AvailablePin id/type.
func (c *Catalog) WirePins() []protocol.MappedPinWire {
	out := make([]protocol.MappedPinWire, 0, len(c.mapped))
	for _, mp := range c.mapped {
		ap, ok := c.byName[mp.Name]
		if !ok {
			continue
		}
		typ := protocol.PinInput
		if mp.Direction == Output {
			typ = protocol.PinOutput
		}
		out = append(out, protocol.MappedPinWire{ID: ap.ID, Type: typ})
	}
	return out
}
