// Package project reads and writes the remote-device sub-record embedded
// in the host application's project file, gated on project version >= 2.7.
// The project stream uses the same string encoding as the network protocol:
// Write reuses internal/wire's BodyWriter, while Read decodes the same
// layout directly off an io.Reader.
package project

import (
	"encoding/binary"
	"io"
	"unicode/utf8"

	"remotelab/internal/errs"
	"remotelab/internal/pins"
	"remotelab/internal/protocol"
	"remotelab/internal/wire"
)

// MinVersion is the lowest project-file version carrying this sub-record.
const MinVersion = 2.7

// Record is the remote-device sub-record of a project file:
//
//	u32 available_pin_count
//	  available_pin_count x { u32 id, string name, u8 type }
//	u32 mapped_pin_count
//	  mapped_pin_count x { string name, u8 type }
type Record struct {
	AvailablePins []pins.AvailablePin
	MappedPins    []pins.MappedPin
}

// Read decodes one Record directly off the project stream at r's current
// position, consuming only the bytes belonging to this sub-record — the
// project stream has more sections following it, so Read must not read
// past the end of its own fields (unlike internal/wire's ReadFrame, which
// owns a whole delimited frame).
func Read(r io.Reader) (Record, error) {
	availCount, err := readUint32(r)
	if err != nil {
		return Record{}, errs.Wrap(errs.ProtocolError, "read available_pin_count", err)
	}
	available := make([]pins.AvailablePin, 0, availCount)
	for i := uint32(0); i < availCount; i++ {
		id, err := readUint32(r)
		if err != nil {
			return Record{}, errs.Wrap(errs.ProtocolError, "read available pin id", err)
		}
		name, err := readString(r)
		if err != nil {
			return Record{}, errs.Wrap(errs.ProtocolError, "read available pin name", err)
		}
		typ, err := readUint8(r)
		if err != nil {
			return Record{}, errs.Wrap(errs.ProtocolError, "read available pin type", err)
		}
		available = append(available, pins.AvailablePin{ID: id, Name: name, Type: protocol.PinType(typ)})
	}

	mappedCount, err := readUint32(r)
	if err != nil {
		return Record{}, errs.Wrap(errs.ProtocolError, "read mapped_pin_count", err)
	}
	mapped := make([]pins.MappedPin, 0, mappedCount)
	for i := uint32(0); i < mappedCount; i++ {
		name, err := readString(r)
		if err != nil {
			return Record{}, errs.Wrap(errs.ProtocolError, "read mapped pin name", err)
		}
		typ, err := readUint8(r)
		if err != nil {
			return Record{}, errs.Wrap(errs.ProtocolError, "read mapped pin type", err)
		}
		dir := pins.Input
		if protocol.PinType(typ) == protocol.PinOutput {
			dir = pins.Output
		}
		mapped = append(mapped, pins.MappedPin{Name: name, Direction: dir})
	}

	return Record{AvailablePins: available, MappedPins: mapped}, nil
}

func readUint8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func readUint32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

func readString(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", wire.ErrBadUTF8
	}
	return string(b), nil
}

// Write encodes rec and appends it to w.
func Write(w io.Writer, rec Record) error {
	ww := wire.NewBodyWriter()
	ww.PutUint32(uint32(len(rec.AvailablePins)))
	for _, p := range rec.AvailablePins {
		ww.PutUint32(p.ID)
		ww.PutString(p.Name)
		ww.PutUint8(uint8(p.Type))
	}

	ww.PutUint32(uint32(len(rec.MappedPins)))
	for _, mp := range rec.MappedPins {
		ww.PutString(mp.Name)
		typ := protocol.PinInput
		if mp.Direction == pins.Output {
			typ = protocol.PinOutput
		}
		ww.PutUint8(uint8(typ))
	}

	_, err := w.Write(ww.Bytes())
	return err
}

// FromCatalog builds a Record from a live pin catalog, for saving.
func FromCatalog(c *pins.Catalog) Record {
	return Record{AvailablePins: c.AvailablePins(), MappedPins: c.MappedPins()}
}

// ApplyTo replays a loaded Record's mapped pins onto a freshly-reconciled
// catalog, re-running the mapping rule for each saved entry so a pin the
// server no longer advertises is silently dropped rather than crashing.
func ApplyTo(c *pins.Catalog, rec Record) {
	for _, mp := range rec.MappedPins {
		_ = c.MapPin(mp.Name, mp.Direction)
	}
}
