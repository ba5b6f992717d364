// Package wire implements the length-prefixed binary framing used by the
// remote device protocol: big-endian fixed-width integers, length-prefixed
// UTF-8 strings, and a 4-byte size prefix ahead of a 1-byte opcode.
//
// Frame layout:
//
//	[ u32 total_size ][ u8 opcode ][ payload ... ]
//
// total_size counts opcode+payload, excluding the 4-byte prefix itself.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"
)

// FrameLimit bounds total_size against a corrupt or hostile length prefix.
// Not present in the original C++ (QDataStream trusts the stream); added
// because Go code reading an attacker-controlled length must bound it
// before allocating.
const FrameLimit = 64 * 1024

var (
	ErrShortRead = errors.New("wire: short read, socket closed mid-frame")
	ErrBadUTF8   = errors.New("wire: string payload is not valid UTF-8")
	ErrUnderrun  = errors.New("wire: handler read past payload end")
	ErrTooLarge  = errors.New("wire: frame exceeds size limit")
)

// Frame is one decoded opcode+payload unit, prior to protocol-level
// interpretation.
type Frame struct {
	Opcode  byte
	Payload []byte
}

// ReadFrame reads exactly one frame from r: size prefix, opcode, payload.
// It never reads past the frame boundary, so partial frames left on a
// non-blocking socket are simply not attempted (callers only invoke
// ReadFrame when a full frame is known to be buffered, or accept that it
// blocks until one arrives).
func ReadFrame(r io.Reader) (Frame, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortRead
		}
		return Frame{}, err
	}
	totalSize := binary.BigEndian.Uint32(sizeBuf[:])
	if totalSize == 0 {
		return Frame{}, fmt.Errorf("wire: zero-length frame")
	}
	if totalSize > FrameLimit {
		return Frame{}, ErrTooLarge
	}

	rest := make([]byte, totalSize)
	if _, err := io.ReadFull(r, rest); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, ErrShortRead
		}
		return Frame{}, err
	}

	return Frame{Opcode: rest[0], Payload: rest[1:]}, nil
}

// BodyWriter accumulates big-endian fixed-width fields and length-prefixed
// strings, with no frame envelope of its own. Writer (frames) and the
// project-file sub-record (internal/project) both build on top of it.
type BodyWriter struct {
	buf bytes.Buffer
}

// NewBodyWriter starts an empty field sequence.
func NewBodyWriter() *BodyWriter {
	return &BodyWriter{}
}

func (w *BodyWriter) PutUint8(v uint8) { w.buf.WriteByte(v) }

func (w *BodyWriter) PutUint16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.buf.Write(b[:])
}

func (w *BodyWriter) PutUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf.Write(b[:])
}

func (w *BodyWriter) PutUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf.Write(b[:])
}

// PutString writes a u16 length prefix followed by the UTF-8 bytes.
func (w *BodyWriter) PutString(s string) {
	w.PutUint16(uint16(len(s)))
	w.buf.WriteString(s)
}

// Bytes returns the accumulated field bytes, with no envelope.
func (w *BodyWriter) Bytes() []byte {
	return w.buf.Bytes()
}

// Writer builds one outgoing frame on top of a BodyWriter. Fields are
// appended opcode-first, then payload; the size prefix is computed and
// written last, mirroring the teacher protocol's "build body, then prefix
// size" construction order.
type Writer struct {
	opcode byte
	body   BodyWriter
}

// NewWriter starts a new outgoing message for the given opcode.
func NewWriter(opcode byte) *Writer {
	return &Writer{opcode: opcode}
}

func (w *Writer) PutUint8(v uint8)   { w.body.PutUint8(v) }
func (w *Writer) PutUint16(v uint16) { w.body.PutUint16(v) }
func (w *Writer) PutUint32(v uint32) { w.body.PutUint32(v) }
func (w *Writer) PutUint64(v uint64) { w.body.PutUint64(v) }
func (w *Writer) PutString(s string) { w.body.PutString(s) }

// Bytes returns the complete framed message: size prefix, opcode, payload.
func (w *Writer) Bytes() []byte {
	body := w.body.Bytes()
	totalSize := uint32(1 + len(body))

	out := make([]byte, 0, 4+totalSize)
	var sizeBuf [4]byte
	binary.BigEndian.PutUint32(sizeBuf[:], totalSize)
	out = append(out, sizeBuf[:]...)
	out = append(out, w.opcode)
	out = append(out, body...)
	return out
}

// Reader walks the payload of one decoded Frame, tracking how much remains
// so a handler can be checked for exhaustion once it's done decoding.
type Reader struct {
	data []byte
	pos  int
}

func NewReader(payload []byte) *Reader {
	return &Reader{data: payload}
}

func (r *Reader) need(n int) error {
	if r.pos+n > len(r.data) {
		return ErrUnderrun
	}
	return nil
}

func (r *Reader) Uint8() (uint8, error) {
	if err := r.need(1); err != nil {
		return 0, err
	}
	v := r.data[r.pos]
	r.pos++
	return v, nil
}

func (r *Reader) Uint16() (uint16, error) {
	if err := r.need(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *Reader) Uint32() (uint32, error) {
	if err := r.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *Reader) Uint64() (uint64, error) {
	if err := r.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v, nil
}

// String reads a u16-length-prefixed UTF-8 string.
func (r *Reader) String() (string, error) {
	n, err := r.Uint16()
	if err != nil {
		return "", err
	}
	if err := r.need(int(n)); err != nil {
		return "", err
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	if !utf8.Valid(b) {
		return "", ErrBadUTF8
	}
	return string(b), nil
}

// Remaining reports how many payload bytes have not yet been consumed.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Exhausted verifies the handler consumed exactly the payload: a decoder
// that stops short of the end of a known-good frame indicates a mismatched
// payload shape, not just trailing garbage. (Reading off the end is caught
// earlier, as ErrUnderrun from the read itself.)
func (r *Reader) Exhausted() bool {
	return r.Remaining() == 0
}
