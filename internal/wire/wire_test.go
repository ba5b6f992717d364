package wire

import (
	"bytes"
	"testing"
)

func TestRoundTripPingFrame(t *testing.T) {
	w := NewWriter(2)
	w.PutUint64(0x000000018F9B4C00)
	got := w.Bytes()

	want := []byte{0x00, 0x00, 0x00, 0x09, 0x02, 0x00, 0x00, 0x00, 0x01, 0x8F, 0x9B, 0x4C, 0x00}
	if !bytes.Equal(got, want) {
		t.Fatalf("encoded frame = % X, want % X", got, want)
	}

	frame, err := ReadFrame(bytes.NewReader(got))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Opcode != 2 {
		t.Fatalf("opcode = %d, want 2", frame.Opcode)
	}

	r := NewReader(frame.Payload)
	ts, err := r.Uint64()
	if err != nil {
		t.Fatalf("Uint64: %v", err)
	}
	if ts != 0x000000018F9B4C00 {
		t.Fatalf("timestamp = %#x, want %#x", ts, 0x000000018F9B4C00)
	}
	if !r.Exhausted() {
		t.Fatalf("reader not exhausted, %d bytes left", r.Remaining())
	}
}

func TestStringRoundTrip(t *testing.T) {
	w := NewWriter(3)
	w.PutString("hello")
	frame, err := ReadFrame(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	r := NewReader(frame.Payload)
	s, err := r.String()
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if s != "hello" {
		t.Fatalf("s = %q, want hello", s)
	}
}

func TestReadFrameShortRead(t *testing.T) {
	_, err := ReadFrame(bytes.NewReader([]byte{0x00, 0x00}))
	if err != ErrShortRead {
		t.Fatalf("err = %v, want ErrShortRead", err)
	}
}

func TestReaderUnderrun(t *testing.T) {
	r := NewReader([]byte{0x01})
	if _, err := r.Uint32(); err != ErrUnderrun {
		t.Fatalf("err = %v, want ErrUnderrun", err)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var sizeBuf [4]byte
	sizeBuf[0] = 0xFF // huge total_size
	_, err := ReadFrame(bytes.NewReader(sizeBuf[:]))
	if err != ErrTooLarge {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestBadUTF8(t *testing.T) {
	// Hand-build a frame whose string payload is invalid UTF-8.
	w := NewWriter(3)
	w.PutUint16(2)
	w.body.buf.Write([]byte{0xff, 0xfe})
	frame, err := ReadFrame(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	r := NewReader(frame.Payload)
	if _, err := r.String(); err != ErrBadUTF8 {
		t.Fatalf("err = %v, want ErrBadUTF8", err)
	}
}
