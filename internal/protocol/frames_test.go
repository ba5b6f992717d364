package protocol

import (
	"bytes"
	"testing"

	"remotelab/internal/wire"
)

func TestDecodeStartSessionTwoPins(t *testing.T) {
	// Byte-for-byte session bootstrap with two advertised pins.
	w := wire.NewWriter(ServerStartSession)
	w.PutString("abcd")
	w.PutUint16(1)
	w.PutString("plain")
	w.PutString("dev1")
	w.PutString("tok1")
	w.PutUint32(0x0000003C)
	w.PutUint64(0x0000000066000000)
	w.PutUint16(2)
	w.PutUint32(1)
	w.PutString("D0")
	w.PutUint8(uint8(PinInput))
	w.PutUint32(2)
	w.PutString("Q0")
	w.PutUint8(uint8(PinOutput))

	encoded := w.Bytes()
	gotFrame, err := wire.ReadFrame(bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	f, err := Decode(gotFrame.Opcode, gotFrame.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ss, ok := f.(StartSession)
	if !ok {
		t.Fatalf("got %T, want StartSession", f)
	}
	if ss.DeviceID != 1 {
		t.Fatalf("DeviceID = %d, want 1", ss.DeviceID)
	}
	if ss.MinWaitTimeS != 0x3C {
		t.Fatalf("MinWaitTimeS = %d, want 60", ss.MinWaitTimeS)
	}
	if ss.AllowUntilEpoch != 0x0000000066000000 {
		t.Fatalf("AllowUntilEpoch = %#x, want %#x", ss.AllowUntilEpoch, uint64(0x66000000))
	}
	if len(ss.Pins) != 2 {
		t.Fatalf("len(Pins) = %d, want 2", len(ss.Pins))
	}
	if ss.Pins[0] != (Pin{ID: 1, Name: "D0", Type: PinInput}) {
		t.Fatalf("Pins[0] = %+v", ss.Pins[0])
	}
	if ss.Pins[1] != (Pin{ID: 2, Name: "Q0", Type: PinOutput}) {
		t.Fatalf("Pins[1] = %+v", ss.Pins[1])
	}
}

func TestDecodeStartSessionNotEnoughDevices(t *testing.T) {
	w := wire.NewWriter(ServerStartSession)
	w.PutString("tok")
	w.PutUint16(0)
	w.PutUint8(1)
	w.PutString("queue?")
	gotFrame, err := wire.ReadFrame(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	f, err := Decode(gotFrame.Opcode, gotFrame.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	ss := f.(StartSession)
	if ss.DeviceID != 0 || ss.ErrorCode != 1 || ss.ErrorMessage != "queue?" {
		t.Fatalf("got %+v", ss)
	}
}

func TestDecodeQueueInfo(t *testing.T) {
	w := wire.NewWriter(ServerQueueInfo)
	w.PutString("tok1")
	w.PutUint8(3)
	w.PutUint8(2)
	w.PutUint32(120)
	w.PutUint64(1700000600)
	gotFrame, err := wire.ReadFrame(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	f, err := Decode(gotFrame.Opcode, gotFrame.Payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	qi := f.(QueueInfo)
	if qi.Position != 2 || qi.DeviceAllowedTimeS != 120 || qi.EstimatedEpoch != 1700000600 {
		t.Fatalf("got %+v", qi)
	}
}

func TestDecodeUnknownOpcode(t *testing.T) {
	if _, err := Decode(0xEE, nil); err == nil {
		t.Fatal("expected error for unknown opcode")
	}
}

func TestDecodeTrailingBytesIsProtocolError(t *testing.T) {
	w := wire.NewWriter(ServerPong)
	w.PutUint64(1)
	w.PutUint8(9) // extra trailing byte
	gotFrame, err := wire.ReadFrame(bytes.NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if _, err := Decode(gotFrame.Opcode, gotFrame.Payload); err == nil {
		t.Fatal("expected trailing-bytes error")
	}
}

func TestEncodeUpdateInput(t *testing.T) {
	got := EncodeUpdateInput(1, true)
	want := []byte{0x00, 0x00, 0x00, 0x06, 0x04, 0x00, 0x00, 0x00, 0x01, 0x01}
	if !bytes.Equal(got, want) {
		t.Fatalf("got % X, want % X", got, want)
	}
}
