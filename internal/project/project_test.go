package project

import (
	"bytes"
	"testing"

	"remotelab/internal/pins"
	"remotelab/internal/protocol"
)

func TestWriteReadRoundTrip(t *testing.T) {
	rec := Record{
		AvailablePins: []pins.AvailablePin{
			{ID: 1, Name: "D0", Type: protocol.PinInput},
			{ID: 2, Name: "Q0", Type: protocol.PinOutput},
		},
		MappedPins: []pins.MappedPin{
			{Name: "D0", Direction: pins.Input},
		},
	}

	var buf bytes.Buffer
	if err := Write(&buf, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}

	got, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(got.AvailablePins) != 2 || got.AvailablePins[0].Name != "D0" {
		t.Fatalf("got available pins %+v", got.AvailablePins)
	}
	if len(got.MappedPins) != 1 || got.MappedPins[0].Name != "D0" {
		t.Fatalf("got mapped pins %+v", got.MappedPins)
	}
}

func TestReadThenMoreStreamDataIsUntouched(t *testing.T) {
	rec := Record{}
	var buf bytes.Buffer
	if err := Write(&buf, rec); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf.WriteString("rest-of-project-stream")

	if _, err := Read(&buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if buf.String() != "rest-of-project-stream" {
		t.Fatalf("Read consumed bytes belonging to later sections: %q left", buf.String())
	}
}

func TestApplyToDropsPinsNoLongerAdvertised(t *testing.T) {
	c := pins.NewCatalog()
	c.Reconcile([]pins.AvailablePin{{ID: 1, Name: "D0", Type: protocol.PinInput}})

	ApplyTo(c, Record{MappedPins: []pins.MappedPin{
		{Name: "D0", Direction: pins.Input},
		{Name: "Gone", Direction: pins.Input},
	}})

	if len(c.MappedPins()) != 1 {
		t.Fatalf("mapped pins = %+v, want only D0", c.MappedPins())
	}
}
