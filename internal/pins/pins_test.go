package pins

import (
	"testing"

	"remotelab/internal/protocol"
)

func TestMapPinRules(t *testing.T) {
	c := NewCatalog()
	c.Reconcile([]AvailablePin{
		{ID: 7, Name: "X", Type: protocol.PinGeneralPurpose},
		{ID: 8, Name: "Y", Type: protocol.PinInput},
	})

	if err := c.MapPin("X", Input); err != nil {
		t.Fatalf("map X as Input: %v", err)
	}
	if err := c.MapPin("Y", Output); err == nil {
		t.Fatal("expected rejection mapping typed pin to wrong direction")
	}
	if err := c.MapPin("X", Output); err == nil {
		t.Fatal("expected rejection for duplicate name")
	}
}

func TestMapPinUnknownName(t *testing.T) {
	c := NewCatalog()
	c.Reconcile([]AvailablePin{{ID: 1, Name: "A", Type: protocol.PinInput}})
	if err := c.MapPin("B", Input); err == nil {
		t.Fatal("expected rejection for unknown pin name")
	}
}

func TestChangeOnlyInputPropagation(t *testing.T) {
	c := NewCatalog()
	c.Reconcile([]AvailablePin{{ID: 1, Name: "A", Type: protocol.PinInput}})
	if err := c.MapPin("A", Input); err != nil {
		t.Fatalf("MapPin: %v", err)
	}

	if changed := c.SetInput(1, false); changed {
		t.Fatal("setting to initial value should not report a change")
	}
	if changed := c.SetInput(1, true); !changed {
		t.Fatal("first flip to true should report a change")
	}
	if changed := c.SetInput(1, true); changed {
		t.Fatal("repeating true should not report a change")
	}
}

func TestReconcileIdenticalPinsPreservesMapping(t *testing.T) {
	c := NewCatalog()
	pins := []AvailablePin{{ID: 1, Name: "A", Type: protocol.PinInput}}
	c.Reconcile(pins)
	if err := c.MapPin("A", Input); err != nil {
		t.Fatalf("MapPin: %v", err)
	}

	reset := c.Reconcile(pins)
	if reset {
		t.Fatal("identical reconnect should not reset mapping")
	}
	if len(c.MappedPins()) != 1 {
		t.Fatalf("mapped pins = %d, want 1", len(c.MappedPins()))
	}
}

func TestReconcileChangedPinsResetsMapping(t *testing.T) {
	c := NewCatalog()
	c.Reconcile([]AvailablePin{{ID: 1, Name: "A", Type: protocol.PinInput}})
	if err := c.MapPin("A", Input); err != nil {
		t.Fatalf("MapPin: %v", err)
	}

	reset := c.Reconcile([]AvailablePin{{ID: 2, Name: "A", Type: protocol.PinInput}})
	if !reset {
		t.Fatal("renumbered pin id should trigger reset")
	}
	if len(c.MappedPins()) != 0 {
		t.Fatalf("mapped pins = %d, want 0 after reset", len(c.MappedPins()))
	}
}

func TestMappedInOutCountMatchesKeySets(t *testing.T) {
	c := NewCatalog()
	c.Reconcile([]AvailablePin{
		{ID: 1, Name: "A", Type: protocol.PinInput},
		{ID: 2, Name: "B", Type: protocol.PinOutput},
	})
	c.MapPin("A", Input)
	c.MapPin("B", Output)

	if len(c.MappedPins()) != len(c.Inputs())+len(c.Outputs()) {
		t.Fatal("mapped pin count must equal inputs+outputs key count")
	}
}
