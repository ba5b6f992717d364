package bridge

import (
	"testing"

	"remotelab/internal/pins"
	"remotelab/internal/protocol"
)

type fakeSim struct {
	inputs  map[string]bool
	outputs map[string]bool
}

func newFakeSim() *fakeSim {
	return &fakeSim{inputs: make(map[string]bool), outputs: make(map[string]bool)}
}

func (f *fakeSim) ReadBit(name string) bool        { return f.inputs[name] }
func (f *fakeSim) WriteBit(name string, v bool)    { f.outputs[name] = v }

type fakeSession struct {
	sets []struct {
		id    uint32
		value bool
	}
}

func (f *fakeSession) SetInput(id uint32, value bool) error {
	f.sets = append(f.sets, struct {
		id    uint32
		value bool
	}{id, value})
	return nil
}

func newCatalog(t *testing.T) *pins.Catalog {
	t.Helper()
	c := pins.NewCatalog()
	c.Reconcile([]pins.AvailablePin{
		{ID: 1, Name: "D0", Type: protocol.PinInput},
		{ID: 2, Name: "Q0", Type: protocol.PinOutput},
	})
	if err := c.MapPin("D0", pins.Input); err != nil {
		t.Fatalf("MapPin D0: %v", err)
	}
	if err := c.MapPin("Q0", pins.Output); err != nil {
		t.Fatalf("MapPin Q0: %v", err)
	}
	return c
}

func TestTickForwardsEveryMappedInput(t *testing.T) {
	c := newCatalog(t)
	sim := newFakeSim()
	sess := &fakeSession{}
	b := New(c, sess, sim)

	if err := b.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sess.sets) != 1 {
		t.Fatalf("first tick: got %d SetInput calls, want 1 (initial false)", len(sess.sets))
	}

	sim.inputs["D0"] = true
	if err := b.Tick(); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	if len(sess.sets) != 2 || !sess.sets[1].value {
		t.Fatalf("expected a second SetInput call with true, got %+v", sess.sets)
	}
}

func TestApplyOutputWritesToSimulatorRegardlessOfPriorValue(t *testing.T) {
	c := newCatalog(t)
	sim := newFakeSim()
	sess := &fakeSession{}
	b := New(c, sess, sim)

	b.ApplyOutput(2, true)
	if !sim.outputs["Q0"] {
		t.Fatal("expected Q0 to be written true")
	}
	b.ApplyOutput(2, true) // server resend of the same value still writes
	if !sim.outputs["Q0"] {
		t.Fatal("expected Q0 still true after resend")
	}
}
