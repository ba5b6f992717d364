package devsession

// Event is the tagged union of host-facing notifications a Session emits.
// Handlers never call into host/UI code directly; they only ever produce
// one of these through the Session's buffered event channel, which the
// host drains at its own pace.
type Event interface{ event() }

// SessionStateChanged reports a Phase transition, for UI display.
type SessionStateChanged struct{ Phase Phase }

func (SessionStateChanged) event() {}

// SessionEstablished fires each time a START_SESSION with device_id != 0
// is handled (first start, leaving the queue, or a renewal while Expiring).
type SessionEstablished struct{ Auth SessionAuth }

func (SessionEstablished) event() {}

// PinSetChanged fires whenever mapped_pins was added to, removed from, or
// reset; the host should resize its I/O vectors.
type PinSetChanged struct{}

func (PinSetChanged) event() {}

// MappingReset fires when the reconnection-consistency rule discarded the
// prior mapped_pins set because the advertised pins changed shape.
type MappingReset struct{}

func (MappingReset) event() {}

// OutputChanged propagates one remote output bit to the host/simulator.
type OutputChanged struct {
	PinID uint32
	Value bool
}

func (OutputChanged) event() {}

// NeedQueueDecision asks the host to accept or decline queueing after a
// NotEnoughDevices reply. The host answers with Session.DecideQueue.
type NeedQueueDecision struct{ Message string }

func (NeedQueueDecision) event() {}

// QueueUpdated reports a fresh QUEUE_INFO while Queued.
type QueueUpdated struct {
	Position           uint8
	EstimatedEpoch     uint64
	DeviceAllowedTimeS uint32
}

func (QueueUpdated) event() {}

// LatencyWarning fires at most once per threshold per session: Unusable
// supersedes a prior Unstable warning.
type LatencyWarning struct {
	Band     Band
	Unusable bool
}

func (LatencyWarning) event() {}

// LatencySample reports one PONG round-trip measurement, emitted on every
// heartbeat reply so a host can feed a continuous metric, unlike
// LatencyWarning which only fires on threshold crossings.
type LatencySample struct{ Ms uint16 }

func (LatencySample) event() {}
