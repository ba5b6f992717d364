package server

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"remotelab/internal/devsession"
)

// broadcaster is the single drain of one Session's event channel
// (devsession.Session.Events() has exactly one producer side and is not
// itself a pub/sub primitive — see sol.Manager's broadcast channel, which
// this generalizes). It fans each event out to metrics, the journal, and
// any number of SSE subscribers registered via subscribe.
type broadcaster struct {
	device string
	jrnl   journalRecorder
	mset   metricsRecorder

	mu   sync.Mutex
	subs map[chan devsession.Event]struct{}
}

// journalRecorder and metricsRecorder narrow *journal.Writer/*metrics.Set
// to the one method each actually needs, so a nil value (journaling or
// metrics disabled) is just "do nothing" rather than a nil-pointer panic.
type journalRecorder interface {
	Record(device, kind string, fields map[string]any) error
}

type metricsRecorder interface {
	SessionPhase(device string, phaseOrdinal int)
	QueuePosition(device string, position uint8)
	QueueETASeconds(device string, seconds float64)
	LatencyMs(device string, ms uint16)
}

func newBroadcaster(device string, jrnl journalRecorder, mset metricsRecorder) *broadcaster {
	return &broadcaster{
		device: device,
		jrnl:   jrnl,
		mset:   mset,
		subs:   make(map[chan devsession.Event]struct{}),
	}
}

// run drains sess.Events() until the channel closes (session torn down),
// recording every event and fanning it out to current subscribers.
func (b *broadcaster) run(sess *devsession.Session) {
	for e := range sess.Events() {
		b.record(e)
		b.fanOut(e)
	}
	b.mu.Lock()
	for ch := range b.subs {
		close(ch)
	}
	b.subs = make(map[chan devsession.Event]struct{})
	b.mu.Unlock()
}

func (b *broadcaster) record(e devsession.Event) {
	switch v := e.(type) {
	case devsession.SessionStateChanged:
		if b.jrnl != nil {
			if err := b.jrnl.Record(b.device, "phase", map[string]any{"phase": v.Phase.String()}); err != nil {
				log.Warnf("server: journal record: %v", err)
			}
		}
		if b.mset != nil {
			b.mset.SessionPhase(b.device, int(v.Phase))
		}
	case devsession.QueueUpdated:
		if b.jrnl != nil {
			_ = b.jrnl.Record(b.device, "queue", map[string]any{
				"position": v.Position, "estimatedEpoch": v.EstimatedEpoch,
			})
		}
		if b.mset != nil {
			b.mset.QueuePosition(b.device, v.Position)
			eta := float64(v.EstimatedEpoch) - float64(time.Now().Unix())
			if eta < 0 {
				eta = 0
			}
			b.mset.QueueETASeconds(b.device, eta)
		}
	case devsession.LatencySample:
		if b.mset != nil {
			b.mset.LatencyMs(b.device, v.Ms)
		}
	case devsession.LatencyWarning:
		if b.jrnl != nil {
			_ = b.jrnl.Record(b.device, "latency_warning", map[string]any{
				"band": v.Band.String(), "unusable": v.Unusable,
			})
		}
	case devsession.MappingReset:
		if b.jrnl != nil {
			_ = b.jrnl.Record(b.device, "mapping_reset", nil)
		}
	}
}

// subscribe registers a fresh channel that receives every subsequent event;
// callers must drain it until closed and call unsubscribe when done.
func (b *broadcaster) subscribe() chan devsession.Event {
	ch := make(chan devsession.Event, 16)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *broadcaster) unsubscribe(ch chan devsession.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
	}
}

func (b *broadcaster) fanOut(e devsession.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			log.Warnf("server: subscriber channel full for %s, dropping event", b.device)
		}
	}
}
