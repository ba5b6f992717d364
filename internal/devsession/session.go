// Package devsession implements the session state machine and heartbeat
// as a single-threaded cooperative event loop: socket-readable, 1-second
// tick, and command calls from the host are three independent streams
// merged into one select loop. All mutation of session state happens on
// that loop goroutine; callers never touch it directly, they submit a
// command and wait for its result.
package devsession

import (
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"remotelab/internal/errs"
	"remotelab/internal/pins"
	"remotelab/internal/protocol"
	"remotelab/internal/wire"
)

const (
	dialTimeout     = 5 * time.Second
	initialReadWait = 5 * time.Second
	tickInterval    = time.Second
	livenessWindow  = 10 * time.Second
)

// Session owns one TCP connection to a device gateway and the entire
// mutable state reachable from it: the session owns socket and timer
// exclusively, the host only ever holds a handle.
type Session struct {
	conn net.Conn

	phase   Phase
	auth    SessionAuth
	budget  TimeBudget
	queue   QueueInfo
	catalog *pins.Catalog
	hb      *heartbeat

	pendingQueueToken string
	lastPingMs        uint64
	lastLatencyMs     uint16

	events  chan Event
	cmds    chan cmd
	closeCh chan struct{}
}

type cmd struct {
	run  func(*Session) error
	resp chan error
}

// Dial opens the TCP session, sends LOGIN, and performs the bounded
// (5s) wait for the first START_SESSION reply. On success the returned
// Session is already running its event loop; on failure the socket is
// closed and no goroutine is left behind.
func Dial(addr string, auth SessionAuth, catalog *pins.Catalog) (*Session, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errs.Wrap(errs.Timeout, "connect to device gateway", err)
	}

	s := &Session{
		conn:    conn,
		phase:   Connecting,
		auth:    auth,
		catalog: catalog,
		hb:      newHeartbeat(),
		events:  make(chan Event, 32),
		cmds:    make(chan cmd),
		closeCh: make(chan struct{}),
	}

	frameCh := make(chan protocol.Frame, 8)
	errCh := make(chan error, 1)
	go s.readLoop(frameCh, errCh)

	if err := s.send(protocol.EncodeLogin(auth.DeviceTypeID, auth.MethodID, auth.Token)); err != nil {
		conn.Close()
		return nil, err
	}

	select {
	case f := <-frameCh:
		if ss, ok := f.(protocol.StartSession); ok {
			s.handleStartSession(ss)
		} else {
			s.shutdown(errs.New(errs.ProtocolError, "expected START_SESSION as first frame"))
		}
	case err := <-errCh:
		conn.Close()
		return nil, errs.Wrap(errs.ProtocolError, "reading initial START_SESSION", err)
	case <-time.After(initialReadWait):
		conn.Close()
		return nil, errs.New(errs.Timeout, "timed out waiting for START_SESSION")
	}

	if s.phase == Closed {
		return nil, errs.New(errs.AuthFailure, "login rejected")
	}

	go s.loop(frameCh, errCh)
	return s, nil
}

// Events exposes the buffered stream of host-facing notifications.
func (s *Session) Events() <-chan Event { return s.events }

// Phase reports the current lifecycle phase. Safe to call from any
// goroutine: callers only ever observe it, never mutate through it.
func (s *Session) Phase() Phase { return s.phase }

// Auth reports the session bootstrap identity, including the server's
// MethodName — the field vhelper.Applies checks for "VirtualHere" — once
// START_SESSION has been handled.
func (s *Session) Auth() SessionAuth { return s.auth }

func (s *Session) readLoop(frameCh chan<- protocol.Frame, errCh chan<- error) {
	for {
		wf, err := wire.ReadFrame(s.conn)
		if err != nil {
			errCh <- err
			return
		}
		f, err := protocol.Decode(wf.Opcode, wf.Payload)
		if err != nil {
			errCh <- err
			return
		}
		select {
		case frameCh <- f:
		case <-s.closeCh:
			return
		}
	}
}

func (s *Session) loop(frameCh chan protocol.Frame, errCh chan error) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for s.phase != Closed {
		select {
		case f := <-frameCh:
			s.dispatch(f)
		case err := <-errCh:
			s.shutdown(errs.Wrap(errs.ProtocolError, "socket read failed", err))
		case <-ticker.C:
			s.onTick()
		case c := <-s.cmds:
			c.resp <- c.run(s)
		}
	}
}

// do submits fn to run on the event-loop goroutine and blocks for its
// result; every exported mutator goes through this so state is only ever
// touched from the loop, giving a single consistent ordering guarantee.
func (s *Session) do(fn func(*Session) error) error {
	c := cmd{run: fn, resp: make(chan error, 1)}
	select {
	case s.cmds <- c:
	case <-s.closeCh:
		return errs.New(errs.NetworkError, "session already closed")
	}
	select {
	case err := <-c.resp:
		return err
	case <-s.closeCh:
		return errs.New(errs.NetworkError, "session already closed")
	}
}

// MapPin applies the mapping rule and, on success, pushes IO_INFO so the
// server learns which pins to push updates for.
func (s *Session) MapPin(name string, dir pins.Direction) error {
	return s.do(func(s *Session) error {
		if err := s.catalog.MapPin(name, dir); err != nil {
			return err
		}
		s.emit(PinSetChanged{})
		return s.send(protocol.EncodeIOInfo(s.lastLatencyMs, s.catalog.WirePins()))
	})
}

// SetInput implements change-only input propagation.
func (s *Session) SetInput(id uint32, value bool) error {
	return s.do(func(s *Session) error {
		if !s.catalog.SetInput(id, value) {
			return nil
		}
		return s.send(protocol.EncodeUpdateInput(id, value))
	})
}

// DecideQueue answers a pending NeedQueueDecision. The socket is never
// closed before this call returns; declining closes it only now, after
// the user's choice.
func (s *Session) DecideQueue(accept bool) error {
	return s.do(func(s *Session) error {
		if s.pendingQueueToken == "" {
			return errs.New(errs.ProtocolError, "no pending queue decision")
		}
		token := s.pendingQueueToken
		s.pendingQueueToken = ""

		if !accept {
			return s.shutdown(nil)
		}
		if err := s.send(protocol.EncodeEnterQueue(token, s.auth.DeviceTypeID, s.auth.MethodID)); err != nil {
			return err
		}
		s.queue = QueueInfo{InQueue: true, WaitingSinceEpoch: nowEpoch()}
		s.setPhase(Queued)
		return nil
	})
}

// Close is a user-initiated disconnect: cancels the socket, clears
// available_pins/time/queue state, but preserves mapped_pins.
func (s *Session) Close() error {
	return s.do(func(s *Session) error {
		// An empty advertisement clears available_pins; Reconcile keeps
		// mapped_pins when there is no new pin to compare.
		s.catalog.Reconcile(nil)
		s.budget = TimeBudget{}
		s.queue = QueueInfo{}
		return s.shutdown(nil)
	})
}

func (s *Session) shutdown(cause error) error {
	if s.phase == Closed {
		return nil
	}
	s.conn.Close()
	s.setPhase(Closed)
	close(s.closeCh)
	close(s.events)
	if cause != nil {
		log.WithError(cause).Warn("devsession: session closed")
	} else {
		log.Info("devsession: session closed")
	}
	return cause
}

func (s *Session) setPhase(p Phase) {
	if s.phase == p {
		return
	}
	s.phase = p
	s.emit(SessionStateChanged{Phase: p})
}

func (s *Session) send(b []byte) error {
	if _, err := s.conn.Write(b); err != nil {
		return errs.Wrap(errs.NetworkError, "write frame", err)
	}
	return nil
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		log.Warn("devsession: event channel full, dropping event")
	}
}

// onTick is the 1-second tick: emit PING, evaluate liveness, grace, and
// total-time budget.
func (s *Session) onTick() {
	now := nowEpochMs()
	s.lastPingMs = now
	if err := s.send(protocol.EncodePing(now)); err != nil {
		s.shutdown(err)
		return
	}

	if !s.hb.alive() {
		s.shutdown(errs.New(errs.LivenessLost, "no heartbeat for 10s"))
		return
	}

	if s.phase == Active || s.phase == Expiring {
		remaining := s.budget.remaining(nowEpoch(), s.phase == Expiring)
		if remaining <= 0 {
			s.shutdown(errs.New(errs.TimeExpired, "time budget exhausted"))
		}
	}
}

func (s *Session) dispatch(f protocol.Frame) {
	switch v := f.(type) {
	case protocol.StartSession:
		s.handleStartSession(v)
	case protocol.Pong:
		s.handlePong(v)
	case protocol.UpdateOutput:
		s.catalog.SetOutput(v.PinID, v.Value)
		s.emit(OutputChanged{PinID: v.PinID, Value: v.Value})
	case protocol.TimeWarning:
		s.handleTimeWarning(v)
	case protocol.QueueInfo:
		s.handleQueueInfo(v)
	default:
		log.Warnf("devsession: unhandled frame type %T", f)
	}
}

func (s *Session) handleStartSession(v protocol.StartSession) {
	if v.DeviceID == 0 {
		if v.ErrorCode == 1 {
			s.pendingQueueToken = v.UserToken
			s.emit(NeedQueueDecision{Message: v.ErrorMessage})
			return
		}
		s.shutdown(errs.New(errs.AuthFailure, v.ErrorMessage))
		return
	}

	s.auth.DeviceID = v.DeviceID
	s.auth.MethodName = v.MethodName
	s.auth.DeviceName = v.DeviceName
	s.auth.DeviceToken = v.DeviceToken

	reset := s.catalog.Reconcile(toAvailablePins(v.Pins))

	s.budget = TimeBudget{
		MinWaitTimeS:    v.MinWaitTimeS,
		AllowUntilEpoch: v.AllowUntilEpoch,
		StartedEpoch:    nowEpoch(),
	}
	s.budget.TotalAllowedS = computeTotalAllowed(v.AllowUntilEpoch, v.MinWaitTimeS, s.budget.StartedEpoch)
	s.queue = QueueInfo{}

	s.setPhase(Active)
	s.emit(SessionEstablished{Auth: s.auth})
	if reset {
		s.emit(MappingReset{})
	}
	s.emit(PinSetChanged{})
}

func (s *Session) handlePong(v protocol.Pong) {
	nowMs := nowEpochMs()
	var latency uint64
	if nowMs > v.TimestampMs {
		latency = nowMs - v.TimestampMs
	}
	if latency > 0xFFFF {
		latency = 0xFFFF
	}
	s.lastLatencyMs = uint16(latency)
	s.emit(LatencySample{Ms: s.lastLatencyMs})

	switch s.hb.observe(s.lastLatencyMs) {
	case degradationUnstable:
		s.emit(LatencyWarning{Band: LatencyBand(s.lastLatencyMs), Unusable: false})
	case degradationUnusable:
		s.emit(LatencyWarning{Band: LatencyBand(s.lastLatencyMs), Unusable: true})
	}
}

func (s *Session) handleTimeWarning(v protocol.TimeWarning) {
	if !v.IsWarning {
		s.shutdown(errs.New(errs.TimeExpired, "grace period ended"))
		return
	}
	s.budget.AfterTimeStarted = v.AfterTimeStartedEpoch
	s.setPhase(Expiring)
}

func (s *Session) handleQueueInfo(v protocol.QueueInfo) {
	s.queue.Position = v.Position
	s.queue.DeviceAllowedTimeS = v.DeviceAllowedTimeS
	s.queue.applyEstimate(v.EstimatedEpoch, s.budget.MinWaitTimeS)
	s.queue.InQueue = true
	s.setPhase(Queued)
	s.emit(QueueUpdated{
		Position:           s.queue.Position,
		EstimatedEpoch:     s.queue.EstimatedEpoch,
		DeviceAllowedTimeS: s.queue.DeviceAllowedTimeS,
	})
}

func toAvailablePins(in []protocol.Pin) []pins.AvailablePin {
	out := make([]pins.AvailablePin, len(in))
	for i, p := range in {
		out[i] = pins.AvailablePin{ID: p.ID, Name: p.Name, Type: p.Type}
	}
	return out
}
