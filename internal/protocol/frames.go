package protocol

import (
	"fmt"

	"remotelab/internal/errs"
	"remotelab/internal/wire"
)

// Frame is the tagged union of all server->client messages a client can
// decode. Each concrete type implements frame() as a marker method.
type Frame interface {
	frame()
}

// Pin is one entry of an available-pin advertisement.
type Pin struct {
	ID   uint32
	Name string
	Type PinType
}

// StartSession is the session bootstrap (or rejection) message.
// ErrorCode/ErrorMessage are only meaningful when DeviceID == 0.
type StartSession struct {
	UserToken    string
	DeviceID     uint16
	ErrorCode    uint8
	ErrorMessage string

	MethodName      string
	DeviceName      string
	DeviceToken     string
	MinWaitTimeS    uint32
	AllowUntilEpoch uint64
	Pins            []Pin
}

func (StartSession) frame() {}

// Pong echoes a client PING timestamp.
type Pong struct {
	TimestampMs uint64
}

func (Pong) frame() {}

// UpdateOutput reports one remote output bit change.
type UpdateOutput struct {
	PinID uint32
	Value bool
}

func (UpdateOutput) frame() {}

// TimeWarning signals queue pressure (is_warning!=0, grace starting) or
// forced termination (is_warning==0).
type TimeWarning struct {
	IsWarning           bool
	AfterTimeStartedEpoch uint64
}

func (TimeWarning) frame() {}

// QueueInfo reports queue position/ETA while waiting.
type QueueInfo struct {
	UserToken           string
	TotalUsers           uint8
	Position             uint8
	DeviceAllowedTimeS   uint32
	EstimatedEpoch       uint64
}

func (QueueInfo) frame() {}

// Decode parses one server->client frame payload into a tagged Frame.
// Unknown opcodes are reported as a ProtocolError so the caller can log and
// skip (the frame is already fully delimited by the wire layer).
func Decode(opcode byte, payload []byte) (Frame, error) {
	r := wire.NewReader(payload)

	var f Frame
	var err error

	switch opcode {
	case ServerStartSession:
		f, err = decodeStartSession(r)
	case ServerPong:
		f, err = decodePong(r)
	case ServerUpdateOutput:
		f, err = decodeUpdateOutput(r)
	case ServerTimeWarning:
		f, err = decodeTimeWarning(r)
	case ServerQueueInfo:
		f, err = decodeQueueInfo(r)
	default:
		return nil, errs.New(errs.ProtocolError, fmt.Sprintf("unknown opcode %d", opcode))
	}
	if err != nil {
		return nil, errs.Wrap(errs.ProtocolError, "decode frame", err)
	}
	if !r.Exhausted() {
		return nil, errs.New(errs.ProtocolError, fmt.Sprintf("opcode %d: %d trailing bytes", opcode, r.Remaining()))
	}
	return f, nil
}

func decodeStartSession(r *wire.Reader) (Frame, error) {
	token, err := r.String()
	if err != nil {
		return nil, err
	}
	deviceID, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	ss := StartSession{UserToken: token, DeviceID: deviceID}

	if deviceID == 0 {
		code, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		msg, err := r.String()
		if err != nil {
			return nil, err
		}
		ss.ErrorCode = code
		ss.ErrorMessage = msg
		return ss, nil
	}

	methodName, err := r.String()
	if err != nil {
		return nil, err
	}
	deviceName, err := r.String()
	if err != nil {
		return nil, err
	}
	deviceToken, err := r.String()
	if err != nil {
		return nil, err
	}
	minWait, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	allowUntil, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	pinCount, err := r.Uint16()
	if err != nil {
		return nil, err
	}

	pins := make([]Pin, 0, pinCount)
	for i := uint16(0); i < pinCount; i++ {
		id, err := r.Uint32()
		if err != nil {
			return nil, err
		}
		name, err := r.String()
		if err != nil {
			return nil, err
		}
		typ, err := r.Uint8()
		if err != nil {
			return nil, err
		}
		pins = append(pins, Pin{ID: id, Name: name, Type: PinType(typ)})
	}

	ss.MethodName = methodName
	ss.DeviceName = deviceName
	ss.DeviceToken = deviceToken
	ss.MinWaitTimeS = minWait
	ss.AllowUntilEpoch = allowUntil
	ss.Pins = pins
	return ss, nil
}

func decodePong(r *wire.Reader) (Frame, error) {
	ts, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return Pong{TimestampMs: ts}, nil
}

func decodeUpdateOutput(r *wire.Reader) (Frame, error) {
	id, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	val, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	return UpdateOutput{PinID: id, Value: val != 0}, nil
}

func decodeTimeWarning(r *wire.Reader) (Frame, error) {
	isWarn, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	if isWarn == 0 {
		return TimeWarning{IsWarning: false}, nil
	}
	after, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return TimeWarning{IsWarning: true, AfterTimeStartedEpoch: after}, nil
}

func decodeQueueInfo(r *wire.Reader) (Frame, error) {
	token, err := r.String()
	if err != nil {
		return nil, err
	}
	total, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	pos, err := r.Uint8()
	if err != nil {
		return nil, err
	}
	allowedTime, err := r.Uint32()
	if err != nil {
		return nil, err
	}
	eta, err := r.Uint64()
	if err != nil {
		return nil, err
	}
	return QueueInfo{
		UserToken:          token,
		TotalUsers:         total,
		Position:           pos,
		DeviceAllowedTimeS: allowedTime,
		EstimatedEpoch:     eta,
	}, nil
}
