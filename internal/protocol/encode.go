package protocol

import "remotelab/internal/wire"

// MappedPinWire is the wire shape for one entry of an IO_INFO payload.
type MappedPinWire struct {
	ID   uint32
	Type PinType
}

// EncodeLogin builds the first frame sent after TCP connect.
func EncodeLogin(deviceTypeID, methodID uint8, token string) []byte {
	w := wire.NewWriter(ClientLogin)
	w.PutUint8(deviceTypeID)
	w.PutUint8(methodID)
	w.PutString(token)
	return w.Bytes()
}

// EncodePing builds a heartbeat frame carrying the client's ms-epoch clock.
func EncodePing(nowMs uint64) []byte {
	w := wire.NewWriter(ClientPing)
	w.PutUint64(nowMs)
	return w.Bytes()
}

// EncodeIOInfo publishes the current mapped-pin set and last-measured
// latency so the server knows which pins to push updates for.
func EncodeIOInfo(latencyMs uint16, pins []MappedPinWire) []byte {
	w := wire.NewWriter(ClientIOInfo)
	w.PutUint16(latencyMs)
	w.PutUint16(uint16(len(pins)))
	for _, p := range pins {
		w.PutUint32(p.ID)
		w.PutUint8(uint8(p.Type))
	}
	return w.Bytes()
}

// EncodeUpdateInput reports one changed input bit.
func EncodeUpdateInput(pinID uint32, value bool) []byte {
	w := wire.NewWriter(ClientUpdateInput)
	w.PutUint32(pinID)
	if value {
		w.PutUint8(1)
	} else {
		w.PutUint8(0)
	}
	return w.Bytes()
}

// EncodeEnterQueue opts into the queue after a NotEnoughDevices reply.
func EncodeEnterQueue(token string, deviceTypeID, methodID uint8) []byte {
	w := wire.NewWriter(ClientEnterQueue)
	w.PutString(token)
	w.PutUint8(deviceTypeID)
	w.PutUint8(methodID)
	return w.Bytes()
}
