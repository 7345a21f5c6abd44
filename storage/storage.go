// Package storage implements C3: a narrow typed façade over an opaque
// external key-value store, matching the persisted layout in the external
// interfaces section (namespace "garage_door").
package storage

import (
	"encoding/binary"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/kv"
	"garagedoor-core/internal/mathx"
)

const (
	keyReedClosed = "reed_closed"
	keyReedOpen   = "reed_open"
	keyRelay      = "relay"
	keyPulseDur   = "pulse_dur"
	keyMaxPulse   = "max_pulse"
	keyMinInt     = "min_int"
	keyDoorState  = "door_state"
	keyEvtCount   = "evt_count"
	keyEvtPrefix  = "evt_"
)

// Facade is the persistence façade. All writes serialise through the
// single underlying kv.Store handle.
type Facade struct {
	store kv.Store
}

// New wraps an externally owned kv.Store.
func New(store kv.Store) *Facade {
	return &Facade{store: store}
}

func eventKey(slot uint64) string {
	return keyEvtPrefix + u64ToDec(slot%doorspec.EventLogCapacity)
}

// u64ToDec avoids pulling in strconv's formatting machinery for what is
// always a value in 0..99.
func u64ToDec(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

func putU32(store kv.Store, key string, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return store.Set(key, b[:])
}

func getU32(store kv.Store, key string) (uint32, bool) {
	raw, ok := store.Get(key)
	if !ok || len(raw) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(raw), true
}

// SaveGpioConfig persists the three GPIO pin numbers.
func (f *Facade) SaveGpioConfig(cfg doorspec.GpioConfig) errcode.Code {
	if err := putU32(f.store, keyReedClosed, uint32(cfg.ReedClosedPin)); err != nil {
		return errcode.IoError
	}
	if err := putU32(f.store, keyReedOpen, uint32(cfg.ReedOpenPin)); err != nil {
		return errcode.IoError
	}
	if err := putU32(f.store, keyRelay, uint32(cfg.RelayPin)); err != nil {
		return errcode.IoError
	}
	return errcode.OK
}

// LoadGpioConfig loads the three GPIO pin numbers. Absence of any key is
// NotFound, surfaced to the caller (unlike door-state load).
func (f *Facade) LoadGpioConfig() (doorspec.GpioConfig, errcode.Code) {
	var cfg doorspec.GpioConfig
	closedPin, ok := getU32(f.store, keyReedClosed)
	if !ok {
		return cfg, errcode.NotFound
	}
	openPin, ok := getU32(f.store, keyReedOpen)
	if !ok {
		return cfg, errcode.NotFound
	}
	relayPin, ok := getU32(f.store, keyRelay)
	if !ok {
		return cfg, errcode.NotFound
	}
	cfg.ReedClosedPin = int(closedPin)
	cfg.ReedOpenPin = int(openPin)
	cfg.RelayPin = int(relayPin)
	return cfg, errcode.OK
}

// SaveRelayConfig persists pulse timing parameters.
func (f *Facade) SaveRelayConfig(cfg doorspec.RelayConfig) errcode.Code {
	if err := putU32(f.store, keyPulseDur, cfg.PulseDurationMs); err != nil {
		return errcode.IoError
	}
	if err := putU32(f.store, keyMaxPulse, cfg.MaxPulseDurationMs); err != nil {
		return errcode.IoError
	}
	if err := putU32(f.store, keyMinInt, cfg.MinIntervalMs); err != nil {
		return errcode.IoError
	}
	return errcode.OK
}

// LoadRelayConfig loads pulse timing parameters.
func (f *Facade) LoadRelayConfig() (doorspec.RelayConfig, errcode.Code) {
	var cfg doorspec.RelayConfig
	pulse, ok := getU32(f.store, keyPulseDur)
	if !ok {
		return cfg, errcode.NotFound
	}
	maxPulse, ok := getU32(f.store, keyMaxPulse)
	if !ok {
		return cfg, errcode.NotFound
	}
	minInt, ok := getU32(f.store, keyMinInt)
	if !ok {
		return cfg, errcode.NotFound
	}
	cfg.PulseDurationMs = pulse
	cfg.MaxPulseDurationMs = maxPulse
	cfg.MinIntervalMs = minInt
	return cfg, errcode.OK
}

// SaveDoorState persists the integer encoding of a DoorState.
func (f *Facade) SaveDoorState(s doorspec.DoorState) errcode.Code {
	if err := putU32(f.store, keyDoorState, uint32(s)); err != nil {
		return errcode.IoError
	}
	return errcode.OK
}

// LoadDoorState loads the persisted DoorState. Absence resolves to Unknown
// with success, per the error-handling design — state load never surfaces
// NotFound to the caller.
func (f *Facade) LoadDoorState() (doorspec.DoorState, errcode.Code) {
	v, ok := getU32(f.store, keyDoorState)
	if !ok {
		return doorspec.Unknown, errcode.OK
	}
	return doorspec.DoorState(v), errcode.OK
}

// LogEvent appends one event-log entry. The write counter is a
// monotonically increasing count, persisted as a u32 (never itself wrapped
// mod 100 — only the physical slot is), so a reboot can tell "5 entries ever written" apart
// from "105 entries ever written" for the purposes of GetLogs' ordering.
func (f *Facade) LogEvent(typ doorspec.EventType, tsMs int64, value int32) errcode.Code {
	count, _ := getU32(f.store, keyEvtCount)
	n := uint64(count)

	var b [12]byte
	binary.LittleEndian.PutUint32(b[0:4], uint32(typ))
	binary.LittleEndian.PutUint32(b[4:8], uint32(tsMs))
	binary.LittleEndian.PutUint32(b[8:12], uint32(value))
	if err := f.store.Set(eventKey(n), b[:]); err != nil {
		return errcode.IoError
	}
	if err := putU32(f.store, keyEvtCount, uint32(n+1)); err != nil {
		return errcode.IoError
	}
	return errcode.OK
}

// GetLogs returns up to max of the most recently written entries, in
// chronological (oldest-first) order.
func (f *Facade) GetLogs(max int) ([]doorspec.EventRecord, errcode.Code) {
	count, _ := getU32(f.store, keyEvtCount)
	n := uint64(count)

	avail := mathx.Min(int(mathx.Min(n, doorspec.EventLogCapacity)), max)
	if avail <= 0 {
		return nil, errcode.OK
	}

	out := make([]doorspec.EventRecord, 0, avail)
	start := n - uint64(avail)
	for i := start; i < n; i++ {
		raw, ok := f.store.Get(eventKey(i))
		if !ok {
			continue
		}
		if len(raw) < 12 {
			continue
		}
		out = append(out, doorspec.EventRecord{
			Type:        doorspec.EventType(binary.LittleEndian.Uint32(raw[0:4])),
			TimestampMs: int64(binary.LittleEndian.Uint32(raw[4:8])),
			Value:       int32(binary.LittleEndian.Uint32(raw[8:12])),
		})
	}
	return out, errcode.OK
}

// FactoryReset erases the backing partition and reseeds it empty, mirroring
// a close/erase/reopen cycle on the underlying namespace.
func (f *Facade) FactoryReset() errcode.Code {
	if err := f.store.Reset(); err != nil {
		return errcode.IoError
	}
	return errcode.OK
}
