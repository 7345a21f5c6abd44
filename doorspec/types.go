// Package doorspec holds the data model shared by every component of the
// garage-door controller core: the door/position enums, the persisted
// configuration shapes, the event-log record, and the hardware pin
// abstractions the components are built against.
package doorspec

// DoorState is the controller's persisted logical state. The integer values
// are stable and are what gets written to persistence.
type DoorState uint8

const (
	Closed DoorState = iota
	Opening
	Open
	Closing
	Stopped
	Unknown
)

func (s DoorState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Opening:
		return "opening"
	case Open:
		return "open"
	case Closing:
		return "closing"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DoorPosition is the instantaneous, unpersisted reading of the two reed
// inputs.
type DoorPosition uint8

const (
	PositionUnknown DoorPosition = iota
	PositionClosed
	PositionOpen
	PositionBetween
)

func (p DoorPosition) String() string {
	switch p {
	case PositionClosed:
		return "closed"
	case PositionOpen:
		return "open"
	case PositionBetween:
		return "between"
	default:
		return "unknown"
	}
}

// RelayConfig bounds a relay's pulse behaviour. All fields are milliseconds.
type RelayConfig struct {
	PulseDurationMs    uint32
	MaxPulseDurationMs uint32
	MinIntervalMs      uint32
}

// DefaultRelayConfig matches the default parameters in the external
// interfaces section: a 500ms pulse, 600ms ceiling, 1000ms rate limit.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		PulseDurationMs:    500,
		MaxPulseDurationMs: 600,
		MinIntervalMs:      1000,
	}
}

// GpioConfig names the three GPIOs the controller drives/reads.
type GpioConfig struct {
	ReedClosedPin int
	ReedOpenPin   int
	RelayPin      int
}

// EventType tags an EventLog entry.
type EventType uint8

const (
	EventDoorOpen EventType = iota
	EventDoorClosed
	EventTimeout
	EventObstruction
	EventCommission
	EventError
)

// EventRecord is one ring-buffer entry.
type EventRecord struct {
	Type        EventType
	TimestampMs int64
	Value       int32
}

// DebounceMs is the reed-input debounce window (§6 default parameters).
const DebounceMs = 50

// DefaultTimeoutMs is the default operation timeout; MinTimeoutMs is the
// floor set_timeout enforces.
const (
	DefaultTimeoutMs = 30_000
	MinTimeoutMs     = 1_000
)

// WatchdogPeriodMs is the backup polling interval while the door is moving.
const WatchdogPeriodMs = 100

// EventLogCapacity bounds the persisted ring buffer.
const EventLogCapacity = 100
