package doorspec

// Pull selects a pin's input bias.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Edge selects which transition(s) an interrupt fires on.
type Edge uint8

const (
	EdgeNone Edge = iota
	EdgeRising
	EdgeFalling
	EdgeBoth
)

// GPIOPin is the narrow digital-pin surface components are built against.
// Implementations are supplied by the embedder (real silicon) or by
// internal/simpin (tests, the demo binary).
type GPIOPin interface {
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(level bool)
	Get() bool
	Number() int
}

// IRQPin extends GPIOPin with edge-interrupt registration. SetIRQ's handler
// runs in interrupt context: it must not block, allocate, or take a mutex.
type IRQPin interface {
	GPIOPin
	SetIRQ(edge Edge, handler func()) error
	ClearIRQ() error
}
