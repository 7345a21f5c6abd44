// Package reedsensor implements C1: a debounced, interrupt-sourced
// three-valued reader over two end-position reed switches.
package reedsensor

import (
	"sync"
	"sync/atomic"
	"time"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/timeutil"
)

// Sensor debounces edge interrupts from two reed inputs into a settled
// position and a single subscriber notification per settled change.
//
// The edge handlers run in interrupt context and must not block or take
// mu: they only set a pending flag and arm the debounce timer, exactly the
// handoff the concurrency model requires. Only the timer goroutine, running
// outside interrupt context, re-reads the pins and calls the subscriber.
type Sensor struct {
	mu sync.Mutex

	initialized bool
	closedPin   doorspec.IRQPin
	openPin     doorspec.IRQPin
	cfg         doorspec.GpioConfig
	callback    func(doorspec.DoorPosition)

	debounce time.Duration

	pending atomic.Bool
	timer   *time.Timer
	stopCh  chan struct{}
	wg      sync.WaitGroup

	lastPublished atomic.Uint32 // doorspec.DoorPosition, for coalescing only
}

// New constructs an uninitialised sensor. Call SetGPIOConfig then Init.
func New() *Sensor {
	return &Sensor{debounce: doorspec.DebounceMs * time.Millisecond}
}

// SetDebounce overrides the debounce window (default doorspec.DebounceMs).
// Permitted only before Init; tests use this to avoid waiting out the real
// 50ms window.
func (s *Sensor) SetDebounce(d time.Duration) errcode.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errcode.InvalidState
	}
	s.debounce = d
	return errcode.OK
}

// SetGPIOConfig is permitted only before Init.
func (s *Sensor) SetGPIOConfig(cfg doorspec.GpioConfig) errcode.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errcode.InvalidState
	}
	s.cfg = cfg
	return errcode.OK
}

// Init configures both reed inputs as pulled-up, both-edge interrupt
// sources, and starts the debounce-timer dispatch goroutine.
func (s *Sensor) Init(closedPin, openPin doorspec.IRQPin) errcode.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return errcode.InvalidState
	}
	if closedPin == nil || openPin == nil {
		return errcode.InvalidArgument
	}
	if err := closedPin.ConfigureInput(doorspec.PullUp); err != nil {
		return errcode.IoError
	}
	if err := openPin.ConfigureInput(doorspec.PullUp); err != nil {
		return errcode.IoError
	}

	s.closedPin = closedPin
	s.openPin = openPin
	s.timer = time.NewTimer(time.Hour)
	timeutil.DrainTimer(s.timer)
	s.stopCh = make(chan struct{})

	// A failure to install on one pin because the shared interrupt
	// service is already claimed for the other is not fatal: registration
	// simply proceeds for the remaining pin.
	_ = closedPin.SetIRQ(doorspec.EdgeBoth, s.makeEdgeHandler())
	_ = openPin.SetIRQ(doorspec.EdgeBoth, s.makeEdgeHandler())

	s.lastPublished.Store(uint32(s.readPositionLocked()))

	s.wg.Add(1)
	go s.dispatchLoop()

	s.initialized = true
	return errcode.OK
}

// Deinit removes interrupts, stops the debounce timer, and clears the
// callback.
func (s *Sensor) Deinit() errcode.Code {
	s.mu.Lock()
	if !s.initialized {
		s.mu.Unlock()
		return errcode.InvalidState
	}
	_ = s.closedPin.ClearIRQ()
	_ = s.openPin.ClearIRQ()
	s.timer.Stop()
	s.pending.Store(false)
	close(s.stopCh)
	s.initialized = false
	s.callback = nil
	s.mu.Unlock()

	s.wg.Wait()
	return errcode.OK
}

// RegisterCallback installs the single position-change subscriber.
func (s *Sensor) RegisterCallback(fn func(doorspec.DoorPosition)) errcode.Code {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callback = fn
	return errcode.OK
}

// Position is a synchronous three-valued read of the raw lines, applying
// the electrical convention table directly — independent of debounce
// settling, so a caller always gets the live levels.
func (s *Sensor) Position() doorspec.DoorPosition {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readPositionLocked()
}

func (s *Sensor) readPositionLocked() doorspec.DoorPosition {
	if s.closedPin == nil || s.openPin == nil {
		return doorspec.PositionUnknown
	}
	closedLow := !s.closedPin.Get()
	openLow := !s.openPin.Get()
	switch {
	case closedLow && !openLow:
		return doorspec.PositionClosed
	case !closedLow && openLow:
		return doorspec.PositionOpen
	case !closedLow && !openLow:
		return doorspec.PositionBetween
	default: // both low: mutually exclusive sensors asserted
		return doorspec.PositionUnknown
	}
}

// makeEdgeHandler returns the interrupt-context callback shared by both
// pins: it never blocks, never allocates on the hot path beyond the closure
// capture done once at Init, and never takes mu.
func (s *Sensor) makeEdgeHandler() func() {
	return func() {
		if s.pending.CompareAndSwap(false, true) {
			s.timer.Reset(s.debounce)
		}
	}
}

// dispatchLoop runs in task/timer context: on debounce expiry it clears the
// pending flag, re-reads the settled position, and — only if it changed from
// the last published value — invokes the subscriber exactly once. Any edges
// that arrived during the debounce window coalesce into this one call.
func (s *Sensor) dispatchLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.stopCh:
			return
		case <-s.timer.C:
			s.pending.Store(false)

			s.mu.Lock()
			pos := s.readPositionLocked()
			cb := s.callback
			s.mu.Unlock()

			if doorspec.DoorPosition(s.lastPublished.Load()) == pos {
				continue
			}
			s.lastPublished.Store(uint32(pos))
			if cb != nil {
				cb(pos)
			}
		}
	}
}
