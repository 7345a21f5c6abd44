// Package doorcontroller implements C4: the door state machine combining
// ReedSensor, RelayDriver, and the persistence façade, plus the watchdog and
// operation-timeout timers and subscriber notification.
package doorcontroller

import (
	"sync"
	"time"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/timeutil"
	"garagedoor-core/relay"
	"garagedoor-core/reedsensor"
	"garagedoor-core/storage"
)

// Controller owns the state mutex, the watchdog/timeout scheduling, and the
// single-slot state-change subscriber. ReedSensor and RelayDriver are
// constructed and Init'd by the caller; Controller only wires into them.
type Controller struct {
	mu sync.Mutex

	reed  *reedsensor.Sensor
	relay *relay.Driver
	store *storage.Facade

	state       doorspec.DoorState
	timeoutMs   uint32
	initialized bool
	callback    func(doorspec.DoorState)

	timeoutTimer *time.Timer
	stopCh       chan struct{}
	wg           sync.WaitGroup

	// watchdogPeriod defaults to doorspec.WatchdogPeriodMs; tests may
	// shrink it so scenarios don't have to wait out the real 100ms tick.
	watchdogPeriod time.Duration

	// Logf is the ambient status-line hook (println-style, no fmt), fired
	// once per actual transition. Tests may replace it with a no-op or a
	// recording func.
	Logf func(args ...any)
}

// New wires a controller to its three collaborators. All three must already
// be constructed; Init still needs to be called.
func New(reed *reedsensor.Sensor, rl *relay.Driver, store *storage.Facade) *Controller {
	return &Controller{
		reed:           reed,
		relay:          rl,
		store:          store,
		Logf:           defaultLogf,
		watchdogPeriod: doorspec.WatchdogPeriodMs * time.Millisecond,
	}
}

func defaultLogf(args ...any) {
	line := "Info:"
	for _, a := range args {
		line += " " + argString(a)
	}
	println(line)
}

func argString(a any) string {
	switch v := a.(type) {
	case string:
		return v
	case doorspec.DoorState:
		return v.String()
	default:
		return "?"
	}
}

// Init recovers state from persistence (reconciling in-motion states
// against the live reed reading rather than ever resuming motion blind at
// boot), registers the ReedSensor callback, and starts the combined
// watchdog/timeout service loop.
func (c *Controller) Init() errcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.initialized {
		return errcode.InvalidState
	}

	persisted, code := c.store.LoadDoorState()
	switch {
	case code != errcode.OK:
		c.state = inferFromPosition(c.reed.Position())
	case persisted == doorspec.Opening || persisted == doorspec.Closing:
		// Never resume motion blind at boot: trust the live reading.
		c.state = inferFromPosition(c.reed.Position())
	case persisted == doorspec.Unknown:
		// Nothing useful was recovered (fresh install, or a genuinely
		// unknown persisted state) — fall back to inferring from the
		// live reed reading rather than staying uninformatively Unknown.
		c.state = inferFromPosition(c.reed.Position())
	default:
		c.state = persisted
	}

	c.timeoutMs = doorspec.DefaultTimeoutMs
	c.timeoutTimer = time.NewTimer(time.Hour)
	if !c.timeoutTimer.Stop() {
		timeutil.DrainTimer(c.timeoutTimer)
	}
	c.stopCh = make(chan struct{})

	c.reed.RegisterCallback(c.onPositionChange)

	c.wg.Add(1)
	go c.serviceLoop()

	c.initialized = true
	return errcode.OK
}

// Deinit tears down the service loop, the timer, and the callback.
func (c *Controller) Deinit() errcode.Code {
	c.mu.Lock()
	if !c.initialized {
		c.mu.Unlock()
		return errcode.InvalidState
	}
	close(c.stopCh)
	c.cancelTimeout()
	c.initialized = false
	c.callback = nil
	c.mu.Unlock()

	c.wg.Wait()
	return errcode.OK
}

// inferFromPosition applies the init-time inference rule: Closed->Closed,
// Open->Open, anything else->Unknown.
func inferFromPosition(pos doorspec.DoorPosition) doorspec.DoorState {
	switch pos {
	case doorspec.PositionClosed:
		return doorspec.Closed
	case doorspec.PositionOpen:
		return doorspec.Open
	default:
		return doorspec.Unknown
	}
}

// Open commands the door to open.
func (c *Controller) Open() errcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return errcode.InvalidState
	}
	if c.state != doorspec.Closed && c.state != doorspec.Stopped {
		return errcode.InvalidState
	}
	if code := c.relay.Activate(); code != errcode.OK {
		return code
	}
	c.transitionLocked(doorspec.Opening)
	c.armTimeout()
	c.logEventBestEffort(doorspec.EventDoorOpen, 0)
	return errcode.OK
}

// Close commands the door to close.
func (c *Controller) Close() errcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return errcode.InvalidState
	}
	if c.state != doorspec.Open && c.state != doorspec.Stopped {
		return errcode.InvalidState
	}
	if code := c.relay.Activate(); code != errcode.OK {
		return code
	}
	c.transitionLocked(doorspec.Closing)
	c.armTimeout()
	c.logEventBestEffort(doorspec.EventDoorClosed, 0)
	return errcode.OK
}

// Stop cancels an in-progress movement. It is a successful no-op from any
// resting state.
func (c *Controller) Stop() errcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return errcode.InvalidState
	}
	if c.state != doorspec.Opening && c.state != doorspec.Closing {
		return errcode.OK
	}
	c.cancelTimeout()
	c.transitionLocked(doorspec.Stopped)
	return errcode.OK
}

// GetState returns the current logical state.
func (c *Controller) GetState() doorspec.DoorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// IsMoving reports state ∈ {Opening, Closing}.
func (c *Controller) IsMoving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == doorspec.Opening || c.state == doorspec.Closing
}

// SetTimeout configures the operation timeout; ms must be >= 1000.
func (c *Controller) SetTimeout(ms uint32) errcode.Code {
	if ms < doorspec.MinTimeoutMs {
		return errcode.InvalidArgument
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeoutMs = ms
	return errcode.OK
}

// RegisterStateCallback installs the single state-change subscriber. It is
// invoked inside the controller's critical section and must not call back
// into the controller.
func (c *Controller) RegisterStateCallback(fn func(doorspec.DoorState)) errcode.Code {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callback = fn
	return errcode.OK
}

// transitionLocked applies the universal per-transition notification: log a
// state line, persist, then invoke the subscriber — only for an actual
// (old != new) transition. Callers hold mu.
func (c *Controller) transitionLocked(newState doorspec.DoorState) {
	old := c.state
	if old == newState {
		return
	}
	c.state = newState

	c.Logf("door:", old, "->", newState)

	if code := c.store.SaveDoorState(newState); code != errcode.OK {
		c.logEventBestEffort(doorspec.EventError, int32(errValue(code)))
	}

	if c.callback != nil {
		c.callback(newState)
	}
}

func (c *Controller) armTimeout() {
	timeutil.ResetTimer(c.timeoutTimer, time.Duration(c.timeoutMs)*time.Millisecond)
}

func (c *Controller) cancelTimeout() {
	if !c.timeoutTimer.Stop() {
		timeutil.DrainTimer(c.timeoutTimer)
	}
}

func (c *Controller) logEventBestEffort(typ doorspec.EventType, value int32) {
	ts := timeutil.NowMs()
	if code := c.store.LogEvent(typ, ts, value); code != errcode.OK && typ != doorspec.EventError {
		_ = c.store.LogEvent(doorspec.EventError, ts, int32(errValue(code)))
	}
}

func errValue(c errcode.Code) int {
	switch c {
	case errcode.InvalidState:
		return 1
	case errcode.InvalidArgument:
		return 2
	case errcode.OutOfMemory:
		return 3
	case errcode.NotFound:
		return 4
	case errcode.IoError:
		return 5
	default:
		return 99
	}
}

// onPositionChange is the ReedSensor's primary-path callback: it only runs
// on an actual settled position change (reedsensor already coalesces a
// burst of edges into one call), which is exactly what lets it double as
// the obstruction detector — a position that contradicts the direction of
// travel is only evidence of obstruction once the door is observed
// changing to it, not merely found unchanged from where the command
// started. It runs outside ReedSensor's own lock.
func (c *Controller) onPositionChange(pos doorspec.DoorPosition) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != doorspec.Opening && c.state != doorspec.Closing {
		return
	}
	switch c.state {
	case doorspec.Opening:
		switch pos {
		case doorspec.PositionOpen:
			c.cancelTimeout()
			c.transitionLocked(doorspec.Open)
		case doorspec.PositionClosed:
			c.cancelTimeout()
			c.transitionLocked(doorspec.Stopped)
			c.logEventBestEffort(doorspec.EventObstruction, int32(pos))
		}
	case doorspec.Closing:
		switch pos {
		case doorspec.PositionClosed:
			c.cancelTimeout()
			c.transitionLocked(doorspec.Closed)
		case doorspec.PositionOpen:
			c.cancelTimeout()
			c.transitionLocked(doorspec.Stopped)
			c.logEventBestEffort(doorspec.EventObstruction, int32(pos))
		}
	}
}

// watchdogTick is the backup path for reaching Open/Closed, run every
// watchdogPeriod from the service loop. It only confirms the terminal
// match for the current direction of travel — a door that has simply not
// moved away from its starting position is a stall, bounded by the
// operation timeout, not an obstruction; see the onPositionChange doc for
// why obstruction is change-driven rather than poll-driven.
func (c *Controller) watchdogTick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case doorspec.Opening:
		if c.reed.Position() == doorspec.PositionOpen {
			c.cancelTimeout()
			c.transitionLocked(doorspec.Open)
		}
	case doorspec.Closing:
		if c.reed.Position() == doorspec.PositionClosed {
			c.cancelTimeout()
			c.transitionLocked(doorspec.Closed)
		}
	}
}

func (c *Controller) onTimeout() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != doorspec.Opening && c.state != doorspec.Closing {
		return
	}
	c.transitionLocked(doorspec.Stopped)
	c.logEventBestEffort(doorspec.EventTimeout, 0)
}

// serviceLoop is the controller's single scheduling goroutine: a 100ms
// watchdog ticker fused with the re-armable operation-timeout timer, the
// same combined-select shape a single-owner timer-scheduled service loop
// takes elsewhere in this codebase.
func (c *Controller) serviceLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.watchdogPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.watchdogTick()
		case <-c.timeoutTimer.C:
			c.onTimeout()
		}
	}
}
