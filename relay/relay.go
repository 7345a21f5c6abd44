// Package relay implements C2: a one-shot, bounded-duration relay pulse
// driver with rate-limiting and strict non-overlap.
package relay

import (
	"sync"
	"time"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/mathx"
	"garagedoor-core/internal/timeutil"
)

// Driver drives a single relay GPIO idle-low, active-high. All mutations of
// active/lastStart/the timer occur under mu; the timer callback (running on
// a dedicated goroutine, standing in for timer dispatch context) also takes
// mu, per the concurrency model.
type Driver struct {
	mu sync.Mutex

	initialized bool
	pin         doorspec.GPIOPin
	cfg         doorspec.RelayConfig
	callback    func()

	active    bool
	lastStart int64 // ms since boot
	timer     *time.Timer
	stopCh    chan struct{}
	wg        sync.WaitGroup
}

// New constructs an uninitialised driver with default config.
func New() *Driver {
	return &Driver{cfg: doorspec.DefaultRelayConfig()}
}

// Init configures the output low and creates the pulse timer.
func (d *Driver) Init(pin doorspec.GPIOPin) errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.initialized {
		return errcode.InvalidState
	}
	if pin == nil {
		return errcode.InvalidArgument
	}
	if err := pin.ConfigureOutput(false); err != nil {
		return errcode.IoError
	}
	d.pin = pin
	d.timer = time.NewTimer(time.Hour)
	timeutil.DrainTimer(d.timer)
	d.stopCh = make(chan struct{})
	d.lastStart = -int64(d.cfg.MinIntervalMs) // first activation is never rate-limited

	d.wg.Add(1)
	go d.dispatchLoop()

	d.initialized = true
	return errcode.OK
}

// Deinit tears down the timer goroutine and clears state. A pulse in
// progress is not cut short — the relay must not "stick" active, but
// deiniting while active is the caller's mistake to avoid; the timer still
// fires and drives the pin low from dispatchLoop until stopCh is observed
// on its next iteration, so Deinit waits for that to settle.
func (d *Driver) Deinit() errcode.Code {
	d.mu.Lock()
	if !d.initialized {
		d.mu.Unlock()
		return errcode.InvalidState
	}
	close(d.stopCh)
	d.initialized = false
	d.callback = nil
	d.mu.Unlock()

	d.wg.Wait()
	return errcode.OK
}

// SetConfig replaces the relay's timing configuration.
func (d *Driver) SetConfig(cfg doorspec.RelayConfig) errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
	return errcode.OK
}

// GetConfig returns the current timing configuration.
func (d *Driver) GetConfig() doorspec.RelayConfig {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cfg
}

// IsActive reports whether a pulse is currently energized.
func (d *Driver) IsActive() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// RegisterCallback installs the single pulse-completion subscriber.
func (d *Driver) RegisterCallback(fn func()) errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callback = fn
	return errcode.OK
}

// Activate pulses for the configured PulseDurationMs.
func (d *Driver) Activate() errcode.Code {
	d.mu.Lock()
	ms := d.cfg.PulseDurationMs
	d.mu.Unlock()
	return d.ActivatePulse(ms)
}

// ActivatePulse pulses for a caller-supplied duration, in ms.
func (d *Driver) ActivatePulse(durationMs uint32) errcode.Code {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return errcode.InvalidState
	}
	if durationMs == 0 || durationMs > d.cfg.MaxPulseDurationMs {
		return errcode.InvalidArgument
	}
	if d.active {
		return errcode.InvalidState
	}
	now := timeutil.NowMs()
	if elapsedSince(now, d.lastStart) < int64(d.cfg.MinIntervalMs) {
		return errcode.InvalidState
	}

	d.pin.Set(true)
	d.active = true
	d.lastStart = now
	timeutil.ResetTimer(d.timer, time.Duration(durationMs)*time.Millisecond)
	return errcode.OK
}

// dispatchLoop is the timer-dispatch-context goroutine: it drives the pin
// low, clears active, and invokes the subscriber exactly once per pulse.
func (d *Driver) dispatchLoop() {
	defer d.wg.Done()
	for {
		select {
		case <-d.stopCh:
			d.mu.Lock()
			active := d.active
			d.mu.Unlock()
			if active {
				// Let the pulse in progress run out before returning.
				<-d.timer.C
				d.mu.Lock()
				d.pin.Set(false)
				d.active = false
				d.mu.Unlock()
			}
			return
		case <-d.timer.C:
			d.mu.Lock()
			if d.pin != nil {
				d.pin.Set(false)
			}
			d.active = false
			cb := d.callback
			d.mu.Unlock()

			if cb != nil {
				cb()
			}
		}
	}
}

// elapsedSince returns mathx.Max(0, now-start); kept as a named helper so
// the rate-limit comparison above reads the same way wherever it is needed.
func elapsedSince(now, start int64) int64 {
	return mathx.Max(int64(0), now-start)
}
