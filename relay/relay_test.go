package relay

import (
	"sync"
	"testing"
	"time"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
)

// fakePin is a minimal doorspec.GPIOPin double recording every Set call.
type fakePin struct {
	mu    sync.Mutex
	level bool
	sets  int
}

func (p *fakePin) ConfigureInput(doorspec.Pull) error { return nil }
func (p *fakePin) ConfigureOutput(initial bool) error { p.level = initial; return nil }
func (p *fakePin) Set(level bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = level
	p.sets++
}
func (p *fakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}
func (p *fakePin) Number() int { return 0 }

var _ doorspec.GPIOPin = (*fakePin)(nil)

func TestRelay_ActivatePulse_BasicCycle(t *testing.T) {
	d := New()
	d.SetConfig(doorspec.RelayConfig{PulseDurationMs: 20, MaxPulseDurationMs: 50, MinIntervalMs: 5})
	p := &fakePin{}
	if code := d.Init(p); code != errcode.OK {
		t.Fatalf("Init: %v", code)
	}
	defer d.Deinit()

	if code := d.ActivatePulse(20); code != errcode.OK {
		t.Fatalf("ActivatePulse: %v", code)
	}
	if !d.IsActive() || !p.Get() {
		t.Fatal("expected active and pin high immediately after activation")
	}

	time.Sleep(40 * time.Millisecond)
	if d.IsActive() || p.Get() {
		t.Fatal("expected pulse to have ended")
	}
}

func TestRelay_InvalidArgument(t *testing.T) {
	d := New()
	d.SetConfig(doorspec.RelayConfig{PulseDurationMs: 20, MaxPulseDurationMs: 50, MinIntervalMs: 5})
	p := &fakePin{}
	if code := d.Init(p); code != errcode.OK {
		t.Fatalf("Init: %v", code)
	}
	defer d.Deinit()

	if code := d.ActivatePulse(0); code != errcode.InvalidArgument {
		t.Fatalf("zero duration: got %v, want InvalidArgument", code)
	}
	if code := d.ActivatePulse(51); code != errcode.InvalidArgument {
		t.Fatalf("over max: got %v, want InvalidArgument", code)
	}
}

func TestRelay_ExclusivityWhileActive(t *testing.T) {
	d := New()
	d.SetConfig(doorspec.RelayConfig{PulseDurationMs: 30, MaxPulseDurationMs: 50, MinIntervalMs: 5})
	p := &fakePin{}
	if code := d.Init(p); code != errcode.OK {
		t.Fatalf("Init: %v", code)
	}
	defer d.Deinit()

	if code := d.ActivatePulse(30); code != errcode.OK {
		t.Fatalf("first activation: %v", code)
	}
	if code := d.ActivatePulse(30); code != errcode.InvalidState {
		t.Fatalf("concurrent activation: got %v, want InvalidState", code)
	}
}

func TestRelay_RateLimit(t *testing.T) {
	d := New()
	d.SetConfig(doorspec.RelayConfig{PulseDurationMs: 10, MaxPulseDurationMs: 50, MinIntervalMs: 60})
	p := &fakePin{}
	if code := d.Init(p); code != errcode.OK {
		t.Fatalf("Init: %v", code)
	}
	defer d.Deinit()

	if code := d.ActivatePulse(10); code != errcode.OK {
		t.Fatalf("first activation: %v", code)
	}
	time.Sleep(20 * time.Millisecond) // pulse ends, but min_interval hasn't

	if code := d.ActivatePulse(10); code != errcode.InvalidState {
		t.Fatalf("too soon: got %v, want InvalidState", code)
	}

	time.Sleep(60 * time.Millisecond) // now well past min_interval from the first start
	if code := d.ActivatePulse(10); code != errcode.OK {
		t.Fatalf("after interval elapsed: %v", code)
	}
}

func TestRelay_CompletionCallback(t *testing.T) {
	d := New()
	d.SetConfig(doorspec.RelayConfig{PulseDurationMs: 15, MaxPulseDurationMs: 50, MinIntervalMs: 5})
	p := &fakePin{}
	if code := d.Init(p); code != errcode.OK {
		t.Fatalf("Init: %v", code)
	}
	defer d.Deinit()

	done := make(chan struct{}, 1)
	d.RegisterCallback(func() { done <- struct{}{} })

	if code := d.ActivatePulse(15); code != errcode.OK {
		t.Fatalf("ActivatePulse: %v", code)
	}

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected completion callback")
	}
}

func TestRelay_NotInitialized(t *testing.T) {
	d := New()
	if code := d.ActivatePulse(10); code != errcode.InvalidState {
		t.Fatalf("got %v, want InvalidState", code)
	}
}
