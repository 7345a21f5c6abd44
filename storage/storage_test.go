package storage

import (
	"testing"

	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/memkv"
)

func TestFacade_GpioConfigRoundTrip(t *testing.T) {
	f := New(memkv.New())
	cfg := doorspec.GpioConfig{ReedClosedPin: 1, ReedOpenPin: 2, RelayPin: 3}
	if code := f.SaveGpioConfig(cfg); code != errcode.OK {
		t.Fatalf("SaveGpioConfig: %v", code)
	}
	got, code := f.LoadGpioConfig()
	if code != errcode.OK {
		t.Fatalf("LoadGpioConfig: %v", code)
	}
	if got != cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}

func TestFacade_LoadGpioConfig_NotFound(t *testing.T) {
	f := New(memkv.New())
	if _, code := f.LoadGpioConfig(); code != errcode.NotFound {
		t.Fatalf("got %v, want NotFound", code)
	}
}

func TestFacade_RelayConfigRoundTrip(t *testing.T) {
	f := New(memkv.New())
	cfg := doorspec.RelayConfig{PulseDurationMs: 500, MaxPulseDurationMs: 600, MinIntervalMs: 1000}
	if code := f.SaveRelayConfig(cfg); code != errcode.OK {
		t.Fatalf("SaveRelayConfig: %v", code)
	}
	got, code := f.LoadRelayConfig()
	if code != errcode.OK {
		t.Fatalf("LoadRelayConfig: %v", code)
	}
	if got != cfg {
		t.Fatalf("got %+v, want %+v", got, cfg)
	}
}

func TestFacade_DoorStateAbsentResolvesToUnknown(t *testing.T) {
	f := New(memkv.New())
	s, code := f.LoadDoorState()
	if code != errcode.OK {
		t.Fatalf("absent door state should be OK, got %v", code)
	}
	if s != doorspec.Unknown {
		t.Fatalf("got %v, want Unknown", s)
	}
}

func TestFacade_DoorStateRoundTrip(t *testing.T) {
	f := New(memkv.New())
	if code := f.SaveDoorState(doorspec.Open); code != errcode.OK {
		t.Fatalf("SaveDoorState: %v", code)
	}
	s, code := f.LoadDoorState()
	if code != errcode.OK || s != doorspec.Open {
		t.Fatalf("got (%v, %v), want (Open, OK)", s, code)
	}
}

func TestFacade_EventLog_ChronologicalAndBounded(t *testing.T) {
	f := New(memkv.New())
	for i := 0; i < 5; i++ {
		if code := f.LogEvent(doorspec.EventDoorOpen, int64(i), int32(i)); code != errcode.OK {
			t.Fatalf("LogEvent %d: %v", i, code)
		}
	}
	logs, code := f.GetLogs(100)
	if code != errcode.OK {
		t.Fatalf("GetLogs: %v", code)
	}
	if len(logs) != 5 {
		t.Fatalf("got %d entries, want 5", len(logs))
	}
	for i, rec := range logs {
		if rec.Value != int32(i) {
			t.Fatalf("entry %d: got value %d, want %d (chronological order)", i, rec.Value, i)
		}
	}
}

func TestFacade_EventLog_WrapsPastCapacity(t *testing.T) {
	f := New(memkv.New())
	total := doorspec.EventLogCapacity + 10
	for i := 0; i < total; i++ {
		if code := f.LogEvent(doorspec.EventDoorOpen, int64(i), int32(i)); code != errcode.OK {
			t.Fatalf("LogEvent %d: %v", i, code)
		}
	}
	logs, code := f.GetLogs(doorspec.EventLogCapacity)
	if code != errcode.OK {
		t.Fatalf("GetLogs: %v", code)
	}
	if len(logs) != doorspec.EventLogCapacity {
		t.Fatalf("got %d entries, want %d (capped)", len(logs), doorspec.EventLogCapacity)
	}
	// The most recent EventLogCapacity entries, oldest-first: values
	// total-capacity .. total-1.
	want := total - doorspec.EventLogCapacity
	if logs[0].Value != int32(want) {
		t.Fatalf("first retained entry value = %d, want %d", logs[0].Value, want)
	}
	if logs[len(logs)-1].Value != int32(total-1) {
		t.Fatalf("last retained entry value = %d, want %d", logs[len(logs)-1].Value, total-1)
	}
}

func TestFacade_FactoryReset(t *testing.T) {
	f := New(memkv.New())
	f.SaveDoorState(doorspec.Open)
	f.LogEvent(doorspec.EventDoorOpen, 0, 0)

	if code := f.FactoryReset(); code != errcode.OK {
		t.Fatalf("FactoryReset: %v", code)
	}

	s, code := f.LoadDoorState()
	if code != errcode.OK || s != doorspec.Unknown {
		t.Fatalf("after reset: got (%v, %v), want (Unknown, OK)", s, code)
	}
	logs, _ := f.GetLogs(10)
	if len(logs) != 0 {
		t.Fatalf("after reset: expected no logs, got %d", len(logs))
	}
}
