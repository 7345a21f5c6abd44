// Package seedconfig decodes an embedded default-configuration JSON blob,
// for the cmd/ bring-up demo only — the core never loads configuration
// itself, it is handed typed values by its embedder.
package seedconfig

import (
	"errors"

	"github.com/andreyvit/tinyjson"

	"garagedoor-core/doorspec"
)

// defaultBlob mirrors the persisted layout's scalar keys. In a real
// bring-up this would live in flash alongside the firmware image; here it
// is an embedded literal, exactly the role EmbeddedConfigLookup plays for
// device configs elsewhere in this codebase.
const defaultBlob = `{
	"reed_closed_pin": 14,
	"reed_open_pin": 15,
	"relay_pin": 16,
	"pulse_duration_ms": 500,
	"max_pulse_duration_ms": 600,
	"min_interval_ms": 1000
}`

// Defaults decodes the embedded blob into the two persisted config structs.
func Defaults() (doorspec.GpioConfig, doorspec.RelayConfig, error) {
	return decode([]byte(defaultBlob))
}

func decode(raw []byte) (doorspec.GpioConfig, doorspec.RelayConfig, error) {
	var gpio doorspec.GpioConfig
	var relay doorspec.RelayConfig

	r := tinyjson.Raw(raw)
	val := r.Value()
	r.EnsureEOF()

	m, ok := val.(map[string]any)
	if !ok {
		return gpio, relay, errors.New("seedconfig: embedded default is not a JSON object")
	}

	gpio.ReedClosedPin = intField(m, "reed_closed_pin")
	gpio.ReedOpenPin = intField(m, "reed_open_pin")
	gpio.RelayPin = intField(m, "relay_pin")

	relay.PulseDurationMs = uint32(intField(m, "pulse_duration_ms"))
	relay.MaxPulseDurationMs = uint32(intField(m, "max_pulse_duration_ms"))
	relay.MinIntervalMs = uint32(intField(m, "min_interval_ms"))

	return gpio, relay, nil
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
