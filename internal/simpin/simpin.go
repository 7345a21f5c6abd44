// Package simpin provides simulated GPIOPin/IRQPin doubles, generalizing the
// per-test fakePin/fakeIRQPin doubles into one shared package since two
// packages in this module need the same behaviour (the doorcontroller tests
// and the cmd/ bring-up demo).
package simpin

import "garagedoor-core/doorspec"

// Pin is a simulated GPIOPin: an in-memory level with a call-count record
// useful for assertions in tests.
type Pin struct {
	level   bool
	mode    string // "input" | "output"
	pull    doorspec.Pull
	num     int
	sets    int
	irq     func()
	irqEdge doorspec.Edge
}

// NewPin constructs a simulated pin with the given pin number.
func NewPin(number int) *Pin {
	return &Pin{num: number}
}

// ConfigureInput records the input mode and pull setting. It deliberately
// does not force the simulated level: on real hardware the pull resistor
// only biases an otherwise-floating line, it doesn't override whatever the
// external circuit (here, Drive) is asserting.
func (p *Pin) ConfigureInput(pull doorspec.Pull) error {
	p.mode = "input"
	p.pull = pull
	return nil
}

func (p *Pin) ConfigureOutput(initial bool) error {
	p.mode = "output"
	p.level = initial
	return nil
}

func (p *Pin) Set(level bool) {
	p.level = level
	p.sets++
}

func (p *Pin) Get() bool { return p.level }

func (p *Pin) Number() int { return p.num }

func (p *Pin) SetIRQ(edge doorspec.Edge, handler func()) error {
	p.irqEdge = edge
	p.irq = handler
	return nil
}

func (p *Pin) ClearIRQ() error {
	p.irq = nil
	p.irqEdge = doorspec.EdgeNone
	return nil
}

// Sets reports how many times Set has been called, for test assertions.
func (p *Pin) Sets() int { return p.sets }

// Drive changes the simulated electrical level and, if an edge handler is
// installed and the transition matches it, fires the handler synchronously
// — standing in for the real interrupt dispatch.
func (p *Pin) Drive(level bool) {
	prev := p.level
	p.level = level
	if p.irq == nil || prev == level {
		return
	}
	switch p.irqEdge {
	case doorspec.EdgeBoth:
		p.irq()
	case doorspec.EdgeRising:
		if level {
			p.irq()
		}
	case doorspec.EdgeFalling:
		if !level {
			p.irq()
		}
	}
}
