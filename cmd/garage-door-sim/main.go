// Command garage-door-sim wires the door-controller core to simulated GPIO
// pins and an in-memory KV store, for local bring-up and manual exercising
// of the open/close/stop API. It is bring-up glue only, never part of the
// core (spec §1's "top-level application bring-up" external collaborator).
package main

import (
	"time"

	"garagedoor-core/doorcontroller"
	"garagedoor-core/doorspec"
	"garagedoor-core/errcode"
	"garagedoor-core/internal/memkv"
	"garagedoor-core/internal/seedconfig"
	"garagedoor-core/internal/simpin"
	"garagedoor-core/reedsensor"
	"garagedoor-core/relay"
	"garagedoor-core/storage"
)

func main() {
	println("Info: garage-door-sim starting")
	time.Sleep(200 * time.Millisecond) // settle, mirrors real board bring-up

	gpioCfg, relayCfg, err := seedconfig.Defaults()
	if err != nil {
		println("Error: seedconfig:", err.Error())
		return
	}

	store := storage.New(memkv.New())
	store.SaveGpioConfig(gpioCfg)
	store.SaveRelayConfig(relayCfg)

	closedPin := simpin.NewPin(gpioCfg.ReedClosedPin)
	openPin := simpin.NewPin(gpioCfg.ReedOpenPin)
	relayPin := simpin.NewPin(gpioCfg.RelayPin)

	// Start at rest, door closed.
	closedPin.ConfigureInput(doorspec.PullUp)
	openPin.ConfigureInput(doorspec.PullUp)
	closedPin.Drive(false) // closed-line low: magnet engaged
	openPin.Drive(true)

	reed := reedsensor.New()
	if code := reed.Init(closedPin, openPin); code != errcode.OK {
		println("Error: reed init failed")
		return
	}

	rl := relay.New()
	rl.SetConfig(relayCfg)
	if code := rl.Init(relayPin); code != errcode.OK {
		println("Error: relay init failed")
		return
	}

	ctl := doorcontroller.New(reed, rl, store)
	ctl.RegisterStateCallback(func(s doorspec.DoorState) {
		println("Info: subscriber notified, new state:", s.String())
	})
	if code := ctl.Init(); code != errcode.OK {
		println("Error: controller init failed")
		return
	}

	println("Info: initial state:", ctl.GetState().String())

	if code := ctl.Open(); code != errcode.OK {
		println("Error: open rejected")
	}

	// Simulate the door travelling and the open-line reed settling.
	time.Sleep(600 * time.Millisecond)
	closedPin.Drive(true)
	openPin.Drive(false)

	time.Sleep(200 * time.Millisecond)
	println("Info: final state:", ctl.GetState().String())

	ctl.Deinit()
	reed.Deinit()
	rl.Deinit()
}
