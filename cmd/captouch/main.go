//go:build tinygo && nrf52

// Command captouch is the sensor firmware. It reads the board version from
// UICR, starts the touch sensor in autonomous low-frequency mode and relays
// telemetry records over BLE.
package main

import (
	"context"
	"log"
	"machine"

	"tinygo.org/x/bluetooth"

	"github.com/sweeney/captouch/internal/ble"
	"github.com/sweeney/captouch/internal/board"
	"github.com/sweeney/captouch/internal/captouch"
	"github.com/sweeney/captouch/internal/hw"
	"github.com/sweeney/captouch/internal/led"
	"github.com/sweeney/captouch/internal/work"
)

const deviceName = "captouch"

func main() {
	spec := board.Lookup(board.VersionFromUICR(hw.UICRCustomer()))
	log.Printf("board: %s", spec.Name)

	coll := captouch.Collaborators{Board: spec}

	sink, err := ble.Register(bluetooth.DefaultAdapter, deviceName)
	if err != nil {
		log.Printf("ble: %v", err)
	} else {
		coll.Sink = sink
	}

	if idx, ok := spec.PinIndex(board.PinLEDTower); ok {
		coll.Indicator = led.NewBlinker(newPinLine(machine.Pin(idx), spec.ActiveLow(0)), work.RealClock)
	}

	q := work.NewQueue(work.DefaultDepth, work.RealClock)
	sensor := captouch.New(captouch.DefaultConfig(), hw.NRF52(), q, coll)
	if err := sensor.Init(func(uint8) {}); err != nil {
		log.Printf("captouch: %v", err)
	}
	if err := sensor.Start(); err != nil {
		log.Printf("captouch: %v", err)
	}

	q.Run(context.Background())
}

// pinLine drives an LED on a GPIO pin.
type pinLine struct {
	pin       machine.Pin
	activeLow bool
}

func newPinLine(pin machine.Pin, activeLow bool) pinLine {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	l := pinLine{pin: pin, activeLow: activeLow}
	l.Set(false)
	return l
}

func (l pinLine) Set(on bool) error {
	l.pin.Set(on != l.activeLow)
	return nil
}

func (l pinLine) Close() error {
	return l.Set(false)
}
