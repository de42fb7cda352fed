//go:build tinygo

package ble

import (
	"fmt"
	"log"

	"tinygo.org/x/bluetooth"
)

// Register enables the adapter, adds the telemetry service and starts
// advertising under name. The returned sink tracks the connection state.
func Register(adapter *bluetooth.Adapter, name string) (*Sink, error) {
	serviceUUID, err := bluetooth.ParseUUID(ServiceUUID)
	if err != nil {
		return nil, fmt.Errorf("parse service uuid: %w", err)
	}
	charUUID, err := bluetooth.ParseUUID(CharacteristicUUID)
	if err != nil {
		return nil, fmt.Errorf("parse characteristic uuid: %w", err)
	}

	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("enable adapter: %w", err)
	}

	var char bluetooth.Characteristic
	sink := NewSink(&char)
	adapter.SetConnectHandler(func(device bluetooth.Address, connected bool) {
		log.Printf("ble: central %s connected=%v", device.String(), connected)
		sink.SetConnected(connected)
	})

	err = adapter.AddService(&bluetooth.Service{
		UUID: serviceUUID,
		Characteristics: []bluetooth.CharacteristicConfig{
			{
				Handle: &char,
				UUID:   charUUID,
				Flags:  bluetooth.CharacteristicNotifyPermission,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("add service: %w", err)
	}

	adv := adapter.DefaultAdvertisement()
	err = adv.Configure(bluetooth.AdvertisementOptions{
		LocalName:    name,
		ServiceUUIDs: []bluetooth.UUID{serviceUUID},
	})
	if err != nil {
		return nil, fmt.Errorf("configure advertisement: %w", err)
	}
	if err := adv.Start(); err != nil {
		return nil, fmt.Errorf("start advertising: %w", err)
	}
	return sink, nil
}
