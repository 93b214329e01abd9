package adb

import (
	"strings"

	"github.com/pkg/errors"
)

// DeviceState represents a state adb reports for a device.
// A device can be communicated with when it's in StateOnline.
// A USB device will make the following state transitions:
//
//	Plugged in: StateDisconnected->StateOffline->StateOnline
//	Unplugged:  StateOnline->StateDisconnected
type DeviceState uint8

const (
	StateInvalid DeviceState = iota
	StateUnauthorized
	StateDisconnected
	StateOffline
	StateOnline
	StateAuthorizing
	StateConnecting
	StateBootloader
	StateRecovery
	StateRescue
	StateSideload
	StateHost
	StateNoPermissions
)

var deviceStateStrings = map[string]DeviceState{
	"":               StateDisconnected,
	"offline":        StateOffline,
	"device":         StateOnline,
	"unauthorized":   StateUnauthorized,
	"authorizing":    StateAuthorizing,
	"connecting":     StateConnecting,
	"bootloader":     StateBootloader,
	"recovery":       StateRecovery,
	"rescue":         StateRescue,
	"sideload":       StateSideload,
	"host":           StateHost,
	"no permissions": StateNoPermissions,
}

// ParseDeviceState parses a state as printed by `adb get-state` or
// `adb devices`. Unknown states yield StateInvalid and ErrParsing.
func ParseDeviceState(str string) (DeviceState, error) {
	if state, ok := deviceStateStrings[strings.TrimSpace(str)]; ok {
		return state, nil
	}
	return StateInvalid, errors.Wrapf(ErrParsing, "unknown device state %q", str)
}

func (s DeviceState) String() string {
	switch s {
	case StateUnauthorized:
		return "unauthorized"
	case StateDisconnected:
		return "disconnected"
	case StateOffline:
		return "offline"
	case StateOnline:
		return "device"
	case StateNoPermissions:
		return "no permissions"
	case StateInvalid:
		return "invalid"
	}
	for str, state := range deviceStateStrings {
		if state == s && str != "" {
			return str
		}
	}
	return "invalid"
}

// DeviceStateChangedEvent represents a device state transition.
// Contains the device’s old and new states, but also provides methods to
// query the type of state transition.
type DeviceStateChangedEvent struct {
	Serial   string
	OldState DeviceState
	NewState DeviceState
}

// CameOnline returns true if this event represents a device coming online.
func (s DeviceStateChangedEvent) CameOnline() bool {
	return s.OldState != StateOnline && s.NewState == StateOnline
}

// WentOffline returns true if this event represents a device going offline.
func (s DeviceStateChangedEvent) WentOffline() bool {
	return s.OldState == StateOnline && s.NewState != StateOnline
}
