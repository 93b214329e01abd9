package adb

import (
	"fmt"
	"strconv"
)

// DeviceDescriptor selects the device an adb command is sent to.
type DeviceDescriptor struct {
	descriptor uint8
	// Only used if descriptor is serialDevice.
	serial string
	// Only used if descriptor is transportDevice.
	transportID int
}

const (
	device = iota
	usbDevice
	localDevice
	serialDevice
	transportDevice
)

var (
	// AnyDevice lets adb pick the only connected device.
	AnyDevice = DeviceDescriptor{descriptor: device}
	// AnyUSBDevice selects the only USB device (adb -d).
	AnyUSBDevice = DeviceDescriptor{descriptor: usbDevice}
	// AnyLocalDevice selects the only TCP or emulator device (adb -e).
	AnyLocalDevice = DeviceDescriptor{descriptor: localDevice}
)

// DeviceWithSerial selects a device by serial (adb -s).
func DeviceWithSerial(serial string) DeviceDescriptor {
	return DeviceDescriptor{descriptor: serialDevice, serial: serial}
}

// DeviceWithTransportID selects a device by transport id (adb -t).
func DeviceWithTransportID(id int) DeviceDescriptor {
	return DeviceDescriptor{descriptor: transportDevice, transportID: id}
}

func (d DeviceDescriptor) String() string {
	switch d.descriptor {
	case device:
		return "Device"
	case usbDevice:
		return "DeviceUSB"
	case localDevice:
		return "DeviceLocal"
	case serialDevice:
		return fmt.Sprintf("DeviceSerial[%s]", d.serial)
	case transportDevice:
		return fmt.Sprintf("DeviceTransport[%d]", d.transportID)
	default:
		return "<invalid DeviceDescriptor>"
	}
}

// Serial returns the serial for descriptors created by DeviceWithSerial.
func (d DeviceDescriptor) Serial() string {
	return d.serial
}

// args returns the global adb flags that select the device.
func (d DeviceDescriptor) args() []string {
	switch d.descriptor {
	case usbDevice:
		return []string{"-d"}
	case localDevice:
		return []string{"-e"}
	case serialDevice:
		return []string{"-s", d.serial}
	case transportDevice:
		return []string{"-t", strconv.Itoa(d.transportID)}
	default:
		return nil
	}
}
