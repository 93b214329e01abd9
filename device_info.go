package adb

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const deviceListHeader = "List of devices attached"

// DeviceInfo is one row of `adb devices -l`.
type DeviceInfo struct {
	// Always set.
	Serial string
	State  DeviceState
	// Product, device, and model are not set in the short form.
	Product    string
	Model      string
	DeviceInfo string
	// Only set for devices connected via USB.
	USB string
	// TransportID is assigned by the adb server per connection. 0 if unknown.
	TransportID int
}

func newDevice(serial string, state DeviceState, attrs map[string]string) (DeviceInfo, error) {
	if serial == "" {
		return DeviceInfo{}, errors.Wrap(ErrAssertionViolation, "device serial cannot be blank")
	}
	info := DeviceInfo{
		Serial:     serial,
		State:      state,
		Product:    attrs["product"],
		Model:      attrs["model"],
		DeviceInfo: attrs["device"],
		USB:        attrs["usb"],
	}
	if id, ok := attrs["transport_id"]; ok {
		n, err := strconv.Atoi(id)
		if err != nil || n < 0 {
			return DeviceInfo{}, errors.Wrapf(ErrParsing, "malformed transport_id %q for %s", id, serial)
		}
		info.TransportID = n
	}
	return info, nil
}

// IsUSB returns true if the device is connected via USB.
func (d DeviceInfo) IsUSB() bool {
	return d.USB != ""
}

// parseDeviceList parses the output of `adb devices` or `adb devices -l`.
// Lines before the "List of devices attached" header, daemon notices and
// blank lines are skipped. If a serial appears twice the first row wins.
func parseDeviceList(list io.Reader) ([]DeviceInfo, error) {
	devices := []DeviceInfo{}
	seen := map[string]bool{}
	scanner := bufio.NewScanner(list)

	var inList bool
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !inList {
			inList = line == deviceListHeader
			continue
		}
		if line == "" || strings.HasPrefix(line, "* ") {
			continue
		}
		device, err := parseDeviceLine(line)
		if err != nil {
			return nil, err
		}
		if seen[device.Serial] {
			continue
		}
		seen[device.Serial] = true
		devices = append(devices, device)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "reading device list")
	}
	if !inList {
		return nil, errors.Wrapf(ErrParsing, "missing %q header", deviceListHeader)
	}
	return devices, nil
}

// parseDeviceLine parses a single row in either the short or the long form:
//
//	192.168.1.31:5555   device product:uzw4010tim model:TIM_BOX device:uzw4010tim transport_id:1
func parseDeviceLine(line string) (DeviceInfo, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return DeviceInfo{}, errors.Wrapf(ErrParsing,
			"malformed device line, expected at least 2 fields but found %d", len(fields))
	}

	// "no permissions" is followed by free text; only known attributes count.
	var state DeviceState
	if fields[1] == "no" && len(fields) > 2 && fields[2] == "permissions" {
		state = StateNoPermissions
	} else {
		var err error
		if state, err = ParseDeviceState(fields[1]); err != nil {
			return DeviceInfo{}, errors.WithMessagef(err, "device %s", fields[0])
		}
	}

	return newDevice(fields[0], state, parseDeviceAttributes(fields[2:]))
}

var deviceAttributeKeys = map[string]bool{
	"usb":          true,
	"product":      true,
	"model":        true,
	"device":       true,
	"transport_id": true,
}

func parseDeviceAttributes(fields []string) map[string]string {
	attrs := map[string]string{}
	for _, field := range fields {
		key, val, ok := parseKeyVal(field)
		if ok && deviceAttributeKeys[key] {
			attrs[key] = val
		}
	}
	return attrs
}

// Parses a key:val pair and returns key, val. The value may itself contain colons.
func parseKeyVal(pair string) (string, string, bool) {
	split := strings.SplitN(pair, ":", 2)
	if len(split) != 2 || split[0] == "" {
		return "", "", false
	}
	return split[0], split[1], true
}
