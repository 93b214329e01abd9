package adb

import (
	"context"
	"sort"

	"github.com/pkg/errors"
)

// Registry keeps the set of devices known to adb, keyed by serial.
// The view is only refreshed by Resync and by the Registry's own
// connect/disconnect calls. A Registry is not safe for concurrent use.
type Registry struct {
	server  *Server
	devices map[string]*Device
}

// NewRegistry returns an empty registry. Call Resync to populate it.
func NewRegistry(server *Server) *Registry {
	return &Registry{
		server:  server,
		devices: map[string]*Device{},
	}
}

// Devices returns all known devices, sorted by serial.
func (r *Registry) Devices() []*Device {
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Info.Serial < devices[j].Info.Serial
	})
	return devices
}

// Device looks up a device by serial.
func (r *Registry) Device(serial string) (*Device, bool) {
	d, ok := r.devices[serial]
	return d, ok
}

// Resync replaces the registry contents with the output of `adb devices -l`
// and returns the state changes relative to the previous contents.
// Devices that disappeared are reported with NewState StateDisconnected.
// On error the registry is left untouched.
func (r *Registry) Resync(ctx context.Context) ([]DeviceStateChangedEvent, error) {
	infos, err := r.server.ListDevices(ctx)
	if err != nil {
		return nil, errors.WithMessage(err, "Resync")
	}

	old := r.devices
	r.devices = make(map[string]*Device, len(infos))
	for _, info := range infos {
		r.devices[info.Serial] = r.newDevice(info)
	}
	return diffDevices(old, r.devices), nil
}

func diffDevices(old, cur map[string]*Device) []DeviceStateChangedEvent {
	var events []DeviceStateChangedEvent
	for serial, d := range cur {
		oldState := StateDisconnected
		if prev, ok := old[serial]; ok {
			oldState = prev.Info.State
		}
		if oldState != d.Info.State {
			events = append(events, DeviceStateChangedEvent{serial, oldState, d.Info.State})
		}
	}
	for serial, prev := range old {
		if _, ok := cur[serial]; !ok && prev.Info.State != StateDisconnected {
			events = append(events, DeviceStateChangedEvent{serial, prev.Info.State, StateDisconnected})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		return events[i].Serial < events[j].Serial
	})
	return events
}

func (r *Registry) newDevice(info DeviceInfo) *Device {
	d := r.server.Device(DeviceWithSerial(info.Serial))
	d.Info = info
	return d
}

// Pair pairs with a device over wireless debugging. The registry is not
// changed; the paired device still has to be connected.
func (r *Registry) Pair(ctx context.Context, address, code string) error {
	return r.server.Pair(ctx, address, code)
}

// Connect connects to a device over TCP, queries its state and adds it to
// the registry. Its transport id stays unknown until the next Resync.
// A device that is already known keeps its info and only gets a new state.
func (r *Registry) Connect(ctx context.Context, address string) (*Device, error) {
	serial, err := r.server.Connect(ctx, address)
	if err != nil {
		return nil, err
	}
	d, known := r.devices[serial]
	if !known {
		d = r.server.Device(DeviceWithSerial(serial))
	}
	state, err := d.State(ctx)
	if err != nil {
		return nil, errors.WithMessagef(err, "Connect(%s)", serial)
	}
	if known {
		// Keep what the last Resync learned about the device.
		d.Info.State = state
		return d, nil
	}
	d.Info = DeviceInfo{Serial: serial, State: state}
	r.devices[serial] = d
	return d, nil
}

// Disconnect disconnects the device with the given serial and forgets it.
func (r *Registry) Disconnect(ctx context.Context, serial string) error {
	if err := r.server.Disconnect(ctx, serial); err != nil {
		return err
	}
	delete(r.devices, serial)
	return nil
}

// DisconnectAll disconnects all TCP devices and empties the registry.
func (r *Registry) DisconnectAll(ctx context.Context) error {
	if err := r.server.DisconnectAll(ctx); err != nil {
		return err
	}
	r.devices = map[string]*Device{}
	return nil
}
