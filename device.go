package adb

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Device runs adb commands against a specific Android device.
// To get an instance, call Device() on a Server or look it up in a Registry.
type Device struct {
	server     *Server
	descriptor DeviceDescriptor

	// Info is the row of `adb devices -l` the device was last seen in.
	// Only set for devices obtained from a Registry.
	Info DeviceInfo
}

func (d *Device) String() string {
	return d.descriptor.String()
}

// Serial returns the serial the device is addressed by, or the serial from
// its device list entry if it was selected some other way.
func (d *Device) Serial() string {
	if s := d.descriptor.Serial(); s != "" {
		return s
	}
	return d.Info.Serial
}

// command runs `adb <selector> args...`.
func (d *Device) command(ctx context.Context, args ...string) (*Output, error) {
	return d.server.run(ctx, append(d.descriptor.args(), args...)...)
}

// commandChecked is like command but reports a non-zero exit as a *CommandError.
// The output is returned in both cases.
func (d *Device) commandChecked(ctx context.Context, args ...string) (*Output, error) {
	out, err := d.command(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return out, newCommandError(out)
	}
	return out, nil
}

// State runs `adb get-state` for the device.
func (d *Device) State(ctx context.Context) (DeviceState, error) {
	out, err := d.command(ctx, "get-state")
	if err != nil {
		return StateInvalid, errors.Wrap(err, "State")
	}
	if out.Success() {
		state, err := ParseDeviceState(out.String())
		return state, errors.Wrap(err, "State")
	}

	// adb refuses get-state for devices it cannot talk to and names the
	// state in the error instead.
	msg := strings.TrimSpace(string(out.Stderr))
	switch {
	case strings.HasPrefix(msg, "error: device offline"):
		return StateOffline, nil
	case strings.HasPrefix(msg, "error: device unauthorized"):
		return StateUnauthorized, nil
	case strings.HasPrefix(msg, "error: device still authorizing"):
		return StateAuthorizing, nil
	case strings.HasPrefix(msg, "error: device still connecting"):
		return StateConnecting, nil
	case strings.HasPrefix(msg, "error: no devices"),
		strings.HasPrefix(msg, "error: device") && strings.Contains(msg, "not found"):
		return StateInvalid, errors.Wrapf(ErrDeviceNotFound, "State: %s", msg)
	}
	return StateInvalid, errors.Wrap(newCommandError(out), "State")
}

// Push copies the local file or directory to remote on the device.
func (d *Device) Push(ctx context.Context, local, remote string) (*Output, error) {
	if isBlank(local) || isBlank(remote) {
		return nil, errors.Wrap(ErrAssertionViolation, "Push: local and remote paths are required")
	}
	out, err := d.commandChecked(ctx, "push", local, remote)
	return out, errors.WithMessagef(err, "Push(%s, %s)", local, remote)
}

// Pull copies remote from the device to the local file or directory.
func (d *Device) Pull(ctx context.Context, remote, local string) (*Output, error) {
	if isBlank(remote) || isBlank(local) {
		return nil, errors.Wrap(ErrAssertionViolation, "Pull: remote and local paths are required")
	}
	out, err := d.commandChecked(ctx, "pull", remote, local)
	return out, errors.WithMessagef(err, "Pull(%s, %s)", remote, local)
}

/*
Shell runs the specified command in a shell on the device.

The command line is joined with spaces and interpreted by the device shell.
Arguments containing whitespace are double-quoted for you; an argument
containing a double quote is rejected.

The returned error is a *CommandError if the remote command exits
non-zero. The output is returned either way.
*/
func (d *Device) Shell(ctx context.Context, cmd string, args ...string) (*Output, error) {
	line, err := prepareCommandLine(cmd, args...)
	if err != nil {
		return nil, err
	}
	out, err := d.commandChecked(ctx, "shell", line)
	return out, errors.WithMessage(err, "Shell")
}

// prepareCommandLine validates the command and argument strings, quotes
// arguments if required, and joins them into a valid adb command string.
func prepareCommandLine(cmd string, args ...string) (string, error) {
	if isBlank(cmd) {
		return "", errors.Wrap(ErrAssertionViolation, "command cannot be empty")
	}

	quoted := make([]string, 0, len(args)+1)
	quoted = append(quoted, cmd)
	for i, arg := range args {
		if strings.ContainsRune(arg, '"') {
			return "", errors.Wrapf(ErrParsing, "arg at index %d contains an invalid double quote: %s", i, arg)
		}
		if arg == "" || containsWhitespace(arg) {
			arg = fmt.Sprintf("\"%s\"", arg)
		}
		quoted = append(quoted, arg)
	}
	return strings.Join(quoted, " "), nil
}
