package adb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeviceState(t *testing.T) {
	var tests = []struct {
		name   string
		out    *Output
		want   DeviceState
		hasErr bool
	}{{
		name: "Online",
		out:  stdout("device\n"),
		want: StateOnline,
	}, {
		name: "Offline",
		out:  failure(1, "error: device offline\n"),
		want: StateOffline,
	}, {
		name: "Unauthorized",
		out:  failure(1, "error: device unauthorized.\nThis adb server's $ADB_VENDOR_KEYS is not set\n"),
		want: StateUnauthorized,
	}, {
		name: "Authorizing",
		out:  failure(1, "error: device still authorizing\n"),
		want: StateAuthorizing,
	}, {
		name: "Connecting",
		out:  failure(1, "error: device still connecting\n"),
		want: StateConnecting,
	}, {
		name:   "Unexpected",
		out:    failure(1, "error: protocol fault\n"),
		want:   StateInvalid,
		hasErr: true,
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, fake := newTestServer(t, call{args: "-s SERIAL get-state", out: test.out})
			state, err := s.Device(DeviceWithSerial("SERIAL")).State(context.Background())
			assert.Equal(t, test.want, state)
			assert.Equal(t, test.hasErr, err != nil)
			fake.assertDone()
		})
	}
}

func TestDeviceStateNotFound(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "-s SERIAL get-state", out: failure(1, "error: device 'SERIAL' not found\n")},
		call{args: "-d get-state", out: failure(1, "error: no devices found\n")},
	)
	ctx := context.Background()
	_, err := s.Device(DeviceWithSerial("SERIAL")).State(ctx)
	assert.Equal(t, ErrDeviceNotFound, errors.Cause(err))
	_, err = s.Device(AnyUSBDevice).State(ctx)
	assert.Equal(t, ErrDeviceNotFound, errors.Cause(err))
	fake.assertDone()
}

func TestDeviceSelectors(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "get-state", out: stdout("device\n")},
		call{args: "-e get-state", out: stdout("device\n")},
		call{args: "-t 3 get-state", out: stdout("recovery\n")},
	)
	ctx := context.Background()
	_, err := s.Device(AnyDevice).State(ctx)
	require.NoError(t, err)
	_, err = s.Device(AnyLocalDevice).State(ctx)
	require.NoError(t, err)
	state, err := s.Device(DeviceWithTransportID(3)).State(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateRecovery, state)
	fake.assertDone()
}

func TestDevicePushPull(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "-s SERIAL push local.txt /sdcard/remote.txt",
			out: stdout("local.txt: 1 file pushed, 0 skipped. 0.1 MB/s (12 bytes in 0.001s)\n")},
		call{args: "-s SERIAL pull /sdcard/remote.txt copy.txt",
			out: stdout("/sdcard/remote.txt: 1 file pulled, 0 skipped.\n")},
		call{args: "-s SERIAL pull /sdcard/missing.txt copy.txt",
			out: failure(1, "adb: error: failed to stat remote object '/sdcard/missing.txt': No such file or directory\n")},
	)
	ctx := context.Background()
	d := s.Device(DeviceWithSerial("SERIAL"))

	out, err := d.Push(ctx, "local.txt", "/sdcard/remote.txt")
	require.NoError(t, err)
	assert.Contains(t, out.String(), "1 file pushed")

	out, err = d.Pull(ctx, "/sdcard/remote.txt", "copy.txt")
	require.NoError(t, err)
	assert.True(t, out.Success())

	out, err = d.Pull(ctx, "/sdcard/missing.txt", "copy.txt")
	require.True(t, IsCommandError(err))
	assert.Equal(t, 1, out.ExitCode)
	assert.Contains(t, err.Error(), "No such file or directory")
	fake.assertDone()
}

func TestDevicePushBlank(t *testing.T) {
	s, fake := newTestServer(t)
	_, err := s.Device(AnyDevice).Push(context.Background(), "", "/sdcard")
	assert.Equal(t, ErrAssertionViolation, errors.Cause(err))
	fake.assertDone()
}

func TestDeviceShell(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "-s SERIAL shell echo \"hello world\"", out: stdout("hello world\n")},
		call{args: "-s SERIAL shell false", out: &Output{ExitCode: 1}},
	)
	ctx := context.Background()
	d := s.Device(DeviceWithSerial("SERIAL"))

	out, err := d.Shell(ctx, "echo", "hello world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out.String())

	out, err = d.Shell(ctx, "false")
	cmdErr, ok := errors.Cause(err).(*CommandError)
	require.True(t, ok)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Equal(t, 1, out.ExitCode)
	fake.assertDone()
}

func TestPrepareCommandLineEmpty(t *testing.T) {
	_, err := prepareCommandLine("")
	assert.Equal(t, ErrAssertionViolation, errors.Cause(err))
}

func TestPrepareCommandLineBlank(t *testing.T) {
	_, err := prepareCommandLine(" \t")
	assert.Equal(t, ErrAssertionViolation, errors.Cause(err))
}

func TestPrepareCommandLineCleanArgs(t *testing.T) {
	result, err := prepareCommandLine("cmd", "arg1", "arg2")
	assert.NoError(t, err)
	assert.Equal(t, "cmd arg1 arg2", result)
}

func TestPrepareCommandLineArgWithWhitespaceQuotes(t *testing.T) {
	result, err := prepareCommandLine("cmd", "arg with spaces", "")
	assert.NoError(t, err)
	assert.Equal(t, "cmd \"arg with spaces\" \"\"", result)
}

func TestPrepareCommandLineArgWithDoubleQuoteFails(t *testing.T) {
	_, err := prepareCommandLine("cmd", "quoted\"arg")
	assert.Equal(t, ErrParsing, errors.Cause(err))
	assert.EqualError(t, err, "arg at index 0 contains an invalid double quote: quoted\"arg: parse error")
}

func TestDeviceSerial(t *testing.T) {
	s := New("adb")
	assert.Equal(t, "SERIAL", s.Device(DeviceWithSerial("SERIAL")).Serial())

	d := s.Device(AnyUSBDevice)
	assert.Equal(t, "", d.Serial())
	d.Info.Serial = "FROMLIST"
	assert.Equal(t, "FROMLIST", d.Serial())
	assert.Equal(t, "DeviceUSB", d.String())
}
