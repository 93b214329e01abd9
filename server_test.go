package adb

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const versionOutput = `Android Debug Bridge version 1.0.41
Version 34.0.4-10411341
Installed as /usr/lib/android-sdk/platform-tools/adb
Running on Linux 6.5.0-35-generic (x86_64)
`

func TestParseVersion(t *testing.T) {
	v, err := parseVersion([]byte(versionOutput))
	require.NoError(t, err)
	assert.Equal(t, "1.0.41", v.Protocol.String())
	assert.Equal(t, "34.0.4", v.Tools.String())
	assert.Equal(t, "/usr/lib/android-sdk/platform-tools/adb", v.Path)
}

func TestParseVersionOld(t *testing.T) {
	v, err := parseVersion([]byte("Android Debug Bridge version 1.0.32\nRevision 09a0d98bebce-android\n"))
	require.NoError(t, err)
	assert.Equal(t, "1.0.32", v.Protocol.String())
	assert.Nil(t, v.Tools)
	assert.Empty(t, v.Path)
}

func TestParseVersionGarbage(t *testing.T) {
	_, err := parseVersion([]byte("adb: command not found\n"))
	assert.Equal(t, ErrParsing, errors.Cause(err))
}

func TestServerVersionIsCached(t *testing.T) {
	s, fake := newTestServer(t, call{args: "version", out: stdout(versionOutput)})
	ctx := context.Background()

	v1, err := s.Version(ctx)
	require.NoError(t, err)
	v2, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Same(t, v1, v2)
	fake.assertDone()
}

func TestServerRunError(t *testing.T) {
	s, _ := newTestServer(t, call{args: "start-server", err: errors.New("exec: \"adb\": executable file not found in $PATH")})
	err := s.StartServer(context.Background())
	assert.EqualError(t, err, "StartServer: exec: \"adb\": executable file not found in $PATH")
}

func TestServerKillServer(t *testing.T) {
	s, fake := newTestServer(t, call{args: "kill-server", out: failure(1, "cannot connect to daemon")})
	err := s.KillServer(context.Background())
	require.Error(t, err)
	cmdErr, ok := errors.Cause(err).(*CommandError)
	require.True(t, ok)
	assert.Equal(t, 1, cmdErr.ExitCode)
	assert.Equal(t, "cannot connect to daemon", cmdErr.Message)
	assert.Equal(t, []string{"kill-server"}, cmdErr.Args)
	fake.assertDone()
}

func TestServerListDevices(t *testing.T) {
	s, fake := newTestServer(t, call{args: "devices -l", out: stdout(devicesOutput)})
	devs, err := s.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Len(t, devs, 4)
	fake.assertDone()
}

func TestServerPair(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "version", out: stdout(versionOutput)},
		call{args: "pair 192.168.1.31:37099 123456",
			out: stdout("Successfully paired to 192.168.1.31:37099 [guid=adb-R58M123ABC-x1Yz]\n")},
	)
	assert.NoError(t, s.Pair(context.Background(), "192.168.1.31:37099", "123456"))
	fake.assertDone()
}

func TestServerPairWrongCode(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "version", out: stdout(versionOutput)},
		call{args: "pair 192.168.1.31:37099 000000",
			out: stdout("Failed: Wrong password or connection was dropped.\n")},
	)
	err := s.Pair(context.Background(), "192.168.1.31:37099", "000000")
	assert.True(t, IsCommandError(err))
	assert.Contains(t, err.Error(), "Wrong password")
	fake.assertDone()
}

func TestServerPairOldTools(t *testing.T) {
	s, fake := newTestServer(t, call{args: "version",
		out: stdout("Android Debug Bridge version 1.0.41\nVersion 29.0.6-6198805\n")})
	err := s.Pair(context.Background(), "192.168.1.31:37099", "123456")
	assert.Equal(t, ErrUnsupported, errors.Cause(err))
	fake.assertDone()
}

func TestServerPairBlank(t *testing.T) {
	s, fake := newTestServer(t)
	err := s.Pair(context.Background(), "192.168.1.31:37099", " ")
	assert.Equal(t, ErrAssertionViolation, errors.Cause(err))
	fake.assertDone()
}

func TestServerConnect(t *testing.T) {
	var tests = []struct {
		name    string
		address string
		serial  string
		output  string
	}{{
		name:    "WithPort",
		address: "192.168.1.31:5555",
		serial:  "192.168.1.31:5555",
		output:  "connected to 192.168.1.31:5555\n",
	}, {
		name:    "DefaultPort",
		address: "192.168.1.31",
		serial:  "192.168.1.31:5555",
		output:  "already connected to 192.168.1.31:5555\n",
	}, {
		name:    "IPv6",
		address: "fe80::1",
		serial:  "[fe80::1]:5555",
		output:  "connected to [fe80::1]:5555\n",
	}}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			s, fake := newTestServer(t, call{args: "connect " + test.serial, out: stdout(test.output)})
			serial, err := s.Connect(context.Background(), test.address)
			require.NoError(t, err)
			assert.Equal(t, test.serial, serial)
			fake.assertDone()
		})
	}
}

func TestServerConnectFailure(t *testing.T) {
	// adb reports some connection failures with exit status 0.
	s, fake := newTestServer(t, call{args: "connect 10.0.0.9:5555",
		out: stdout("failed to connect to '10.0.0.9:5555': Connection refused\n")})
	_, err := s.Connect(context.Background(), "10.0.0.9:5555")
	require.True(t, IsCommandError(err))
	assert.Contains(t, err.Error(), "Connection refused")
	fake.assertDone()
}

func TestServerConnectInvalidAddress(t *testing.T) {
	s, fake := newTestServer(t)
	_, err := s.Connect(context.Background(), "bad address")
	assert.Equal(t, ErrAssertionViolation, errors.Cause(err))
	fake.assertDone()
}

func TestServerDisconnect(t *testing.T) {
	s, fake := newTestServer(t,
		call{args: "disconnect 192.168.1.31:5555", out: stdout("disconnected 192.168.1.31:5555\n")},
		call{args: "disconnect 10.0.0.9:5555", out: stdout("error: no such device '10.0.0.9:5555'\n")},
		call{args: "disconnect", out: stdout("disconnected everything\n")},
	)
	ctx := context.Background()
	assert.NoError(t, s.Disconnect(ctx, "192.168.1.31:5555"))
	assert.True(t, IsCommandError(s.Disconnect(ctx, "10.0.0.9:5555")))
	assert.NoError(t, s.DisconnectAll(ctx))
	fake.assertDone()
}
