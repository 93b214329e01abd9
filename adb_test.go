package adb

import (
	"context"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// call is one expected adb invocation and its canned result.
type call struct {
	args string
	out  *Output
	err  error
}

// fakeAdb replays calls in order and fails the test on any deviation.
type fakeAdb struct {
	t     *testing.T
	calls []call
	n     int
}

func (f *fakeAdb) Run(ctx context.Context, name string, args ...string) (*Output, error) {
	got := strings.Join(args, " ")
	require.Less(f.t, f.n, len(f.calls), "unexpected call: adb %s", got)
	c := f.calls[f.n]
	f.n++
	assert.Equal(f.t, "adb", name)
	assert.Equal(f.t, c.args, got)
	if c.err != nil {
		return nil, c.err
	}
	out := *c.out
	out.Args = args
	return &out, nil
}

func (f *fakeAdb) assertDone() {
	assert.Equal(f.t, len(f.calls), f.n, "not all expected adb calls were made")
}

func newTestServer(t *testing.T, calls ...call) (*Server, *fakeAdb) {
	fake := &fakeAdb{t: t, calls: calls}
	log := logrus.New()
	log.Level = logrus.DebugLevel
	return New("adb", WithRunner(fake), WithLogger(log)), fake
}

func stdout(s string) *Output {
	return &Output{Stdout: []byte(s)}
}

func failure(code int, stderr string) *Output {
	return &Output{Stderr: []byte(stderr), ExitCode: code}
}

const devicesOutput = `* daemon not running; starting now at tcp:5037
* daemon started successfully
List of devices attached
192.168.1.31:5555      device product:uzw4010tim model:TIM_BOX device:uzw4010tim transport_id:1
emulator-5554          offline transport_id:2
0123456789ABCDEF       no permissions (missing udev rules? user is in the plugdev group); see [http://developer.android.com/tools/device.html] usb:1-1 transport_id:3
R58M123ABC             unauthorized usb:1-2 transport_id:4

`
