package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kingpin"
	"github.com/cheggaaa/pb"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	adb "github.com/SPECTREv333/adbwrapper"
)

const Version = "0.3.0"

// Log is the logger of the running command. It is replaced by Run once
// flags are parsed.
var Log = logrus.StandardLogger()

type app struct {
	*kingpin.Application
	config Config

	stdout io.Writer
	stderr io.Writer

	server   *adb.Server
	registry *adb.Registry

	devicesLong *bool

	connectAddress *string

	disconnectSerial *string

	pairAddress *string
	pairCode    *string

	pushProgress *bool
	pushArgs     *[]string

	pullProgress *bool
	pullArgs     *[]string

	shellArgs *[]string

	forwardList      *bool
	forwardRemove    *string
	forwardRemoveAll *bool
	forwardLocal     *string
	forwardRemote    *string

	watchInterval *time.Duration
}

func newApp(stdout, stderr io.Writer) *app {
	a := &app{
		Application: kingpin.New("adbwrapper", "Manage Android devices through adb."),
		stdout:      stdout,
		stderr:      stderr,
	}
	a.Version(Version)
	a.HelpFlag.Short('h')
	a.UsageWriter(stderr)
	a.ErrorWriter(stderr)
	registerFlags(a.Application, &a.config)

	a.Command("version", "Show adb and adbwrapper versions.")
	a.Command("state", "Print the state of the device.")

	devices := a.Command("devices", "List devices.")
	a.devicesLong = devices.Flag("long",
		"Include extra detail about devices.").
		Short('l').
		Bool()

	connect := a.Command("connect", "Connect to a device over TCP/IP.")
	a.connectAddress = connect.Arg("address",
		"HOST[:PORT], port defaults to 5555.").
		Required().
		String()

	disconnect := a.Command("disconnect", "Disconnect a TCP/IP device, or all of them.")
	a.disconnectSerial = disconnect.Arg("serial",
		"Serial of the device. If omitted, all devices are disconnected.").
		String()

	pair := a.Command("pair", "Pair with a device for wireless debugging.")
	a.pairAddress = pair.Arg("address", "HOST:PORT shown by the device.").Required().String()
	a.pairCode = pair.Arg("code", "Pairing code shown by the device.").Required().String()

	push := a.Command("push", "Push files to the device.")
	a.pushProgress = push.Flag("progress", "Show progress.").Short('p').Bool()
	a.pushArgs = push.Arg("paths",
		"Local files followed by the remote destination.").
		Required().
		Strings()

	pull := a.Command("pull", "Pull files from the device.")
	a.pullProgress = pull.Flag("progress", "Show progress.").Short('p').Bool()
	a.pullArgs = pull.Arg("paths",
		"Remote files followed by the local destination. If omitted, the current directory.").
		Required().
		Strings()

	shell := a.Command("shell", "Run a shell command on the device.")
	a.shellArgs = shell.Arg("command", "Command to run on device.").Required().Strings()

	forward := a.Command("forward", "Forward local connections to the device.")
	a.forwardList = forward.Flag("list", "List forwards.").Bool()
	a.forwardRemove = forward.Flag("remove", "Remove the forward on LOCAL.").PlaceHolder("LOCAL").String()
	a.forwardRemoveAll = forward.Flag("remove-all", "Remove all forwards.").Bool()
	a.forwardLocal = forward.Arg("local", "Local spec, e.g. tcp:8080.").String()
	a.forwardRemote = forward.Arg("remote", "Remote spec, e.g. tcp:8080.").String()

	watch := a.Command("watch", "Print device state changes until interrupted.")
	a.watchInterval = watch.Flag("interval", "Time between device list polls.").
		Default("2s").
		Duration()

	return a
}

// Run parses args, runs the selected command and returns the exit code.
// opts are passed to the adb.Server.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer, opts ...adb.Option) int {
	a := newApp(stdout, stderr)
	command, err := a.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	Log = a.config.createLogger(stderr)
	a.server = adb.New(a.config.AdbPath, append([]adb.Option{adb.WithLogger(Log)}, opts...)...)
	a.registry = adb.NewRegistry(a.server)
	Log.WithField("command", command).Debug("starting")

	switch command {
	case "version":
		return a.version(ctx)
	case "state":
		return a.state(ctx)
	case "devices":
		return a.listDevices(ctx, *a.devicesLong)
	case "connect":
		return a.connect(ctx, *a.connectAddress)
	case "disconnect":
		return a.disconnect(ctx, *a.disconnectSerial)
	case "pair":
		return a.pair(ctx, *a.pairAddress, *a.pairCode)
	case "push":
		return a.push(ctx, *a.pushProgress, *a.pushArgs)
	case "pull":
		return a.pull(ctx, *a.pullProgress, *a.pullArgs)
	case "shell":
		return a.runShellCommand(ctx, *a.shellArgs)
	case "forward":
		return a.forward(ctx)
	case "watch":
		return a.watch(ctx, *a.watchInterval)
	}
	return 0
}

func (a *app) fail(err error) int {
	fmt.Fprintln(a.stderr, "error:", err)
	return 1
}

// device returns the device selected by the global flags.
func (a *app) device() *adb.Device {
	switch {
	case a.config.Serial != "":
		return a.server.Device(adb.DeviceWithSerial(a.config.Serial))
	case a.config.TransportID > 0:
		return a.server.Device(adb.DeviceWithTransportID(a.config.TransportID))
	case a.config.USB:
		return a.server.Device(adb.AnyUSBDevice)
	case a.config.Local:
		return a.server.Device(adb.AnyLocalDevice)
	}
	return a.server.Device(adb.AnyDevice)
}

func (a *app) version(ctx context.Context) int {
	fmt.Fprintf(a.stdout, "adbwrapper %s\n", Version)
	v, err := a.server.Version(ctx)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "adb %s\n", v.Protocol)
	if v.Tools != nil {
		fmt.Fprintf(a.stdout, "platform-tools %s\n", v.Tools)
	}
	if v.Path != "" {
		fmt.Fprintf(a.stdout, "installed as %s\n", v.Path)
	}
	return 0
}

func (a *app) state(ctx context.Context) int {
	state, err := a.device().State(ctx)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, state)
	return 0
}

func (a *app) listDevices(ctx context.Context, long bool) int {
	if _, err := a.registry.Resync(ctx); err != nil {
		return a.fail(err)
	}

	for _, d := range a.registry.Devices() {
		info := d.Info
		if !long {
			fmt.Fprintf(a.stdout, "%s\t%s\n", info.Serial, info.State)
			continue
		}
		attrs := []string{info.Serial + "\t" + info.State.String()}
		if info.IsUSB() {
			attrs = append(attrs, "usb:"+info.USB)
		}
		if info.Product != "" {
			attrs = append(attrs,
				"product:"+info.Product,
				"model:"+info.Model,
				"device:"+info.DeviceInfo)
		}
		if info.TransportID > 0 {
			attrs = append(attrs, fmt.Sprintf("transport_id:%d", info.TransportID))
		}
		fmt.Fprintln(a.stdout, strings.Join(attrs, " "))
	}
	return 0
}

func (a *app) connect(ctx context.Context, address string) int {
	d, err := a.registry.Connect(ctx, address)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "connected to %s (%s)\n", d.Serial(), d.Info.State)
	return 0
}

func (a *app) disconnect(ctx context.Context, serial string) int {
	var err error
	if serial == "" {
		err = a.registry.DisconnectAll(ctx)
	} else {
		err = a.registry.Disconnect(ctx, serial)
	}
	if err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) pair(ctx context.Context, address, code string) int {
	if err := a.registry.Pair(ctx, address, code); err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "paired with %s\n", address)
	return 0
}

func (a *app) push(ctx context.Context, showProgress bool, paths []string) int {
	if len(paths) < 2 {
		fmt.Fprintln(a.stderr, "error: must specify local files and remote destination")
		a.Usage(nil)
		return 1
	}
	locals, remote := paths[:len(paths)-1], paths[len(paths)-1]
	d := a.device()
	return a.transfer(showProgress, "push", locals, func(local string) (*adb.Output, error) {
		return d.Push(ctx, local, remote)
	})
}

func (a *app) pull(ctx context.Context, showProgress bool, paths []string) int {
	remotes, local := paths, "."
	if len(paths) > 1 {
		remotes, local = paths[:len(paths)-1], paths[len(paths)-1]
	}
	d := a.device()
	return a.transfer(showProgress, "pull", remotes, func(remote string) (*adb.Output, error) {
		target := local
		if len(remotes) == 1 && local == "." {
			target = filepath.Base(remote)
		}
		return d.Pull(ctx, remote, target)
	})
}

// transfer runs copyFn for every source, stopping at the first failure.
// If showProgress is true and there is more than one source, a progress
// bar counting finished files is shown on stderr.
func (a *app) transfer(showProgress bool, verb string, sources []string, copyFn func(string) (*adb.Output, error)) int {
	var progress *pb.ProgressBar
	if showProgress && len(sources) > 1 {
		progress = pb.New(len(sources))
		progress.Output = a.stderr
		progress.ShowCounters = true
		progress.ShowTimeLeft = true
		progress.Prefix(verb + " ")
		progress.Start()
	}

	startTime := time.Now()
	for _, src := range sources {
		out, err := copyFn(src)
		if err != nil {
			if progress != nil {
				progress.Finish()
			}
			return a.fail(errors.WithMessagef(err, "error %sing %s", verb, src))
		}
		Log.WithField("src", src).Debug(out.String())
		if progress != nil {
			progress.Increment()
		}
	}
	if progress != nil {
		progress.Finish()
	}

	fmt.Fprintf(a.stderr, "%d file(s) %sed in %s\n", len(sources), verb, time.Since(startTime))
	return 0
}

func (a *app) runShellCommand(ctx context.Context, commandAndArgs []string) int {
	if len(commandAndArgs) == 0 {
		fmt.Fprintln(a.stderr, "error: no command")
		a.Usage(nil)
		return 1
	}

	out, err := a.device().Shell(ctx, commandAndArgs[0], commandAndArgs[1:]...)
	if out != nil {
		a.stdout.Write(out.Stdout)
		a.stderr.Write(out.Stderr)
	}
	if cmdErr, ok := errors.Cause(err).(*adb.CommandError); ok {
		return cmdErr.ExitCode
	} else if err != nil {
		return a.fail(err)
	}
	return 0
}

func (a *app) forward(ctx context.Context) int {
	d := a.device()
	var err error
	switch {
	case *a.forwardList:
		var fws []adb.ForwardPair
		if fws, err = d.ForwardList(ctx); err == nil {
			for _, fw := range fws {
				fmt.Fprintf(a.stdout, "%s %s %s\n", fw.Serial, fw.Local, fw.Remote)
			}
		}
	case *a.forwardRemoveAll:
		err = d.ForwardRemoveAll(ctx)
	case *a.forwardRemove != "":
		err = d.ForwardRemove(ctx, adb.ForwardSpec(*a.forwardRemove))
	case *a.forwardLocal != "" && *a.forwardRemote != "":
		err = d.Forward(ctx, adb.ForwardSpec(*a.forwardLocal), adb.ForwardSpec(*a.forwardRemote))
	default:
		fmt.Fprintln(a.stderr, "error: must specify LOCAL and REMOTE, --list, --remove or --remove-all")
		return 1
	}
	if err != nil {
		return a.fail(err)
	}
	return 0
}

// watch polls the device list and prints state changes until ctx is done.
func (a *app) watch(ctx context.Context, interval time.Duration) int {
	if interval <= 0 {
		fmt.Fprintln(a.stderr, "error: --interval must be positive")
		return 1
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		events, err := a.registry.Resync(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return 0
			}
			return a.fail(err)
		}
		for _, e := range events {
			fmt.Fprintf(a.stdout, "%s\t%s -> %s\n", e.Serial, e.OldState, e.NewState)
		}

		select {
		case <-ctx.Done():
			return 0
		case <-ticker.C:
		}
	}
}
