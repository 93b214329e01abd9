package adb

import (
	"bytes"
	"context"
	"net"
	"strings"
	"time"

	"github.com/Masterminds/semver"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultExecutableName is the name of the adb binary on the PATH.
	DefaultExecutableName = "adb"
	// DefaultTCPPort is the port adb connect assumes when none is given.
	DefaultTCPPort = "5555"
)

// Wireless pairing first shipped with platform-tools 30.0.0.
var minPairToolsVersion = semver.MustParse("30.0.0")

// Server runs adb commands. Use New or NewDefault to create one.
type Server struct {
	path   string
	runner Runner
	log    logrus.FieldLogger

	version *Version
}

// Option configures a Server.
type Option func(*Server)

// WithRunner replaces the process runner, mainly for tests.
func WithRunner(r Runner) Option {
	return func(s *Server) { s.runner = r }
}

// WithLogger sets the logger commands are traced to.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// NewDefault creates a Server that runs adb from the PATH.
func NewDefault(opts ...Option) *Server {
	return New(DefaultExecutableName, opts...)
}

// New creates a Server that runs the adb executable at path.
func New(path string, opts ...Option) *Server {
	s := &Server{
		path:   path,
		runner: ExecRunner{},
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the adb executable used by the server.
func (s *Server) Path() string {
	return s.path
}

// run executes adb with args and logs the outcome.
func (s *Server) run(ctx context.Context, args ...string) (*Output, error) {
	start := time.Now()
	out, err := s.runner.Run(ctx, s.path, args...)
	entry := s.log.WithFields(logrus.Fields{
		"args":     strings.Join(args, " "),
		"duration": time.Since(start),
	})
	if err != nil {
		entry.WithError(err).Debug("adb failed to run")
		return nil, err
	}
	entry.WithField("exit_code", out.ExitCode).Debug("adb finished")
	return out, nil
}

// runChecked is like run but turns a non-zero exit status into a *CommandError.
func (s *Server) runChecked(ctx context.Context, args ...string) (*Output, error) {
	out, err := s.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !out.Success() {
		return out, newCommandError(out)
	}
	return out, nil
}

// Version describes the installed adb.
type Version struct {
	// Protocol is the "Android Debug Bridge version" line, e.g. 1.0.41.
	Protocol *semver.Version
	// Tools is the platform-tools release, e.g. 34.0.4. Nil for old adb
	// releases that do not print it.
	Tools *semver.Version
	// Path is where adb reports itself installed, if printed.
	Path string
}

// Version runs `adb version`. The result is cached for the lifetime of the server.
func (s *Server) Version(ctx context.Context) (*Version, error) {
	if s.version != nil {
		return s.version, nil
	}
	out, err := s.runChecked(ctx, "version")
	if err != nil {
		return nil, errors.Wrap(err, "Version")
	}
	v, err := parseVersion(out.Stdout)
	if err != nil {
		return nil, errors.Wrap(err, "Version")
	}
	s.version = v
	return v, nil
}

// parseVersion parses the output of `adb version`:
//
//	Android Debug Bridge version 1.0.41
//	Version 34.0.4-10411341
//	Installed as /usr/bin/adb
func parseVersion(b []byte) (*Version, error) {
	v := &Version{}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Android Debug Bridge version "):
			p, err := semver.NewVersion(strings.TrimPrefix(line, "Android Debug Bridge version "))
			if err != nil {
				return nil, errors.Wrapf(ErrParsing, "malformed adb version %q: %v", line, err)
			}
			v.Protocol = p
		case strings.HasPrefix(line, "Version "):
			// Strip the build number, semver would treat it as a pre-release.
			raw := strings.TrimPrefix(line, "Version ")
			if i := strings.IndexByte(raw, '-'); i >= 0 {
				raw = raw[:i]
			}
			t, err := semver.NewVersion(raw)
			if err != nil {
				return nil, errors.Wrapf(ErrParsing, "malformed platform-tools version %q: %v", line, err)
			}
			v.Tools = t
		case strings.HasPrefix(line, "Installed as "):
			v.Path = strings.TrimPrefix(line, "Installed as ")
		}
	}
	if v.Protocol == nil {
		return nil, errors.Wrap(ErrParsing, "no version line in adb output")
	}
	return v, nil
}

// StartServer ensures the adb server daemon is running.
func (s *Server) StartServer(ctx context.Context) error {
	_, err := s.runChecked(ctx, "start-server")
	return errors.WithMessage(err, "StartServer")
}

// KillServer tells the adb server daemon to quit.
func (s *Server) KillServer(ctx context.Context) error {
	_, err := s.runChecked(ctx, "kill-server")
	return errors.WithMessage(err, "KillServer")
}

// ListDevices runs `adb devices -l` and returns the parsed device table.
func (s *Server) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	out, err := s.runChecked(ctx, "devices", "-l")
	if err != nil {
		return nil, errors.WithMessage(err, "ListDevices")
	}
	devices, err := parseDeviceList(bytes.NewReader(out.Stdout))
	return devices, errors.WithMessage(err, "ListDevices")
}

// Device returns a handle for the device selected by descriptor.
func (s *Server) Device(descriptor DeviceDescriptor) *Device {
	return &Device{
		server:     s,
		descriptor: descriptor,
	}
}

// Pair pairs with a device using a wireless debugging pairing code.
func (s *Server) Pair(ctx context.Context, address, code string) error {
	if isBlank(address) || isBlank(code) {
		return errors.Wrap(ErrAssertionViolation, "Pair: address and pairing code are required")
	}
	if err := s.requireTools(ctx, minPairToolsVersion); err != nil {
		return errors.WithMessage(err, "Pair")
	}
	out, err := s.run(ctx, "pair", address, code)
	if err != nil {
		return errors.WithMessage(err, "Pair")
	}
	if !out.Success() || !strings.HasPrefix(out.String(), "Successfully paired") {
		return errors.WithMessage(newCommandError(out), "Pair")
	}
	return nil
}

// requireTools fails with ErrUnsupported if the platform-tools release is
// known and older than min. Old adb releases that do not report a tools
// version are let through; adb itself will reject what it cannot do.
func (s *Server) requireTools(ctx context.Context, min *semver.Version) error {
	v, err := s.Version(ctx)
	if err != nil {
		return err
	}
	if v.Tools != nil && v.Tools.LessThan(min) {
		return errors.Wrapf(ErrUnsupported, "platform-tools %s, need at least %s", v.Tools, min)
	}
	return nil
}

// Connect connects to a device over TCP and returns its serial.
func (s *Server) Connect(ctx context.Context, address string) (string, error) {
	serial, err := normalizeAddress(address)
	if err != nil {
		return "", errors.WithMessage(err, "Connect")
	}
	out, err := s.run(ctx, "connect", serial)
	if err != nil {
		return "", errors.WithMessage(err, "Connect")
	}
	// adb exits 0 on some failures, so the message decides.
	msg := out.String()
	if !out.Success() ||
		!(strings.HasPrefix(msg, "connected to") || strings.HasPrefix(msg, "already connected to")) {
		return "", errors.WithMessage(newCommandError(out), "Connect")
	}
	return serial, nil
}

// Disconnect disconnects the TCP device with the given serial.
func (s *Server) Disconnect(ctx context.Context, serial string) error {
	if isBlank(serial) {
		return errors.Wrap(ErrAssertionViolation, "Disconnect: serial cannot be blank")
	}
	out, err := s.run(ctx, "disconnect", serial)
	if err != nil {
		return errors.WithMessage(err, "Disconnect")
	}
	if !out.Success() || strings.HasPrefix(out.String(), "error:") {
		return errors.WithMessage(newCommandError(out), "Disconnect")
	}
	return nil
}

// DisconnectAll disconnects every TCP device.
func (s *Server) DisconnectAll(ctx context.Context) error {
	_, err := s.runChecked(ctx, "disconnect")
	return errors.WithMessage(err, "DisconnectAll")
}

// normalizeAddress appends the default port adb connect would use.
func normalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" || containsWhitespace(address) {
		return "", errors.Wrapf(ErrAssertionViolation, "invalid address %q", address)
	}
	if _, _, err := net.SplitHostPort(address); err == nil {
		return address, nil
	}
	return net.JoinHostPort(address, DefaultTCPPort), nil
}
