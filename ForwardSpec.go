package adb

import (
	"context"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ForwardSpec protocols
const (
	FProtocolTCP        = "tcp"
	FProtocolJDWP       = "jdwp"
	FProtocolAbstract   = "localabstract"
	FProtocolReserved   = "localreserved"
	FProtocolFilesystem = "localfilesystem"
	FProtocolDev        = "dev"
)

// ForwardSpec is one end of a forward, e.g. "tcp:8080" or "localabstract:foo".
type ForwardSpec string

// TCPForward returns the spec for a TCP port.
func TCPForward(port int) ForwardSpec {
	return ForwardSpec(FProtocolTCP + ":" + strconv.Itoa(port))
}

// Port returns -1 if the endpoint has no port.
func (f ForwardSpec) Port() int {
	if f.Protocol() != FProtocolTCP {
		return -1
	}
	p, err := strconv.Atoi(strings.TrimPrefix(string(f), FProtocolTCP+":"))
	if err != nil {
		return -1
	}
	return p
}

func (f ForwardSpec) Protocol() string {
	return strings.SplitN(string(f), ":", 2)[0]
}

func parseForwardSpec(s string) (ForwardSpec, error) {
	fields := strings.SplitN(s, ":", 2)
	if len(fields) != 2 || fields[1] == "" {
		return "", errors.Wrapf(ErrParsing, "malformed forward spec %q", s)
	}
	switch fields[0] {
	case FProtocolTCP, FProtocolJDWP:
		if _, err := strconv.Atoi(fields[1]); err != nil {
			return "", errors.Wrapf(ErrParsing, "malformed pid or port: %s", fields[1])
		}
	case FProtocolAbstract, FProtocolReserved, FProtocolFilesystem, FProtocolDev:
	default:
		return "", errors.Wrapf(ErrParsing, "unrecognized protocol: %s", fields[0])
	}
	return ForwardSpec(s), nil
}

// ForwardPair is one line of `adb forward --list`.
type ForwardPair struct {
	Serial string
	Local  ForwardSpec
	Remote ForwardSpec
}

// ForwardList returns the forwards set up for this device. If the device has
// no known serial, forwards of all devices are returned.
func (d *Device) ForwardList(ctx context.Context) ([]ForwardPair, error) {
	out, err := d.commandChecked(ctx, "forward", "--list")
	if err != nil {
		return nil, errors.WithMessage(err, "ForwardList")
	}
	fws, err := parseForwardList(out.String(), d.Serial())
	return fws, errors.WithMessage(err, "ForwardList")
}

func parseForwardList(list, serial string) ([]ForwardPair, error) {
	fields := strings.Fields(list)
	if len(fields)%3 != 0 {
		return nil, errors.Wrap(ErrParsing, "list forward parse error")
	}
	fs := make([]ForwardPair, 0, len(fields)/3)
	for i := 0; i < len(fields)/3; i++ {
		// skip other device serial forwards
		if serial != "" && fields[i*3] != serial {
			continue
		}
		local, err := parseForwardSpec(fields[i*3+1])
		if err != nil {
			return nil, err
		}
		remote, err := parseForwardSpec(fields[i*3+2])
		if err != nil {
			return nil, err
		}
		fs = append(fs, ForwardPair{Serial: fields[i*3], Local: local, Remote: remote})
	}
	return fs, nil
}

// ForwardRemove removes the forward listening on local.
func (d *Device) ForwardRemove(ctx context.Context, local ForwardSpec) error {
	_, err := d.commandChecked(ctx, "forward", "--remove", string(local))
	return errors.WithMessage(err, "ForwardRemove")
}

// ForwardRemoveAll cancels all existing forwards of the device.
func (d *Device) ForwardRemoveAll(ctx context.Context) error {
	_, err := d.commandChecked(ctx, "forward", "--remove-all")
	return errors.WithMessage(err, "ForwardRemoveAll")
}

// Forward forwards connections on local to remote on the device.
func (d *Device) Forward(ctx context.Context, local, remote ForwardSpec) error {
	_, err := d.commandChecked(ctx, "forward", string(local), string(remote))
	return errors.WithMessage(err, "Forward")
}

// ForwardToFreePort forwards a free local TCP port to remote and returns it.
// If a forward to remote already exists, its local port is returned.
func (d *Device) ForwardToFreePort(ctx context.Context, remote ForwardSpec) (int, error) {
	fws, err := d.ForwardList(ctx)
	if err != nil {
		return 0, err
	}
	for _, fw := range fws {
		if fw.Remote == remote {
			if fw.Local.Port() == -1 {
				return 0, errors.Errorf("forward to %s has no local port", remote)
			}
			return fw.Local.Port(), nil
		}
	}
	port, err := getFreePort()
	if err != nil {
		return 0, errors.Wrap(err, "ForwardToFreePort")
	}
	return port, d.Forward(ctx, TCPForward(port), remote)
}
