// Package extra provides helpers built on top of adb shell commands.
package extra

import (
	"bufio"
	"bytes"
	"context"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"

	adb "github.com/SPECTREv333/adbwrapper"
)

// Shell is the part of *adb.Device the helpers need.
type Shell interface {
	Shell(ctx context.Context, cmd string, args ...string) (*adb.Output, error)
}

type Process struct {
	User string
	Pid  int
	Name string
}

// ListProcesses return list of Process
func ListProcesses(ctx context.Context, d Shell) ([]Process, error) {
	// example output of command "ps":
	//     USER  PID  PPID  VSIZE  RSS  WCHAN     PC         NAME
	//     root    1     0    684  540  ffffffff  00000000 S /init
	//     root    2     0      0    0  ffffffff  00000000 S kthreadd
	// Newer toybox ps prints one column less (no state letter before NAME).
	out, err := d.Shell(ctx, "ps", "-A")
	if err != nil {
		return nil, err
	}
	return parseProcesses(out.Stdout)
}

func parseProcesses(b []byte) ([]Process, error) {
	var (
		fieldNames []string
		pp         = make([]Process, 0, 4)
		scanner    = bufio.NewScanner(bytes.NewReader(b))
	)

	for scanner.Scan() {
		fields := strings.Fields(strings.TrimSpace(scanner.Text()))
		if len(fields) == 0 {
			continue
		}
		if fieldNames == nil {
			// as first row
			fieldNames = fields
			continue
		}
		if len(fields) != len(fieldNames) && len(fields) != len(fieldNames)+1 {
			return nil, errors.Wrapf(adb.ErrParsing, "unexpected ps line: %q", scanner.Text())
		}

		var process Process
		for index, name := range fieldNames {
			value := fields[index]
			switch strings.ToUpper(name) {
			case "PID":
				process.Pid, _ = strconv.Atoi(value)
			case "NAME":
				process.Name = fields[len(fields)-1]
			case "USER":
				process.User = value
			}
		}
		if process.Pid == 0 {
			continue
		}
		pp = append(pp, process)
	}
	return pp, errors.Wrap(scanner.Err(), "reading ps output")
}

// KillProcessByName sends sig to every process called name.
func KillProcessByName(ctx context.Context, d Shell, name string, sig syscall.Signal) error {
	pp, err := ListProcesses(ctx, d)
	if err != nil {
		return err
	}
	for _, p := range pp {
		if p.Name != name {
			continue
		}
		if _, err := d.Shell(ctx, "kill", "-"+strconv.Itoa(int(sig)), strconv.Itoa(p.Pid)); err != nil {
			return errors.WithMessagef(err, "kill %s (pid %d)", p.Name, p.Pid)
		}
	}
	return nil
}

type PackageInfo struct {
	Name    string
	Path    string
	Version struct {
		Code int
		Name string
	}
}

var (
	rePkgPath = regexp.MustCompile(`codePath=([^\s]+)`)
	reVerCode = regexp.MustCompile(`versionCode=(\d+)`)
	reVerName = regexp.MustCompile(`versionName=([^\s]+)`)

	ErrPackageNotExist = errors.New("package does not exist")
)

// StatPackage returns PackageInfo
// If package not found, err will be ErrPackageNotExist
func StatPackage(ctx context.Context, d Shell, packageName string) (PackageInfo, error) {
	out, err := d.Shell(ctx, "dumpsys", "package", packageName)
	if err != nil {
		return PackageInfo{}, err
	}
	return parsePackageInfo(packageName, out.Stdout)
}

func parsePackageInfo(packageName string, b []byte) (PackageInfo, error) {
	pi := PackageInfo{Name: packageName}

	matches := rePkgPath.FindSubmatch(b)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	pi.Path = string(matches[1])

	matches = reVerCode.FindSubmatch(b)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	pi.Version.Code, _ = strconv.Atoi(string(matches[1]))

	matches = reVerName.FindSubmatch(b)
	if len(matches) == 0 {
		return PackageInfo{}, ErrPackageNotExist
	}
	pi.Version.Name = string(matches[1])
	return pi, nil
}

// GetProp returns the value of a system property, empty if unset.
func GetProp(ctx context.Context, d Shell, key string) (string, error) {
	out, err := d.Shell(ctx, "getprop", key)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
