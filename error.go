package adb

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel error values used by this package
var (
	// ErrParsing is returned when the output of adb has an unexpected format.
	ErrParsing = errors.New("parse error")
	// ErrAssertionViolation is returned for arguments that can never be valid.
	ErrAssertionViolation = errors.New("assertion violation")
	// The device is not known to adb or to the Registry.
	ErrDeviceNotFound = errors.New("device not found")
	// The installed adb is too old for the requested operation.
	ErrUnsupported = errors.New("unsupported by installed adb")
)

// CommandError reports an adb invocation that ran but did not succeed,
// either by exiting non-zero or by printing a failure message.
type CommandError struct {
	Args     []string
	ExitCode int
	// Message is the diagnostic printed by adb, usually its stderr.
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("adb %s: exit code %d: %s",
		strings.Join(e.Args, " "), e.ExitCode, e.Message)
}

func newCommandError(out *Output) *CommandError {
	msg := strings.TrimSpace(string(out.Stderr))
	if msg == "" {
		msg = strings.TrimSpace(string(out.Stdout))
	}
	return &CommandError{
		Args:     out.Args,
		ExitCode: out.ExitCode,
		Message:  msg,
	}
}

// IsCommandError reports whether the cause of err is a *CommandError.
func IsCommandError(err error) bool {
	_, ok := errors.Cause(err).(*CommandError)
	return ok
}
