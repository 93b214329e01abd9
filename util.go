package adb

import (
	"net"
	"strconv"
	"strings"
)

func containsWhitespace(str string) bool {
	return strings.ContainsAny(str, " \t\n\v\r")
}

func isBlank(str string) bool {
	return strings.TrimSpace(str) == ""
}

// getFreePort asks the kernel for an unused local TCP port.
func getFreePort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer listener.Close()

	_, portString, err := net.SplitHostPort(listener.Addr().String())
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(portString)
}
