// SPDX-License-Identifier: MPL-2.0

package types

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

var ErrInvalidListenPort = errors.New("invalid listen port")

const maxListenPort = 65535

type (
	// ListenPort is the TCP port the SSH surface binds. Zero asks the
	// operating system for a free port.
	ListenPort int

	InvalidListenPortError struct {
		Value ListenPort
	}
)

func (p ListenPort) String() string { return strconv.Itoa(int(p)) }

// Validate accepts 0 through 65535.
func (p ListenPort) Validate() error {
	if p < 0 || p > maxListenPort {
		return &InvalidListenPortError{Value: p}
	}
	return nil
}

// Addr joins host and the port into a dialable address.
func (p ListenPort) Addr(host string) string {
	return net.JoinHostPort(host, p.String())
}

func (e *InvalidListenPortError) Error() string {
	return fmt.Sprintf("ssh port %d out of range (0 picks a free port, max %d)", e.Value, maxListenPort)
}

func (e *InvalidListenPortError) Unwrap() error { return ErrInvalidListenPort }
