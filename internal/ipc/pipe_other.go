//go:build !windows

package ipc

import (
	"net"
	"time"
)

func listenPipe(string) (net.Listener, error) {
	return nil, ErrUnsupported
}

func dialPipe(string, time.Duration) (net.Conn, error) {
	return nil, ErrUnsupported
}
