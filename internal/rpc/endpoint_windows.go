//go:build windows

package rpc

import (
	"context"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// listenEndpoint binds a named pipe. Pipe names look like
// \\.\pipe\dxta-clankers; there is no file to unlink on Windows.
func listenEndpoint(path string) (net.Listener, error) {
	return winio.ListenPipe(path, nil)
}

func dialEndpoint(path string, timeout time.Duration) (net.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return winio.DialPipeContext(ctx, path)
}

func removeEndpoint(string) error {
	// Named pipes vanish with their last handle.
	return nil
}
