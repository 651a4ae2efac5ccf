// Package server runs the HTTP listener and its lifecycle.
package server

import (
	"context"
	"net"
)

// SecurityLayer opens the listener a server accepts on: TLS or plain TCP.
type SecurityLayer interface {
	Listen(protocol, addr string) (net.Listener, error)
}

// Server is a long-running listener with graceful stop.
type Server interface {
	Start(securityLayer SecurityLayer) error
	Stop(ctx context.Context) error
	Address() string
}

var (
	_ SecurityLayer = (*TLSListener)(nil)
	_ SecurityLayer = (*PlainListener)(nil)
	_ Server        = (*HTTPServer)(nil)
)
