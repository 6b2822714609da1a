package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/protocol"
)

const (
	WriteDeadline = 3 * time.Second
)

var (
	ErrTimeout     = errors.New("network receive timeout")
	ErrTruncated   = errors.New("network message possibly truncated")
	ErrMessageSize = errors.New("network invalid message size")
	ErrClosed      = errors.New("network endpoint closed")
)

// Message is one datagram, its boundary is the message boundary.
type Message struct {
	Data []byte
	Addr net.Addr
}

// Endpoint is an unreliable datagram socket. Nothing is acknowledged or
// retransmitted at this layer.
type Endpoint interface {
	LocalAddr() net.Addr
	Send(data []byte, to net.Addr) error
	// Receive blocks until a datagram arrives. It returns ErrTimeout when the
	// context deadline passes and ctx.Err() when the context is cancelled.
	Receive(ctx context.Context) (*Message, error)
	Close() error
}

func ResolveAddr(transport, addr string) (net.Addr, error) {
	switch transport {
	case "udp", "quic":
		a, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %s %w", protocol.ErrTransportSetup, addr, err)
		}
		return a, nil
	}
	return nil, fmt.Errorf("%w: unsupported transport %s", protocol.ErrTransportSetup, transport)
}

func SameAddr(a, b net.Addr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Network() == b.Network() && a.String() == b.String()
}

func checkMessageSize(data []byte) error {
	if l := len(data); l < 1 || l >= config.MaxMessageSize {
		return fmt.Errorf("%w %d", ErrMessageSize, l)
	}
	return nil
}

func receiveError(ctx context.Context, err error) error {
	if cerr := ctx.Err(); cerr != nil {
		if errors.Is(cerr, context.DeadlineExceeded) {
			return ErrTimeout
		}
		return cerr
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w: receive %w", protocol.ErrTransportIO, err)
}

func sendError(to net.Addr, err error) error {
	if errors.Is(err, net.ErrClosed) {
		return ErrClosed
	}
	return fmt.Errorf("%w: send to %s %w", protocol.ErrTransportIO, to, err)
}
