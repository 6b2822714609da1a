package network

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/protocol"
)

type UDPEndpoint struct {
	conn *net.UDPConn
}

// ListenUDP binds addr, or an ephemeral port on all interfaces when addr is
// empty.
func ListenUDP(addr string) (*UDPEndpoint, error) {
	var laddr *net.UDPAddr
	if addr != "" {
		a, err := net.ResolveUDPAddr("udp", addr)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve %s %w", protocol.ErrTransportSetup, addr, err)
		}
		laddr = a
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen %s %w", protocol.ErrTransportSetup, addr, err)
	}
	return &UDPEndpoint{conn: conn}, nil
}

func (e *UDPEndpoint) LocalAddr() net.Addr {
	return e.conn.LocalAddr()
}

func (e *UDPEndpoint) Send(data []byte, to net.Addr) error {
	err := checkMessageSize(data)
	if err != nil {
		return err
	}
	err = e.conn.SetWriteDeadline(time.Now().Add(WriteDeadline))
	if err != nil {
		return sendError(to, err)
	}
	_, err = e.conn.WriteTo(data, to)
	if err != nil {
		return sendError(to, err)
	}
	return nil
}

func (e *UDPEndpoint) Receive(ctx context.Context) (*Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, receiveError(ctx, err)
	}
	deadline, _ := ctx.Deadline()
	err := e.conn.SetReadDeadline(deadline)
	if err != nil {
		return nil, receiveError(ctx, err)
	}
	interrupted := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		e.conn.SetReadDeadline(time.Unix(1, 0))
		close(interrupted)
	})
	defer func() {
		if !stop() {
			<-interrupted
		}
	}()

	buf := make([]byte, config.MaxMessageSize)
	n, addr, err := e.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, receiveError(ctx, err)
	}
	if n >= config.MaxMessageSize {
		return nil, fmt.Errorf("%w from %s", ErrTruncated, addr)
	}
	return &Message{Data: buf[:n], Addr: addr}, nil
}

func (e *UDPEndpoint) Close() error {
	return e.conn.Close()
}
