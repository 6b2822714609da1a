package network

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/logger"
	"github.com/wordstep/wordstep/protocol"
)

const (
	HandshakeTimeout = 2 * time.Second
	IdleTimeout      = 60 * time.Second

	quicNextProto = "wordstep-datagram"
)

type quicDelivery struct {
	msg *Message
	err error
}

// QuicEndpoint carries every protocol message in an unreliable QUIC DATAGRAM
// frame, so a lost datagram is lost just like on plain UDP.
type QuicEndpoint struct {
	local    net.Addr
	listener *quic.Listener
	incoming chan quicDelivery

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	conns map[string]quic.Connection
}

func ListenQuic(addr string) (*QuicEndpoint, error) {
	tlsConf, err := generateTLSConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: quic tls %w", protocol.ErrTransportSetup, err)
	}
	l, err := quic.ListenAddr(addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: quic listen %s %w", protocol.ErrTransportSetup, addr, err)
	}
	e := newQuicEndpoint(l.Addr())
	e.listener = l
	go e.acceptLoop()
	return e, nil
}

func DialQuic(ctx context.Context, addr string) (*QuicEndpoint, error) {
	tlsConf := &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{quicNextProto},
	}
	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: quic dial %s %w", protocol.ErrTransportSetup, addr, err)
	}
	if !conn.ConnectionState().SupportsDatagrams {
		conn.CloseWithError(0, "DATAGRAM")
		return nil, fmt.Errorf("%w: quic peer %s without datagram support", protocol.ErrTransportSetup, addr)
	}
	e := newQuicEndpoint(conn.LocalAddr())
	e.add(conn)
	return e, nil
}

func newQuicEndpoint(local net.Addr) *QuicEndpoint {
	ctx, cancel := context.WithCancel(context.Background())
	return &QuicEndpoint{
		local:    local,
		incoming: make(chan quicDelivery, 1024),
		ctx:      ctx,
		cancel:   cancel,
		conns:    make(map[string]quic.Connection),
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{
		HandshakeIdleTimeout: HandshakeTimeout,
		MaxIdleTimeout:       IdleTimeout,
		KeepAlivePeriod:      IdleTimeout / 2,
		EnableDatagrams:      true,
	}
}

func (e *QuicEndpoint) acceptLoop() {
	for {
		conn, err := e.listener.Accept(e.ctx)
		if err != nil {
			logger.Verbosef("network quic accept %s => %v\n", e.local, err)
			return
		}
		e.add(conn)
	}
}

func (e *QuicEndpoint) add(conn quic.Connection) {
	key := conn.RemoteAddr().String()
	e.mu.Lock()
	if old := e.conns[key]; old != nil {
		old.CloseWithError(0, "REPLACED")
	}
	e.conns[key] = conn
	e.mu.Unlock()
	go e.receiveLoop(key, conn)
}

func (e *QuicEndpoint) receiveLoop(key string, conn quic.Connection) {
	defer func() {
		e.mu.Lock()
		if e.conns[key] == conn {
			delete(e.conns, key)
		}
		e.mu.Unlock()
	}()

	for {
		data, err := conn.ReceiveDatagram(e.ctx)
		if err != nil {
			logger.Debugf("network quic receive %s => %v\n", key, err)
			return
		}
		d := quicDelivery{msg: &Message{Data: data, Addr: conn.RemoteAddr()}}
		if len(data) >= config.MaxMessageSize {
			d = quicDelivery{err: fmt.Errorf("%w from %s", ErrTruncated, key)}
		}
		select {
		case e.incoming <- d:
		case <-e.ctx.Done():
			return
		default:
		}
	}
}

func (e *QuicEndpoint) LocalAddr() net.Addr {
	return e.local
}

func (e *QuicEndpoint) Send(data []byte, to net.Addr) error {
	err := checkMessageSize(data)
	if err != nil {
		return err
	}
	if e.ctx.Err() != nil {
		return ErrClosed
	}
	e.mu.RLock()
	conn := e.conns[to.String()]
	e.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("%w: no quic connection to %s", protocol.ErrTransportIO, to)
	}
	err = conn.SendDatagram(data)
	if err != nil {
		return sendError(to, err)
	}
	return nil
}

func (e *QuicEndpoint) Receive(ctx context.Context) (*Message, error) {
	select {
	case d := <-e.incoming:
		return d.msg, d.err
	case <-e.ctx.Done():
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, receiveError(ctx, ctx.Err())
	}
}

func (e *QuicEndpoint) Close() error {
	e.cancel()
	e.mu.Lock()
	for key, conn := range e.conns {
		conn.CloseWithError(0, "DONE")
		delete(e.conns, key)
	}
	e.mu.Unlock()
	if e.listener != nil {
		return e.listener.Close()
	}
	return nil
}

func generateTLSConfig() (*tls.Config, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		return nil, err
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour * 24 * 30),
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, err
	}

	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{tlsCert},
		NextProtos:   []string{quicNextProto},
	}, nil
}
