package network

import (
	"context"
	"fmt"
	"net"
	"sync"

	"github.com/wordstep/wordstep/protocol"
)

type memoryAddr string

func (a memoryAddr) Network() string { return "memory" }

func (a memoryAddr) String() string { return string(a) }

// Filter decides how many copies of a datagram reach the receiver, 0 drops
// it and 2 duplicates it.
type Filter func(from, to net.Addr, data []byte) int

// MemoryHub is an in-process datagram network, mainly for tests.
type MemoryHub struct {
	mu        sync.RWMutex
	endpoints map[string]*MemoryEndpoint
	filter    Filter
	next      int
}

type MemoryEndpoint struct {
	hub      *MemoryHub
	addr     memoryAddr
	incoming chan *Message
	closed   chan struct{}
	once     sync.Once
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{endpoints: make(map[string]*MemoryEndpoint)}
}

func (h *MemoryHub) SetFilter(f Filter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.filter = f
}

// Listen registers an endpoint under name, an empty name picks a fresh one.
func (h *MemoryHub) Listen(name string) (*MemoryEndpoint, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if name == "" {
		h.next++
		name = fmt.Sprintf("mem-%d", h.next)
	}
	if h.endpoints[name] != nil {
		return nil, fmt.Errorf("%w: memory address %s in use", protocol.ErrTransportSetup, name)
	}
	e := &MemoryEndpoint{
		hub:      h,
		addr:     memoryAddr(name),
		incoming: make(chan *Message, 1024),
		closed:   make(chan struct{}),
	}
	h.endpoints[name] = e
	return e, nil
}

func (h *MemoryHub) Addr(name string) net.Addr {
	return memoryAddr(name)
}

func (h *MemoryHub) deliver(from memoryAddr, data []byte, to net.Addr) {
	h.mu.RLock()
	peer, filter := h.endpoints[to.String()], h.filter
	h.mu.RUnlock()
	if peer == nil {
		return
	}

	copies := 1
	if filter != nil {
		copies = filter(from, to, data)
	}
	for i := 0; i < copies; i++ {
		msg := &Message{Data: append([]byte{}, data...), Addr: from}
		select {
		case peer.incoming <- msg:
		default:
		}
	}
}

func (e *MemoryEndpoint) LocalAddr() net.Addr {
	return e.addr
}

func (e *MemoryEndpoint) Send(data []byte, to net.Addr) error {
	err := checkMessageSize(data)
	if err != nil {
		return err
	}
	select {
	case <-e.closed:
		return ErrClosed
	default:
	}
	e.hub.deliver(e.addr, data, to)
	return nil
}

func (e *MemoryEndpoint) Receive(ctx context.Context) (*Message, error) {
	select {
	case msg := <-e.incoming:
		return msg, nil
	case <-e.closed:
		return nil, ErrClosed
	case <-ctx.Done():
		return nil, receiveError(ctx, ctx.Err())
	}
}

func (e *MemoryEndpoint) Close() error {
	e.once.Do(func() {
		close(e.closed)
		e.hub.mu.Lock()
		delete(e.hub.endpoints, e.addr.String())
		e.hub.mu.Unlock()
	})
	return nil
}
