package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/wordstep/wordstep/files"
	"github.com/wordstep/wordstep/logger"
	"github.com/wordstep/wordstep/network"
	"github.com/wordstep/wordstep/protocol"
	"github.com/wordstep/wordstep/util"
)

// FlushWindow is the shortest wait for stale copies before a new request,
// the window grows to twice the smoothed round trip, capped at the first
// retry timeout.
const (
	FlushWindow = time.Millisecond
)

type Result struct {
	Words       int `json:"words"`
	Requests    int `json:"requests"`
	Retransmits int `json:"retransmits"`
	Drained     int `json:"drained"`
}

type Client struct {
	endpoint network.Endpoint
	server   net.Addr
	sink     files.Sink
	policy   util.Backoff
	rtt      time.Duration
}

func NewClient(endpoint network.Endpoint, server net.Addr, sink files.Sink, policy util.Backoff) *Client {
	return &Client{
		endpoint: endpoint,
		server:   server,
		sink:     sink,
		policy:   policy,
	}
}

// Fetch pulls filename from the server one word per exchange and writes
// the words to the sink. The sink is not touched when the server answers
// NOTFOUND or never answers the filename, and a partial output is removed
// when the transfer fails after the first word.
func (c *Client) Fetch(ctx context.Context, filename string) (*Result, error) {
	if filename == "" {
		return nil, protocol.ErrEmptyFilename
	}
	result := &Result{}
	c.rtt = 0

	logger.Debugf("client %s filename %s\n", c.server, filename)
	reply, err := c.exchange(ctx, []byte(filename), result)
	if err != nil {
		return result, err
	}
	if protocol.IsNotFound(reply) {
		logger.Debugf("client %s NOTFOUND %s\n", c.server, filename)
		return result, fmt.Errorf("%w: %s", protocol.ErrFileNotFound, filename)
	}

	w, err := c.sink.Create()
	if err != nil {
		return result, err
	}
	err = c.receive(ctx, w, reply, result)
	cerr := w.Close()
	if err != nil {
		rerr := c.sink.Remove()
		if rerr != nil {
			logger.Errorf("client remove partial output %v\n", rerr)
		}
		return result, err
	}
	if cerr != nil {
		return result, fmt.Errorf("%w: %w", protocol.ErrFileAccess, cerr)
	}
	logger.Verbosef("client %s %s words %d requests %d retransmits %d drained %d\n",
		c.server, filename, result.Words, result.Requests, result.Retransmits, result.Drained)
	return result, nil
}

func (c *Client) receive(ctx context.Context, w *protocol.WordWriter, reply []byte, result *Result) error {
	for n := uint64(1); !protocol.IsEnd(reply); n++ {
		logger.Debugf("client %s word %s\n", c.server, reply)
		err := w.WriteWord(string(reply))
		if err != nil {
			return fmt.Errorf("%w: %w", protocol.ErrFileAccess, err)
		}
		result.Words++

		result.Drained += c.drain(ctx, c.flushWindow())
		request := protocol.EncodeRequest(n)
		logger.Debugf("client %s request %s\n", c.server, request)
		reply, err = c.exchange(ctx, request, result)
		if err != nil {
			return err
		}
		result.Requests++
	}
	logger.Debugf("client %s END\n", c.server)
	return nil
}

// exchange sends payload and waits for one reply from the server, resending
// the same payload after every timeout until the attempts run out.
func (c *Client) exchange(ctx context.Context, payload []byte, result *Result) ([]byte, error) {
	schedule := c.policy.Schedule(ctx)
	for attempt := 0; ; attempt++ {
		timeout := schedule.NextBackOff()
		if timeout == backoff.Stop {
			err := ctx.Err()
			if err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %s after %d attempts in %s", protocol.ErrTimeout,
				payload, attempt, c.policy.Window())
		}
		if attempt > 0 {
			result.Retransmits++
			logger.Verbosef("client %s retransmit %s attempt %d\n", c.server, payload, attempt)
		}
		sent := time.Now()
		err := c.endpoint.Send(payload, c.server)
		if err != nil {
			return nil, err
		}
		reply, err := c.await(ctx, timeout)
		if errors.Is(err, network.ErrTimeout) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if attempt > 0 {
			result.Drained += c.drain(ctx, timeout)
		} else {
			c.observe(time.Since(sent))
		}
		return reply, nil
	}
}

// observe only samples exchanges answered on the first attempt, a
// retransmitted one cannot tell which copy was answered.
func (c *Client) observe(sample time.Duration) {
	if c.rtt == 0 {
		c.rtt = sample
		return
	}
	c.rtt = (7*c.rtt + sample) / 8
}

func (c *Client) flushWindow() time.Duration {
	window := 2 * c.rtt
	if window < FlushWindow {
		window = FlushWindow
	}
	if window > c.policy.Initial {
		window = c.policy.Initial
	}
	return window
}

func (c *Client) await(ctx context.Context, timeout time.Duration) ([]byte, error) {
	wait, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		msg, err := c.endpoint.Receive(wait)
		if errors.Is(err, network.ErrTruncated) {
			logger.Verbosef("client %s receive %v\n", c.server, err)
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, err
		}
		if !network.SameAddr(msg.Addr, c.server) {
			logger.Debugf("client ignore %s from %s\n", msg.Data, msg.Addr)
			continue
		}
		return msg.Data, nil
	}
}

// drain discards the copies of earlier replies that arrive within window.
func (c *Client) drain(ctx context.Context, window time.Duration) int {
	var count int
	for {
		data, err := c.await(ctx, window)
		if err != nil {
			return count
		}
		logger.Debugf("client %s drained %s\n", c.server, data)
		count++
	}
}
