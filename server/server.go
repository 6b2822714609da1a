package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/wordstep/wordstep/config"
	"github.com/wordstep/wordstep/files"
	"github.com/wordstep/wordstep/logger"
	"github.com/wordstep/wordstep/network"
	"github.com/wordstep/wordstep/protocol"
	"github.com/wordstep/wordstep/storage"
)

// Journal receives every session once it leaves the session table.
type Journal interface {
	WriteTransfer(t *storage.Transfer) error
}

type Server struct {
	endpoint network.Endpoint
	source   files.Source
	journal  Journal
	metric   *MetricPool
	sessions *hashmap.HashMap

	once        bool
	idle        time.Duration
	linger      time.Duration
	maxSessions int
	reapPeriod  time.Duration
	duplicate   time.Duration
	startedAt   time.Time
	completed   bool
}

func NewServer(custom *config.Custom, endpoint network.Endpoint, source files.Source, journal Journal) *Server {
	return &Server{
		endpoint:    endpoint,
		source:      source,
		journal:     journal,
		metric:      &MetricPool{enabled: true},
		sessions:    &hashmap.HashMap{},
		once:        custom.Server.Once,
		idle:        custom.IdleTimeout(),
		linger:      custom.LingerPeriod(),
		maxSessions: custom.Server.MaxSessions,
		reapPeriod:  config.SessionReapPeriod,
		duplicate:   config.DuplicateWindow,
		startedAt:   time.Now(),
	}
}

func (s *Server) LocalAddr() net.Addr {
	return s.endpoint.LocalAddr()
}

func (s *Server) StartedAt() time.Time {
	return s.startedAt
}

func (s *Server) Metric() *MetricPool {
	return s.metric
}

func (s *Server) SessionsCount() int {
	return s.sessions.Len()
}

func (s *Server) Sessions() []*SessionInfo {
	var infos []*SessionInfo
	for kv := range s.sessions.Iter() {
		infos = append(infos, kv.Value.(*session).info())
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt < infos[j].StartedAt
	})
	return infos
}

// Run serves sessions until ctx is done or the endpoint fails. In once mode
// it returns nil after the first complete session has been reaped, or
// protocol.ErrFileNotFound as soon as a lookup fails.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	incoming := make(chan *network.Message, 256)
	failed := make(chan error, 1)
	go s.receive(ctx, incoming, failed)

	ticker := time.NewTicker(s.reapPeriod)
	defer ticker.Stop()
	defer s.shutdown()

	logger.Printf("server listening on %s once %t\n", s.endpoint.LocalAddr(), s.once)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-failed:
			return err
		case msg := <-incoming:
			err := s.dispatch(msg, time.Now())
			if err != nil {
				return err
			}
		case now := <-ticker.C:
			s.reap(now)
			if s.once && s.completed && s.sessions.Len() == 0 {
				logger.Printf("server done after first transfer\n")
				return nil
			}
		}
	}
}

func (s *Server) receive(ctx context.Context, incoming chan<- *network.Message, failed chan<- error) {
	for {
		msg, err := s.endpoint.Receive(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return
		case errors.Is(err, network.ErrTruncated):
			s.metric.handle(MessageTruncated)
			logger.Verbosef("server receive %v\n", err)
			continue
		case errors.Is(err, network.ErrTimeout):
			continue
		case errors.Is(err, network.ErrClosed):
			failed <- fmt.Errorf("%w: %w", protocol.ErrTransportIO, err)
			return
		default:
			logger.Errorf("server receive %v\n", err)
			continue
		}
		select {
		case incoming <- msg:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Server) dispatch(msg *network.Message, now time.Time) error {
	if val, found := s.sessions.GetStringKey(msg.Addr.String()); found {
		sess := val.(*session)
		handled, err := s.handleSession(sess, msg.Data, now)
		if err != nil {
			return s.abort(sess, err, now)
		}
		if handled {
			return nil
		}
		s.removeSession(sess, "", nil, now)
	}
	return s.openSession(msg, now)
}

func (s *Server) openSession(msg *network.Message, now time.Time) error {
	if s.maxSessions > 0 && s.sessions.Len() >= s.maxSessions {
		logger.Verbosef("server %s dropped, %d sessions active\n", msg.Addr, s.sessions.Len())
		return nil
	}
	s.metric.handle(MessageFilename)

	filename := string(msg.Data)
	sess := newSession(msg.Addr, filename, now)
	logger.Debugf("server %s session %s filename %s\n", msg.Addr, sess.id, filename)

	reader, err := s.source.Open(filename)
	if err != nil {
		logger.Verbosef("server %s %v\n", msg.Addr, err)
		sess.finish(storage.TransferOutcomeNotFound)
		sess.last = protocol.NotFoundMessage()
		s.sessions.Set(msg.Addr.String(), sess)
		err = s.reply(sess, sess.last, false, now)
		if err != nil {
			return s.abort(sess, err, now)
		}
		if s.once {
			return fmt.Errorf("%w: %s", protocol.ErrFileNotFound, filename)
		}
		return nil
	}

	sess.reader = reader
	s.sessions.Set(msg.Addr.String(), sess)
	reply, err := sess.next()
	if err != nil {
		return s.abort(sess, err, now)
	}
	sess.last = reply
	err = s.reply(sess, reply, false, now)
	if err != nil {
		return s.abort(sess, err, now)
	}
	return nil
}

// handleSession reports false when the message does not belong to the
// finished session of the same peer and should start a new one.
func (s *Server) handleSession(sess *session, data []byte, now time.Time) (bool, error) {
	n, ok := protocol.ParseRequest(data)
	served := sess.served.Load()
	switch {
	case served == 0 && string(data) == sess.filename:
		s.metric.handle(MessageFilename)
		return true, s.retransmit(sess, data, now)
	case ok && n == served+1:
		s.metric.handle(MessageRequest)
		return true, s.advance(sess, now)
	case ok && n == served && served > 0:
		s.metric.handle(MessageRequest)
		return true, s.retransmit(sess, data, now)
	case ok && n < served:
		s.metric.handle(MessageDuplicate)
		logger.Debugf("server %s duplicate %s at %d\n", sess.peer, data, served)
		return true, nil
	case string(data) == sess.filename:
		s.metric.handle(MessageDuplicate)
		logger.Debugf("server %s stale filename %s\n", sess.peer, data)
		return true, nil
	case !ok && !sess.done.Load():
		s.metric.handle(MessageRequest)
		return true, s.advance(sess, now)
	case !ok:
		return false, nil
	default:
		s.metric.handle(MessageOutOfOrder)
		logger.Verbosef("server %s out of order %s at %d\n", sess.peer, data, served)
		return true, nil
	}
}

func (s *Server) advance(sess *session, now time.Time) error {
	sess.touch(now)
	reply, err := sess.next()
	if err != nil {
		return err
	}
	sess.served.Add(1)
	sess.last = reply
	return s.reply(sess, reply, false, now)
}

// retransmit answers a repeated message with the last reply, unless the
// reply left less than the duplicate window ago and the repeat is most
// likely a copy made by the network.
func (s *Server) retransmit(sess *session, data []byte, now time.Time) error {
	if now.Sub(sess.repliedAt) < s.duplicate {
		s.metric.handle(MessageDuplicate)
		logger.Debugf("server %s duplicate %s within %s\n", sess.peer, data, s.duplicate)
		return nil
	}
	sess.touch(now)
	return s.reply(sess, sess.last, true, now)
}

func (s *Server) reply(sess *session, data []byte, retransmit bool, now time.Time) error {
	sess.repliedAt = now
	switch {
	case retransmit:
		s.metric.handle(MessageRetransmit)
		sess.retransmits.Add(1)
	case sess.outcome == storage.TransferOutcomeNotFound:
		s.metric.handle(MessageNotFound)
	case sess.done.Load() && protocol.IsEnd(data):
		s.metric.handle(MessageEnd)
	default:
		s.metric.handle(MessageData)
	}
	logger.Debugf("server %s send %s retransmit %t\n", sess.peer, data, retransmit)
	return s.endpoint.Send(data, sess.peer)
}

// abort drops a failed session, the error only stops Run in once mode.
func (s *Server) abort(sess *session, err error, now time.Time) error {
	logger.Errorf("server %s session %s aborted %v\n", sess.peer, sess.id, err)
	s.removeSession(sess, storage.TransferOutcomeAborted, err, now)
	if s.once {
		return err
	}
	return nil
}

func (s *Server) reap(now time.Time) {
	var finished, expired []*session
	for kv := range s.sessions.Iter() {
		sess := kv.Value.(*session)
		idle := sess.idle(now)
		switch {
		case sess.done.Load() && idle >= s.linger:
			finished = append(finished, sess)
		case !sess.done.Load() && idle >= s.idle:
			expired = append(expired, sess)
		}
	}
	for _, sess := range finished {
		s.removeSession(sess, "", nil, now)
	}
	for _, sess := range expired {
		s.removeSession(sess, storage.TransferOutcomeExpired, nil, now)
	}
}

func (s *Server) shutdown() {
	defer logger.Printf("server metric %s\n", s.metric.String())
	now := time.Now()
	var active []*session
	for kv := range s.sessions.Iter() {
		active = append(active, kv.Value.(*session))
	}
	for _, sess := range active {
		if sess.done.Load() {
			s.removeSession(sess, "", nil, now)
		} else {
			s.removeSession(sess, storage.TransferOutcomeAborted, nil, now)
		}
	}
}

// removeSession journals the session, an empty outcome keeps the one the
// session finished with.
func (s *Server) removeSession(sess *session, outcome string, err error, now time.Time) {
	if val, found := s.sessions.GetStringKey(sess.peer.String()); found && val.(*session) == sess {
		s.sessions.Del(sess.peer.String())
	}
	sess.close()
	sess.done.Store(true)
	if outcome != "" {
		sess.outcome = outcome
	}
	if sess.outcome == storage.TransferOutcomeComplete {
		s.completed = true
	}

	t := sess.transfer(sess.outcome, err, now)
	logger.Verbosef("server %s session %s %s %s words %d requests %d retransmits %d\n",
		t.Peer, t.Id, t.Filename, t.Outcome, t.Words, t.Requests, t.Retransmits)
	if s.journal == nil {
		return
	}
	err = s.journal.WriteTransfer(t)
	if err != nil {
		logger.Errorf("server journal %s %v\n", t.Id, err)
	}
}
