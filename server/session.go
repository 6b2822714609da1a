package server

import (
	"io"
	"net"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/wordstep/wordstep/protocol"
	"github.com/wordstep/wordstep/storage"
)

type SessionInfo struct {
	Id          string `json:"id"`
	Peer        string `json:"peer"`
	Filename    string `json:"filename"`
	Words       uint64 `json:"words"`
	Requests    uint64 `json:"requests"`
	Retransmits uint64 `json:"retransmits"`
	Done        bool   `json:"done"`
	StartedAt   uint64 `json:"started_at"`
	ActiveAt    uint64 `json:"active_at"`
}

// session is owned by the dispatch loop, only the atomic fields are read
// from other goroutines.
type session struct {
	id        string
	peer      net.Addr
	filename  string
	reader    *protocol.WordReader
	last      []byte
	outcome   string
	startedAt time.Time
	repliedAt time.Time

	served      atomic.Uint64
	words       atomic.Uint64
	retransmits atomic.Uint64
	activeAt    atomic.Int64
	done        atomic.Bool
}

func newSession(peer net.Addr, filename string, now time.Time) *session {
	s := &session{
		id:        uuid.Must(uuid.NewV4()).String(),
		peer:      peer,
		filename:  filename,
		startedAt: now,
	}
	s.activeAt.Store(now.UnixNano())
	return s
}

func (s *session) touch(now time.Time) {
	s.activeAt.Store(now.UnixNano())
}

func (s *session) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.activeAt.Load()))
}

// next reads the reply for the following pull. The stream ends at the first
// END token or at the end of the source, both answered with END.
func (s *session) next() ([]byte, error) {
	if s.done.Load() {
		return protocol.EndMessage(), nil
	}
	word, err := s.reader.Next()
	if err == io.EOF || (err == nil && word == protocol.End) {
		s.finish(storage.TransferOutcomeComplete)
		return protocol.EndMessage(), nil
	}
	if err != nil {
		return nil, err
	}
	s.words.Add(1)
	return []byte(word), nil
}

func (s *session) finish(outcome string) {
	if s.done.Swap(true) {
		return
	}
	s.outcome = outcome
	s.close()
}

func (s *session) close() {
	if s.reader != nil {
		s.reader.Close()
		s.reader = nil
	}
}

func (s *session) info() *SessionInfo {
	return &SessionInfo{
		Id:          s.id,
		Peer:        s.peer.String(),
		Filename:    s.filename,
		Words:       s.words.Load(),
		Requests:    s.served.Load(),
		Retransmits: s.retransmits.Load(),
		Done:        s.done.Load(),
		StartedAt:   uint64(s.startedAt.UnixNano()),
		ActiveAt:    uint64(s.activeAt.Load()),
	}
}

func (s *session) transfer(outcome string, err error, now time.Time) *storage.Transfer {
	t := &storage.Transfer{
		Id:          s.id,
		Peer:        s.peer.String(),
		Filename:    s.filename,
		Words:       s.words.Load(),
		Requests:    s.served.Load(),
		Retransmits: s.retransmits.Load(),
		Outcome:     outcome,
		StartedAt:   uint64(s.startedAt.UnixNano()),
		FinishedAt:  uint64(now.UnixNano()),
	}
	if err != nil {
		t.Error = err.Error()
	}
	return t
}
