package storage

import "time"

const (
	TransferOutcomeComplete = "complete"
	TransferOutcomeNotFound = "notfound"
	TransferOutcomeExpired  = "expired"
	TransferOutcomeAborted  = "aborted"
)

// Transfer is the journal entry of one finished server session.
type Transfer struct {
	Id          string `json:"id"`
	Peer        string `json:"peer"`
	Filename    string `json:"filename"`
	Words       uint64 `json:"words"`
	Requests    uint64 `json:"requests"`
	Retransmits uint64 `json:"retransmits"`
	Outcome     string `json:"outcome"`
	Error       string `json:"error,omitempty"`
	StartedAt   uint64 `json:"started_at"`
	FinishedAt  uint64 `json:"finished_at"`
}

func (t *Transfer) Duration() time.Duration {
	if t.FinishedAt < t.StartedAt {
		return 0
	}
	return time.Duration(t.FinishedAt - t.StartedAt)
}
