package server

import (
	"encoding/json"
	"sync/atomic"
)

const (
	MessageFilename   = 1
	MessageRequest    = 2
	MessageData       = 3
	MessageNotFound   = 4
	MessageEnd        = 5
	MessageRetransmit = 6
	MessageDuplicate  = 7
	MessageOutOfOrder = 8
	MessageTruncated  = 9
)

type MetricPool struct {
	enabled bool

	MessageFilename   uint32 `json:"filename"`
	MessageRequest    uint32 `json:"request"`
	MessageData       uint32 `json:"data"`
	MessageNotFound   uint32 `json:"notfound"`
	MessageEnd        uint32 `json:"end"`
	MessageRetransmit uint32 `json:"retransmit"`
	MessageDuplicate  uint32 `json:"duplicate"`
	MessageOutOfOrder uint32 `json:"out-of-order"`
	MessageTruncated  uint32 `json:"truncated"`
}

func (mp *MetricPool) handle(msg uint8) {
	if !mp.enabled {
		return
	}

	switch msg {
	case MessageFilename:
		atomic.AddUint32(&mp.MessageFilename, 1)
	case MessageRequest:
		atomic.AddUint32(&mp.MessageRequest, 1)
	case MessageData:
		atomic.AddUint32(&mp.MessageData, 1)
	case MessageNotFound:
		atomic.AddUint32(&mp.MessageNotFound, 1)
	case MessageEnd:
		atomic.AddUint32(&mp.MessageEnd, 1)
	case MessageRetransmit:
		atomic.AddUint32(&mp.MessageRetransmit, 1)
	case MessageDuplicate:
		atomic.AddUint32(&mp.MessageDuplicate, 1)
	case MessageOutOfOrder:
		atomic.AddUint32(&mp.MessageOutOfOrder, 1)
	case MessageTruncated:
		atomic.AddUint32(&mp.MessageTruncated, 1)
	}
}

func (mp *MetricPool) Snapshot() *MetricPool {
	return &MetricPool{
		enabled:           mp.enabled,
		MessageFilename:   atomic.LoadUint32(&mp.MessageFilename),
		MessageRequest:    atomic.LoadUint32(&mp.MessageRequest),
		MessageData:       atomic.LoadUint32(&mp.MessageData),
		MessageNotFound:   atomic.LoadUint32(&mp.MessageNotFound),
		MessageEnd:        atomic.LoadUint32(&mp.MessageEnd),
		MessageRetransmit: atomic.LoadUint32(&mp.MessageRetransmit),
		MessageDuplicate:  atomic.LoadUint32(&mp.MessageDuplicate),
		MessageOutOfOrder: atomic.LoadUint32(&mp.MessageOutOfOrder),
		MessageTruncated:  atomic.LoadUint32(&mp.MessageTruncated),
	}
}

func (mp *MetricPool) String() string {
	b, err := json.Marshal(mp.Snapshot())
	if err != nil {
		panic(err)
	}
	return string(b)
}
