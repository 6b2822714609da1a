package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricPool(t *testing.T) {
	assert := assert.New(t)

	mp := &MetricPool{}
	mp.handle(MessageData)
	assert.Equal(uint32(0), mp.MessageData)

	mp.enabled = true
	mp.handle(MessageFilename)
	mp.handle(MessageData)
	mp.handle(MessageData)
	mp.handle(MessageEnd)
	mp.handle(MessageTruncated)
	mp.handle(0)

	var m map[string]uint32
	err := json.Unmarshal([]byte(mp.String()), &m)
	assert.Nil(err)
	assert.Equal(uint32(1), m["filename"])
	assert.Equal(uint32(2), m["data"])
	assert.Equal(uint32(1), m["end"])
	assert.Equal(uint32(1), m["truncated"])
	assert.Equal(uint32(0), m["out-of-order"])
	assert.Len(m, 9)
}
