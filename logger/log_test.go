package logger

import (
	"bytes"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoggerFilter(t *testing.T) {
	assert := assert.New(t)
	defer SetFilter("")

	out := filterOutput("server sent word %d", time.Now().UnixNano())
	assert.Contains(out, "word")

	err := SetFilter("client")
	assert.Nil(err)
	out = filterOutput("server sent word %d", time.Now().UnixNano())
	assert.NotContains(out, "word")
	out = filterOutput("Client received word %d", time.Now().UnixNano())
	assert.NotContains(out, "word")
	out = filterOutput("client received word %d", time.Now().UnixNano())
	assert.Contains(out, "word")

	err = SetFilter("(?i)client|SERVER")
	assert.Nil(err)
	out = filterOutput("Client received word %d", time.Now().UnixNano())
	assert.Contains(out, "word")
	out = filterOutput("SERVER sent word %d", time.Now().UnixNano())
	assert.Contains(out, "word")
	out = filterOutput("journal wrote transfer %d", time.Now().UnixNano())
	assert.NotContains(out, "transfer")

	err = SetFilter("(")
	assert.NotNil(err)
}

func TestLoggerLimiter(t *testing.T) {
	assert := assert.New(t)
	defer SetLimiter(0)

	la := limiterAvailable("server retransmit WORD1")
	assert.True(la)
	SetLimiter(10)
	for i := 0; i < 10; i++ {
		la := limiterAvailable("client timeout WORD3")
		assert.True(la)
	}
	la = limiterAvailable("client timeout WORD3")
	assert.False(la)
	la = limiterAvailable("client timeout WORD4")
	assert.True(la)
}

func TestLoggerLevel(t *testing.T) {
	assert := assert.New(t)

	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(INFO)

	SetLevel(ERROR)
	Printf("hidden %s", "info")
	Errorf("shown %s", "error")
	assert.Contains(buf.String(), "shown error")
	assert.NotContains(buf.String(), "hidden info")

	buf.Reset()
	SetLevel(VERBOSE)
	Verbosef("shown %s", "verbose")
	Debugf("hidden %s", "debug")
	assert.Contains(buf.String(), "shown verbose")
	assert.NotContains(buf.String(), "hidden debug")
	assert.Equal(VERBOSE, Level())
}
