package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSend(t *testing.T) {
	var received []string
	SetSignalHandler(func(data []byte) {
		received = append(received, string(data))
	})
	defer ResetSignalHandler()

	Send("status-changed", map[string]string{"state": "ready"})
	Send("bad", make(chan int))

	assert.Equal(t, []string{`{"type":"status-changed","event":{"state":"ready"}}`}, received)
}

func TestSendWithoutHandler(t *testing.T) {
	ResetSignalHandler()
	assert.NotPanics(t, func() {
		Send("status-changed", nil)
	})
}
