package signal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Envelope is the JSON object delivered to the handler.
type Envelope struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

type Handler func(data []byte)

var (
	mu      sync.RWMutex
	handler Handler
)

func SetSignalHandler(h Handler) {
	mu.Lock()
	defer mu.Unlock()
	handler = h
}

func ResetSignalHandler() {
	SetSignalHandler(nil)
}

// Send delivers an event to the registered handler, if any. The handler is
// called synchronously.
func Send(typ string, event interface{}) {
	mu.RLock()
	h := handler
	mu.RUnlock()

	if h == nil {
		return
	}

	data, err := json.Marshal(Envelope{Type: typ, Event: event})
	if err != nil {
		zap.L().Named("signal").Error("failed to marshal signal", zap.String("type", typ), zap.Error(err))
		return
	}

	h(data)
}
