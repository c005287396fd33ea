package pcsc

import (
	"strings"

	"github.com/ebfe/scard"
)

type ReadersStates []scard.ReaderState

func newReadersStates(readers []string) ReadersStates {
	rs := make(ReadersStates, len(readers))
	for i, name := range readers {
		rs[i].Reader = name
		rs[i].CurrentState = scard.StateUnaware
	}
	return rs
}

func (rs ReadersStates) Update() {
	for i := range rs {
		rs[i].CurrentState = rs[i].EventState
	}
}

// ReaderWithCard returns the first reader holding a card whose name
// contains hint. An empty hint matches every reader.
func (rs ReadersStates) ReaderWithCard(hint string) (string, bool) {
	for i := range rs {
		if rs[i].EventState&scard.StatePresent == 0 {
			continue
		}

		if hint != "" && !strings.Contains(rs[i].Reader, hint) {
			continue
		}

		return rs[i].Reader, true
	}

	return "", false
}

func (rs ReadersStates) Names() []string {
	names := make([]string, len(rs))
	for i := range rs {
		names[i] = rs[i].Reader
	}
	return names
}
