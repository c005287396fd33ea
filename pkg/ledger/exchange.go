package ledger

import (
	"github.com/status-im/keycard-go/apdu"
)

// Transport sends one serialized command and returns the raw reply,
// status word included.
type Transport interface {
	Exchange(command []byte) ([]byte, error)
}

// Run exchanges frames in order, one at a time, and returns the reply data
// of each frame with the status word stripped. It stops at the first
// failure and returns the replies collected so far with a *TransportError.
// There is no retry: the caller must restart from the first frame.
func Run(frames []*apdu.Command, t Transport) ([][]byte, error) {
	replies := make([][]byte, 0, len(frames))

	for i, frame := range frames {
		raw, err := frame.Serialize()
		if err != nil {
			return replies, &TransportError{Frame: i, Err: err}
		}

		data, err := exchange(t, raw)
		if err != nil {
			return replies, &TransportError{Frame: i, Err: err}
		}

		replies = append(replies, data)
	}

	return replies, nil
}

func exchange(t Transport, raw []byte) ([]byte, error) {
	reply, err := t.Exchange(raw)
	if err != nil {
		return nil, err
	}

	resp, err := apdu.ParseResponse(reply)
	if err != nil {
		return nil, err
	}

	if resp.Sw != apdu.SwOK {
		return nil, apdu.NewErrBadResponse(resp.Sw, statusText(resp.Sw))
	}

	return resp.Data, nil
}
