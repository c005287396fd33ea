package ledger

import "fmt"

type PayloadTooLargeError struct {
	Size int
	Max  int
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("frame payload of %d bytes exceeds %d", e.Size, e.Max)
}

// TransportError wraps an I/O failure or a device status error on the
// exchange of Frame (0 based). The whole frame sequence must be restarted.
type TransportError struct {
	Frame int
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("exchange of frame %d failed: %v", e.Frame, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type TruncatedResponseError struct {
	Want int
	Got  int
}

func (e *TruncatedResponseError) Error() string {
	return fmt.Sprintf("truncated response: need %d bytes, got %d", e.Want, e.Got)
}

// AddressMismatchWarning is not fatal: the device-reported address stays
// authoritative.
type AddressMismatchWarning struct {
	Computed string `json:"computed"`
	Reported string `json:"reported"`
}

func (w *AddressMismatchWarning) Error() string {
	return fmt.Sprintf("address mismatch: computed %s, device reported %s", w.Computed, w.Reported)
}

func statusText(sw uint16) string {
	switch sw {
	case SwConditionsNotMet:
		return "conditions not satisfied"
	case SwUserRejected:
		return "rejected by user"
	case SwWrongData:
		return "wrong data"
	case SwInsNotSupported:
		return "instruction not supported, is the app open?"
	case SwClaNotSupported:
		return "class not supported"
	case SwWrongLength:
		return "wrong length"
	case SwInvalidParameters:
		return "invalid parameters"
	}
	return "unknown"
}
