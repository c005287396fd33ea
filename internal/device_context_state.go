package internal

// State of the device context. After ConnectionError the failed operation
// is restarted from its first frame.
type State string

const (
	Idle            State = "idle"
	Connecting      State = "connecting"
	ConnectionError State = "connection-error"
	Busy            State = "busy"
	Ready           State = "ready"
	AddressMismatch State = "address-mismatch"
	Stopped         State = "stopped"
)

const (
	SignalStatusChanged   = "status-changed"
	SignalAddressMismatch = "address-mismatch"
)

type Status struct {
	State     State  `json:"state"`
	Transport string `json:"transport"`
	// Path and Address describe the last key read from the device.
	Path    string `json:"path,omitempty"`
	Address string `json:"address,omitempty"`
	Error   string `json:"error,omitempty"`
}

func NewStatus(transport string) *Status {
	status := &Status{Transport: transport}
	status.Reset()
	return status
}

func (s *Status) Reset() {
	s.State = Idle
	s.Path = ""
	s.Address = ""
	s.Error = ""
}
