package domain

// SessionState represents the lifecycle state of a replay session.
type SessionState int

const (
	SessionDisconnected SessionState = iota
	SessionConnected
	SessionFaulted
)

// String returns a human-readable representation of the state.
func (s SessionState) String() string {
	switch s {
	case SessionDisconnected:
		return "Disconnected"
	case SessionConnected:
		return "Connected"
	case SessionFaulted:
		return "Faulted"
	default:
		return "Unknown"
	}
}
