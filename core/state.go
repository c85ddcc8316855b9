package core

// State is a phase of the client connection lifecycle
type State int

const (
	StateIdle State = iota
	StateChecking
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateChecking:
		return "checking"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}
