package session

// State is the lifecycle state of the build session controller.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateCancelRequested
	StateCancelled
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCancelRequested:
		return "cancel-requested"
	case StateCancelled:
		return "cancelled"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}
