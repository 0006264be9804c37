package upload

// Session lifecycle states. COMPLETED and CANCELED are terminal.
const (
	StateInit      = "INIT"
	StateUploading = "UPLOADING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
	StateCanceled  = "CANCELED"
)

// Audit event types written to upload_events.
const (
	EventInitialized = "UPLOAD_INITIALIZED"
	EventResumed     = "UPLOAD_RESUMED"
	EventRecovered   = "UPLOAD_RECOVERED"
	EventCompleted   = "UPLOAD_COMPLETED"
	EventCanceled    = "UPLOAD_CANCELED"
)

// IsTerminal reports whether no further transitions may leave the state.
func IsTerminal(state string) bool {
	return state == StateCompleted || state == StateCanceled
}

// CanTransition reports whether the state machine permits moving from one
// state to another. Terminal states permit nothing.
func CanTransition(from, to string) bool {
	switch from {
	case StateInit:
		return to == StateUploading || to == StateCanceled
	case StateUploading:
		return to == StateCompleted || to == StateFailed || to == StateCanceled
	case StateFailed:
		return to == StateUploading || to == StateCanceled
	default:
		return false
	}
}
