package domain

// ServiceState is the lifecycle state of the search service.
type ServiceState int32

// Search service states. Ready and Failed are terminal.
const (
	StateUnloaded ServiceState = iota
	StateLoading
	StateReady
	StateFailed
)

// String returns the lower-case state name.
func (s ServiceState) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
