package metrics

// Metrics defines the interface for collecting application metrics.
// This decouples the application from the specific metrics implementation (e.g., Prometheus).
type Metrics interface {
	IncPollTicks()
	ObserveTickDuration(duration float64)
	SetPoolSize(groupID string, size int)
	IncMatchesCreated()
	IncMatchesSettled()
	IncDisputes()
	IncSessionsAbandoned()
	IncNotifSent()
	IncNotifFailed()
	SetStartupTime(duration float64)
}
