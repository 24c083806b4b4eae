package metrics

// Metrics is what the client session and the relay report. Implementations
// must be safe for concurrent use.
type Metrics interface {
	// client side
	IncDeltasApplied()
	IncDeltasDropped()
	IncSequenceGaps()
	IncResyncs()
	IncReconnects(channel string)
	ObserveSnapshotFetch(seconds float64)
	IncSnapshotFailures()
	IncPublishFailures()

	// relay side
	IncCommandsApplied()
	IncCommandsRejected()
	IncSlowClientsDropped()
	SetActiveConnections(n int)
}
