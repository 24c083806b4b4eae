package metrics

import "sync"

var _ Metrics = (*Mock)(nil)

// Mock records calls for assertions in tests. It is safe for concurrent use.
type Mock struct {
	mu                 sync.Mutex
	deltasApplied      int
	deltasDropped      int
	sequenceGaps       int
	resyncs            int
	reconnects         map[string]int
	snapshotFetches    []float64
	snapshotFailures   int
	publishFailures    int
	commandsApplied    int
	commandsRejected   int
	slowClientsDropped int
	activeConnections  int
}

func NewMock() *Mock {
	return &Mock{reconnects: make(map[string]int)}
}

func (m *Mock) locked(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f()
}

func (m *Mock) IncDeltasApplied() { m.locked(func() { m.deltasApplied++ }) }
func (m *Mock) IncDeltasDropped() { m.locked(func() { m.deltasDropped++ }) }
func (m *Mock) IncSequenceGaps() { m.locked(func() { m.sequenceGaps++ }) }
func (m *Mock) IncResyncs() { m.locked(func() { m.resyncs++ }) }
func (m *Mock) IncSnapshotFailures() { m.locked(func() { m.snapshotFailures++ }) }
func (m *Mock) IncPublishFailures() { m.locked(func() { m.publishFailures++ }) }
func (m *Mock) IncCommandsApplied() { m.locked(func() { m.commandsApplied++ }) }
func (m *Mock) IncCommandsRejected() { m.locked(func() { m.commandsRejected++ }) }
func (m *Mock) IncSlowClientsDropped() { m.locked(func() { m.slowClientsDropped++ }) }

func (m *Mock) IncReconnects(channel string) {
	m.locked(func() { m.reconnects[channel]++ })
}

func (m *Mock) ObserveSnapshotFetch(seconds float64) {
	m.locked(func() { m.snapshotFetches = append(m.snapshotFetches, seconds) })
}

func (m *Mock) SetActiveConnections(n int) {
	m.locked(func() { m.activeConnections = n })
}

func (m *Mock) DeltasApplied() (n int) { m.locked(func() { n = m.deltasApplied }); return }
func (m *Mock) DeltasDropped() (n int) { m.locked(func() { n = m.deltasDropped }); return }
func (m *Mock) SequenceGaps() (n int) { m.locked(func() { n = m.sequenceGaps }); return }
func (m *Mock) Resyncs() (n int) { m.locked(func() { n = m.resyncs }); return }
func (m *Mock) SnapshotFailures() (n int) { m.locked(func() { n = m.snapshotFailures }); return }
func (m *Mock) PublishFailures() (n int) { m.locked(func() { n = m.publishFailures }); return }
func (m *Mock) CommandsApplied() (n int) { m.locked(func() { n = m.commandsApplied }); return }
func (m *Mock) CommandsRejected() (n int) { m.locked(func() { n = m.commandsRejected }); return }
func (m *Mock) SlowClientsDropped() (n int) { m.locked(func() { n = m.slowClientsDropped }); return }
func (m *Mock) ActiveConnections() (n int) { m.locked(func() { n = m.activeConnections }); return }

func (m *Mock) Reconnects(channel string) (n int) {
	m.locked(func() { n = m.reconnects[channel] })
	return
}

func (m *Mock) SnapshotFetches() (n int) {
	m.locked(func() { n = len(m.snapshotFetches) })
	return
}
