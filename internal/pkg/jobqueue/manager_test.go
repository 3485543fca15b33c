package jobqueue

import (
	"testing"
	"time"
)

func waitForWorkers(t *testing.T, m *Manager) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("background workers did not stop")
	}
}

func TestCounterFlushWorkerStopsOnClose(t *testing.T) {
	m := &Manager{stopCh: make(chan struct{})}
	m.counterFlushTicker = time.NewTicker(time.Hour)
	defer m.counterFlushTicker.Stop()

	m.wg.Add(1)
	go m.counterFlushWorker(m.stopCh)

	close(m.stopCh)
	waitForWorkers(t, m)
}

func TestWorkerStopSurvivesChannelSwap(t *testing.T) {
	m := &Manager{}
	stop := make(chan struct{})
	m.stopCh = stop
	m.expirySweepTicker = time.NewTicker(time.Hour)
	defer m.expirySweepTicker.Stop()

	m.wg.Add(1)
	go m.expirySweepWorker(stop)

	// A later start cycle replaces the manager's channel; the running worker
	// must still exit on the one it was launched with.
	m.stopCh = make(chan struct{})

	close(stop)
	waitForWorkers(t, m)
}
