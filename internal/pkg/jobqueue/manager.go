package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"bizdir/app/models"
	metrics "bizdir/internal/pkg/metrics/counter"
)

// Manager manages the global job queue and background tasks
type Manager struct {
	queue              *Queue
	counterFlushTicker *time.Ticker
	expirySweepTicker  *time.Ticker
	stopCh             chan struct{}
	wg                 sync.WaitGroup
	mu                 sync.Mutex
	running            bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		// Get worker count from settings, fallback to 5 if not available
		workerCount := 5
		if settings := getAppSettings(); settings != nil {
			workerCount = settings.GetJobQueueWorkerCount()
		}

		globalManager = &Manager{
			queue:  NewQueue(workerCount),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the job queue and background tasks
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// Recreate stop channel for each start cycle so manager can be restarted safely.
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and background tasks")

	// Start the job queue
	m.queue.Start()

	// Start counter flush worker (Redis -> DB) every 5 seconds. Workers get
	// the stop channel of their own start cycle so a concurrent restart
	// cannot swap it out from under them.
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker(m.stopCh)

	// Plan expiry sweep, hourly. Expired paid listings also get demoted
	// lazily on read; the sweep catches listings nobody looks at.
	m.expirySweepTicker = time.NewTicker(time.Hour)
	m.wg.Add(1)
	go m.expirySweepWorker(m.stopCh)

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the job queue and background tasks
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")

	if m.counterFlushTicker != nil {
		m.counterFlushTicker.Stop()
	}
	if m.expirySweepTicker != nil {
		m.expirySweepTicker.Stop()
	}

	// Signal workers to stop. The channel stays set until the next Start
	// recreates it; nil-ing it here could strand a worker mid iteration.
	close(m.stopCh)
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes pending counters from Redis to DB
func (m *Manager) counterFlushWorker(stop <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stop:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// expirySweepWorker periodically enqueues a plan expiry sweep job
func (m *Manager) expirySweepWorker(stop <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stop:
			log.Info("[JobQueue Manager] Expiry sweep worker stopping")
			return
		case <-m.expirySweepTicker.C:
			if _, err := m.queue.EnqueueJob(JobTypePlanExpirySweep, map[string]interface{}{}); err != nil {
				log.Errorf("[JobQueue Manager] Failed to enqueue expiry sweep: %v", err)
			}
		}
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// RunExpirySweepOnce exposes a manual trigger for a single expiry sweep (admin use).
func (m *Manager) RunExpirySweepOnce() (*Job, error) {
	return m.queue.EnqueueJob(JobTypePlanExpirySweep, map[string]interface{}{})
}

// getAppSettings safely returns the current app settings
func getAppSettings() *models.AppSettings {
	return models.GetAppSettings()
}
