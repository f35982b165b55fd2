package jobqueue

import (
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/OlehKovalenko/CoachPilot/app/models"
	"github.com/OlehKovalenko/CoachPilot/app/repository"
	metrics "github.com/OlehKovalenko/CoachPilot/internal/pkg/metrics/counter"
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
		workerCount := 3
		if v := os.Getenv("JOB_QUEUE_WORKERS"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				workerCount = n
			}
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

	// Start counter flush worker (Redis -> DB) every 5 seconds
	m.counterFlushTicker = time.NewTicker(5 * time.Second)
	m.wg.Add(1)
	go m.counterFlushWorker()

	// Start subscription expiry sweep
	sweepInterval := 10 * time.Minute
	if v := os.Getenv("SUBSCRIPTION_SWEEP_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			sweepInterval = time.Duration(n) * time.Minute
		}
	}
	m.expirySweepTicker = time.NewTicker(sweepInterval)
	m.wg.Add(1)
	go m.expirySweepWorker()

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

	// Signal workers to stop
	close(m.stopCh)
	m.stopCh = nil
	m.running = false

	// Wait for background workers to finish
	m.wg.Wait()

	// Stop the job queue
	m.queue.Stop()

	log.Info("[JobQueue Manager] Stopped successfully")
}

// counterFlushWorker periodically flushes payment counters from Redis to DB
func (m *Manager) counterFlushWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Counter flush worker stopping")
			return
		case <-m.counterFlushTicker.C:
			if err := metrics.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] Counter flush error: %v", err)
			}
		}
	}
}

// expirySweepWorker periodically expires lapsed subscriptions and enqueues
// the notification job for each affected profile.
func (m *Manager) expirySweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			log.Info("[JobQueue Manager] Subscription sweep worker stopping")
			return
		case <-m.expirySweepTicker.C:
			if err := m.runExpirySweepOnce(); err != nil {
				log.Errorf("[JobQueue Manager] Subscription sweep error: %v", err)
			}
		}
	}
}

func (m *Manager) runExpirySweepOnce() error {
	factory := repository.GetGlobalFactory()
	subs := factory.GetSubscriptionRepository()
	profiles := factory.GetProfileRepository()

	expired, err := subs.GetExpired(time.Now())
	if err != nil {
		return err
	}

	for _, sub := range expired {
		if err := subs.MarkExpired(sub.ID); err != nil {
			log.Errorf("[JobQueue Manager] Failed to mark subscription %d expired: %v", sub.ID, err)
			continue
		}

		language := models.LanguageUkrainian
		if profile, perr := profiles.GetByID(sub.ProfileID); perr == nil {
			language = profile.Language
		}

		payload := PaymentNotificationPayload{ProfileID: sub.ProfileID, Language: language}
		if _, qerr := m.queue.EnqueueJob(JobTypeNotifySubscriptionExpired, payload.ToMap()); qerr != nil {
			log.Errorf("[JobQueue Manager] Failed to enqueue expiry notification for profile %d: %v", sub.ProfileID, qerr)
		}
	}

	if len(expired) > 0 {
		log.Infof("[JobQueue Manager] Expired %d subscriptions", len(expired))
	}
	return nil
}

// RunExpirySweepOnce exposes a manual trigger for a single sweep (admin use).
func (m *Manager) RunExpirySweepOnce() error {
	return m.runExpirySweepOnce()
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
