package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Mr-wang007s/personal-accounting-sub000/internal/adapter"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/config"
	"github.com/Mr-wang007s/personal-accounting-sub000/internal/logger"
)

// clientSyncJob runs the sync engine's clocks in one background goroutine:
// the periodic cycle, the connectivity probe feeding the offline state, the
// reconnect debounce that batches a burst of reconnect events into one
// cycle, and the edit debounce that absorbs rapid successive edits into a
// single network round trip. Overlapping triggers collapse in the
// orchestrator's in-flight guard; extra ones are dropped, not queued.
type clientSyncJob struct {
	orchestrator SyncOrchestrator
	gateway      adapter.SyncGateway
	workers      config.ClientWorkers
	log          *logger.Logger

	kick chan struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClientSyncJob creates a clientSyncJob driving the given orchestrator.
// The job is idle until Start is called.
func NewClientSyncJob(
	orchestrator SyncOrchestrator,
	gateway adapter.SyncGateway,
	workers config.ClientWorkers,
	log *logger.Logger,
) ClientSyncJob {
	if workers.SyncInterval <= 0 {
		workers.SyncInterval = 5 * time.Minute
	}
	if workers.SyncDebounce <= 0 {
		workers.SyncDebounce = 2 * time.Second
	}
	if workers.ReconnectDelay <= 0 {
		workers.ReconnectDelay = 3 * time.Second
	}
	if workers.ConnectivityInterval <= 0 {
		workers.ConnectivityInterval = 30 * time.Second
	}

	return &clientSyncJob{
		orchestrator: orchestrator,
		gateway:      gateway,
		workers:      workers,
		log:          log,
		kick:         make(chan struct{}, 1),
	}
}

// Start implements ClientSyncJob. It stops any previously running job, then
// launches the background goroutine. The goroutine exits when ctx is
// cancelled or Stop is called.
func (j *clientSyncJob) Start(ctx context.Context) {
	j.Stop()

	j.mu.Lock()
	jobCtx, cancel := context.WithCancel(ctx)
	j.cancel = cancel
	j.wg.Add(1)
	j.mu.Unlock()

	j.orchestrator.SetOnTrack(j.NotifyChange)

	go func() {
		defer j.wg.Done()
		j.run(jobCtx)
	}()
}

// Stop implements ClientSyncJob. It cancels the background goroutine's
// context and blocks until the goroutine has fully exited. Safe to call
// when the job is not running (no-op in that case).
func (j *clientSyncJob) Stop() {
	j.mu.Lock()
	cancel := j.cancel
	j.cancel = nil
	j.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	j.wg.Wait()
}

// NotifyChange implements ClientSyncJob. The signal channel holds one slot;
// a kick while one is already queued is redundant and dropped.
func (j *clientSyncJob) NotifyChange() {
	select {
	case j.kick <- struct{}{}:
	default:
	}
}

func (j *clientSyncJob) run(ctx context.Context) {
	periodic := time.NewTicker(j.workers.SyncInterval)
	defer periodic.Stop()
	probe := time.NewTicker(j.workers.ConnectivityInterval)
	defer probe.Stop()

	debounce := newStoppedTimer()
	defer debounce.Stop()
	reconnect := newStoppedTimer()
	defer reconnect.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-periodic.C:
			j.runCycle(ctx)

		case <-j.kick:
			// Every tracked edit restarts the quiet period; only an
			// uninterrupted timer fire starts a cycle.
			debounce.Reset(j.workers.SyncDebounce)

		case <-debounce.C:
			j.runCycle(ctx)

		case <-probe.C:
			err := j.gateway.Ping(ctx)
			if resync := j.orchestrator.SetConnected(err == nil); resync {
				reconnect.Reset(j.workers.ReconnectDelay)
			}

		case <-reconnect.C:
			j.runCycle(ctx)
		}
	}
}

func (j *clientSyncJob) runCycle(ctx context.Context) {
	_, err := j.orchestrator.Sync(ctx)
	switch {
	case err == nil:
	case errors.Is(err, ErrSyncInFlight):
		// Another trigger won the race; this one is dropped.
	case errors.Is(err, ErrOffline):
		j.log.Debug().Msg("background sync skipped, server unreachable")
	default:
		j.log.Err(err).Msg("background sync failed")
	}
}

// newStoppedTimer returns a timer that will not fire until Reset is called.
func newStoppedTimer() *time.Timer {
	t := time.NewTimer(time.Hour)
	if !t.Stop() {
		<-t.C
	}
	return t
}
