package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/coter/internal/domain/account"
	"github.com/geocoder89/coter/internal/domain/job"
	"github.com/geocoder89/coter/internal/notifications"
	"github.com/geocoder89/coter/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
	RequeueStaleProcessing(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// DeliveryLedger records which notifications went out, so a job replayed after
// a crash does not notify twice.
type DeliveryLedger interface {
	TryStart(ctx context.Context, kind, subjectID, jobID, recipientID string) error
	MarkSent(ctx context.Context, kind, subjectID string) error
	MarkFailed(ctx context.Context, kind, subjectID, errMsg string) error
}

type AccountDirectory interface {
	GetByID(ctx context.Context, id string) (account.Account, error)
}

type Config struct {
	WorkerID     string
	PollInterval time.Duration
	Concurrency  int
	LockTTL      time.Duration
	JobTimeout   time.Duration
}

type Worker struct {
	cfg        Config
	repo       JobsRepository
	deliveries DeliveryLedger
	accounts   AccountDirectory
	notifier   notifications.Notifier
	prom       *observability.Prom
	metrics    *observability.JobMetrics
	log        *slog.Logger

	backoff func(attempt int) time.Duration
	now     func() time.Time

	readyMu sync.RWMutex
	ready   bool
}

func New(
	cfg Config,
	repo JobsRepository,
	deliveries DeliveryLedger,
	accounts AccountDirectory,
	notifier notifications.Notifier,
	prom *observability.Prom,
	metrics *observability.JobMetrics,
	log *slog.Logger,
) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = observability.NewJobMetrics()
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:        cfg,
		repo:       repo,
		deliveries: deliveries,
		accounts:   accounts,
		notifier:   notifier,
		prom:       prom,
		metrics:    metrics,
		log:        log.With("worker_id", cfg.WorkerID),
		backoff:    ExponentialBackoff,
		now:        time.Now,
	}
}

func (w *Worker) Metrics() *observability.JobMetrics { return w.metrics }

func (w *Worker) SetReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) IsReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}

// Run polls for jobs with cfg.Concurrency loops until ctx is cancelled.
// In-flight jobs finish before Run returns.
func (w *Worker) Run(ctx context.Context) error {
	w.SetReady(true)
	defer w.SetReady(false)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		w.requeueLoop(ctx)
	}()

	for i := 0; i < w.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			w.pollLoop(ctx, slot)
		}(i)
	}

	<-ctx.Done()
	w.log.Info("worker received shutdown signal")
	w.SetReady(false)

	wg.Wait()
	return nil
}

func (w *Worker) pollLoop(ctx context.Context, slot int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		// drain: keep claiming while there is work
		for ctx.Err() == nil {
			// processing uses a context detached from shutdown so a claimed job is never abandoned mid-flight
			processed, err := w.ProcessOne(context.WithoutCancel(ctx))
			if err != nil {
				w.log.Error("process job", "slot", slot, "err", err)
				break
			}
			if !processed {
				break
			}
		}
	}
}

func (w *Worker) requeueLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.LockTTL)
	defer ticker.Stop()

	for {
		w.requeueStale(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) requeueStale(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n, err := w.repo.RequeueStaleProcessing(cctx, w.cfg.LockTTL)
	if err != nil {
		if ctx.Err() == nil {
			w.log.Error("requeue stale jobs", "err", err)
		}
		return
	}
	if n > 0 {
		w.log.Warn("requeued stale jobs", "count", n)
	}
}
