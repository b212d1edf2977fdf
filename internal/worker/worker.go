package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is a maintenance task run on a fixed interval.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Worker runs registered jobs in their own goroutines until stopped.
type Worker struct {
	log    *slog.Logger
	jobs   []Job
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	runs   map[string]int
}

func NewWorker(log *slog.Logger) *Worker {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		log:    log,
		ctx:    ctx,
		cancel: cancel,
		runs:   make(map[string]int),
	}
}

// Register adds a job. Jobs registered after Start are not scheduled.
func (w *Worker) Register(job Job) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.jobs = append(w.jobs, job)
}

func (w *Worker) Start() {
	w.mu.Lock()
	jobs := append([]Job(nil), w.jobs...)
	w.mu.Unlock()

	for _, job := range jobs {
		if job.Interval <= 0 || job.Run == nil {
			w.log.Warn("skipping worker job without interval or func", slog.String("job", job.Name))
			continue
		}
		w.wg.Add(1)
		go w.loop(job)
	}
	w.log.Info("worker started", slog.Int("jobs", len(jobs)))
}

func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	w.log.Info("worker stopped")
}

// Runs reports how often the named job has completed, successful or not.
func (w *Worker) Runs(name string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.runs[name]
}

func (w *Worker) loop(job Job) {
	defer w.wg.Done()

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			w.execute(job)
		}
	}
}

func (w *Worker) execute(job Job) {
	start := time.Now()
	err := job.Run(w.ctx)

	w.mu.Lock()
	w.runs[job.Name]++
	w.mu.Unlock()

	if err != nil {
		w.log.Error("worker job failed",
			slog.String("job", job.Name),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return
	}
	w.log.Debug("worker job finished", slog.String("job", job.Name), slog.Duration("duration", time.Since(start)))
}

// PurgeExpiredTokens builds the job that drops expired refresh tokens.
func PurgeExpiredTokens(interval time.Duration, purge func(ctx context.Context, now time.Time) (int64, error), log *slog.Logger) Job {
	return Job{
		Name:     "purge_expired_tokens",
		Interval: interval,
		Run: func(ctx context.Context) error {
			removed, err := purge(ctx, time.Now())
			if err != nil {
				return err
			}
			if removed > 0 {
				log.Info("purged expired refresh tokens", slog.Int64("count", removed))
			}
			return nil
		},
	}
}
