// Package scheduler runs periodic cache-refresh jobs. Each job is
// guarded by a distributed lock so only one instance of the service
// performs the refresh at a time.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/eatcost/storefront/internal/infrastructure/lock"
)

// Lock names of the built-in refresh jobs
const (
	JobRefreshCatalog    = "task:get_all_products"
	JobRefreshCategories = "task:get_products_by_category"
	JobRebuildIndex      = "task:update_search_autocomplete"
)

// Job is one periodic refresh task. Name doubles as the lock name.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Config holds scheduler configuration
type Config struct {
	LockTTL             time.Duration // lock expiry per run
	LockedRetryInterval time.Duration // pause when another instance holds the lock
	JobTimeout          time.Duration // per-run deadline
}

// DefaultConfig returns default scheduler configuration
func DefaultConfig() Config {
	return Config{
		LockTTL:             time.Hour,
		LockedRetryInterval: 30 * time.Minute,
		JobTimeout:          10 * time.Minute,
	}
}

// Scheduler runs registered jobs on their intervals
type Scheduler struct {
	client *redis.Client
	config Config
	logger *zap.Logger

	jobs      []Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a scheduler instance
func NewScheduler(client *redis.Client, config Config, logger *zap.Logger) *Scheduler {
	if config.LockTTL == 0 {
		config.LockTTL = time.Hour
	}
	if config.LockedRetryInterval == 0 {
		config.LockedRetryInterval = 30 * time.Minute
	}
	if config.JobTimeout == 0 {
		config.JobTimeout = 10 * time.Minute
	}
	return &Scheduler{client: client, config: config, logger: logger}
}

// Register adds a job. Must be called before Start.
func (s *Scheduler) Register(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Start launches one loop per registered job
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	jobs := s.jobs
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range jobs {
		s.wg.Add(1)
		go s.runLoop(ctx, job)
	}

	s.logger.Info("Refresh scheduler started",
		zap.Int("jobs", len(jobs)),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Refresh scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Refresh scheduler stop timed out")
		return ctx.Err()
	}
}

// runLoop executes the job, then sleeps until the next run. A run
// skipped because another instance holds the lock retries sooner than
// the job's own interval.
func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	defer s.wg.Done()

	for {
		wait := s.executeOnce(ctx, job)
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// executeOnce runs the job under its lock and returns the pause before
// the next attempt.
func (s *Scheduler) executeOnce(ctx context.Context, job Job) time.Duration {
	l := lock.New(s.client, job.Name, lock.Options{
		TTL:        s.config.LockTTL,
		AutoExtend: true,
	})

	acquired, err := l.TryAcquire(ctx)
	if err != nil {
		s.logger.Error("Job lock acquisition failed",
			zap.String("job", job.Name), zap.Error(err))
		return s.config.LockedRetryInterval
	}
	if !acquired {
		s.logger.Debug("Job is running on another instance",
			zap.String("job", job.Name))
		return s.config.LockedRetryInterval
	}
	defer func() {
		// The run's ctx may already be cancelled; release anyway
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := l.Release(releaseCtx); err != nil {
			s.logger.Warn("Job lock release failed",
				zap.String("job", job.Name), zap.Error(err))
		}
	}()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	started := time.Now()
	if err := job.Run(jobCtx); err != nil {
		s.logger.Error("Job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return job.Interval
	}

	s.logger.Info("Job completed",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(started)),
	)
	return job.Interval
}
