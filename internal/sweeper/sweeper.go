// AngelaMos | 2026
// sweeper.go

package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/filedrive-app/filedrive/internal/file"
	"github.com/filedrive-app/filedrive/internal/storage"
)

var (
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrive_sweeper_runs_total",
		Help: "Number of completed sweep passes.",
	})
	sweepPurgedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrive_sweeper_files_purged_total",
		Help: "Number of files permanently removed by the sweeper.",
	})
	sweepErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filedrive_sweeper_errors_total",
		Help: "Number of per-file purge failures.",
	})
	sweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filedrive_sweeper_duration_seconds",
		Help:    "Duration of sweep passes.",
		Buckets: prometheus.DefBuckets,
	})
)

const batchSize = 500

// Sweeper permanently removes files flagged for deletion: blob first,
// then the row. A row whose blob is already gone still gets purged, so a
// crash between the two steps heals on the next pass.
type Sweeper struct {
	files    file.Repository
	store    storage.BlobStore
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}

	// runMu serializes sweep passes. A manual RunOnce and the ticker run
	// must never purge the same file concurrently.
	runMu sync.Mutex
}

type Result struct {
	Purged   int
	Failed   int
	Duration time.Duration
}

func New(
	files file.Repository,
	store storage.BlobStore,
	interval time.Duration,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		files:    files,
		store:    store,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background loop. The first pass runs immediately;
// later passes fire on the interval until Stop or context cancellation.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.done = make(chan struct{})

	go s.run(runCtx)

	s.logger.Info("sweeper started", "interval", s.interval)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.running = false
	done := s.done
	s.mu.Unlock()

	<-done
	s.logger.Info("sweeper stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error("sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				s.logger.Error("sweep failed", "error", err)
			}
		}
	}
}

// RunOnce performs a single sweep pass. Passes are mutually exclusive;
// a concurrent caller blocks until the in-flight pass finishes. A
// per-file failure is counted and skipped; the file stays flagged and
// the next pass retries it.
func (s *Sweeper) RunOnce(ctx context.Context) (*Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()

	marked, err := s.files.ListMarked(ctx, batchSize)
	if err != nil {
		return nil, err
	}

	result := &Result{}

	for i := range marked {
		f := &marked[i]

		if err := s.purge(ctx, f); err != nil {
			result.Failed++
			sweepErrorsTotal.Inc()
			s.logger.Error("purge failed",
				"file_id", f.ID,
				"object_key", f.ObjectKey,
				"error", err,
			)
			continue
		}

		result.Purged++
		sweepPurgedTotal.Inc()
	}

	result.Duration = time.Since(start)
	sweepRunsTotal.Inc()
	sweepDuration.Observe(result.Duration.Seconds())

	if result.Purged > 0 || result.Failed > 0 {
		s.logger.Info("sweep complete",
			"purged", result.Purged,
			"failed", result.Failed,
			"duration", result.Duration,
		)
	}

	return result, nil
}

func (s *Sweeper) purge(ctx context.Context, f *file.File) error {
	err := s.store.Delete(ctx, f.ObjectKey)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		return err
	}

	return s.files.Purge(ctx, f.ID)
}
