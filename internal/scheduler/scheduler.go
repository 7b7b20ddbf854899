package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/TimBim12345/SME/internal/models"
)

// DefaultJobTimeout bounds one scheduled regeneration
const DefaultJobTimeout = 10 * time.Minute

// Runner produces a dataset. *pipeline.Pipeline implements it.
type Runner interface {
	Run(ctx context.Context) (*models.Dataset, error)
}

// DatasetHandler receives every successfully generated dataset
type DatasetHandler func(*models.Dataset)

// Scheduler regenerates the dataset on a cron schedule
type Scheduler struct {
	runner     Runner
	handler    DatasetHandler
	cron       *cron.Cron
	entryID    cron.EntryID
	jobTimeout time.Duration
	mu         sync.Mutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewScheduler creates a scheduler; an empty or unknown timezone means local time
func NewScheduler(runner Runner, timeZone string, handler DatasetHandler) *Scheduler {
	var cronOpts []cron.Option
	if timeZone != "" {
		loc, err := time.LoadLocation(timeZone)
		if err == nil {
			cronOpts = append(cronOpts, cron.WithLocation(loc))
		} else {
			log.Printf("Error loading timezone %s: %v, using local time", timeZone, err)
		}
	}

	return &Scheduler{
		runner:     runner,
		handler:    handler,
		cron:       cron.New(cronOpts...),
		jobTimeout: DefaultJobTimeout,
	}
}

// WithJobTimeout overrides DefaultJobTimeout
func (s *Scheduler) WithJobTimeout(d time.Duration) *Scheduler {
	s.jobTimeout = d
	return s
}

// Start registers the regeneration job under spec and starts the cron loop
func (s *Scheduler) Start(spec string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return errors.New("scheduler is already running")
	}

	// Each start gets its own context; Stop cancels it for good
	ctx, cancel := context.WithCancel(context.Background())
	entryID, err := s.cron.AddFunc(spec, func() { s.job(ctx) })
	if err != nil {
		cancel()
		return errors.Wrapf(err, "failed to schedule regeneration with '%s'", spec)
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = entryID
	s.cancelFunc = cancel

	s.cron.Start()
	s.isRunning = true
	log.Printf("Scheduled regeneration with cron expression '%s', next run at %s",
		spec, s.cron.Entry(entryID).Next.Format(time.RFC3339))
	return nil
}

func (s *Scheduler) job(ctx context.Context) {
	jobCtx, cancel := context.WithTimeout(ctx, s.jobTimeout)
	defer cancel()

	log.Printf("Starting scheduled regeneration")
	start := time.Now()
	if _, err := s.RunNow(jobCtx); err != nil {
		log.Printf("Scheduled regeneration failed after %v: %v", time.Since(start), err)
		return
	}
	log.Printf("Scheduled regeneration completed successfully in %v", time.Since(start))
}

// RunNow generates a dataset immediately and hands it to the handler
func (s *Scheduler) RunNow(ctx context.Context) (*models.Dataset, error) {
	d, err := s.runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	if s.handler != nil {
		s.handler(d)
	}
	return d, nil
}

// Next returns the time of the next scheduled run, zero if not running
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.isRunning {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	s.cancelFunc()
	<-s.cron.Stop().Done()
	s.isRunning = false
	log.Println("Scheduler stopped")
}
