package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	JobTransferRetry = "transfer_retry"
	JobGigExpiry     = "gig_expiry"
	JobTokenPurge    = "token_purge"
	JobGigMatch      = "gig_match_notify"
	JobDistribute    = "payout_distribute"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type RunFunc func(context.Context) (any, error)

// Recorder persists job_runs rows. A nil Recorder skips bookkeeping.
type Recorder interface {
	StartRun(ctx context.Context, jobType string) (string, error)
	FinishRun(ctx context.Context, runID, status string, details []byte) error
}

type Observer interface {
	RecordJob(job string, duration time.Duration, err error)
}

type Service struct {
	recorder Recorder
	observer Observer
	queue    chan job
	cron     *cron.Cron
	workers  int
	wg       sync.WaitGroup
}

type job struct {
	Type string
	Run  RunFunc
}

func New(recorder Recorder, observer Observer) *Service {
	return &Service{
		recorder: recorder,
		observer: observer,
		queue:    make(chan job, 128),
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.DefaultLogger),
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
		workers: 2,
	}
}

// Schedule registers run on a cron spec ("@every 1h", "0 3 * * *"). An empty spec disables the job.
func (s *Service) Schedule(spec, jobType string, run RunFunc) error {
	if spec == "" {
		return nil
	}
	_, err := s.cron.AddFunc(spec, func() {
		s.Enqueue(jobType, run)
	})
	return err
}

func (s *Service) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
	s.cron.Start()
}

// Stop halts the scheduler and waits for workers once ctx passed to Start is cancelled.
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Service) Enqueue(jobType string, run RunFunc) bool {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
		return true
	default:
		slog.Warn("job queue full", "jobType", jobType)
		return false
	}
}

func (s *Service) RunNow(ctx context.Context, jobType string, run RunFunc) (any, error) {
	return s.runJob(ctx, job{Type: jobType, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if s.recorder != nil {
		id, err := s.recorder.StartRun(ctx, j.Type)
		if err != nil {
			slog.Warn("job run insert failed", "jobType", j.Type, "err", err)
		}
		runID = id
	}

	start := time.Now()
	details, err := j.Run(ctx)
	if s.observer != nil {
		s.observer.RecordJob(j.Type, time.Since(start), err)
	}

	status := RunStatusCompleted
	if err != nil {
		status = RunStatusFailed
		details = map[string]any{"error": err.Error(), "details": details}
	}
	if runID == "" {
		return details, err
	}
	detailsJSON, marshalErr := json.Marshal(details)
	if marshalErr != nil {
		slog.Warn("job details marshal failed", "err", marshalErr)
		detailsJSON = []byte("{}")
	}
	if updErr := s.recorder.FinishRun(ctx, runID, status, detailsJSON); updErr != nil {
		slog.Warn("job run update failed", "runId", runID, "err", updErr)
	}
	return details, err
}
