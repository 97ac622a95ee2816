package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/pkg/metrics"
	"github.com/user/spidermap/pkg/utils"
)

// Worker drains the job queue, one job at a time.
type Worker interface {
	// ProcessJobFromQueue runs the next queued job, reporting false when the
	// queue was empty.
	ProcessJobFromQueue(ctx context.Context) (bool, error)
	// Run polls the queue until ctx is done.
	Run(ctx context.Context) error
}

type workerUseCase struct {
	queueRepo   repository.QueueRepository
	jobRepo     repository.JobRepository
	recordRepo  repository.RecordRepository
	visitedRepo repository.VisitedRepository
	scraper     Scraper
	defaults    RunDefaults
	window      time.Duration
	limiter     *rate.Limiter
	logger      *zap.Logger
}

// NewWorker creates a new instance of the worker use case.
func NewWorker(
	queueRepo repository.QueueRepository,
	jobRepo repository.JobRepository,
	recordRepo repository.RecordRepository,
	visitedRepo repository.VisitedRepository,
	scraper Scraper,
	defaults RunDefaults,
	window time.Duration,
	pollInterval time.Duration,
	logger *zap.Logger,
) Worker {
	return &workerUseCase{
		queueRepo:   queueRepo,
		jobRepo:     jobRepo,
		recordRepo:  recordRepo,
		visitedRepo: visitedRepo,
		scraper:     scraper,
		defaults:    defaults,
		window:      window,
		limiter:     rate.NewLimiter(rate.Every(pollInterval), 1),
		logger:      logger,
	}
}

func (uc *workerUseCase) Run(ctx context.Context) error {
	uc.logger.Info("worker started")
	for {
		if err := uc.limiter.Wait(ctx); err != nil {
			uc.logger.Info("worker stopped")
			return nil
		}
		if size, err := uc.queueRepo.Size(ctx); err == nil {
			metrics.JobsInQueue.Set(float64(size))
		}
		if _, err := uc.ProcessJobFromQueue(ctx); err != nil {
			if ctx.Err() != nil {
				uc.logger.Info("worker stopped")
				return nil
			}
			uc.logger.Error("failed to process job", zap.Error(err))
		}
	}
}

func (uc *workerUseCase) ProcessJobFromQueue(ctx context.Context) (bool, error) {
	jobID, ok, err := uc.queueRepo.Pop(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to pop job from queue: %w", err)
	}
	if !ok {
		// Queue is empty, which is a normal state.
		return false, nil
	}

	job, err := uc.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return true, fmt.Errorf("failed to load job %s: %w", jobID, err)
	}
	log := uc.logger.With(zap.String("job_id", job.ID))
	log.Info("processing job", zap.String("region", job.Region), zap.String("category", job.Category))

	job.Status = entity.JobRunning
	if err := uc.jobRepo.Save(ctx, job); err != nil {
		return true, fmt.Errorf("failed to mark job %s running: %w", job.ID, err)
	}

	result, scrapeErr := uc.scraper.Scrape(ctx, uc.defaults.Apply(job.Request()))
	if errors.Is(scrapeErr, context.Canceled) && ctx.Err() != nil {
		return true, uc.requeue(job, log)
	}
	if scrapeErr != nil {
		return true, uc.handleFailure(ctx, job, scrapeErr)
	}
	return true, uc.handleSuccess(ctx, job, result)
}

// requeue puts an interrupted job back in the queue.
// ctx is already done, so it uses a short detached context.
func (uc *workerUseCase) requeue(job *entity.ScrapeJob, log *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	job.Status = entity.JobPending
	if err := uc.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to reset interrupted job %s: %w", job.ID, err)
	}
	log.Warn("job interrupted, returning it to the queue")
	return uc.queueRepo.Push(ctx, job.ID)
}

func (uc *workerUseCase) handleSuccess(ctx context.Context, job *entity.ScrapeJob, result *entity.ScrapeResult) error {
	if err := uc.recordRepo.SaveAll(ctx, job.ID, result.Records); err != nil {
		return uc.handleFailure(ctx, job, fmt.Errorf("failed to save records: %w", err))
	}

	now := time.Now()
	job.Status = entity.JobCompleted
	job.RecordCount = len(result.Records)
	job.Attempts = result.Attempts
	job.BudgetExhausted = result.BudgetExhausted
	job.CompletedAt = &now
	if err := uc.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to complete job %s: %w", job.ID, err)
	}

	key := utils.QueryKey(job.Region, job.Category)
	if err := uc.visitedRepo.MarkVisited(ctx, key, job.ID, uc.window); err != nil {
		uc.logger.Warn("failed to refresh scraped key", zap.String("job_id", job.ID), zap.Error(err))
	}
	uc.logger.Info("job completed", zap.String("job_id", job.ID), zap.Int("records", job.RecordCount))
	return nil
}

// handleFailure records the reason and forgets the query so it can be
// submitted again right away.
func (uc *workerUseCase) handleFailure(ctx context.Context, job *entity.ScrapeJob, cause error) error {
	now := time.Now()
	job.Status = entity.JobFailed
	job.FailureReason = cause.Error()
	job.CompletedAt = &now
	if err := uc.jobRepo.Save(ctx, job); err != nil {
		return fmt.Errorf("failed to record failure of job %s: %w", job.ID, err)
	}

	key := utils.QueryKey(job.Region, job.Category)
	if err := uc.visitedRepo.RemoveVisited(ctx, key); err != nil {
		uc.logger.Warn("failed to clear scraped key", zap.String("job_id", job.ID), zap.Error(err))
	}
	uc.logger.Error("job failed", zap.String("job_id", job.ID), zap.String("error_type", Classify(cause)), zap.Error(cause))
	return nil
}
