package usecase

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
	"github.com/user/spidermap/pkg/utils"
)

var (
	ErrQueryRecentlyScraped = errors.New("query has been scraped recently and force is false")
	ErrJobNotFound          = repository.ErrJobNotFound
)

// JobManager defines the interface for submitting and inspecting scrape jobs.
type JobManager interface {
	// Submit queues req and returns the new job ID. When the same query was
	// submitted within the deduplication window and force is false, it
	// returns the earlier job ID with ErrQueryRecentlyScraped.
	Submit(ctx context.Context, req entity.ScrapeRequest, force bool) (string, error)
	GetStatus(ctx context.Context, id string) (*entity.ScrapeJob, error)
	Records(ctx context.Context, id string) ([]entity.Record, error)
}

type jobManagerUseCase struct {
	jobRepo     repository.JobRepository
	recordRepo  repository.RecordRepository
	queueRepo   repository.QueueRepository
	visitedRepo repository.VisitedRepository
	window      time.Duration
	logger      *zap.Logger
}

// NewJobManager creates a new JobManager use case.
func NewJobManager(
	jobRepo repository.JobRepository,
	recordRepo repository.RecordRepository,
	queueRepo repository.QueueRepository,
	visitedRepo repository.VisitedRepository,
	window time.Duration,
	logger *zap.Logger,
) JobManager {
	return &jobManagerUseCase{
		jobRepo:     jobRepo,
		recordRepo:  recordRepo,
		queueRepo:   queueRepo,
		visitedRepo: visitedRepo,
		window:      window,
		logger:      logger,
	}
}

func (uc *jobManagerUseCase) Submit(ctx context.Context, req entity.ScrapeRequest, force bool) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	key := utils.QueryKey(req.Region, req.Category)

	if force {
		if err := uc.visitedRepo.RemoveVisited(ctx, key); err != nil {
			// Continue anyway, as this is not a critical failure
			uc.logger.Warn("failed to remove scraped key for forced scrape", zap.String("query", key), zap.Error(err))
		}
	} else {
		prevID, ok, err := uc.visitedRepo.IsVisited(ctx, key)
		if err != nil {
			return "", err
		}
		if ok {
			return prevID, ErrQueryRecentlyScraped
		}
	}

	job := &entity.ScrapeJob{
		Region:              req.Region,
		Category:            req.Category,
		MaxResults:          req.MaxResults,
		IncludeWithoutPhone: req.IncludeWithoutPhone,
		Status:              entity.JobPending,
	}
	if err := uc.jobRepo.Save(ctx, job); err != nil {
		return "", err
	}
	if err := uc.queueRepo.Push(ctx, job.ID); err != nil {
		return "", err
	}

	if err := uc.visitedRepo.MarkVisited(ctx, key, job.ID, uc.window); err != nil {
		// The job is queued; a second submission may slip through before it runs.
		uc.logger.Error("failed to mark query as scraped after queueing", zap.String("query", key), zap.Error(err))
	}

	uc.logger.Info("scrape job queued", zap.String("job_id", job.ID), zap.String("query", key))
	return job.ID, nil
}

func (uc *jobManagerUseCase) GetStatus(ctx context.Context, id string) (*entity.ScrapeJob, error) {
	return uc.jobRepo.FindByID(ctx, id)
}

func (uc *jobManagerUseCase) Records(ctx context.Context, id string) ([]entity.Record, error) {
	if _, err := uc.jobRepo.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return uc.recordRepo.FindByJob(ctx, id)
}
