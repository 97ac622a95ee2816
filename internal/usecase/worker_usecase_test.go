package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/scraper"
	"github.com/user/spidermap/pkg/utils"
)

func newTestWorker(f *jobFixture, s Scraper) Worker {
	defaults := RunDefaults{Browser: entity.BrowserOptions{Headless: true, AcceptLanguage: "de-DE"}}
	return NewWorker(f.queue, f.jobs, f.records, f.visited, s, defaults, time.Hour, time.Millisecond, zap.NewNop())
}

func TestProcessJobEmptyQueue(t *testing.T) {
	f := newJobFixture()
	processed, err := newTestWorker(f, &stubScraper{}).ProcessJobFromQueue(context.Background())
	if err != nil || processed {
		t.Fatalf("processed=%v err=%v, want false, nil", processed, err)
	}
}

func TestProcessJobSuccess(t *testing.T) {
	f := newJobFixture()
	id, err := f.manager.Submit(context.Background(), validRequest(), false)
	if err != nil {
		t.Fatal(err)
	}
	s := &stubScraper{result: &entity.ScrapeResult{
		Records:         []entity.Record{{Name: "A", Phone: "555-0101"}, {Name: "B", Phone: "555-0102"}},
		Attempts:        7,
		BudgetExhausted: true,
	}}

	processed, err := newTestWorker(f, s).ProcessJobFromQueue(context.Background())
	if err != nil || !processed {
		t.Fatalf("processed=%v err=%v", processed, err)
	}

	job, _ := f.manager.GetStatus(context.Background(), id)
	if job.Status != entity.JobCompleted || job.RecordCount != 2 || job.Attempts != 7 || !job.BudgetExhausted {
		t.Errorf("job = %+v", job)
	}
	if job.CompletedAt == nil {
		t.Error("completed_at not set")
	}
	records, _ := f.manager.Records(context.Background(), id)
	if len(records) != 2 || records[1].Name != "B" {
		t.Errorf("records = %+v", records)
	}
	if len(s.seen) != 1 || s.seen[0].Browser.AcceptLanguage != "de-DE" || s.seen[0].Query() != "Los Angeles coffee" {
		t.Errorf("scraper saw %+v", s.seen)
	}
}

func TestProcessJobFailure(t *testing.T) {
	f := newJobFixture()
	id, _ := f.manager.Submit(context.Background(), validRequest(), false)
	s := &stubScraper{err: fmt.Errorf("search: %w", scraper.ErrSearchTimeout)}

	if _, err := newTestWorker(f, s).ProcessJobFromQueue(context.Background()); err != nil {
		t.Fatalf("ProcessJobFromQueue: %v", err)
	}

	job, _ := f.manager.GetStatus(context.Background(), id)
	if job.Status != entity.JobFailed || job.FailureReason == "" {
		t.Errorf("job = %+v", job)
	}
	if _, ok := f.visited.keys[utils.QueryKey("Los Angeles", "coffee")]; ok {
		t.Error("failed query still marked as scraped")
	}
}

func TestProcessJobInterrupted(t *testing.T) {
	f := newJobFixture()
	id, _ := f.manager.Submit(context.Background(), validRequest(), false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := &stubScraper{err: context.Canceled}

	if _, err := newTestWorker(f, s).ProcessJobFromQueue(ctx); err != nil {
		t.Fatalf("ProcessJobFromQueue: %v", err)
	}
	job, _ := f.manager.GetStatus(context.Background(), id)
	if job.Status != entity.JobPending {
		t.Errorf("status = %q, want pending", job.Status)
	}
	if len(f.queue.ids) != 1 || f.queue.ids[0] != id {
		t.Errorf("queue = %v, want job requeued", f.queue.ids)
	}
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	f := newJobFixture()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- newTestWorker(f, &stubScraper{}).Run(ctx) }()

	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
}
