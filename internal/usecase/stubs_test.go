package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/user/spidermap/internal/entity"
	"github.com/user/spidermap/internal/repository"
)

type memQueue struct{ ids []string }

func (q *memQueue) Push(_ context.Context, id string) error {
	q.ids = append(q.ids, id)
	return nil
}

func (q *memQueue) Pop(_ context.Context) (string, bool, error) {
	if len(q.ids) == 0 {
		return "", false, nil
	}
	id := q.ids[0]
	q.ids = q.ids[1:]
	return id, true, nil
}

func (q *memQueue) Size(_ context.Context) (int64, error) { return int64(len(q.ids)), nil }

type memVisited struct{ keys map[string]string }

func newMemVisited() *memVisited { return &memVisited{keys: make(map[string]string)} }

func (v *memVisited) MarkVisited(_ context.Context, key, jobID string, _ time.Duration) error {
	v.keys[key] = jobID
	return nil
}

func (v *memVisited) IsVisited(_ context.Context, key string) (string, bool, error) {
	id, ok := v.keys[key]
	return id, ok, nil
}

func (v *memVisited) RemoveVisited(_ context.Context, key string) error {
	delete(v.keys, key)
	return nil
}

type memJobs struct {
	jobs map[string]entity.ScrapeJob
	next int
}

func newMemJobs() *memJobs { return &memJobs{jobs: make(map[string]entity.ScrapeJob)} }

func (r *memJobs) Save(_ context.Context, job *entity.ScrapeJob) error {
	if job.ID == "" {
		r.next++
		job.ID = fmt.Sprintf("job-%d", r.next)
		job.CreatedAt = time.Now()
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memJobs) FindByID(_ context.Context, id string) (*entity.ScrapeJob, error) {
	job, ok := r.jobs[id]
	if !ok {
		return nil, repository.ErrJobNotFound
	}
	return &job, nil
}

type memRecords struct{ byJob map[string][]entity.Record }

func newMemRecords() *memRecords { return &memRecords{byJob: make(map[string][]entity.Record)} }

func (r *memRecords) SaveAll(_ context.Context, jobID string, records []entity.Record) error {
	r.byJob[jobID] = append([]entity.Record(nil), records...)
	return nil
}

func (r *memRecords) FindByJob(_ context.Context, jobID string) ([]entity.Record, error) {
	return r.byJob[jobID], nil
}

// stubScraper returns a canned result and remembers the requests it saw.
type stubScraper struct {
	result *entity.ScrapeResult
	err    error
	seen   []entity.ScrapeRequest
}

func (s *stubScraper) Scrape(_ context.Context, req entity.ScrapeRequest) (*entity.ScrapeResult, error) {
	s.seen = append(s.seen, req)
	return s.result, s.err
}

// stubBrowser hands out a session whose every interaction fails.
type stubBrowser struct {
	openErr  error
	navErr   error
	opened   int
	released int
	lastOpts entity.BrowserOptions
}

func (b *stubBrowser) Open(_ context.Context, opts entity.BrowserOptions) (repository.Session, context.CancelFunc, error) {
	b.lastOpts = opts
	if b.openErr != nil {
		return nil, nil, b.openErr
	}
	b.opened++
	return &deadSession{navErr: b.navErr}, func() { b.released++ }, nil
}

var errNoElements = errors.New("no elements on a dead page")

type deadSession struct{ navErr error }

func (s *deadSession) Navigate(context.Context, string) error { return s.navErr }
func (s *deadSession) Back(context.Context) error { return nil }
func (s *deadSession) CurrentURL(context.Context) (string, error) { return "about:blank", nil }
func (s *deadSession) Count(context.Context, repository.Locator) (int, error) { return 0, nil }
func (s *deadSession) WaitVisible(context.Context, repository.Element) error {
	return repository.ErrElementNotFound
}
func (s *deadSession) Click(context.Context, repository.Element) error { return errNoElements }
func (s *deadSession) Clear(context.Context, repository.Element) error { return errNoElements }
func (s *deadSession) SendKeys(context.Context, repository.Element, string) error {
	return errNoElements
}
func (s *deadSession) Press(context.Context, repository.Key) error { return nil }
func (s *deadSession) Text(context.Context, repository.Element) (string, error) {
	return "", errNoElements
}
func (s *deadSession) Attribute(context.Context, repository.Element, string) (string, bool, error) {
	return "", false, errNoElements
}
func (s *deadSession) HTML(context.Context, repository.Element) (string, error) {
	return "", errNoElements
}
func (s *deadSession) ScrollIntoView(context.Context, repository.Element) error { return errNoElements }
func (s *deadSession) ScrollElement(context.Context, repository.Element) error { return errNoElements }
func (s *deadSession) ScrollPosition(context.Context, repository.Element) (float64, error) {
	return 0, errNoElements
}
func (s *deadSession) Wheel(context.Context, float64) error { return nil }
