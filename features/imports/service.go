package imports

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("import run not found")

// Pagination describes one page of the run listing.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

type Service struct {
	repo     Repository
	orch     *Orchestrator
	feedURLs []string
}

func NewService(repo Repository, orch *Orchestrator, feedURLs []string) *Service {
	return &Service{repo: repo, orch: orch, feedURLs: feedURLs}
}

// List returns run summaries ordered by recency; the failure list is only
// available through Get.
func (s *Service) List(ctx context.Context, page, limit int) ([]ImportRun, *Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	runs, total, err := s.repo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, nil, err
	}

	pages := total / limit
	if total%limit > 0 {
		pages++
	}
	return runs, &Pagination{Page: page, Limit: limit, Total: total, Pages: pages}, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ImportRun, error) {
	run, err := s.repo.Get(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.repo.Stats(ctx)
}

// Trigger runs the orchestrator over all configured feeds. The call returns
// once dispatch finishes; reconciliation continues asynchronously.
func (s *Service) Trigger(ctx context.Context) *Summary {
	return s.orch.ImportFeeds(ctx, s.feedURLs)
}
