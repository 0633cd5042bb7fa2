package deadletter

import (
	"context"

	"jobgrid/importer/internal/config"
)

type TaskPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  TaskPublisher
}

func NewService(repo Repository, pub TaskPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) List(ctx context.Context) ([]Task, error) {
	return s.repo.List(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

// Retry republishes the archived payload on the task topic and removes it
// from the archive. Requeuing restarts the task's full attempt budget.
func (s *Service) Retry(ctx context.Context, id string) error {
	task, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.pub.Publish(config.TopicImportTask, task.Payload); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}
