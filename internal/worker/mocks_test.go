package worker_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"jobgrid/importer/features/deadletter"
	"jobgrid/importer/features/imports"
	"jobgrid/importer/features/job"
)

// Mocks

type MockJobStore struct{ mock.Mock }

func (m *MockJobStore) Upsert(ctx context.Context, j *job.Job) (bool, error) {
	args := m.Called(ctx, j)
	return args.Bool(0), args.Error(1)
}

type MockRunLedger struct{ mock.Mock }

func (m *MockRunLedger) RecordImported(ctx context.Context, runID string, created bool) (imports.Counters, error) {
	args := m.Called(ctx, runID, created)
	return args.Get(0).(imports.Counters), args.Error(1)
}

func (m *MockRunLedger) RecordFailure(ctx context.Context, runID, recordKey, reason string) (imports.Counters, error) {
	args := m.Called(ctx, runID, recordKey, reason)
	return args.Get(0).(imports.Counters), args.Error(1)
}

func (m *MockRunLedger) MarkCompleted(ctx context.Context, runID string) error {
	args := m.Called(ctx, runID)
	return args.Error(0)
}

type MockDeadLetters struct{ mock.Mock }

func (m *MockDeadLetters) Save(ctx context.Context, task *deadletter.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

func (m *MockDeadLetters) Prune(ctx context.Context, keep int) error {
	args := m.Called(ctx, keep)
	return args.Error(0)
}
