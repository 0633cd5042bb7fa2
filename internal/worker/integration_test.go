package worker_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobgrid/importer/features/deadletter"
	"jobgrid/importer/features/imports"
	"jobgrid/importer/features/job"
	"jobgrid/importer/internal/testutils"
	"jobgrid/importer/internal/worker"
)

// Exercises the full reconciliation path against a real database: many
// records, several of them invalid, handled by concurrent workers. The run
// must end completed with balanced counters and no duplicate jobs.
func TestReconciler_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := testutils.NewIntegrationSuite(t)
	s.Setup()
	defer s.Teardown()
	ctx := context.Background()

	jobRepo := job.NewPostgresRepo(s.DB)
	runRepo := imports.NewPostgresRepo(s.DB)
	deadRepo := deadletter.NewPostgresRepo(s.DB)

	const total = 100
	const invalid = 10

	run := &imports.ImportRun{
		FeedURL:      "https://a.example/feed",
		TotalFetched: total,
		Status:       imports.StatusQueued,
	}
	require.NoError(t, runRepo.Create(ctx, run))

	var bodies [][]byte
	for i := 0; i < total; i++ {
		rec := map[string]interface{}{
			"external_id": fmt.Sprintf("ext-%d", i),
			"title":       fmt.Sprintf("Job %d", i),
			"company":     "Acme",
			"location":    "Remote",
			"source_feed": "https://a.example/feed",
		}
		if i < invalid {
			rec["title"] = "" // fails validation, must land in the failure list
		}
		body, err := json.Marshal(map[string]interface{}{"run_id": run.ID, "record": rec})
		require.NoError(t, err)
		bodies = append(bodies, body)
	}

	h := worker.NewReconciler(jobRepo, runRepo, deadRepo, 1000, 50)

	var wg sync.WaitGroup
	work := make(chan []byte)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for body := range work {
				assert.NoError(t, h.HandleMessage(&nsq.Message{Body: body}))
			}
		}()
	}
	for _, body := range bodies {
		work <- body
	}
	close(work)
	wg.Wait()

	got, err := runRepo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, imports.StatusCompleted, got.Status)
	assert.Equal(t, total, got.TotalFetched)
	assert.Equal(t, total-invalid, got.TotalImported)
	assert.Equal(t, total-invalid, got.NewJobs)
	assert.Equal(t, 0, got.UpdatedJobs)
	assert.Equal(t, invalid, got.FailedJobs)
	assert.Len(t, got.Failures, invalid)

	count, err := jobRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, total-invalid, count)

	// Redelivering an already reconciled record must not create duplicates
	// or flip the completed run back.
	require.NoError(t, h.HandleMessage(&nsq.Message{Body: bodies[total-1]}))

	count, err = jobRepo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, total-invalid, count)

	got, err = runRepo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, imports.StatusCompleted, got.Status)
	assert.Equal(t, total-invalid, got.NewJobs)
	assert.Equal(t, 1, got.UpdatedJobs)

	// A dispatch-side queued transition arriving after the workers have
	// completed the run must not drag it back.
	_, applied, err := runRepo.MarkQueued(ctx, run.ID)
	require.NoError(t, err)
	assert.False(t, applied)

	got, err = runRepo.Get(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, imports.StatusCompleted, got.Status)
}
