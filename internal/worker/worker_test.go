package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farefuse/farefuse/internal/snapshot"
	"github.com/farefuse/farefuse/internal/worker"
)

func TestDefaultConfig(t *testing.T) {
	cfg := worker.DefaultConfig()

	assert.Equal(t, 10, cfg.MaxOutstandingMessages)
	assert.Equal(t, 10*time.Minute, cfg.MaxExtension)
	assert.Equal(t, 24*time.Hour, cfg.Retention)
	assert.Equal(t, time.Hour, cfg.PurgeInterval)
}

func encoded(t *testing.T, s *snapshot.Snapshot) []byte {
	t.Helper()
	data, err := snapshot.Encode(s)
	require.NoError(t, err)
	return data
}

func validSnapshot(at time.Time) *snapshot.Snapshot {
	return &snapshot.Snapshot{
		Route:     snapshot.RoutePair{From: "Nagpur", To: "Delhi"},
		Type:      "FLIGHT",
		Price:     5200,
		Currency:  "INR",
		Demand:    "Medium",
		Source:    "Live API",
		Metadata:  snapshot.Metadata{Time: 3.2},
		FetchedAt: at,
	}
}

func TestIngestor_StoresSnapshot(t *testing.T) {
	repo := snapshot.NewInMemoryRepository()
	ing := worker.NewIngestor(repo, worker.Config{}, zerolog.Nop())

	d := ing.Process(context.Background(), encoded(t, validSnapshot(time.Now().UTC())))

	assert.Equal(t, worker.Ack, d)
	require.Equal(t, 1, repo.Len())
	assert.Equal(t, 5200, repo.List()[0].Price)

	stats := ing.Stats()
	assert.Equal(t, int64(1), stats.Received)
	assert.Equal(t, int64(1), stats.Stored)
	assert.False(t, stats.LastStoredAt.IsZero())
}

func TestIngestor_DropsMalformed(t *testing.T) {
	repo := snapshot.NewInMemoryRepository()
	ing := worker.NewIngestor(repo, worker.Config{}, zerolog.Nop())

	tests := []struct {
		name string
		data []byte
	}{
		{name: "not json", data: []byte("not json")},
		{name: "missing route", data: []byte(`{"type":"FLIGHT","price":100}`)},
		{name: "negative price", data: []byte(`{"route":{"from":"A","to":"B"},"type":"TRAIN","price":-1}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, worker.Ack, ing.Process(context.Background(), tt.data))
		})
	}

	assert.Zero(t, repo.Len())
	assert.Equal(t, int64(3), ing.Stats().Dropped)
}

type failingSink struct{ err error }

func (f failingSink) Save(context.Context, *snapshot.Snapshot) error { return f.err }

func TestIngestor_RetriesStorageErrors(t *testing.T) {
	ing := worker.NewIngestor(failingSink{err: errors.New("connection reset")}, worker.Config{}, zerolog.Nop())

	d := ing.Process(context.Background(), encoded(t, validSnapshot(time.Now())))
	assert.Equal(t, worker.Nack, d)
	assert.Equal(t, "nack", d.String())
	assert.Equal(t, int64(1), ing.Stats().Retried)
}

func TestIngestor_DropsSinkValidationErrors(t *testing.T) {
	ing := worker.NewIngestor(failingSink{err: snapshot.ErrInvalidSnapshot}, worker.Config{}, zerolog.Nop())

	d := ing.Process(context.Background(), encoded(t, validSnapshot(time.Now())))
	assert.Equal(t, worker.Ack, d)
	assert.Equal(t, int64(1), ing.Stats().Dropped)
}

func TestPurgeJob_Run(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	repo := snapshot.NewInMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, validSnapshot(now.Add(-30*time.Hour))))
	require.NoError(t, repo.Save(ctx, validSnapshot(now.Add(-25*time.Hour))))
	require.NoError(t, repo.Save(ctx, validSnapshot(now.Add(-time.Hour))))

	job := worker.NewPurgeJob(worker.PurgeJobConfig{
		Purger: repo,
		Now:    func() time.Time { return now },
		Logger: zerolog.Nop(),
	})

	result := job.Run(ctx)
	require.NoError(t, result.Err)
	assert.Equal(t, int64(2), result.Deleted)
	assert.Equal(t, now.Add(-24*time.Hour), result.Cutoff)
	assert.Equal(t, 1, repo.Len())

	m := job.GetMetrics()
	assert.Equal(t, int64(1), m.TotalRuns)
	assert.Equal(t, int64(2), m.TotalDeleted)
	assert.Equal(t, int64(2), job.MetricsSnapshot()["last_deleted"])
}

type errPurger struct{}

func (errPurger) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, errors.New("database unavailable")
}

func TestPurgeJob_RunFailure(t *testing.T) {
	job := worker.NewPurgeJob(worker.PurgeJobConfig{Purger: errPurger{}, Logger: zerolog.Nop()})

	result := job.Run(context.Background())
	assert.Error(t, result.Err)
	assert.Equal(t, int64(1), job.GetMetrics().FailedRuns)
}

func TestPurgeJob_StartStopsOnCancel(t *testing.T) {
	repo := snapshot.NewInMemoryRepository()
	job := worker.NewPurgeJob(worker.PurgeJobConfig{
		Purger: repo,
		Config: worker.Config{PurgeInterval: 10 * time.Millisecond},
		Logger: zerolog.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return job.GetMetrics().TotalRuns >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("purge job did not stop")
	}
}
