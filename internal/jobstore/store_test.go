package jobstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/slide-converter/internal/domain"
)

func newJob(id string) *domain.Job {
	return domain.NewJob(id, domain.ConvertRequest{
		DownloadData: domain.DownloadData{Type: "PPTX", URL: "http://src/deck.pptx"},
		UploadData: domain.UploadData{
			URL:      "http://dst/upload",
			Callback: domain.Callback{URL: "http://dst/done"},
		},
	})
}

// exerciseStore runs the shared contract against any backend
func exerciseStore(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()

	tracker := NewTracker(backend)
	clock := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tracker.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	_, err := tracker.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tracker.Transition(ctx, "missing", domain.StateDownloaded), ErrNotFound)

	require.NoError(t, tracker.Create(ctx, newJob("job-1")))
	for _, state := range []domain.JobState{domain.StateDownloaded, domain.StateNormalized, domain.StateCounted} {
		require.NoError(t, tracker.Transition(ctx, "job-1", state))
	}
	require.NoError(t, tracker.SetPageCount(ctx, "job-1", 7))
	require.NoError(t, tracker.Finish(ctx, "job-1", domain.OutcomeError, "[page_split] split failed"))
	require.NoError(t, tracker.Transition(ctx, "job-1", domain.StateCleanedUp))

	rec, err := tracker.Get(ctx, "job-1")
	require.NoError(t, err)

	assert.Equal(t, "job-1", rec.ID)
	assert.Equal(t, domain.FormatPPTX, rec.SourceFormat)
	assert.Equal(t, domain.StateCleanedUp, rec.State)
	assert.Equal(t, domain.OutcomeError, rec.Outcome)
	assert.Equal(t, "[page_split] split failed", rec.Message)
	assert.Equal(t, 7, rec.PageCount)

	var states []domain.JobState
	for _, tr := range rec.History {
		states = append(states, tr.State)
	}
	assert.Equal(t, []domain.JobState{
		domain.StateCreated,
		domain.StateDownloaded,
		domain.StateNormalized,
		domain.StateCounted,
		domain.StateCleanedUp,
	}, states)
	assert.True(t, rec.UpdatedAt.After(rec.CreatedAt))

	require.NoError(t, tracker.Close())
}

func TestTracker_Memory(t *testing.T) {
	exerciseStore(t, NewMemoryBackend())
}

func TestTracker_SQLite(t *testing.T) {
	backend, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "jobs.db"))
	require.NoError(t, err)
	exerciseStore(t, backend)
}

func TestSQLiteBackend_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.db")
	ctx := context.Background()

	first, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	require.NoError(t, NewTracker(first).Create(ctx, newJob("job-9")))
	require.NoError(t, first.Close())

	second, err := NewSQLiteBackend(path)
	require.NoError(t, err)
	defer second.Close()

	rec, err := second.Load(ctx, "job-9")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, rec.State)
}

func TestMemoryBackend_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	require.NoError(t, NewTracker(backend).Create(ctx, newJob("job-1")))

	rec, err := backend.Load(ctx, "job-1")
	require.NoError(t, err)
	rec.State = domain.StateNotified

	again, err := backend.Load(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StateCreated, again.State)
}
