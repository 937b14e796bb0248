package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cdptour/pkg/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.sqlite3"), "test_", nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(tour model.TourType, outcome model.Outcome, ended time.Time) model.RunRecord {
	return model.RunRecord{
		RunID:      uuid.NewString(),
		Tour:       tour,
		Role:       "member",
		Outcome:    outcome,
		LastStep:   1,
		TotalSteps: 3,
		StartedAt:  ended.Add(-time.Minute),
		EndedAt:    ended,
	}
}

func TestSaveAndListRuns(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveRun(ctx, record(model.TourOverview, model.OutcomeSkipped, base)))
	require.NoError(t, s.SaveRun(ctx, record(model.TourOverview, model.OutcomeCompleted, base.Add(time.Hour))))
	require.NoError(t, s.SaveRun(ctx, record(model.TourInvoices, model.OutcomeClosed, base.Add(2*time.Hour))))

	all, err := s.ListRuns(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, model.TourInvoices, all[0].Tour)

	overview, err := s.ListRuns(ctx, model.TourOverview, 1)
	require.NoError(t, err)
	require.Len(t, overview, 1)
	assert.Equal(t, model.OutcomeCompleted, overview[0].Outcome)
	assert.Equal(t, 3, overview[0].TotalSteps)
	assert.Equal(t, "member", overview[0].Role)
}

func TestCompletedTours(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.SaveRun(ctx, record(model.TourOverview, model.OutcomeCompleted, now)))
	require.NoError(t, s.SaveRun(ctx, record(model.TourOverview, model.OutcomeCompleted, now)))
	require.NoError(t, s.SaveRun(ctx, record(model.TourAdmin, model.OutcomeSkipped, now)))

	done, err := s.CompletedTours(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.TourType]bool{model.TourOverview: true}, done)
}

func TestSaveRunRequiresID(t *testing.T) {
	s := openTestStore(t)
	assert.Error(t, s.SaveRun(context.Background(), model.RunRecord{Tour: model.TourOverview}))
}
