package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/ai"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
)

type rankerStub struct {
	teacherID string
	err       error
	delay     time.Duration
	calls     int
}

func (s *rankerStub) Rank(ctx context.Context, req ai.RankRequest) (string, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.delay):
		}
	}
	return s.teacherID, s.err
}

func assistedSelection() ([]string, SelectionContext) {
	return []string{"t1", "t2"}, SelectionContext{
		Level: models.LevelIntermediate,
		At:    time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC),
		Profiles: []models.CandidateProfile{
			{TeacherID: "t1", UpcomingCount: 5},
			{TeacherID: "t2", UpcomingCount: 0},
		},
	}
}

func TestAssistedScorerUsesRankerVerdict(t *testing.T) {
	ranker := &rankerStub{teacherID: "t1"}
	scorer := NewAssistedScorer(ranker, NewLeastLoadedScorer(nil), time.Second, nil, nil)

	candidates, sel := assistedSelection()
	picked, err := scorer.Select(context.Background(), candidates, sel)
	require.NoError(t, err)
	assert.Equal(t, "t1", picked)
	assert.Equal(t, 1, ranker.calls)
}

func TestAssistedScorerFallsBackOnError(t *testing.T) {
	for _, rankErr := range []error{ai.ErrMalformedResponse, ai.ErrRateLimited, ai.ErrQuotaExhausted} {
		ranker := &rankerStub{err: rankErr}
		scorer := NewAssistedScorer(ranker, NewLeastLoadedScorer(nil), time.Second, nil, nil)

		candidates, sel := assistedSelection()
		picked, err := scorer.Select(context.Background(), candidates, sel)
		require.NoError(t, err, "scorer failure must never surface")
		assert.Equal(t, "t2", picked, "fallback picks least-loaded")
	}
}

func TestAssistedScorerFallsBackOnUnknownCandidate(t *testing.T) {
	ranker := &rankerStub{teacherID: "nobody"}
	scorer := NewAssistedScorer(ranker, NewLeastLoadedScorer(nil), time.Second, nil, nil)

	candidates, sel := assistedSelection()
	picked, err := scorer.Select(context.Background(), candidates, sel)
	require.NoError(t, err)
	assert.Equal(t, "t2", picked)
}

func TestAssistedScorerFallsBackOnTimeout(t *testing.T) {
	ranker := &rankerStub{teacherID: "t1", delay: 500 * time.Millisecond}
	scorer := NewAssistedScorer(ranker, NewLeastLoadedScorer(nil), 10*time.Millisecond, nil, nil)

	candidates, sel := assistedSelection()
	start := time.Now()
	picked, err := scorer.Select(context.Background(), candidates, sel)
	require.NoError(t, err)
	assert.Equal(t, "t2", picked)
	assert.Less(t, time.Since(start), 400*time.Millisecond, "must not wait for the slow ranker")
}
