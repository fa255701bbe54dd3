package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/ai"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

// AssistedScorer delegates ranking to the external AI ranker and falls back
// to the deterministic scorer on any failure signal: timeout, rate limit,
// quota exhaustion, or output that does not name a known candidate. It never
// surfaces a scorer failure to its caller.
type AssistedScorer struct {
	ranker   ai.Ranker
	fallback CandidateScorer
	timeout  time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewAssistedScorer constructs an assisted scorer. The fallback is required.
func NewAssistedScorer(ranker ai.Ranker, fallback CandidateScorer, timeout time.Duration, metrics *MetricsService, logger *zap.Logger) *AssistedScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &AssistedScorer{
		ranker:   ranker,
		fallback: fallback,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Select implements CandidateScorer.
func (s *AssistedScorer) Select(ctx context.Context, candidates []string, sel SelectionContext) (string, error) {
	if len(candidates) == 0 {
		return "", appErrors.ErrNoCandidates
	}

	rankCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	teacherID, err := s.ranker.Rank(rankCtx, ai.RankRequest{
		Context:    s.describe(sel),
		Candidates: sel.Profiles,
	})
	if err != nil {
		s.logger.Warn("assisted scorer fell back", zap.Error(err))
		if s.metrics != nil {
			s.metrics.IncScorerFallback()
		}
		return s.fallback.Select(ctx, candidates, sel)
	}

	for _, id := range candidates {
		if id == teacherID {
			return teacherID, nil
		}
	}

	// The model named a teacher outside the candidate set; treat it the
	// same as malformed output.
	s.logger.Warn("assisted scorer picked unknown candidate", zap.String("teacher_id", teacherID))
	if s.metrics != nil {
		s.metrics.IncScorerFallback()
	}
	return s.fallback.Select(ctx, candidates, sel)
}

func (s *AssistedScorer) describe(sel SelectionContext) string {
	return fmt.Sprintf("A %s-level Korean student wants a lesson at %s. Pick the teacher best suited for that level, preferring lighter upcoming load.",
		sel.Level, sel.At.Format("Monday 15:04"))
}
