package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	appErrors "github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/errors"
)

// SelectionContext carries everything a scorer may weigh: the requested
// level, when the lesson would happen, and per-candidate metadata including
// current load. Load is recomputed from the store per call; nothing here is
// cached across requests.
type SelectionContext struct {
	StudentID string
	Level     string
	At        time.Time
	Profiles  []models.CandidateProfile
}

// CandidateScorer selects one teacher from a non-empty candidate set.
type CandidateScorer interface {
	Select(ctx context.Context, candidates []string, sel SelectionContext) (string, error)
}

// LeastLoadedScorer picks the candidate with the fewest upcoming lessons.
// Ties are broken by candidate order, so repeated calls over the same inputs
// return the same teacher.
type LeastLoadedScorer struct {
	logger *zap.Logger
}

// NewLeastLoadedScorer constructs the deterministic fallback scorer.
func NewLeastLoadedScorer(logger *zap.Logger) *LeastLoadedScorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeastLoadedScorer{logger: logger}
}

// Select implements CandidateScorer.
func (s *LeastLoadedScorer) Select(_ context.Context, candidates []string, sel SelectionContext) (string, error) {
	if len(candidates) == 0 {
		return "", appErrors.ErrNoCandidates
	}

	loads := make(map[string]int, len(sel.Profiles))
	for _, profile := range sel.Profiles {
		loads[profile.TeacherID] = profile.UpcomingCount
	}

	best := candidates[0]
	bestLoad := loads[best]
	for _, id := range candidates[1:] {
		if load := loads[id]; load < bestLoad {
			best = id
			bestLoad = load
		}
	}

	s.logger.Debug("least-loaded selection",
		zap.String("teacher_id", best),
		zap.Int("upcoming", bestLoad),
		zap.Int("candidates", len(candidates)),
	)
	return best, nil
}
