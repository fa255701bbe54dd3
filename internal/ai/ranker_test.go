package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	client := NewClient(config.AIConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Model:   "gpt-4o-mini",
		Timeout: 2 * time.Second,
	}, nil)
	return client, srv.Close
}

func rankRequest() RankRequest {
	return RankRequest{
		Context: "A beginner-level Korean student wants a lesson at Monday 10:00.",
		Candidates: []models.CandidateProfile{
			{TeacherID: "t1", FullName: "Kim Minji", Levels: []string{"beginner"}, UpcomingCount: 2},
			{TeacherID: "t2", FullName: "Park Jisoo", Levels: []string{"beginner", "advanced"}, UpcomingCount: 0},
		},
	}
}

func chatReply(content string) []byte {
	out, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return out
}

func TestRankParsesVerdict(t *testing.T) {
	var gotPath, gotAuth string
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.Write(chatReply(`{"teacher_id": "t2"}`)) //nolint:errcheck
	})
	defer closeSrv()

	teacherID, err := client.Rank(context.Background(), rankRequest())
	require.NoError(t, err)
	assert.Equal(t, "t2", teacherID)
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
}

func TestRankRateLimited(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"type": "rate_limit_exceeded"}}`)) //nolint:errcheck
	})
	defer closeSrv()

	_, err := client.Rank(context.Background(), rankRequest())
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestRankQuotaExhausted(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error": {"type": "insufficient_quota"}}`)) //nolint:errcheck
	})
	defer closeSrv()

	_, err := client.Rank(context.Background(), rankRequest())
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestRankMalformedContent(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatReply("I would pick teacher t2 because they are less busy.")) //nolint:errcheck
	})
	defer closeSrv()

	_, err := client.Rank(context.Background(), rankRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRankEmptyVerdict(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write(chatReply(`{"teacher_id": ""}`)) //nolint:errcheck
	})
	defer closeSrv()

	_, err := client.Rank(context.Background(), rankRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRankServerError(t *testing.T) {
	client, closeSrv := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer closeSrv()

	_, err := client.Rank(context.Background(), rankRequest())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
