package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/internal/models"
	"github.com/asrbekshokirovich-bot/learn-korean-ai-coach-sub001/pkg/config"
)

// Sentinel signals the assisted scorer uses to decide on fallback. All of
// them mean "use the deterministic scorer", never "fail the request".
var (
	ErrRateLimited       = errors.New("ranker rate limited")
	ErrQuotaExhausted    = errors.New("ranker quota exhausted")
	ErrMalformedResponse = errors.New("ranker returned unparseable output")
)

// RankRequest carries candidate metadata and a natural-language context for
// the external ranking call.
type RankRequest struct {
	Context    string
	Candidates []models.CandidateProfile
}

// Ranker selects one teacher id from a candidate set.
type Ranker interface {
	Rank(ctx context.Context, req RankRequest) (string, error)
}

// Client talks to an OpenAI-compatible chat completion endpoint and asks it
// to pick one candidate, expecting a JSON object with a teacher_id field
// back.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient constructs a ranking client from config.
func NewClient(cfg config.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
	Temperature    float64        `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type rankerVerdict struct {
	TeacherID string `json:"teacher_id"`
}

const systemPrompt = "You match language students with teachers. " +
	"Given a student context and a JSON list of candidate teachers, reply with a JSON object " +
	`of the form {"teacher_id": "<id>"} choosing the single best candidate. Reply with JSON only.`

// Rank asks the model to pick one candidate. Rate-limit and quota signals,
// non-2xx statuses, and unparseable bodies are returned as the sentinel
// errors above so the caller can fall back.
func (c *Client) Rank(ctx context.Context, req RankRequest) (string, error) {
	candidatePayload, err := json.Marshal(req.Candidates)
	if err != nil {
		return "", fmt.Errorf("encode candidates: %w", err)
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: req.Context + "\n\nCandidates:\n" + string(candidatePayload)},
		},
		ResponseFormat: map[string]any{"type": "json_object"},
		Temperature:    0,
	})
	if err != nil {
		return "", fmt.Errorf("encode rank request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build rank request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("rank call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read rank response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if strings.Contains(string(raw), "insufficient_quota") {
			return "", ErrQuotaExhausted
		}
		return "", ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("ranker non-2xx", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("rank call status %d: %w", resp.StatusCode, ErrMalformedResponse)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", ErrMalformedResponse
	}
	if parsed.Error != nil {
		if parsed.Error.Type == "insufficient_quota" || parsed.Error.Code == "insufficient_quota" {
			return "", ErrQuotaExhausted
		}
		return "", ErrMalformedResponse
	}
	if len(parsed.Choices) == 0 {
		return "", ErrMalformedResponse
	}

	var verdict rankerVerdict
	if err := json.Unmarshal([]byte(strings.TrimSpace(parsed.Choices[0].Message.Content)), &verdict); err != nil {
		return "", ErrMalformedResponse
	}
	if verdict.TeacherID == "" {
		return "", ErrMalformedResponse
	}
	return verdict.TeacherID, nil
}
