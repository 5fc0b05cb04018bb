package scoring

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/resume-scorer/internal/document"
)

const (
	DefaultAPIURL = "http://localhost:8000"
	// Scoring runs question generation and retrieval on the backend and can take minutes.
	DefaultTimeout = 5 * time.Minute

	userAgent    = "spigell/resume-scorer"
	estimatePath = "/score/estimate"
	scorePath    = "/score"
	healthPath   = "/score/health"
)

type Client struct {
	apiKey       string
	logger       *zap.Logger
	HTTPClient   *http.Client
	UserAgent    string
	APIURL       string
	MaxLogLength int
}

// New returns a client for the scoring service. apiKey may be empty when the
// service runs without authentication.
func New(logger *zap.Logger, apiKey string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		APIURL: DefaultAPIURL,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		logger:       logger,
		UserAgent:    userAgent,
		MaxLogLength: 200,
	}
}

// Estimate asks the service for character and token counts of both documents.
// Every failure wraps ErrEstimateFailed.
func (c *Client) Estimate(ctx context.Context, resume, jd document.Source) (*TokenEstimate, error) {
	raw, err := c.postForm(ctx, c.url(estimatePath), resume, jd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEstimateFailed, err)
	}

	estimate, err := decodeEstimate(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEstimateFailed, err)
	}

	c.logger.Debug("got token estimate",
		zap.Int("resume_tokens", estimate.ResumeTokenEstimate),
		zap.Int("jd_tokens", estimate.JDTokenEstimate),
	)

	return estimate, nil
}

// Score submits both documents for scoring. It never returns a partial
// result: every failure wraps ErrScoringFailed, incomplete payloads wrap
// ErrMalformedResult. There is no retry.
func (c *Client) Score(ctx context.Context, resume, jd document.Source) (*ScoreResponse, error) {
	raw, err := c.postForm(ctx, c.url(scorePath), resume, jd)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrScoringFailed, err)
	}

	response, err := decodeScoreResponse(raw)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("got score result",
		zap.Int("questions", len(response.Result.Questions)),
		zap.Float64("average_score", response.Result.AverageScore),
		zap.String("message", response.Message),
	)

	return response, nil
}

// Health returns the status string reported by the scoring route.
func (c *Client) Health(ctx context.Context) (string, error) {
	var body map[string]any
	if err := c.getJSON(ctx, c.url(healthPath), &body); err != nil {
		return "", err
	}

	status, _ := body["status"].(string)
	if status == "" {
		return "", fmt.Errorf("health response has no status")
	}

	return status, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.APIURL, "/") + path
}
