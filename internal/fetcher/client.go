package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"engagement_tracker/internal/domain"
)

const mediaPath = "/v1/media"

// Config holds media API client configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Client fetches engagement counters for a post URL from the media API.
type Client struct {
	client         *resty.Client
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "EngagementTracker/1.0")
	if cfg.APIKey != "" {
		client.SetHeader("X-API-Key", cfg.APIKey)
	}

	return &Client{
		client:         client,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("component", "fetcher"),
	}
}

// Fetch returns the platform-tagged counters of the post at url. Network and
// rate-limit failures are retried with exponential backoff. Every error is a
// *domain.FetchError unless ctx ends while waiting to retry.
func (c *Client) Fetch(ctx context.Context, url string) (*domain.FetchResult, error) {
	var result *domain.FetchResult
	var err error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err = c.doRequest(ctx, url)
		if err == nil {
			return result, nil
		}

		if !retryable(err) || attempt == c.maxAttempts {
			break
		}

		backoff := c.calculateBackoff(attempt)
		c.logger.Warn("request failed, retrying",
			"url", url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, err
}

func (c *Client) doRequest(ctx context.Context, url string) (*domain.FetchResult, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("url", url).
		Get(mediaPath)
	if err != nil {
		return nil, fetchError(domain.FailureNetwork, "execute request", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusTooManyRequests:
		return nil, fetchError(domain.FailureRateLimited, "upstream rate limit", nil)
	case code == http.StatusNotFound || code == http.StatusGone:
		return nil, fetchError(domain.FailureNotFound, fmt.Sprintf("post unavailable: status %d", code), nil)
	case code >= http.StatusInternalServerError:
		return nil, fetchError(domain.FailureNetwork, fmt.Sprintf("upstream status %d", code), nil)
	case code != http.StatusOK:
		return nil, fetchError(domain.FailureMalformed, fmt.Sprintf("unexpected status %d", code), nil)
	}

	var envelope mediaResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fetchError(domain.FailureMalformed, "decode response", err)
	}

	platform := domain.Platform(envelope.Platform)
	if !platform.Valid() {
		return nil, fetchError(domain.FailureMalformed, fmt.Sprintf("unknown platform %q", envelope.Platform), nil)
	}

	p, err := decodePayload(platform, envelope.Data)
	if err != nil {
		return nil, fetchError(domain.FailureMalformed, "decode "+string(platform)+" payload", err)
	}

	return &domain.FetchResult{
		Platform: platform,
		Counters: p.counters(),
	}, nil
}

func (c *Client) calculateBackoff(attempt int) time.Duration {
	backoff := c.initialBackoff
	for i := 1; i < attempt; i++ {
		backoff *= 2
	}
	if backoff > c.maxBackoff {
		backoff = c.maxBackoff
	}
	return backoff
}

func fetchError(kind domain.FailureKind, msg string, err error) *domain.FetchError {
	return &domain.FetchError{Kind: kind, Message: msg, Err: err}
}

func retryable(err error) bool {
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return fe.Kind == domain.FailureNetwork || fe.Kind == domain.FailureRateLimited
}
