// Package delivery submits snapshots to the remote advisory service,
// retrying transient failures with jittered exponential backoff.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/Bluefinee/tempo-ai-sub007/internal/logger"
	"github.com/Bluefinee/tempo-ai-sub007/internal/models"
)

const advisePath = "/advise"

// Defaults applied when Config leaves a field zero.
const (
	DefaultMaxAttempts    = 3
	DefaultBaseDelay      = time.Second
	DefaultMaxDelay       = 30 * time.Second
	DefaultJitter         = 0.1
	DefaultAttemptTimeout = 30 * time.Second
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 512

// Urgency tells the advisory service how pressing the request is.
type Urgency string

// Urgency levels.
const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyNormal Urgency = "normal"
	UrgencyLow    Urgency = "low"
)

// UrgencyFor maps a wellbeing state to an urgency level.
func UrgencyFor(state models.State) Urgency {
	switch state {
	case models.StateRest:
		return UrgencyHigh
	case models.StateCare:
		return UrgencyMedium
	case models.StateGood, models.StateOptimal:
		return UrgencyNormal
	default:
		return UrgencyLow
	}
}

// RequestContext is per-request metadata. It is never persisted.
type RequestContext struct {
	RequestID  string            `json:"requestId"`
	Urgency    Urgency           `json:"urgency"`
	Locale     string            `json:"locale"`
	State      models.State      `json:"state"`
	Confidence models.Confidence `json:"confidence"`
	SentAt     time.Time         `json:"sentAt"`
}

type adviseRequest struct {
	Snapshot        models.Snapshot        `json:"snapshot"`
	Profile         models.UserProfile     `json:"profile"`
	LocationContext models.LocationContext `json:"locationContext"`
	RequestContext  RequestContext         `json:"requestContext"`
}

type adviseResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// Config configures a Client.
type Config struct {
	BaseURL        string
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	Jitter         float64
	AttemptTimeout time.Duration
	// Locale overrides environment-based locale resolution.
	Locale string

	HTTPClient *http.Client
	// OnRetry is called before each backoff sleep.
	OnRetry func(attempt int, err error, delay time.Duration)

	Now   func() time.Time
	NewID func() string
	Rand  func() float64
	// Getenv is used for locale resolution; defaults to os.Getenv.
	Getenv func(string) string
}

// Client sends advice requests. It is safe for concurrent use.
type Client struct {
	http           *resty.Client
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	jitter         float64
	attemptTimeout time.Duration
	locale         string
	onRetry        func(int, error, time.Duration)
	now            func() time.Time
	newID          func() string
	rand           func() float64
	getenv         func(string) string
}

// NewClient creates a Client for cfg.BaseURL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("advisory base URL is required")
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = DefaultAttemptTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Float64
	}
	if cfg.Getenv == nil {
		cfg.Getenv = os.Getenv
	}
	if cfg.HTTPClient == nil {
		hc, err := NewHTTPClient()
		if err != nil {
			return nil, err
		}
		cfg.HTTPClient = hc
	}

	rc := resty.NewWithClient(cfg.HTTPClient).
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{})

	return &Client{
		http:           rc,
		maxAttempts:    cfg.MaxAttempts,
		baseDelay:      cfg.BaseDelay,
		maxDelay:       cfg.MaxDelay,
		jitter:         cfg.Jitter,
		attemptTimeout: cfg.AttemptTimeout,
		locale:         cfg.Locale,
		onRetry:        cfg.OnRetry,
		now:            cfg.Now,
		newID:          cfg.NewID,
		rand:           cfg.Rand,
		getenv:         cfg.Getenv,
	}, nil
}

// NewRequestContext derives request metadata from the current status.
func (c *Client) NewRequestContext(status models.StatusResult) RequestContext {
	return RequestContext{
		RequestID:  c.newID(),
		Urgency:    UrgencyFor(status.State),
		Locale:     ResolveLocale(c.locale, c.getenv),
		State:      status.State,
		Confidence: status.Confidence,
		SentAt:     c.now().UTC(),
	}
}

// Send submits the snapshot and returns the decoded advice. Failures are
// returned as *Error.
func (c *Client) Send(
	ctx context.Context,
	snap models.Snapshot,
	status models.StatusResult,
	profile models.UserProfile,
	location models.LocationContext,
) (*models.AdviceResult, error) {
	reqCtx := c.NewRequestContext(status)

	body, err := json.Marshal(adviseRequest{
		Snapshot:        snap,
		Profile:         profile,
		LocationContext: location,
		RequestContext:  reqCtx,
	})
	if err != nil {
		attemptsTotal.WithLabelValues("encoding").Inc()
		return nil, &Error{Kind: ErrEncoding, Err: err}
	}

	var (
		attempts int
		advice   *models.AdviceResult
	)

	operation := func() error {
		attempts++
		res, derr := c.attempt(ctx, body, reqCtx.RequestID)
		if derr != nil {
			derr.Attempts = attempts
			attemptsTotal.WithLabelValues(derr.outcome()).Inc()
			if !derr.Retryable() || ctx.Err() != nil {
				return backoff.Permanent(derr)
			}
			return derr
		}
		attemptsTotal.WithLabelValues("success").Inc()
		advice = res
		return nil
	}

	notify := func(err error, delay time.Duration) {
		retryDelaySeconds.Observe(delay.Seconds())
		logger.Warn("advice delivery failed, retrying",
			"request_id", reqCtx.RequestID,
			"attempt", attempts,
			"delay", delay,
			"error", err,
		)
		if c.onRetry != nil {
			c.onRetry(attempts, err, delay)
		}
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			newJitteredBackOff(c.baseDelay, c.maxDelay, c.jitter, c.rand),
			uint64(c.maxAttempts-1),
		),
		ctx,
	)

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var derr *Error
		if errors.As(err, &derr) {
			return nil, derr
		}
		// The caller's context ended between attempts.
		return nil, &Error{Kind: ErrNetwork, Attempts: attempts, Err: err}
	}

	advice.SnapshotID = snap.ID
	advice.RequestID = reqCtx.RequestID
	advice.Attempts = attempts
	advice.ReceivedAt = c.now()
	logger.Info("advice delivered", "request_id", reqCtx.RequestID, "attempts", attempts, "urgency", reqCtx.Urgency)
	return advice, nil
}

// attempt performs one POST bounded by the per-attempt timeout.
func (c *Client) attempt(ctx context.Context, body []byte, requestID string) (*models.AdviceResult, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	resp, err := c.http.R().
		SetContext(attemptCtx).
		SetHeader("X-Request-ID", requestID).
		SetBody(body).
		Post(advisePath)
	if err != nil {
		return nil, &Error{Kind: ErrNetwork, Err: err}
	}

	code := resp.StatusCode()
	switch {
	case code == http.StatusTooManyRequests:
		return nil, &Error{Kind: ErrRateLimited, StatusCode: code, Err: bodyError(resp.Body())}
	case code >= 500:
		return nil, &Error{Kind: ErrServer, StatusCode: code, Err: bodyError(resp.Body())}
	case code < 200 || code >= 300:
		return nil, &Error{Kind: ErrClient, StatusCode: code, Err: bodyError(resp.Body())}
	}

	var envelope adviseResponse
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, &Error{Kind: ErrDecoding, StatusCode: code, Err: err}
	}
	if !envelope.Success {
		return nil, &Error{Kind: ErrClient, StatusCode: code, Err: fmt.Errorf("service rejected request: %s", envelope.Error)}
	}

	var advice models.Advice
	if err := json.Unmarshal(envelope.Data, &advice); err != nil {
		return nil, &Error{Kind: ErrDecoding, StatusCode: code, Err: fmt.Errorf("invalid advice payload: %w", err)}
	}

	return &models.AdviceResult{Advice: advice, Raw: envelope.Data}, nil
}

func bodyError(body []byte) error {
	s := strings.TrimSpace(string(body))
	if s == "" {
		return nil
	}
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody] + "..."
	}
	return errors.New(s)
}
