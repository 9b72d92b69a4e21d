package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/clientcredentials"
)

const maxErrorBody = 1 << 20

// Client talks to the identity provider's management API. It is a
// stateless facade: every call either returns a decoded payload or a
// classified failure, and nothing here touches the ledger.
type Client struct {
	baseURL      string
	http         *http.Client
	logger       *logrus.Logger
	rdb          *redis.Client
	roleCacheTTL time.Duration
	maxAttempts  int
	retryBase    time.Duration
}

// Options tunes retry behavior and the optional remote role-list cache.
type Options struct {
	MaxAttempts  int           // attempts per call, transient failures only
	RetryBase    time.Duration // initial backoff delay, doubled per attempt
	Redis        *redis.Client // optional role-list cache
	RoleCacheTTL time.Duration
}

// New builds a Client against baseURL using the given HTTP client.
// A nil httpClient falls back to http.DefaultClient; callers in
// production use NewFromCredentials so requests carry a machine token.
func New(baseURL string, httpClient *http.Client, logger *logrus.Logger, opts Options) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("idp: base URL is required")
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = 500 * time.Millisecond
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		http:         httpClient,
		logger:       logger,
		rdb:          opts.Redis,
		roleCacheTTL: opts.RoleCacheTTL,
		maxAttempts:  opts.MaxAttempts,
		retryBase:    opts.RetryBase,
	}, nil
}

// NewFromCredentials builds a Client whose requests are authorized via
// the OAuth2 client-credentials flow against the provider's token
// endpoint. Token refresh is handled by the oauth2 transport.
func NewFromCredentials(domain, clientID, clientSecret, audience string, timeout time.Duration, logger *logrus.Logger, opts Options) (*Client, error) {
	if domain == "" || clientID == "" || clientSecret == "" {
		return nil, errors.New("idp: domain, client id and client secret are required")
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     "https://" + domain + "/oauth/token",
		EndpointParams: url.Values{
			"audience": {audience},
		},
	}
	httpClient := cc.Client(context.Background())
	httpClient.Timeout = timeout
	return New("https://"+domain+"/api/v2", httpClient, logger, opts)
}

// do performs one management API call with bounded exponential-backoff
// retry. Only TransientError triggers a retry; everything else stops
// the loop immediately.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("idp: encode request: %w", err)
		}
		payload = b
	}

	op := func() error {
		return c.attempt(ctx, method, path, payload, out)
	}
	notify := func(err error, next time.Duration) {
		if c.logger != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"method": method,
				"path":   path,
				"retry":  next.String(),
			}).Warn("idp call failed, retrying")
		}
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryBase
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	return backoff.RetryNotify(op,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(c.maxAttempts-1)), ctx),
		notify)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, out any) error {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("idp: build request: %w", err))
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return &TransientError{Status: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out != nil && len(b) > 0 {
			if err := json.Unmarshal(b, out); err != nil {
				return backoff.Permanent(fmt.Errorf("idp: decode response: %w", err))
			}
		}
		return nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &TransientError{
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(b))),
		}
	default:
		return backoff.Permanent(&PermanentError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(b)),
		})
	}
}
