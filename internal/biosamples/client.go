// Package biosamples talks to the BioSamples sample store.
package biosamples

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	apperrors "github.com/nishad/enaimport/internal/errors"
	"github.com/nishad/enaimport/internal/logger"
	"github.com/nishad/enaimport/internal/models"
)

// Client persists and fetches samples.
type Client interface {
	Persist(ctx context.Context, s *models.Sample) (*models.Sample, error)
	Fetch(ctx context.Context, accession string) (*models.Sample, error)
}

// Ownership authentication modes.
const (
	AuthAAP   = "AAP"
	AuthWebin = "WEBIN"
)

// Options configure the HTTP client.
type Options struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables throttling
	Burst     int
	UserAgent string
}

// HTTPClient is the JSON-over-HTTP Client.
type HTTPClient struct {
	base    *url.URL
	token   string
	agent   string
	http    *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewHTTPClient validates opts and creates a client.
func NewHTTPClient(opts Options, log *logger.Logger) (*HTTPClient, error) {
	const op = apperrors.Op("biosamples.NewHTTPClient")
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, apperrors.E(op, apperrors.KindConfig, fmt.Errorf("invalid base url %q", opts.BaseURL))
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "enaimport"
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &HTTPClient{
		base:    base,
		token:   opts.Token,
		agent:   opts.UserAgent,
		http:    &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		log:     log.With("component", "biosamples"),
	}, nil
}

// AuthProvider returns the ownership mode implied by the sample.
func AuthProvider(s *models.Sample) string {
	if s.WebinSubmissionAccountID != "" {
		return AuthWebin
	}
	return AuthAAP
}

// Persist upserts s, keyed by accession, and returns the stored form.
func (c *HTTPClient) Persist(ctx context.Context, s *models.Sample) (*models.Sample, error) {
	const op = apperrors.Op("biosamples.Persist")

	body, err := json.Marshal(s)
	if err != nil {
		return nil, apperrors.MarkFatal(apperrors.E(op, apperrors.KindValidation, err))
	}
	method, path := http.MethodPut, "/samples/"+url.PathEscape(s.Accession)
	if s.Accession == "" {
		method, path = http.MethodPost, "/samples"
	}

	resp, err := c.do(ctx, method, path, AuthProvider(s), bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(op, resp, s.Accession)
	}
	var stored models.Sample
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return nil, apperrors.E(op, apperrors.KindSubmission, err, "decode response for "+s.Accession)
	}
	return &stored, nil
}

// Fetch returns the stored sample, or nil when it does not exist.
func (c *HTTPClient) Fetch(ctx context.Context, accession string) (*models.Sample, error) {
	const op = apperrors.Op("biosamples.Fetch")

	resp, err := c.do(ctx, http.MethodGet, "/samples/"+url.PathEscape(accession), "", nil)
	if err != nil {
		return nil, apperrors.Wrap(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, statusError(op, resp, accession)
	}
	var s models.Sample
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, apperrors.E(op, apperrors.KindSubmission, err, "decode "+accession)
	}
	return &s, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path, auth string, body io.Reader) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.E(apperrors.KindNetwork, err, "rate limiter")
	}

	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if auth != "" {
		q := u.Query()
		q.Set("authProvider", auth)
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, apperrors.MarkFatal(apperrors.E(apperrors.KindValidation, err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.agent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.E(apperrors.KindNetwork, err, method+" "+path)
	}
	c.log.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "elapsed", time.Since(start))
	return resp, nil
}

// statusError classifies a non-2xx response. Client errors other than
// timeouts and throttling will fail the same way on every attempt.
func statusError(op apperrors.Op, resp *http.Response, accession string) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := apperrors.E(op, apperrors.KindSubmission,
		fmt.Errorf("%s: status %d: %s", accession, resp.StatusCode, strings.TrimSpace(string(msg))))
	switch {
	case resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		return err
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return apperrors.MarkFatal(err)
	default:
		return err
	}
}
