// Package apify runs scraping actors on the Apify platform over its REST API.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dealmungchi/bestdeal/config"
	"github.com/dealmungchi/bestdeal/helpers"
	"github.com/dealmungchi/bestdeal/logger"
	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// Run statuses reported by the platform
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusTimingOut = "TIMING-OUT"
	StatusTimedOut  = "TIMED-OUT"
	StatusAborting  = "ABORTING"
	StatusAborted   = "ABORTED"
)

const (
	defaultBaseURL  = "https://api.apify.com"
	defaultPageSize = 250
)

// Run is the subset of an actor run object the client needs
type Run struct {
	ID               string `json:"id"`
	ActID            string `json:"actId"`
	Status           string `json:"status"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

// Terminal reports whether the run has stopped
func (r Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusTimedOut, StatusAborted:
		return true
	default:
		return false
	}
}

type runEnvelope struct {
	Data Run `json:"data"`
}

// Client calls actors synchronously: start, wait for the run, read its dataset
type Client struct {
	baseURL      string
	token        string
	waitSecs     int
	pageSize     int
	pollInterval time.Duration
	httpClient   *http.Client
	limiter      *rate.Limiter
	log          *logger.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit bounds outbound requests per second. Zero or less disables the limit.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// WithWaitSeconds sets how long the server may hold a run request open
func WithWaitSeconds(secs int) Option {
	return func(c *Client) { c.waitSecs = secs }
}

// WithPageSize sets the dataset page size
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithPollInterval sets the pause between run status polls
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) { c.pollInterval = d }
}

// New creates a client for the API at baseURL authenticated with token
func New(baseURL, token string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		token:        token,
		waitSecs:     60,
		pageSize:     defaultPageSize,
		pollInterval: time.Second,
		httpClient:   &http.Client{Timeout: 90 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(5), 1),
		log:          logger.ForDelegate(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewFromConfig creates a client from the application configuration
func NewFromConfig(cfg *config.Config) *Client {
	return New(cfg.ApifyBaseURL, cfg.ApifyToken,
		WithRateLimit(cfg.ApifyRateLimit),
		WithWaitSeconds(cfg.ApifyWaitSecs),
	)
}

// Call starts actorID with input, waits for the run to finish and returns every
// dataset item. It honors ctx cancellation between requests.
func (c *Client) Call(ctx context.Context, actorID string, input map[string]interface{}) ([]map[string]interface{}, error) {
	start := time.Now()

	run, err := c.startRun(ctx, actorID, input)
	if err != nil {
		return nil, err
	}
	c.log.Debug().Str("actor", actorID).Str("run", run.ID).Str("status", run.Status).Msg("Actor run started")

	for !run.Terminal() {
		if err := c.pause(ctx, actorID); err != nil {
			return nil, err
		}
		if run, err = c.getRun(ctx, actorID, run.ID); err != nil {
			return nil, err
		}
	}

	if run.Status != StatusSucceeded {
		return nil, errors.NewDelegate(actorID, fmt.Sprintf("run %s finished with status %s", run.ID, run.Status), nil)
	}

	items, err := c.datasetItems(ctx, actorID, run.DefaultDatasetID)
	if err != nil {
		return nil, err
	}

	c.log.Info().
		Str("actor", actorID).
		Str("run", run.ID).
		Int("items", len(items)).
		Dur("elapsed", time.Since(start)).
		Msg("Actor run finished")
	return items, nil
}

func (c *Client) startRun(ctx context.Context, actorID string, input map[string]interface{}) (Run, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return Run{}, errors.NewValidation(actorID, "actor input is not JSON serializable: "+err.Error())
	}

	endpoint := fmt.Sprintf("%s/v2/acts/%s/runs?waitForFinish=%d", c.baseURL, actorPath(actorID), c.waitSecs)

	var env runEnvelope
	if err := c.do(ctx, actorID, http.MethodPost, endpoint, body, &env); err != nil {
		return Run{}, err
	}
	if env.Data.ID == "" {
		return Run{}, errors.NewDelegate(actorID, "run response carried no run id", nil)
	}
	return env.Data, nil
}

func (c *Client) getRun(ctx context.Context, actorID, runID string) (Run, error) {
	endpoint := fmt.Sprintf("%s/v2/actor-runs/%s?waitForFinish=%d", c.baseURL, url.PathEscape(runID), c.waitSecs)

	var env runEnvelope
	if err := c.do(ctx, actorID, http.MethodGet, endpoint, nil, &env); err != nil {
		return Run{}, err
	}
	return env.Data, nil
}

// datasetItems pages through a dataset until a short page
func (c *Client) datasetItems(ctx context.Context, actorID, datasetID string) ([]map[string]interface{}, error) {
	if datasetID == "" {
		return nil, errors.NewDelegate(actorID, "run has no default dataset", nil)
	}

	items := []map[string]interface{}{}
	for offset := 0; ; {
		query := url.Values{}
		query.Set("clean", "true")
		query.Set("format", "json")
		query.Set("offset", strconv.Itoa(offset))
		query.Set("limit", strconv.Itoa(c.pageSize))
		endpoint := fmt.Sprintf("%s/v2/datasets/%s/items?%s", c.baseURL, url.PathEscape(datasetID), query.Encode())

		var page []map[string]interface{}
		if err := c.do(ctx, actorID, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		items = append(items, page...)
		if len(page) < c.pageSize {
			return items, nil
		}
		offset += len(page)
	}
}

func (c *Client) pause(ctx context.Context, actorID string) error {
	if c.pollInterval <= 0 {
		return ctxError(ctx, actorID)
	}
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctxError(ctx, actorID)
	case <-timer.C:
		return nil
	}
}

func ctxError(ctx context.Context, actorID string) error {
	if err := ctx.Err(); err != nil {
		return errors.NewNetwork(actorID, "search cancelled", err)
	}
	return nil
}

// do sends one API request and decodes the JSON response into v
func (c *Client) do(ctx context.Context, actorID, method, endpoint string, body []byte, v interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.NewNetwork(actorID, "rate limiter wait aborted", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return errors.NewConfiguration("invalid Apify request", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", helpers.UserAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.NewNetwork(actorID, method+" "+redact(endpoint)+" failed", err)
	}

	if err := helpers.DecodeJSON(resp, v); err != nil {
		return classify(actorID, err)
	}
	return nil
}

// classify maps a response failure onto the search error taxonomy
func classify(actorID string, err error) error {
	var statusErr *helpers.StatusError
	if !stderrors.As(err, &statusErr) {
		return errors.NewDelegate(actorID, "invalid API response", err)
	}

	switch {
	case statusErr.RateLimited():
		return errors.NewRateLimit(actorID, retryAfter(statusErr.RetryAfter))
	case statusErr.Unauthorized():
		return errors.New(errors.ErrorTypeConfiguration, actorID, "API token rejected", statusErr)
	default:
		return errors.NewDelegate(actorID, "API request failed", statusErr)
	}
}

// actorPath turns "user/actor" into the "user~actor" form used in API paths
func actorPath(actorID string) string {
	return url.PathEscape(strings.ReplaceAll(actorID, "/", "~"))
}

func retryAfter(header string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(header))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func redact(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.RawQuery = ""
	return u.String()
}
