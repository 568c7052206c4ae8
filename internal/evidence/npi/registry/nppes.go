// Package registry is the HTTP client for the NPPES NPI registry API.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"

	"vetting/internal/evidence/metrics"
	"vetting/internal/evidence/npi"
	"vetting/internal/evidence/providers"
	"vetting/pkg/platform/circuit"
)

const (
	providerID   = "nppes"
	apiVersion   = "2.1"
	maxBodyBytes = 1 << 20
)

// Client looks numbers up over HTTP. Outbound calls are throttled and guarded
// by a circuit breaker; an open breaker fails fast as a retryable outage.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *circuit.Breaker
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithRateLimit caps outbound requests per second with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(cl *Client) {
		cl.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(cl *Client) {
		cl.breaker = b
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

// New builds a client against baseURL (e.g. https://npiregistry.cms.hhs.gov/api/).
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(rate.Limit(10), 10),
		breaker: circuit.New(providerID, circuit.WithFailureThreshold(5), circuit.WithCooldown(30*time.Second)),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements npi.Registry.
func (c *Client) Lookup(ctx context.Context, number string) (*npi.RegistryRecord, error) {
	if !c.breaker.Allow() {
		return nil, providers.NewProviderError(providers.ErrorCircuitOpen, providerID, "circuit open", nil)
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, providers.FromTransport(providerID, err)
	}

	record, err := c.lookup(ctx, number)
	if err != nil && providers.IsRetryable(err) {
		if _, change := c.breaker.RecordFailure(); change.Opened {
			c.metrics.IncrementBreakerTransition(providerID, "open")
			c.logger.WarnContext(ctx, "npi registry circuit opened", "error", err)
		}
		return nil, err
	}
	if _, change := c.breaker.RecordSuccess(); change.Closed {
		c.metrics.IncrementBreakerTransition(providerID, "closed")
		c.logger.InfoContext(ctx, "npi registry circuit closed")
	}
	return record, err
}

func (c *Client) lookup(ctx context.Context, number string) (*npi.RegistryRecord, error) {
	q := url.Values{}
	q.Set("version", apiVersion)
	q.Set("number", number)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, providerID, "build request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providers.FromTransport(providerID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, providers.FromTransport(providerID, err)
	}
	return parseResponse(resp.StatusCode, body)
}

type apiResponse struct {
	ResultCount int         `json:"result_count"`
	Results     []apiResult `json:"results"`
	Errors      []struct {
		Description string `json:"description"`
	} `json:"Errors"`
}

type apiResult struct {
	Number          string `json:"number"`
	EnumerationType string `json:"enumeration_type"`
	Basic           struct {
		FirstName        string `json:"first_name"`
		LastName         string `json:"last_name"`
		OrganizationName string `json:"organization_name"`
		Status           string `json:"status"`
	} `json:"basic"`
	Taxonomies []struct {
		Desc    string `json:"desc"`
		Primary bool   `json:"primary"`
	} `json:"taxonomies"`
	Addresses []struct {
		Purpose string `json:"address_purpose"`
		City    string `json:"city"`
		State   string `json:"state"`
	} `json:"addresses"`
}

// parseResponse maps an NPPES payload. A zero result count is a definite
// "not found", not a transport error.
func parseResponse(status int, body []byte) (*npi.RegistryRecord, error) {
	if perr := providers.FromStatus(providerID, status); perr != nil {
		return nil, perr
	}
	var payload apiResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, "decode response", err)
	}
	if len(payload.Errors) > 0 {
		return nil, providers.NewProviderError(providers.ErrorBadData, providerID, payload.Errors[0].Description, nil)
	}
	if payload.ResultCount == 0 || len(payload.Results) == 0 {
		return nil, npi.ErrRecordNotFound
	}
	r := payload.Results[0]

	rec := &npi.RegistryRecord{
		Number:          r.Number,
		EnumerationType: r.EnumerationType,
		Status:          r.Basic.Status,
	}
	if r.Basic.OrganizationName != "" {
		rec.Name = r.Basic.OrganizationName
	} else {
		rec.Name = strings.TrimSpace(fmt.Sprintf("%s %s", r.Basic.FirstName, r.Basic.LastName))
	}
	for i, t := range r.Taxonomies {
		if t.Primary || (i == 0 && rec.Specialty == "") {
			rec.Specialty = t.Desc
		}
	}
	for _, a := range r.Addresses {
		if a.Purpose == "LOCATION" {
			rec.City, rec.State = a.City, a.State
			break
		}
	}
	return rec, nil
}
