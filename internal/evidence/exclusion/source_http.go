package exclusion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"vetting/internal/evidence/providers"
)

// HTTPSource queries a JSON exclusion search endpoint:
//
//	GET {base}?name=...&npi=...  ->  {"entries":[{"id":"...","name":"...","npi":"..."}]}
//
// The same client serves the OIG and SAM gateways; they differ only in base
// URL and API key.
type HTTPSource struct {
	name       string
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPSource(name, baseURL, apiKey string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Query(ctx context.Context, q Query) ([]Entry, error) {
	params := url.Values{}
	if q.Name != "" {
		params.Set("name", q.Name)
	}
	if q.NPI != "" {
		params.Set("npi", q.NPI)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, providers.NewProviderError(providers.ErrorInternal, s.name, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("X-Api-Key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, providers.FromTransport(s.name, err)
	}
	defer resp.Body.Close()

	if perr := providers.FromStatus(s.name, resp.StatusCode); perr != nil {
		return nil, perr
	}
	var payload struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&payload); err != nil {
		return nil, providers.NewProviderError(providers.ErrorBadData, s.name, "decode response", err)
	}
	return payload.Entries, nil
}
