package http

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

	"github.com/bft-labs/snapmerge/internal/domain"
	"github.com/bft-labs/snapmerge/internal/metrics"
	"github.com/bft-labs/snapmerge/internal/ports"
	"github.com/bft-labs/snapmerge/pkg/log"
)

const maxErrorBody = 512

// Source implements ports.Fetcher and ports.PeriodLister.
type Source struct {
	client  ports.HTTPClient
	baseURL string
	apiKey  string
	logger  log.Logger
	metrics *metrics.Metrics
}

// NewSource creates a Source. client is typically the StandardClient of a
// retryablehttp client.
func NewSource(client ports.HTTPClient, baseURL, apiKey string, logger log.Logger, m *metrics.Metrics) *Source {
	if logger == nil {
		logger = log.NoopLogger{}
	}
	return &Source{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		logger:  logger,
		metrics: m,
	}
}

// Fetch returns the records of domainName for key. A 404 yields no records.
func (s *Source) Fetch(ctx context.Context, domainName, key string) ([]domain.Record, error) {
	start := time.Now()
	recs, err := s.fetch(ctx, domainName, key)
	s.metrics.ObserveFetch(domainName, err, time.Since(start))
	if err != nil {
		return nil, &domain.FetchError{Domain: domainName, Key: key, Err: err}
	}
	return recs, nil
}

func (s *Source) fetch(ctx context.Context, domainName, key string) ([]domain.Record, error) {
	body, found, err := s.get(ctx, "/v1/"+url.PathEscape(domainName)+"/"+url.PathEscape(key))
	if err != nil || !found {
		return nil, err
	}
	return decodeRecords(body)
}

// ListKeysForPeriod returns the keys the source lists for year and month.
func (s *Source) ListKeysForPeriod(ctx context.Context, year, month string) ([]string, error) {
	body, found, err := s.get(ctx, "/v1/periods/"+url.PathEscape(year)+"/"+url.PathEscape(month))
	if err != nil {
		return nil, fmt.Errorf("list period %s%s: %w", year, month, err)
	}
	if !found {
		return nil, nil
	}
	var keys []string
	if err := json.Unmarshal(body, &keys); err != nil {
		return nil, fmt.Errorf("decode period %s%s: %w", year, month, err)
	}
	return keys, nil
}

func (s *Source) get(ctx context.Context, path string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		s.logger.Debug("source has no data", log.String("path", path))
		return nil, false, nil
	}
	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, false, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("read body: %w", err)
	}
	return body, true, nil
}

func decodeRecords(body []byte) ([]domain.Record, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}

	switch v := normalize(raw).(type) {
	case nil:
		return nil, nil
	case domain.Record:
		return []domain.Record{v}, nil
	case []domain.Record:
		return v, nil
	case []any:
		if len(v) == 0 {
			return []domain.Record{}, nil
		}
	}
	return nil, fmt.Errorf("decode body: expected object or array of objects")
}

// normalize converts decoded JSON into record values: objects become
// Records, arrays of objects become []Record and numbers become int64 or
// float64.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		rec := make(domain.Record, len(x))
		for k, item := range x {
			rec[k] = normalize(item)
		}
		return rec
	case []any:
		if len(x) == 0 {
			return x
		}
		recs := make([]domain.Record, 0, len(x))
		for _, item := range x {
			rec, ok := normalize(item).(domain.Record)
			if !ok {
				out := make([]any, len(x))
				for i := range x {
					out[i] = normalize(x[i])
				}
				return out
			}
			recs = append(recs, rec)
		}
		return recs
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	default:
		return v
	}
}
