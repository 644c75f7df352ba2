package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/metrics"
	"github.com/i474232898/weather-forecast-api/internal/weather"
)

// DefaultOpenWeatherURL is the One Call 3.0 endpoint.
const DefaultOpenWeatherURL = "https://api.openweathermap.org/data/3.0/onecall"

const maxBodyBytes = 4 << 20

var (
	errMissingAPIKey = errors.New("openweather api key is not configured")
	errEmptyBody     = errors.New("empty forecast document")
	errInvalidBody   = errors.New("forecast document is not valid JSON")
	errBodyTooLarge  = errors.New("forecast document exceeds size limit")
)

// Ensure OpenWeatherFetcher implements weather.Fetcher
var _ weather.Fetcher = (*OpenWeatherFetcher)(nil)

// OpenWeatherFetcher retrieves One Call documents from OpenWeatherMap.
type OpenWeatherFetcher struct {
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// NewOpenWeatherFetcher creates a fetcher. maxRetries of zero issues a single request
// per call; the client's timeout bounds each attempt.
func NewOpenWeatherFetcher(client *http.Client, apiKey, baseURL string, maxRetries int, logger *zap.Logger) *OpenWeatherFetcher {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherURL
	}

	return &OpenWeatherFetcher{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      maxRetries,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
		logger:  logger,
	}
}

// Fetch requests the forecast for key. Every failure (transport, status, body) is
// reported as a Failure result; Fetch never returns a partial document.
func (p *OpenWeatherFetcher) Fetch(ctx context.Context, key weather.Key, opts weather.FetchOptions) weather.Result {
	payload, err := p.fetch(ctx, key, opts)
	if err != nil {
		p.logger.Warn("openweather fetch failed",
			zap.String("key", key.String()),
			zap.Error(err))
		metrics.RecordUpstreamFetch("error")
		return weather.Failure(err)
	}

	metrics.RecordUpstreamFetch("ok")
	return weather.Hit(payload)
}

func (p *OpenWeatherFetcher) fetch(ctx context.Context, key weather.Key, opts weather.FetchOptions) (weather.Payload, error) {
	if p.apiKey == "" {
		return nil, errMissingAPIKey
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("lat", strconv.FormatFloat(key.Lat, 'f', -1, 64))
		values.Set("lon", strconv.FormatFloat(key.Lon, 'f', -1, 64))
		values.Set("units", string(key.Units))
		values.Set("appid", p.apiKey)
		if len(opts.Exclude) > 0 {
			parts := make([]string, len(opts.Exclude))
			for i, part := range opts.Exclude {
				parts[i] = string(part)
			}
			values.Set("exclude", strings.Join(parts, ","))
		}

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read forecast body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, errBodyTooLarge
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errEmptyBody
	}
	if !json.Valid(trimmed) {
		return nil, errInvalidBody
	}

	return weather.Payload(trimmed), nil
}
