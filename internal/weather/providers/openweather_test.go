package providers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/i474232898/weather-forecast-api/internal/weather"
)

var nyc = weather.Key{Lat: 40.7128, Lon: -74.0060, Units: weather.UnitsMetric}

func newTestFetcher(t *testing.T, handler http.HandlerFunc, maxRetries int) (*OpenWeatherFetcher, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client := &http.Client{Timeout: 2 * time.Second}
	return NewOpenWeatherFetcher(client, "test-key", srv.URL, maxRetries, zap.NewNop()), &calls
}

func TestOpenWeatherFetcher_Success(t *testing.T) {
	f, calls := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "40.7128", q.Get("lat"))
		assert.Equal(t, "-74.006", q.Get("lon"))
		assert.Equal(t, "metric", q.Get("units"))
		assert.Equal(t, "test-key", q.Get("appid"))
		assert.Equal(t, "minutely,alerts", q.Get("exclude"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"lat":40.7128,"current":{"temp":20.50}}` + "\n"))
	}, 0)

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{
		Exclude: []weather.Part{weather.PartMinutely, weather.PartAlerts},
	})

	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, `{"lat":40.7128,"current":{"temp":20.50}}`, string(res.Payload))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOpenWeatherFetcher_NoExcludeParam(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["exclude"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{}`))
	}, 0)

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	require.True(t, res.OK())
	assert.Equal(t, `{}`, string(res.Payload))
}

func TestOpenWeatherFetcher_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		wantErr error
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
			},
		},
		{
			name: "not found",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, `{"cod":"404"}`, http.StatusNotFound)
			},
		},
		{
			name: "unauthorized",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			},
		},
		{
			name: "non-200 success status",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			},
		},
		{
			name: "invalid json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"current":`))
			},
			wantErr: errInvalidBody,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusOK)
			},
			wantErr: errEmptyBody,
		},
		{
			name: "null document",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(` null `))
			},
			wantErr: errEmptyBody,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, calls := newTestFetcher(t, tt.handler, 0)

			res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

			assert.Equal(t, weather.OutcomeFailure, res.Outcome)
			assert.Nil(t, res.Payload)
			require.Error(t, res.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Equal(t, int32(1), atomic.LoadInt32(calls))
		})
	}
}

func TestOpenWeatherFetcher_StatusError(t *testing.T) {
	f, _ := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, 0)

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	var statusErr *StatusError
	require.True(t, errors.As(res.Err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.Code)
	assert.True(t, statusErr.Retryable())
}

func TestOpenWeatherFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	f := NewOpenWeatherFetcher(&http.Client{Timeout: time.Second}, "test-key", url, 0, zap.NewNop())

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	assert.Equal(t, weather.OutcomeFailure, res.Outcome)
	assert.Error(t, res.Err)
}

func TestOpenWeatherFetcher_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	f := NewOpenWeatherFetcher(&http.Client{Timeout: 50 * time.Millisecond}, "test-key", srv.URL, 0, zap.NewNop())

	start := time.Now()
	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	assert.Equal(t, weather.OutcomeFailure, res.Outcome)
	assert.Less(t, time.Since(start), time.Second)
}

func TestOpenWeatherFetcher_MissingAPIKey(t *testing.T) {
	f, calls := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}, 0)
	f.apiKey = ""

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	assert.ErrorIs(t, res.Err, errMissingAPIKey)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestOpenWeatherFetcher_RetriesWhenConfigured(t *testing.T) {
	var n int32
	f, calls := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&n, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"ok":true}`))
	}, 1)

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	require.True(t, res.OK())
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestOpenWeatherFetcher_ClientErrorsAreNotRetried(t *testing.T) {
	f, calls := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, 3)

	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	assert.Equal(t, weather.OutcomeFailure, res.Outcome)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestOpenWeatherFetcher_CircuitOpensOnRepeatedServerErrors(t *testing.T) {
	f, calls := newTestFetcher(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}, 0)

	// gobreaker's default policy trips after more than five consecutive failures
	for i := 0; i < 6; i++ {
		f.Fetch(context.Background(), nyc, weather.FetchOptions{})
	}
	res := f.Fetch(context.Background(), nyc, weather.FetchOptions{})

	assert.ErrorIs(t, res.Err, errCircuitOpen)
	assert.Equal(t, int32(6), atomic.LoadInt32(calls))
}
