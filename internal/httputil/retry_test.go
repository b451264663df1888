// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/mastget/internal/logging"
	"github.com/pdiddy/mastget/pkg/types"
)

func init() {
	RetryBaseDelay = time.Millisecond
}

// statusServer answers the n-th request with statuses[n], repeating the
// last status once the list runs out.
func statusServer(t *testing.T, statuses ...int) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		w.WriteHeader(statuses[n])
	}))
	t.Cleanup(ts.Close)
	return ts, &calls
}

func TestDoWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		statuses   []int
		maxRetries int
		wantStatus int
		wantCalls  int32
	}{
		{"immediate success", []int{200}, 5, 200, 1},
		{"429 then success", []int{429, 429, 200}, 5, 200, 3},
		{"503 then success", []int{503, 503, 200}, 5, 200, 3},
		{"mixed throttling", []int{429, 503, 200}, 5, 200, 3},
		{"429 exhausts retries", []int{429}, 3, 429, 4},
		{"503 exhausts retries", []int{503}, 2, 503, 3},
		{"default retries", []int{503}, 0, 503, 6},
		{"500 passes through", []int{500}, 5, 500, 1},
		{"404 passes through", []int{404}, 5, 404, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, calls := statusServer(t, tt.statuses...)
			req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
			require.NoError(t, err)

			resp, err := DoWithRetry(context.Background(), ts.Client(), req, tt.maxRetries)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantCalls, atomic.LoadInt32(calls))
		})
	}
}

func TestDoWithRetry_ContextCancelledDuringBackoff(t *testing.T) {
	ts, _ := statusServer(t, http.StatusServiceUnavailable)

	old := RetryBaseDelay
	RetryBaseDelay = time.Hour
	defer func() { RetryBaseDelay = old }()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	req, err := http.NewRequest(http.MethodGet, ts.URL, nil)
	require.NoError(t, err)

	_, err = DoWithRetry(ctx, ts.Client(), req, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoWithRetry_ReplaysBody(t *testing.T) {
	var mu sync.Mutex
	var bodies []string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(data))
		first := len(bodies) == 1
		mu.Unlock()
		if first {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader("request=payload"))
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, []string{"request=payload", "request=payload"}, bodies)
}

func TestDoWithRetry_BodyRewindFails(t *testing.T) {
	ts, calls := statusServer(t, http.StatusServiceUnavailable, http.StatusOK)

	req, err := http.NewRequest(http.MethodPost, ts.URL, strings.NewReader("request=payload"))
	require.NoError(t, err)
	req.GetBody = func() (io.ReadCloser, error) { return nil, errors.New("body consumed") }

	_, err = DoWithRetry(context.Background(), ts.Client(), req, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rewinding request body: body consumed")
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestDoWithRetry_LogsThrottle(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(types.LogConfig{Level: "warn", Format: "json"}, &buf)
	t.Cleanup(func() { logging.Init(types.LogConfig{Level: "info"}, nil) })

	ts, _ := statusServer(t, http.StatusServiceUnavailable, http.StatusOK)
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/file?token=x", nil)
	require.NoError(t, err)

	resp, err := DoWithRetry(context.Background(), ts.Client(), req, 2)
	require.NoError(t, err)
	resp.Body.Close()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))

	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "http", entry["component"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), entry["status"])
	assert.Equal(t, ts.URL+"/file?token=x", entry["url"])
	assert.Equal(t, float64(1), entry["backoff"])
	assert.Equal(t, "throttled, retrying (attempt 1/2)", entry["message"])
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(http.StatusTooManyRequests))
	assert.True(t, Retryable(http.StatusServiceUnavailable))
	assert.False(t, Retryable(http.StatusOK))
	assert.False(t, Retryable(http.StatusInternalServerError))
	assert.False(t, Retryable(http.StatusNotFound))
}
