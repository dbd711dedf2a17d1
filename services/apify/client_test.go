package apify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealmungchi/bestdeal/pkg/errors"
)

// fakeAPI serves one actor run that succeeds after pollsUntilDone polls
type fakeAPI struct {
	t              *testing.T
	items          []map[string]interface{}
	pollsUntilDone int32
	finalStatus    string
	polls          atomic.Int32
	input          map[string]interface{}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v2/acts/{actor}/runs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(f.t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(f.t, "junglee~Amazon-crawler", r.PathValue("actor"))
		assert.Equal(f.t, "60", r.URL.Query().Get("waitForFinish"))
		assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&f.input))

		status := StatusRunning
		if f.pollsUntilDone == 0 {
			status = f.finalStatus
		}
		writeRun(w, status)
	})

	mux.HandleFunc("GET /v2/actor-runs/{run}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "run-1", r.PathValue("run"))
		status := StatusRunning
		if f.polls.Add(1) >= f.pollsUntilDone {
			status = f.finalStatus
		}
		writeRun(w, status)
	})

	mux.HandleFunc("GET /v2/datasets/{dataset}/items", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(f.t, "ds-1", r.PathValue("dataset"))
		assert.Equal(f.t, "true", r.URL.Query().Get("clean"))
		assert.Equal(f.t, "json", r.URL.Query().Get("format"))

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		end := min(offset+limit, len(f.items))
		page := []map[string]interface{}{}
		if offset < len(f.items) {
			page = f.items[offset:end]
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(page)
	})

	return mux
}

func writeRun(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"data":{"id":"run-1","actId":"act-1","status":%q,"defaultDatasetId":"ds-1"}}`, status)
}

func newTestClient(url string) *Client {
	return New(url, "test-token", WithRateLimit(0), WithPollInterval(0), WithPageSize(2))
}

func TestCallPollsAndPages(t *testing.T) {
	api := &fakeAPI{
		t:              t,
		pollsUntilDone: 2,
		finalStatus:    StatusSucceeded,
		items: []map[string]interface{}{
			{"title": "one", "price": 1.5},
			{"title": "two"},
			{"title": "three"},
		},
	}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	items, err := newTestClient(server.URL).Call(context.Background(), "junglee/Amazon-crawler", map[string]interface{}{"maxItems": 5})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "one", items[0]["title"])
	assert.Equal(t, json.Number("1.5"), items[0]["price"])
	assert.Equal(t, "three", items[2]["title"])

	assert.Equal(t, int32(2), api.polls.Load())
	assert.Equal(t, 5.0, api.input["maxItems"])
}

func TestCallEmptyDataset(t *testing.T) {
	api := &fakeAPI{t: t, finalStatus: StatusSucceeded}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	items, err := newTestClient(server.URL).Call(context.Background(), "junglee/Amazon-crawler", map[string]interface{}{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Equal(t, int32(0), api.polls.Load())
}

func TestCallFailedRun(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusTimedOut, StatusAborted} {
		t.Run(status, func(t *testing.T) {
			api := &fakeAPI{t: t, pollsUntilDone: 1, finalStatus: status}
			server := httptest.NewServer(api.handler())
			defer server.Close()

			items, err := newTestClient(server.URL).Call(context.Background(), "junglee/Amazon-crawler", nil)
			assert.Nil(t, items)
			assert.Equal(t, errors.ErrorTypeDelegate, errors.TypeOf(err))
			assert.Contains(t, err.Error(), status)
		})
	}
}

func TestCallHTTPErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		header    map[string]string
		errType   errors.ErrorType
		retryable bool
	}{
		{"quota", http.StatusTooManyRequests, map[string]string{"Retry-After": "30"}, errors.ErrorTypeRateLimit, true},
		{"unauthorized", http.StatusUnauthorized, nil, errors.ErrorTypeConfiguration, false},
		{"forbidden", http.StatusForbidden, nil, errors.ErrorTypeConfiguration, false},
		{"not found", http.StatusNotFound, nil, errors.ErrorTypeDelegate, true},
		{"server error", http.StatusInternalServerError, nil, errors.ErrorTypeDelegate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				for k, v := range tt.header {
					w.Header().Set(k, v)
				}
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"type":"x","message":"nope"}}`))
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).Call(context.Background(), "easyapi/jumia-product-scraper", nil)
			require.Error(t, err)
			assert.Equal(t, tt.errType, errors.TypeOf(err))

			var searchErr *errors.SearchError
			require.ErrorAs(t, err, &searchErr)
			assert.Equal(t, "easyapi/jumia-product-scraper", searchErr.Source)
			assert.Equal(t, tt.retryable, searchErr.IsRetryable())
		})
	}
}

func TestCallRateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "45")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Call(context.Background(), "a/b", nil)
	assert.True(t, errors.IsRateLimit(err))
	assert.Contains(t, err.Error(), "45s")
}

func TestCallNetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Call(context.Background(), "a/b", nil)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
}

func TestCallInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Call(context.Background(), "a/b", nil)
	assert.Equal(t, errors.ErrorTypeDelegate, errors.TypeOf(err))
}

func TestCallHonorsCancellationWhilePolling(t *testing.T) {
	api := &fakeAPI{t: t, pollsUntilDone: 1 << 30, finalStatus: StatusSucceeded}
	server := httptest.NewServer(api.handler())
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	client := New(server.URL, "test-token", WithRateLimit(0), WithPollInterval(10*time.Millisecond))
	_, err := client.Call(ctx, "junglee/Amazon-crawler", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeNetwork, errors.TypeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCallDecodesCharset(t *testing.T) {
	api := &fakeAPI{t: t, finalStatus: StatusSucceeded}
	mux := http.NewServeMux()
	mux.Handle("/v2/acts/", api.handler())
	mux.HandleFunc("/v2/datasets/ds-1/items", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=iso-8859-1")
		_, _ = w.Write([]byte("[{\"title\":\"Caf\xe9 mug\"}]"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	items, err := newTestClient(server.URL).Call(context.Background(), "junglee/Amazon-crawler", nil)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Café mug", items[0]["title"])
}

func TestRunTerminal(t *testing.T) {
	assert.False(t, Run{Status: StatusReady}.Terminal())
	assert.False(t, Run{Status: StatusRunning}.Terminal())
	assert.False(t, Run{Status: StatusAborting}.Terminal())
	assert.True(t, Run{Status: StatusSucceeded}.Terminal())
	assert.True(t, Run{Status: StatusTimedOut}.Terminal())
}

func TestActorPath(t *testing.T) {
	assert.Equal(t, "junglee~Amazon-crawler", actorPath("junglee/Amazon-crawler"))
	assert.Equal(t, "LTBzVVq592mKgR6lU", actorPath("LTBzVVq592mKgR6lU"))
}
