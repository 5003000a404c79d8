package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"canteen-menu/internal/common/auth"
	"canteen-menu/internal/common/logger"
	"canteen-menu/internal/pipeline"
	"canteen-menu/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeRunner struct {
	calls int
	res   pipeline.Result
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, trigger string) (pipeline.Result, error) {
	f.calls++
	f.res.Trigger = trigger
	return f.res, f.err
}

type brokenStore struct {
	storage.Store
}

func (brokenStore) GetMenuForDate(ctx context.Context, date time.Time) (storage.Record, bool, error) {
	return storage.Record{}, false, stderrors.New("dial tcp: connection refused")
}

func (brokenStore) GetMenusInRange(ctx context.Context, from, to time.Time) ([]storage.Record, error) {
	return nil, stderrors.New("dial tcp: connection refused")
}

func (brokenStore) Ping(ctx context.Context) error {
	return stderrors.New("dial tcp: connection refused")
}

var thursday = time.Date(2024, 6, 6, 11, 30, 0, 0, time.UTC)

func newTestRouter(t *testing.T, runner PipelineRunner, store storage.Store, limiter *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(Deps{
		Runner:       runner,
		Store:        store,
		Secret:       auth.NewSharedSecret("s3cret"),
		FetchLimiter: limiter,
		Location:     time.UTC,
		Logger:       logger.NewTestLogger(t),
		Now:          func() time.Time { return thursday },
	})
}

func doRequest(r http.Handler, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// ==========================
// Fetch Trigger Tests
// ==========================

func TestFetch_RejectsMissingOrWrongSecret(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), nil)

	cases := []map[string]string{
		nil,
		{DefaultSecretHeader: ""},
		{DefaultSecretHeader: "guess"},
		{"X-Other-Header": "s3cret"},
	}
	for _, headers := range cases {
		for _, method := range []string{http.MethodGet, http.MethodPost} {
			w := doRequest(r, method, "/api/v1/menu/fetch", headers)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, false, decode(t, w)["success"])
		}
	}
	assert.Zero(t, runner.calls, "the pipeline must not run for unauthorized callers")
}

func TestFetch_Success(t *testing.T) {
	runner := &fakeRunner{res: pipeline.Result{RunID: "run-1", Dates: []string{"2024-06-03", "2024-06-04"}}}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), nil)

	w := doRequest(r, http.MethodPost, "/api/v1/menu/fetch", map[string]string{DefaultSecretHeader: "s3cret"})

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Weekly menus fetched and stored successfully", body["message"])
	assert.Equal(t, []interface{}{"2024-06-03", "2024-06-04"}, body["dates"])
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, pipeline.TriggerHTTP, runner.res.Trigger)
}

func TestFetch_PipelineFailure(t *testing.T) {
	runner := &fakeRunner{err: stderrors.New("Failed to fetch weekly menu from confluence after 3 attempts")}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), nil)

	w := doRequest(r, http.MethodGet, "/api/v1/menu/fetch", map[string]string{DefaultSecretHeader: "s3cret"})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "after 3 attempts")
}

func TestFetch_RunInProgress(t *testing.T) {
	runner := &fakeRunner{err: pipeline.ErrRunInProgress}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), nil)

	w := doRequest(r, http.MethodGet, "/api/v1/menu/fetch", map[string]string{DefaultSecretHeader: "s3cret"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFetch_RateLimited(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), NewRateLimiter(rate.Every(time.Hour), 1))
	headers := map[string]string{DefaultSecretHeader: "s3cret"}

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/api/v1/menu/fetch", headers).Code)
	w := doRequest(r, http.MethodGet, "/api/v1/menu/fetch", headers)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))
	assert.Equal(t, 1, runner.calls)
}

func TestFetch_RateLimitIsPerClient(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestRouter(t, runner, storage.NewMemoryStore(time.UTC), NewRateLimiter(rate.Every(time.Hour), 1))

	fetchFrom := func(addr, secret string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/menu/fetch", nil)
		req.RemoteAddr = addr
		req.Header.Set(DefaultSecretHeader, secret)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusUnauthorized, fetchFrom("203.0.113.7:4000", "guess"))
	assert.Equal(t, http.StatusTooManyRequests, fetchFrom("203.0.113.7:4001", "guess"))

	assert.Equal(t, http.StatusOK, fetchFrom("198.51.100.2:5000", "s3cret"))
	assert.Equal(t, 1, runner.calls)
}

func TestRateLimiter_SweepsIdleClients(t *testing.T) {
	rl := NewRateLimiter(rate.Every(time.Minute), 1)
	clock := time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	rl.lastSweep = clock

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.Equal(t, 1, rl.size())

	clock = clock.Add(limiterIdleTTL + limiterSweepInterval)
	assert.True(t, rl.Allow("10.0.0.2"))
	assert.Equal(t, 1, rl.size(), "idle client bucket is dropped")
}

func TestFetch_UnconfiguredSecretRejectsEveryone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	runner := &fakeRunner{}
	r := NewRouter(Deps{
		Runner: runner,
		Store:  storage.NewMemoryStore(time.UTC),
		Secret: auth.NewSharedSecret(""),
		Logger: logger.NewNoOpLogger(),
	})

	w := doRequest(r, http.MethodGet, "/api/v1/menu/fetch", map[string]string{DefaultSecretHeader: ""})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, runner.calls)
}

// ==========================
// Read Endpoint Tests
// ==========================

func TestMenuForDate(t *testing.T) {
	store := storage.NewMemoryStore(time.UTC)
	ctx := context.Background()
	require.NoError(t, store.SaveMenu(ctx, time.Date(2024, 6, 5, 0, 0, 0, 0, time.UTC), `{"meals":["wed"]}`))
	require.NoError(t, store.SaveMenu(ctx, thursday, `{"meals":["thu"]}`))
	r := newTestRouter(t, &fakeRunner{}, store, nil)

	t.Run("explicit date", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/menu?date=2024-06-05", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, `{"meals":["wed"]}`, decode(t, w)["menuText"])
	})

	t.Run("without date serves the current week", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/menu", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "2024-06-03", body["from"])
		assert.Equal(t, "2024-06-09", body["to"])
		menus, ok := body["menus"].([]interface{})
		require.True(t, ok)
		require.Len(t, menus, 2)
		assert.Equal(t, `{"meals":["wed"]}`, menus[0].(map[string]interface{})["menuText"])
		assert.Equal(t, `{"meals":["thu"]}`, menus[1].(map[string]interface{})["menuText"])
	})

	t.Run("absent", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/menu?date=2024-06-08", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "No menu found for the specified date", decode(t, w)["error"])
	})

	t.Run("bad date", func(t *testing.T) {
		w := doRequest(r, http.MethodGet, "/api/v1/menu?date=06/05/2024", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMenuForDate_StoreUnavailable(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{}, brokenStore{}, nil)

	w := doRequest(r, http.MethodGet, "/api/v1/menu?date=2024-06-05", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMenuForWeek(t *testing.T) {
	store := storage.NewMemoryStore(time.UTC)
	require.NoError(t, store.SaveWeeklyMenu(context.Background(), []storage.Entry{
		{Date: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), MenuText: "mon"},
		{Date: time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC), MenuText: "fri"},
		{Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), MenuText: "next mon"},
	}))
	r := newTestRouter(t, &fakeRunner{}, store, nil)

	w := doRequest(r, http.MethodGet, "/api/v1/menu/week", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-06-03", body["from"])
	assert.Equal(t, "2024-06-09", body["to"])
	assert.Len(t, body["menus"], 2)

	w = doRequest(r, http.MethodGet, "/api/v1/menu/week?date=2024-05-29", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	empty := newTestRouter(t, &fakeRunner{}, storage.NewMemoryStore(time.UTC), nil)
	w = doRequest(empty, http.MethodGet, "/api/v1/menu", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No menu found for the specified date", decode(t, w)["error"])
}

// ==========================
// Probe Tests
// ==========================

func TestProbes(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{}, storage.NewMemoryStore(time.UTC), nil)

	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, doRequest(r, http.MethodGet, "/ready", nil).Code)

	w := doRequest(r, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestReady_StoreDown(t *testing.T) {
	r := newTestRouter(t, &fakeRunner{}, brokenStore{}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(r, http.MethodGet, "/ready", nil).Code)
}
