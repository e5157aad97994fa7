package dispatch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/nimbusdeck/edge/internal/models"
	"github.com/nimbusdeck/edge/internal/ratelimit"
	"github.com/nimbusdeck/edge/internal/service"
	"github.com/nimbusdeck/edge/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseDomain = "edge.test"

type fakeResolver struct {
	configs map[string]*models.TenantConfig
}

func (f *fakeResolver) Resolve(ctx context.Context, key string) (*models.TenantConfig, error) {
	cfg, ok := f.configs[key]
	if !ok {
		return nil, service.ErrTenantNotFound
	}
	return cfg, nil
}

type captureEmitter struct {
	mu     sync.Mutex
	points []models.UsageDataPoint
}

func (e *captureEmitter) Emit(dp models.UsageDataPoint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.points = append(e.points, dp)
}

func (e *captureEmitter) all() []models.UsageDataPoint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.UsageDataPoint(nil), e.points...)
}

type memStore struct {
	mu   sync.Mutex
	data map[string]ratelimit.Window
}

func (s *memStore) Get(ctx context.Context, key string) (*ratelimit.Window, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.data[key]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (s *memStore) Put(ctx context.Context, key string, w *ratelimit.Window, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = *w
	return nil
}

type testHarness struct {
	router  *gin.Engine
	emitter *captureEmitter
	clock   *clockwork.FakeClock
}

func newHarness(t *testing.T, configs map[string]*models.TenantConfig) *testHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clock := clockwork.NewFakeClockAt(time.Now().Truncate(time.Minute))
	limiter := ratelimit.NewFixedWindowWithClock(
		&memStore{data: make(map[string]ratelimit.Window)}, clock)

	emitter := &captureEmitter{}
	d := New(&fakeResolver{configs: configs}, limiter, emitter, logger.NewNop(), testBaseDomain, 0)

	router := gin.New()
	router.Use(d.Middleware())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	return &testHarness{router: router, emitter: emitter, clock: clock}
}

func (h *testHarness) request(host, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "http://"+host+path, nil)
	req.Host = host
	// httptest requests carry a non-cancellable context, which sends
	// ReverseProxy down the CloseNotifier path and panics on the recorder;
	// a cancellable context matches real server requests.
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func activeTenant(slug, workerRef string, limit int) *models.TenantConfig {
	return &models.TenantConfig{
		ProjectID:         uuid.New(),
		OrgID:             "org-1",
		Slug:              slug,
		WorkerRef:         workerRef,
		Status:            models.StatusActive,
		RequestsPerMinute: limit,
		Tier:              "pro",
	}
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Cache-Status", "HIT")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "tenant response")
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDispatchRateLimitLifecycle(t *testing.T) {
	backend := newBackend(t)
	tenant := activeTenant("t1", backend.URL, 5)
	h := newHarness(t, map[string]*models.TenantConfig{"t1": tenant})

	// Requests 1-5 pass with a decreasing remaining budget.
	for i := 0; i < 5; i++ {
		w := h.request("t1."+testBaseDomain, "/api/items")
		require.Equal(t, http.StatusOK, w.Code, "request %d", i+1)
		assert.Equal(t, "tenant response", w.Body.String())
		assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(4-i), w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	}

	// Request 6 in the same window is rejected.
	w := h.request("t1."+testBaseDomain, "/api/items")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.InDelta(t, time.Until(time.Unix(reset, 0)).Seconds(), float64(retryAfter), 2)
	assert.GreaterOrEqual(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)

	// The next window clears the budget.
	h.clock.Advance(61 * time.Second)
	w = h.request("t1."+testBaseDomain, "/api/items")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))
}

func TestDispatchHostErrors(t *testing.T) {
	backend := newBackend(t)
	errored := activeTenant("broken", backend.URL, 5)
	errored.Status = models.StatusError

	h := newHarness(t, map[string]*models.TenantConfig{"broken": errored})

	// Host not matching the slug pattern.
	w := h.request("not_a_slug."+testBaseDomain, "/")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.request("a.b."+testBaseDomain, "/")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Valid slug with no config.
	w = h.request("ghost."+testBaseDomain, "/")
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Config present but not active.
	w = h.request("broken."+testBaseDomain, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDispatchApexFallsThroughToControlPlane(t *testing.T) {
	h := newHarness(t, map[string]*models.TenantConfig{})

	w := h.request(testBaseDomain, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestDispatchUnreachableBackend(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	tenant := activeTenant("t1", dead.URL, 5)
	h := newHarness(t, map[string]*models.TenantConfig{"t1": tenant})

	w := h.request("t1."+testBaseDomain, "/")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestDispatchEmitsUsage(t *testing.T) {
	backend := newBackend(t)
	tenant := activeTenant("t1", backend.URL, 100)
	h := newHarness(t, map[string]*models.TenantConfig{"t1": tenant})

	w := h.request("t1."+testBaseDomain, "/api/items")
	require.Equal(t, http.StatusOK, w.Code)

	points := h.emitter.all()
	require.Len(t, points, 1)

	dp := points[0]
	assert.Equal(t, []string{tenant.ProjectID.String()}, dp.Indexes)
	assert.Equal(t, "org-1", dp.Blobs[models.BlobOrgID])
	assert.Equal(t, "pro", dp.Blobs[models.BlobTier])
	assert.Equal(t, "GET", dp.Blobs[models.BlobMethod])
	assert.Equal(t, "HIT", dp.Blobs[models.BlobCacheStatus])
	assert.Equal(t, "2xx", dp.Blobs[models.BlobStatusBucket])
	assert.Equal(t, "/api/*", dp.Blobs[models.BlobPathnameBucket])
	assert.Equal(t, float64(1), dp.Doubles[models.DoubleCount])
	assert.Equal(t, float64(len("tenant response")), dp.Doubles[models.DoubleRespBytes])
}

type downStore struct{}

func (downStore) Get(ctx context.Context, key string) (*ratelimit.Window, error) {
	return nil, errors.New("window store down")
}

func (downStore) Put(ctx context.Context, key string, w *ratelimit.Window, ttl time.Duration) error {
	return errors.New("window store down")
}

func TestDispatchFailsOpenWithRateLimitHeaders(t *testing.T) {
	backend := newBackend(t)
	tenant := activeTenant("t1", backend.URL, 5)

	gin.SetMode(gin.TestMode)
	limiter := ratelimit.NewFixedWindow(downStore{})
	emitter := &captureEmitter{}
	d := New(&fakeResolver{configs: map[string]*models.TenantConfig{"t1": tenant}},
		limiter, emitter, logger.NewNop(), testBaseDomain, 0)

	router := gin.New()
	router.Use(d.Middleware())

	req := httptest.NewRequest(http.MethodGet, "http://t1."+testBaseDomain+"/", nil)
	req.Host = "t1." + testBaseDomain
	ctx, cancel := context.WithCancel(req.Context())
	defer cancel()
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, "a broken counter store must not block traffic")
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "4", w.Header().Get("X-RateLimit-Remaining"))

	reset, err := strconv.ParseInt(w.Header().Get("X-RateLimit-Reset"), 10, 64)
	require.NoError(t, err)
	until := time.Until(time.Unix(reset, 0))
	assert.Greater(t, until, time.Duration(0))
	assert.LessOrEqual(t, until, time.Minute)

	assert.Len(t, emitter.all(), 1)
}

func TestRateLimitRejectionEmitsNoUsage(t *testing.T) {
	backend := newBackend(t)
	tenant := activeTenant("t1", backend.URL, 1)
	h := newHarness(t, map[string]*models.TenantConfig{"t1": tenant})

	require.Equal(t, http.StatusOK, h.request("t1."+testBaseDomain, "/").Code)
	require.Equal(t, http.StatusTooManyRequests, h.request("t1."+testBaseDomain, "/").Code)

	assert.Len(t, h.emitter.all(), 1)
}
