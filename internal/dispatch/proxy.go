package dispatch

import (
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/nimbusdeck/edge/pkg/logger"
	"go.uber.org/zap"
)

// proxyCache builds one reverse proxy per worker URL and reuses it across
// requests. Forwarding is single-attempt: a failed hop surfaces as 503 with
// no retry, so there is nothing here beyond the proxy itself.
type proxyCache struct {
	mu      sync.RWMutex
	proxies map[string]*httputil.ReverseProxy
	log     *logger.Logger
}

func newProxyCache(log *logger.Logger) *proxyCache {
	return &proxyCache{
		proxies: make(map[string]*httputil.ReverseProxy),
		log:     log,
	}
}

func (p *proxyCache) get(workerRef string) (*httputil.ReverseProxy, error) {
	p.mu.RLock()
	rp, ok := p.proxies[workerRef]
	p.mu.RUnlock()
	if ok {
		return rp, nil
	}

	target, err := url.Parse(workerRef)
	if err != nil {
		return nil, err
	}

	rp = httputil.NewSingleHostReverseProxy(target)

	director := rp.Director
	rp.Director = func(req *http.Request) {
		originalHost := req.Host
		director(req)
		req.Host = target.Host
		req.Header.Set("X-Forwarded-Host", originalHost)
	}

	rp.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		p.log.Error("backend fetch failed", err,
			zap.String("worker_ref", workerRef),
		)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"backend unavailable"}`))
	}

	p.mu.Lock()
	p.proxies[workerRef] = rp
	p.mu.Unlock()

	return rp, nil
}

// responseRecorder captures the forwarded response's status and size for
// usage recording.
type responseRecorder struct {
	gin.ResponseWriter
	statusCode int
	bytes      int64
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(data []byte) (int, error) {
	n, err := r.ResponseWriter.Write(data)
	r.bytes += int64(n)
	return n, err
}
