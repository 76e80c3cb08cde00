package controller

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/janzheng/notion-api-worker/pkg/cache"
	"github.com/janzheng/notion-api-worker/pkg/retry"
)

// cacheEdge implements the cache-aside / stale-while-revalidate orchestration
// around the v1 routes: fresh hits are served from cache, stale hits are
// served immediately while a detached refresh repopulates the entry, and
// misses run the handler inline.
type cacheEdge struct {
	cache    *cache.Cache
	logger   *zap.Logger
	inflight *xsync.Map[string, bool]
}

func newCacheEdge(c *cache.Cache, logger *zap.Logger) *cacheEdge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cacheEdge{
		cache:    c,
		logger:   logger,
		inflight: xsync.NewMap[string, bool](),
	}
}

// wrap returns the cache-orchestrated version of a handler.
func (e *cacheEdge) wrap(next http.HandlerFunc) http.HandlerFunc {
	if e.cache == nil {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		key := cacheKey(r)

		entry, fresh, ok := e.cache.Lookup(r.Context(), key)
		if ok {
			if !fresh {
				// Serve the stale payload now; the client never waits on
				// (or hears about) the background refresh.
				e.revalidate(key, r, next)
			}
			e.serve(w, entry)
			return
		}

		rec := record(next, r)
		if cacheable(rec.status) {
			e.cache.Store(r.Context(), key, rec.status, rec.body.Bytes())
		}
		e.copyTo(w, rec)
	}
}

// revalidate re-runs the handler in a detached goroutine and writes the fresh
// payload back to the cache. At most one refresh runs per key; errors are
// logged and swallowed.
func (e *cacheEdge) revalidate(key string, r *http.Request, next http.HandlerFunc) {
	if _, loaded := e.inflight.LoadOrStore(key, true); loaded {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	req := r.Clone(ctx)

	go func() {
		defer cancel()
		defer e.inflight.Delete(key)

		err := retry.WithBackoff(ctx, retry.DefaultConfig(), e.logger, "cache revalidation", func() error {
			rec := record(next, req)
			if !cacheable(rec.status) {
				return fmt.Errorf("revalidation returned http %d", rec.status)
			}
			e.cache.Store(ctx, key, rec.status, rec.body.Bytes())
			return nil
		})
		if err != nil {
			e.logger.Warn("Background revalidation failed, stale entry retained",
				zap.String("key", key),
				zap.Error(err))
		}
	}()
}

func (e *cacheEdge) serve(w http.ResponseWriter, entry *cache.Entry) {
	w.Header().Set("Content-Type", "application/json")
	e.setCacheControl(w, entry.Status)
	w.WriteHeader(entry.Status)
	_, _ = w.Write(entry.Body)
}

func (e *cacheEdge) copyTo(w http.ResponseWriter, rec *responseRecorder) {
	for k, vals := range rec.header {
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	e.setCacheControl(w, rec.status)
	w.WriteHeader(rec.status)
	_, _ = w.Write(rec.body.Bytes())
}

func (e *cacheEdge) setCacheControl(w http.ResponseWriter, status int) {
	if !cacheable(status) {
		return
	}
	maxAge := int(e.cache.MaxAge().Seconds())
	staleFor := int(e.cache.StaleFor().Seconds())
	w.Header().Set("Cache-Control",
		fmt.Sprintf("public, s-maxage=%d, max-age=%d, stale-while-revalidate=%d", maxAge, maxAge, staleFor))
}

func cacheable(status int) bool {
	return status >= 200 && status < 300
}

// cacheKey derives the cache key from the request path and query plus a
// fingerprint of the bearer token, so authenticated and anonymous views of
// the same page never share an entry.
func cacheKey(r *http.Request) string {
	key := r.URL.Path
	if q := r.URL.Query().Encode(); q != "" {
		key += "?" + q
	}
	if token := bearerToken(r); token != "" {
		sum := sha256.Sum256([]byte(token))
		key += "#" + hex.EncodeToString(sum[:6])
	}
	return key
}

// responseRecorder captures a handler's response so the edge can both store
// and forward it.
type responseRecorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func record(next http.HandlerFunc, r *http.Request) *responseRecorder {
	rec := &responseRecorder{header: http.Header{}, status: http.StatusOK}
	next(rec, r)
	return rec
}

func (r *responseRecorder) Header() http.Header { return r.header }

func (r *responseRecorder) WriteHeader(code int) { r.status = code }

func (r *responseRecorder) Write(b []byte) (int, error) { return r.body.Write(b) }
