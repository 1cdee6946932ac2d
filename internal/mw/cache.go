package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// CacheHeader reports HIT or MISS on cacheable responses.
const CacheHeader = "X-Cache"

// KeyFunc maps a request onto its cache entry. Requests that map to "" are not cached.
type KeyFunc func(c *gin.Context) string

type snapshot struct {
	status      int
	contentType string
	body        []byte
}

// recorder tees the response body so it can be stored after the handler returns.
type recorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *recorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *recorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

// Cache keeps successful GET responses in store for ttl under the key chosen by key.
func Cache(store *cache.Cache, ttl time.Duration, key KeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		k := ""
		if c.Request.Method == http.MethodGet {
			k = key(c)
		}
		if k == "" {
			c.Next()
			return
		}

		if v, ok := store.Get(k); ok {
			snap := v.(snapshot)
			c.Header(CacheHeader, "HIT")
			c.Data(snap.status, snap.contentType, snap.body)
			c.Abort()
			return
		}

		rec := &recorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Header(CacheHeader, "MISS")
		c.Next()

		if status := rec.Status(); status >= 200 && status < 300 {
			store.Set(k, snapshot{
				status:      status,
				contentType: rec.Header().Get("Content-Type"),
				body:        bytes.Clone(rec.buf.Bytes()),
			}, ttl)
		}
	}
}
