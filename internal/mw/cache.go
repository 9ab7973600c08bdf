package mw

import (
	"bytes"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const cacheStatusHeader = "X-Cache"

// Per-request headers never replayed from a stored response.
var volatileHeaders = []string{cacheStatusHeader, requestIDHeader, "Age"}

type storedResponse struct {
	status   int
	header   http.Header
	body     []byte
	storedAt time.Time
}

// teeWriter copies the body sent to the client into buf.
type teeWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *teeWriter) Write(p []byte) (int, error) {
	w.buf.Write(p)
	return w.ResponseWriter.Write(p)
}

func (w *teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Cache serves repeated GETs from store for ttl and reports MISS, HIT or
// BYPASS in X-Cache. A request sent with "Cache-Control: no-cache" skips the
// lookup and refreshes the entry. Only 2xx responses are stored.
func Cache(store *cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := cacheKey(c.Request.URL)
		if wantsFresh(c.Request) {
			c.Header(cacheStatusHeader, "BYPASS")
		} else if v, ok := store.Get(key); ok {
			replay(c, v.(storedResponse))
			return
		} else {
			c.Header(cacheStatusHeader, "MISS")
		}

		tee := &teeWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = tee
		c.Next()

		status := tee.Status()
		if status < 200 || status >= 300 {
			return
		}
		header := tee.Header().Clone()
		for _, name := range volatileHeaders {
			header.Del(name)
		}
		store.Set(key, storedResponse{
			status:   status,
			header:   header,
			body:     tee.buf.Bytes(),
			storedAt: time.Now(),
		}, ttl)
	}
}

func replay(c *gin.Context, r storedResponse) {
	dst := c.Writer.Header()
	for name, values := range r.header {
		dst[name] = values
	}
	c.Header(cacheStatusHeader, "HIT")
	c.Header("Age", strconv.Itoa(int(time.Since(r.storedAt).Seconds())))
	c.Writer.WriteHeader(r.status)
	_, _ = c.Writer.Write(r.body)
	c.Abort()
}

// cacheKey sorts the query so ?a=1&b=2 and ?b=2&a=1 share an entry.
func cacheKey(u *url.URL) string {
	if u.RawQuery == "" {
		return u.Path
	}
	return u.Path + "?" + u.Query().Encode()
}

func wantsFresh(r *http.Request) bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Cache-Control")), "no-cache")
}
