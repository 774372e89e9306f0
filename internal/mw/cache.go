package mw

import (
	"bytes"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

// snapshot is one cached response.
type snapshot struct {
	status int
	header http.Header
	body   []byte
}

// teeWriter copies everything the handler writes into buf.
type teeWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w teeWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w teeWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// ResponseCache replays successful GET responses for ttl. Entries are keyed
// by the actor's role and unit as well as the URI, so a unit-scoped report is
// never served to another unit.
type ResponseCache struct {
	entries *cache.Cache
	ttl     time.Duration
}

func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &ResponseCache{entries: cache.New(ttl, 2*ttl), ttl: ttl}
}

func (rc *ResponseCache) key(c *gin.Context) string {
	a, _ := CurrentActor(c)
	return string(a.Role) + "|" + a.Unit + "|" + c.Request.RequestURI
}

// Handler returns the gin middleware.
func (rc *ResponseCache) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := rc.key(c)
		if v, ok := rc.entries.Get(key); ok {
			rc.replay(c, v.(snapshot))
			return
		}

		tw := teeWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = tw
		c.Header("X-Cache", "MISS")
		c.Next()

		if status := tw.Status(); status >= 200 && status < 300 {
			rc.entries.Set(key, snapshot{
				status: status,
				header: tw.Header().Clone(),
				body:   tw.buf.Bytes(),
			}, rc.ttl)
		}
	}
}

func (rc *ResponseCache) replay(c *gin.Context, s snapshot) {
	h := c.Writer.Header()
	for k, v := range s.header {
		if k == HeaderRequestID {
			continue
		}
		h[k] = v
	}
	h.Set("X-Cache", "HIT")
	c.Writer.WriteHeader(s.status)
	_, _ = c.Writer.Write(s.body)
	c.Abort()
}
