package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/dbforge/schema-designer/internal/config"
)

// SchemaCache caches successful JSON reads of schema endpoints per user.
// Entries live under cache:<userID>:* so a mutation can drop everything the
// user might see as stale with one prefix scan.  TTL stays short regardless:
// invalidation is best-effort and a Redis hiccup must not serve stale data
// for long.
type SchemaCache struct {
	cfg config.CacheConfig
	rdb *redis.Client
}

func NewSchemaCache(cfg config.CacheConfig, rdb *redis.Client) *SchemaCache {
	return &SchemaCache{cfg: cfg, rdb: rdb}
}

func (sc *SchemaCache) enabled() bool {
	return sc != nil && sc.cfg.Enabled && sc.rdb != nil
}

// bodyCapture duplicates the response body while it streams to the client.
type bodyCapture struct {
	http.ResponseWriter
	status int
	buf    bytes.Buffer
	limit  int
}

func (w *bodyCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	if w.limit <= 0 || w.buf.Len()+len(b) <= w.limit {
		w.buf.Write(b)
	} else {
		w.buf.Reset() // oversized bodies are not cached at all
		w.limit = -1
	}
	return w.ResponseWriter.Write(b)
}

// Middleware serves GET requests from Redis when possible and stores fresh
// 200 responses on the way out.  It must run after BearerAuth since the key
// is scoped to the authenticated user.
func (sc *SchemaCache) Middleware() echo.MiddlewareFunc {
	if !sc.enabled() {
		return passthrough
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Method != http.MethodGet {
				return next(c)
			}
			userID, ok := c.Get(ctxUserID).(string)
			if !ok || userID == "" {
				return next(c)
			}
			ctx := c.Request().Context()
			key := sc.key(userID, c)

			if body, err := sc.rdb.Get(ctx, key).Bytes(); err == nil {
				c.Response().Header().Set("X-Cache", "HIT")
				return c.JSONBlob(http.StatusOK, body)
			}

			w := &bodyCapture{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: sc.cfg.MaxBodyBytes}
			c.Response().Writer = w
			c.Response().Header().Set("X-Cache", "MISS")

			if err := next(c); err != nil {
				return err
			}
			if w.status == http.StatusOK && w.buf.Len() > 0 {
				_ = sc.rdb.SetEx(context.Background(), key, w.buf.Bytes(), sc.cfg.TTL).Err()
			}
			return nil
		}
	}
}

// Invalidate drops every cached response of one user.  Errors are swallowed:
// the short TTL bounds staleness when Redis misbehaves.
func (sc *SchemaCache) Invalidate(ctx context.Context, userID string) {
	if !sc.enabled() || userID == "" {
		return
	}
	pattern := fmt.Sprintf("%s:%s:*", sc.cfg.Prefix, userID)
	iter := sc.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if len(keys) > 0 {
		_ = sc.rdb.Del(ctx, keys...).Err()
	}
}

func (sc *SchemaCache) key(userID string, c echo.Context) string {
	r := c.Request()
	sum := sha1.Sum([]byte(r.URL.Path + "?" + r.URL.RawQuery))
	return fmt.Sprintf("%s:%s:%x", sc.cfg.Prefix, userID, sum[:])
}
