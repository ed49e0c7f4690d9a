package integration

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zoobzio/spanz"
)

// ErrNoRows is returned by DB.QueryRow when nothing matches.
var ErrNoRows = errors.New("no rows in result set")

// NewTracer returns an in-memory tracer closed at test cleanup.
func NewTracer(t *testing.T, opts ...spanz.TracerOption) *spanz.InMemoryTracer {
	t.Helper()
	tracer := spanz.NewInMemoryTracer(opts...)
	t.Cleanup(tracer.Close)
	return tracer
}

// RequireSingle returns the only finished span named name.
func RequireSingle(t *testing.T, tracer *spanz.InMemoryTracer, name string) spanz.FinishedSpan {
	t.Helper()
	spans := tracer.SpansWithName(name)
	require.Len(t, spans, 1, "expected exactly one %q span", name)
	return spans[0]
}

// StringAttr reads a string attribute, failing the test if absent.
func StringAttr(t *testing.T, attrs spanz.Attributes, key string) string {
	t.Helper()
	v, ok := attrs.Get(key)
	require.True(t, ok, "missing attribute %q", key)
	s, ok := v.AsString()
	require.True(t, ok, "attribute %q is %s, not string", key, v.Type())
	return s
}

// TracedTransport is an http.RoundTripper that records one client span per
// request, parented on the request context's ambient span.
type TracedTransport struct {
	Base   http.RoundTripper
	Tracer spanz.Tracer
}

func (tt *TracedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := tt.Base
	if base == nil {
		base = http.DefaultTransport
	}

	return spanz.WithSpan(req.Context(), tt.Tracer, "HTTP "+req.Method,
		func(ctx context.Context, span spanz.Span) (*http.Response, error) {
			span.SetAttributes(spanz.NewAttributes(
				spanz.KeyValue{Key: "http.method", Value: spanz.String(req.Method)},
				spanz.KeyValue{Key: "http.url", Value: spanz.String(req.URL.String())},
			))

			resp, err := base.RoundTrip(req.WithContext(ctx))
			if err != nil {
				return nil, err
			}
			span.SetAttribute("http.status_code", spanz.Int64(int64(resp.StatusCode)))
			if resp.StatusCode >= http.StatusInternalServerError {
				// A 5xx is not a transport error, but it is a failed call.
				span.SetStatus(spanz.Status{Code: spanz.StatusError, Message: resp.Status})
				span.End()
			}
			return resp, nil
		}, spanz.WithKind(spanz.SpanKindClient))
}

// DB is an in-process table standing in for a database client.
type DB struct {
	Tracer spanz.Tracer
	rows   map[string]string
	mu     sync.RWMutex
}

// NewDB creates a DB seeded with rows.
func NewDB(tracer spanz.Tracer, rows map[string]string) *DB {
	seeded := make(map[string]string, len(rows))
	for k, v := range rows {
		seeded[k] = v
	}
	return &DB{Tracer: tracer, rows: seeded}
}

// QueryRow looks up id inside a db.query client span.
func (db *DB) QueryRow(ctx context.Context, id string) (string, error) {
	return spanz.WithSpan(ctx, db.Tracer, "db.query",
		func(_ context.Context, span spanz.Span) (string, error) {
			span.SetAttribute("db.system", spanz.String("memory"))
			span.SetAttribute("db.statement", spanz.String("SELECT value FROM rows WHERE id = ?"))

			db.mu.RLock()
			v, ok := db.rows[id]
			db.mu.RUnlock()
			if !ok {
				return "", ErrNoRows
			}
			span.SetAttribute("db.rows_affected", spanz.Int64(1))
			return v, nil
		}, spanz.WithKind(spanz.SpanKindClient))
}

// Cache is a read-through cache client in front of a DB.
type Cache struct {
	Tracer spanz.Tracer
	DB     *DB
	items  map[string]string
	mu     sync.Mutex
}

// NewCache creates an empty cache in front of db.
func NewCache(tracer spanz.Tracer, db *DB) *Cache {
	return &Cache{Tracer: tracer, DB: db, items: make(map[string]string)}
}

// Get returns key from the cache, falling back to the DB on a miss. The DB
// span is a child of the cache span.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	return spanz.WithSpan(ctx, c.Tracer, "cache.get",
		func(ctx context.Context, span spanz.Span) (string, error) {
			span.SetAttribute("cache.key", spanz.String(key))

			c.mu.Lock()
			v, ok := c.items[key]
			c.mu.Unlock()
			span.SetAttribute("cache.hit", spanz.Bool(ok))
			if ok {
				return v, nil
			}

			span.AddEvent(spanz.NewEvent("cache.miss", spanz.NewAttributes(
				spanz.KeyValue{Key: "cache.key", Value: spanz.String(key)},
			)))
			v, err := c.DB.QueryRow(ctx, key)
			if err != nil {
				return "", err
			}

			c.mu.Lock()
			c.items[key] = v
			c.mu.Unlock()
			return v, nil
		}, spanz.WithKind(spanz.SpanKindClient))
}

// BatchGet fetches keys one after another inside a single parent span.
func (c *Cache) BatchGet(ctx context.Context, keys []string) ([]string, error) {
	return spanz.WithSpan(ctx, c.Tracer, "cache.batch_get",
		func(ctx context.Context, span spanz.Span) ([]string, error) {
			span.SetAttribute("cache.batch_size", spanz.Int64(int64(len(keys))))
			values := make([]string, 0, len(keys))
			for i, k := range keys {
				v, err := c.Get(ctx, k)
				if err != nil {
					span.SetAttribute("cache.failed_index", spanz.Int64(int64(i)))
					return nil, err
				}
				values = append(values, v)
			}
			return values, nil
		})
}
