package spanz

import (
	"time"
)

// Option configures span start, RecordError, End and WithSpan.
// Each operation reads only the fields it understands.
type Option func(*spanConfig)

type spanConfig struct {
	timestamp  time.Time
	parent     *SpanContext
	attributes Attributes
	links      []SpanContext
	kind       SpanKind
}

func newSpanConfig(opts []Option) spanConfig {
	var cfg spanConfig
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithKind sets the kind of a started span. Defaults to SpanKindInternal.
func WithKind(kind SpanKind) Option {
	return func(c *spanConfig) { c.kind = kind }
}

// WithTimestamp overrides "now" for span start, End and RecordError.
func WithTimestamp(t time.Time) Option {
	return func(c *spanConfig) { c.timestamp = t }
}

// WithParent sets an explicit parent, taking precedence over the ambient
// context in Start and WithSpan.
func WithParent(parent SpanContext) Option {
	return func(c *spanConfig) { c.parent = &parent }
}

// WithAttributes supplies initial span attributes on start, or extra
// exception attributes for RecordError.
func WithAttributes(attrs Attributes) Option {
	return func(c *spanConfig) { c.attributes.Merge(attrs) }
}

// WithLinks adds causal links on span start.
func WithLinks(links ...SpanContext) Option {
	return func(c *spanConfig) { c.links = append(c.links, links...) }
}
