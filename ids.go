package spanz

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"time"
)

const (
	// TraceIDLength is the width of a trace identifier in hex characters.
	TraceIDLength = 32
	// SpanIDLength is the width of a span identifier in hex characters.
	SpanIDLength = 16
)

// NewTraceID returns 32 hex characters drawn from 128 random bits.
func NewTraceID() string {
	return randomHex(TraceIDLength / 2)
}

// NewSpanID returns 16 hex characters drawn from 64 random bits.
func NewSpanID() string {
	return randomHex(SpanIDLength / 2)
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a time-based ID of the same width if crypto/rand fails.
		return fallbackHex(n * 2)
	}
	return hex.EncodeToString(bytes)
}

func fallbackHex(width int) string {
	id := strconv.FormatInt(time.Now().UnixNano(), 16)
	for len(id) < width {
		id = "0" + id
	}
	return id[len(id)-width:]
}
