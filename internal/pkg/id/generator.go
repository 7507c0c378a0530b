package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceIDLength is the length of a W3C-compliant trace ID (32 hex chars = 16 bytes)
const TraceIDLength = 16

// SpanIDLength is the length of a W3C-compliant span ID (16 hex chars = 8 bytes)
const SpanIDLength = 8

var (
	randReader = rand.Reader

	traceIDPool = sync.Pool{
		New: func() any {
			b := make([]byte, TraceIDLength)
			return &b
		},
	}

	spanIDPool = sync.Pool{
		New: func() any {
			b := make([]byte, SpanIDLength)
			return &b
		},
	}
)

// Generator produces identifiers for records. Tests swap it for a deterministic one.
type Generator interface {
	RecordID() string
	TraceID() string
}

// Default is the random generator used when none is configured.
var Default Generator = randomGenerator{}

type randomGenerator struct{}

func (randomGenerator) RecordID() string { return NewUUID() }
func (randomGenerator) TraceID() string  { return NewTraceID() }

// NewTraceID generates a new W3C-compliant trace ID (32 hex characters)
func NewTraceID() string {
	bufPtr := traceIDPool.Get().(*[]byte)
	defer traceIDPool.Put(bufPtr)
	buf := *bufPtr

	if _, err := randReader.Read(buf); err != nil {
		// Fallback to time-based ID if random fails
		return fmt.Sprintf("%016x%016x", time.Now().UnixNano(), time.Now().UnixNano())
	}

	return hex.EncodeToString(buf)
}

// NewSpanID generates a new W3C-compliant span ID (16 hex characters)
func NewSpanID() string {
	bufPtr := spanIDPool.Get().(*[]byte)
	defer spanIDPool.Put(bufPtr)
	buf := *bufPtr

	if _, err := randReader.Read(buf); err != nil {
		return fmt.Sprintf("%016x", time.Now().UnixNano())
	}

	return hex.EncodeToString(buf)
}

// NewUUID generates a new UUID v4
func NewUUID() string {
	return uuid.New().String()
}

// ValidateTraceID validates a trace ID format
func ValidateTraceID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// ValidateSpanID validates a span ID format
func ValidateSpanID(id string) bool {
	if len(id) != 16 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}

// ValidateUUID validates a UUID format
func ValidateUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Sequence is a deterministic Generator: rec-1, rec-2, ... and a fixed trace ID per call.
type Sequence struct {
	mu   sync.Mutex
	next int
}

// RecordID returns the next sequential record ID.
func (s *Sequence) RecordID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	return fmt.Sprintf("rec-%d", s.next)
}

// TraceID returns a fresh random trace ID.
func (s *Sequence) TraceID() string {
	return NewTraceID()
}
