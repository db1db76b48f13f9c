package observability

import (
	"fmt"
	"sync"
	"time"
)

// Metrics keeps in-process request and error counters keyed by route, method,
// and outcome. Counters reset on restart; exposition to a scrape endpoint is
// out of scope here.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]int64
	errors   map[string]int64
}

// NewMetrics initializes empty counters.
func NewMetrics() *Metrics {
	return &Metrics{
		requests: make(map[string]int64),
		errors:   make(map[string]int64),
	}
}

// RecordRequest counts a completed request under its route outcome.
func (m *Metrics) RecordRequest(path, method string, status int, _ time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[requestKey(path, method, status)]++
}

// RecordError counts a request that resolved to a domain error code.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[errorKey(path, method, code)]++
}

// RequestCount returns how many requests finished with the given outcome.
func (m *Metrics) RequestCount(path, method string, status int) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[requestKey(path, method, status)]
}

// ErrorCount returns how many requests resolved to the given error code.
func (m *Metrics) ErrorCount(path, method, code string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[errorKey(path, method, code)]
}

func requestKey(path, method string, status int) string {
	return fmt.Sprintf("%s %s %d", method, path, status)
}

func errorKey(path, method, code string) string {
	return fmt.Sprintf("%s %s %s", method, path, code)
}
