package observability

import (
	"strconv"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu             sync.Mutex
	requestCount   map[string]int64
	errorCount     map[string]int64
	sessionCount   map[string]int64
	broadcastCount map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount:   make(map[string]int64),
		errorCount:     make(map[string]int64),
		sessionCount:   make(map[string]int64),
		broadcastCount: make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordSessionEvent counts logins and logouts per role.
func (m *Metrics) RecordSessionEvent(event, role string) {
	if m == nil {
		return
	}
	key := event + "|" + role
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessionCount[key]++
}

// RecordBroadcast counts messages sent or received per channel and type.
func (m *Metrics) RecordBroadcast(direction, channel, msgType string) {
	if m == nil {
		return
	}
	key := direction + "|" + channel + "|" + msgType
	m.mu.Lock()
	defer m.mu.Unlock()
	m.broadcastCount[key]++
}

// BroadcastCount reports the counter for one direction/channel/type triple.
func (m *Metrics) BroadcastCount(direction, channel, msgType string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcastCount[direction+"|"+channel+"|"+msgType]
}
