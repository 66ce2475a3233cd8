package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

// MaxOrigins bounds the per-origin series. Origins first seen after the
// limit is reached are folded into OverflowOrigin.
const (
	MaxOrigins     = 100
	OverflowOrigin = "(other)"
)

type Metrics struct {
	mutex         sync.RWMutex
	requests      int64
	sticky        int64
	failures      map[string]int64
	selections    map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	origins       map[string]struct{}
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests  int64                    `json:"total_requests"`
	StickyRequests int64                    `json:"sticky_requests"`
	Failures       map[string]int64         `json:"failures"`
	Uptime         time.Duration            `json:"uptime"`
	Origins        map[string]OriginMetrics `json:"origins"`
	Engine         string                   `json:"engine"`
	Breakers       map[string]string        `json:"breakers,omitempty"`
}

type OriginMetrics struct {
	Selections  int64         `json:"selections"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

func NewMetrics() *Metrics {
	return &Metrics{
		failures:      make(map[string]int64),
		selections:    make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		origins:       make(map[string]struct{}),
		startTime:     time.Now(),
	}
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requests++
}

func (m *Metrics) RecordSelection(origin string, sticky bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	origin = m.track(origin)
	m.selections[origin]++
	if sticky {
		m.sticky++
	}
}

func (m *Metrics) RecordFailure(stage string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.failures[stage]++
}

func (m *Metrics) RecordResponse(origin string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	origin = m.track(origin)

	m.responseTimes[origin] = append(m.responseTimes[origin], duration)
	if len(m.responseTimes[origin]) > maxSamples {
		m.responseTimes[origin] = m.responseTimes[origin][1:]
	}

	if m.statusCodes[origin] == nil {
		m.statusCodes[origin] = make(map[int]int64)
	}
	m.statusCodes[origin][statusCode]++
}

func (m *Metrics) Snapshot(engine string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests:  m.requests,
		StickyRequests: m.sticky,
		Failures:       make(map[string]int64, len(m.failures)),
		Uptime:         time.Since(m.startTime),
		Origins:        make(map[string]OriginMetrics),
		Engine:         engine,
	}

	for stage, n := range m.failures {
		snap.Failures[stage] = n
	}

	for o := range m.origins {
		om := OriginMetrics{
			Selections:  m.selections[o],
			StatusCodes: make(map[int]int64, len(m.statusCodes[o])),
		}
		for code, n := range m.statusCodes[o] {
			om.StatusCodes[code] = n
		}

		if durations := m.responseTimes[o]; len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

			om.AvgResponse = average(sorted)
			om.P50Response = percentile(sorted, 0.50)
			om.P95Response = percentile(sorted, 0.95)
			om.P99Response = percentile(sorted, 0.99)
		}

		snap.Origins[o] = om
	}

	return snap
}

// track returns the key origin is recorded under. Callers hold the write lock.
func (m *Metrics) track(origin string) string {
	if _, ok := m.origins[origin]; ok {
		return origin
	}
	if len(m.origins) >= MaxOrigins {
		origin = OverflowOrigin
	}
	m.origins[origin] = struct{}{}
	return origin
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
