package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/preston-56/lms-backend/internal/domain"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	batchRuns    map[domain.RunStatus]int64
	notified     int64
	failed       int64
	diagnostics  int64
	lastRun      *domain.RunResult
}

// BatchSnapshot is a read-only copy of the batch counters.
type BatchSnapshot struct {
	Runs          map[domain.RunStatus]int64 `json:"runs"`
	Notified      int64                      `json:"notified"`
	Failed        int64                      `json:"failed"`
	DiagnosticRun int64                      `json:"diagnostic_runs"`
	LastRun       *domain.RunResult          `json:"last_run,omitempty"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		batchRuns:    make(map[domain.RunStatus]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := pathKey(path, method, status)
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

// RecordBatch accumulates the outcome of a batch run.
func (m *Metrics) RecordBatch(result domain.RunResult) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchRuns[result.Status]++
	m.notified += int64(result.Notified)
	m.failed += int64(result.Failed)
	last := result
	m.lastRun = &last
}

// RecordDiagnostics counts generated diagnostics reports.
func (m *Metrics) RecordDiagnostics() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.diagnostics++
}

// Batch returns a snapshot of the batch counters.
func (m *Metrics) Batch() BatchSnapshot {
	if m == nil {
		return BatchSnapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	runs := make(map[domain.RunStatus]int64, len(m.batchRuns))
	for k, v := range m.batchRuns {
		runs[k] = v
	}
	return BatchSnapshot{
		Runs:          runs,
		Notified:      m.notified,
		Failed:        m.failed,
		DiagnosticRun: m.diagnostics,
		LastRun:       m.lastRun,
	}
}

func pathKey(path, method string, status int) string {
	return path + "|" + method + "|" + strconv.Itoa(status)
}
