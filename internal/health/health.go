// Package health provides process-wide health counters and error recording.
//
// The Monitor tracks request/error totals for the lifetime of the process;
// the Recorder captures failure snapshots with context and optionally
// persists them through an archive sink.
package health

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mbarki/trendpilot/internal/models"
)

// Health configuration constants
const (
	// DegradedErrorRatePercent is the error-rate threshold for the degraded label
	DegradedErrorRatePercent = 5.0
	// RecentErrorsKept is how many error snapshots the in-memory ring retains
	RecentErrorsKept = 100
	// StatusHealthy labels a process below the degraded threshold
	StatusHealthy = "healthy"
	// StatusDegraded labels a process at or above the degraded threshold
	StatusDegraded = "degraded"
)

// ErrorSink persists error records beyond the in-memory ring.
type ErrorSink interface {
	RecordError(rec models.ErrorRecord) error
}

// Monitor holds monotonically increasing process health counters.
// Counters are never reset except by process restart.
type Monitor struct {
	mu           sync.Mutex
	startTime    time.Time
	requestCount int64
	errorCount   int64
	lastError    *models.ErrorRecord
}

// NewMonitor creates a Monitor anchored at the current time.
func NewMonitor() *Monitor {
	return &Monitor{startTime: time.Now()}
}

// RecordRequest increments the request counter.
func (m *Monitor) RecordRequest() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount++
}

// RecordError increments the error counter and snapshots the error.
func (m *Monitor) RecordError(rec models.ErrorRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount++
	m.lastError = &rec
}

// ErrorRate returns the error rate as a percentage of recorded requests.
func (m *Monitor) ErrorRate() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errorRateLocked()
}

func (m *Monitor) errorRateLocked() float64 {
	if m.requestCount == 0 {
		return 0
	}
	return float64(m.errorCount) / float64(m.requestCount) * 100
}

// Status returns the aggregate health payload.
func (m *Monitor) Status() models.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	rate := m.errorRateLocked()
	label := StatusHealthy
	if rate >= DegradedErrorRatePercent {
		label = StatusDegraded
	}
	return models.HealthStatus{
		Uptime:           formatUptime(time.Since(m.startTime)),
		TotalRequests:    m.requestCount,
		TotalErrors:      m.errorCount,
		ErrorRatePercent: rate,
		LastError:        m.lastError,
		Status:           label,
	}
}

// formatUptime renders a duration as a compact human string.
func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
}

// Recorder captures failures with structured context. Snapshots go to the
// in-memory ring, the process monitor, and the archive sink when configured.
type Recorder struct {
	mu      sync.Mutex
	monitor *Monitor
	sink    ErrorSink
	recent  []models.ErrorRecord
}

// NewRecorder creates a Recorder feeding the given monitor. The sink may be
// nil, in which case records stay in memory only.
func NewRecorder(monitor *Monitor, sink ErrorSink) *Recorder {
	return &Recorder{monitor: monitor, sink: sink}
}

// Record logs and stores an error snapshot with context.
func (r *Recorder) Record(err error, context map[string]string) {
	if err == nil {
		return
	}
	rec := models.ErrorRecord{
		ErrorType: fmt.Sprintf("%T", err),
		Message:   err.Error(),
		Context:   context,
		Time:      time.Now(),
	}
	slog.Error("Recorded failure", "error", err, "context", context)

	r.mu.Lock()
	r.recent = append(r.recent, rec)
	if len(r.recent) > RecentErrorsKept {
		r.recent = r.recent[len(r.recent)-RecentErrorsKept:]
	}
	r.mu.Unlock()

	r.monitor.RecordError(rec)

	if r.sink != nil {
		if sinkErr := r.sink.RecordError(rec); sinkErr != nil {
			slog.Error("Failed to persist error record", "error", sinkErr)
		}
	}
}

// Recent returns up to n of the most recent error snapshots, newest last.
func (r *Recorder) Recent(n int) []models.ErrorRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n <= 0 || len(r.recent) == 0 {
		return nil
	}
	if n > len(r.recent) {
		n = len(r.recent)
	}
	out := make([]models.ErrorRecord, n)
	copy(out, r.recent[len(r.recent)-n:])
	return out
}
