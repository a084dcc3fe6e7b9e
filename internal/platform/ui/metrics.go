// internal/platform/ui/metrics.go
package ui

import (
	"sync"
	"time"

	"proxylens/internal/core/domain"
)

// BulkMetrics recopila contadores y ritmo de un escaneo bulk en tiempo real
type BulkMetrics struct {
	mu  sync.RWMutex
	now func() time.Time

	start time.Time
	total int
	done  int

	byStatus map[Status]int
	elapsed  time.Duration // suma de duraciones de sesión
}

// ProgressMetrics representa métricas de progreso para UI
type ProgressMetrics struct {
	Done          int
	Total         int
	Percentage    float64
	Rate          float64 // objetivos/segundo
	EstimatedTime time.Duration
	AvgSession    time.Duration
	Clean         int
	Detected      int
	Filtered      int
	Errors        int
}

// NewBulkMetrics crea un collector para total objetivos
func NewBulkMetrics(total int) *BulkMetrics {
	return newBulkMetrics(total, time.Now)
}

func newBulkMetrics(total int, now func() time.Time) *BulkMetrics {
	return &BulkMetrics{
		now:      now,
		start:    now(),
		total:    total,
		byStatus: make(map[Status]int),
	}
}

// Record registra un objetivo terminado
func (m *BulkMetrics) Record(rec *domain.ScanRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.done++
	m.byStatus[RecordStatus(rec)]++
	m.elapsed += rec.Elapsed
}

// Snapshot calcula las métricas actuales
func (m *BulkMetrics) Snapshot() ProgressMetrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pm := ProgressMetrics{
		Done:     m.done,
		Total:    m.total,
		Clean:    m.byStatus[StatusSuccess],
		Detected: m.byStatus[StatusDetected],
		Filtered: m.byStatus[StatusFiltered],
		Errors:   m.byStatus[StatusError],
	}

	if m.total > 0 {
		pm.Percentage = float64(m.done) / float64(m.total) * 100
	}
	if m.done > 0 {
		pm.AvgSession = m.elapsed / time.Duration(m.done)
	}

	wall := m.now().Sub(m.start)
	if wall > 0 && m.done > 0 {
		pm.Rate = float64(m.done) / wall.Seconds()
		if remaining := m.total - m.done; remaining > 0 {
			pm.EstimatedTime = wall * time.Duration(remaining) / time.Duration(m.done)
		}
	}
	return pm
}
