// internal/core/ports/notifier.go
package ports

import (
	"context"
	"time"

	"proxylens/internal/core/domain"
)

// Notifier es el port para notificaciones de eventos de la sesión.
// Implementa el patrón Observer para desacoplar la lógica de negocio
// de la presentación (spinners, barras de progreso, logs).
type Notifier interface {
	// Notify envía una notificación para un evento
	Notify(ctx context.Context, event Event) error

	// Close cierra el notifier y libera recursos
	Close() error
}

// Event representa un evento de la sesión.
type Event struct {
	// Type tipo de evento
	Type EventType

	// Timestamp momento del evento
	Timestamp time.Time

	// Source componente que generó el evento
	Source string

	// Target proxy (enmascarado) de la sesión
	Target string

	// Data datos específicos del evento
	Data interface{}

	// Severity severidad del evento
	Severity EventSeverity
}

// EventType define los tipos de eventos del sistema.
type EventType string

const (
	// Session events
	EventTypeSessionStarted   EventType = "session.started"
	EventTypeSessionCompleted EventType = "session.completed"
	EventTypeSessionFailed    EventType = "session.failed"

	// Phase events
	EventTypePhaseStarted   EventType = "phase.started"
	EventTypePhaseCompleted EventType = "phase.completed"

	// Probe / poll events
	EventTypeProbeCompleted EventType = "probe.completed"
	EventTypePollTick       EventType = "poll.tick"

	// Bulk events
	EventTypeTargetFinished EventType = "bulk.target_finished"
)

// EventSeverity define la severidad de un evento.
type EventSeverity string

const (
	EventSeverityInfo    EventSeverity = "info"
	EventSeverityWarning EventSeverity = "warning"
	EventSeverityError   EventSeverity = "error"
)

// NewEvent crea un nuevo evento.
func NewEvent(eventType EventType, source string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    source,
		Data:      data,
		Severity:  EventSeverityInfo,
	}
}

// PhaseEvent datos de inicio/fin de fase.
type PhaseEvent struct {
	Phase    domain.Phase
	Duration time.Duration
}

// ProbeEvent datos de un probe terminado.
type ProbeEvent struct {
	Measurement domain.LatencyMeasurement
}

// PollEvent datos de un poll de la fase 4.
type PollEvent struct {
	Attempt int
	Delay   time.Duration
	Pending bool
}

// SessionFinishedEvent datos del final de una sesión.
type SessionFinishedEvent struct {
	Report *domain.Report
	Err    error
}

// TargetFinishedEvent datos de un objetivo bulk terminado.
type TargetFinishedEvent struct {
	Record *domain.ScanRecord
	Done   int
	Total  int
}
