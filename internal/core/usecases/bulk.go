// internal/core/usecases/bulk.go
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/platform/clock"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/workerpool"
)

// Valores por defecto del escaneo bulk.
const (
	DefaultBulkConcurrency = 200
	DefaultBulkStagger     = 100 * time.Millisecond

	// CleanAbuserThreshold puntuación máxima de abuso para considerar limpia una IP
	CleanAbuserThreshold = 0.0001
)

// DependencyFactory construye las dependencias de la sesión de un proxy. La
// función retornada libera sus recursos (conexiones del transporte).
type DependencyFactory func(proxy *domain.ProxyConfig) (Dependencies, func(), error)

// BulkOptions configura un escaneo bulk.
type BulkOptions struct {
	// Session plantilla de opciones; Proxy se fija por objetivo
	Session SessionOptions

	// Concurrency sesiones simultáneas
	Concurrency int

	// Stagger separación entre arranques dentro de cada tanda
	Stagger time.Duration

	// Intel consulta de reputación tras cada sesión (opcional)
	Intel ports.IntelProvider

	// MaxFraudScore marca como filtrados los resultados con abuso mayor (0 = sin filtro)
	MaxFraudScore float64

	// CleanOnly descarta todo lo que no sea veredicto limpio con abuso <= CleanAbuserThreshold
	CleanOnly bool

	Sinks    []ports.ResultSink
	Notifier ports.Notifier
	Clock    ports.Clock
	Logger   logx.Logger

	// RunID identificador del escaneo; vacío genera un UUID
	RunID string
}

// Summary resume un escaneo bulk.
type Summary struct {
	RunID    string
	Total    int
	Clean    int
	Detected int
	Filtered int
	Errors   int
	Skipped  int

	AbuserScoreSum float64
	AbuserLookups  int

	Elapsed time.Duration
}

// AvgAbuserScore media de las puntuaciones de abuso consultadas.
func (s Summary) AvgAbuserScore() (float64, bool) {
	if s.AbuserLookups == 0 {
		return 0, false
	}
	return s.AbuserScoreSum / float64(s.AbuserLookups), true
}

// BulkRunner ejecuta una sesión independiente por objetivo sobre el worker pool.
type BulkRunner struct {
	factory DependencyFactory
	opts    BulkOptions
	pool    *workerpool.WorkerPool
	logger  logx.Logger
}

// NewBulkRunner crea un runner bulk.
func NewBulkRunner(factory DependencyFactory, opts BulkOptions) (*BulkRunner, error) {
	if factory == nil {
		return nil, errors.New("bulk: dependency factory is required")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultBulkConcurrency
	}
	if opts.Stagger < 0 {
		opts.Stagger = 0
	} else if opts.Stagger == 0 {
		opts.Stagger = DefaultBulkStagger
	}
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = logx.NewSilent()
	}
	if opts.RunID == "" {
		opts.RunID = uuid.NewString()
	}

	return &BulkRunner{
		factory: factory,
		opts:    opts,
		pool: workerpool.NewWorkerPool(workerpool.WorkerPoolConfig{
			Workers: opts.Concurrency,
			Logger:  opts.Logger,
		}),
		logger: opts.Logger.With("component", "bulk", "run_id", opts.RunID),
	}, nil
}

// RunID retorna el identificador del escaneo.
func (b *BulkRunner) RunID() string {
	return b.opts.RunID
}

// Run escanea targets y entrega cada resultado a los sinks en cuanto termina.
// Si ctx se cancela, los objetivos pendientes se cuentan como Skipped y se
// retorna ctx.Err() junto al resumen parcial.
func (b *BulkRunner) Run(ctx context.Context, targets []*domain.ProxyConfig) (Summary, error) {
	summary := Summary{RunID: b.opts.RunID, Total: len(targets)}
	start := time.Now()

	tasks := make([]workerpool.Task, len(targets))
	for i, proxy := range targets {
		tasks[i] = &bulkTask{runner: b, index: i, proxy: proxy}
	}

	b.logger.Info("bulk scan started",
		"targets", len(targets),
		"concurrency", b.opts.Concurrency,
		"intel", b.opts.Intel != nil,
	)

	done := 0
	b.pool.Run(ctx, tasks, func(res workerpool.TaskResult) {
		task := res.Task.(*bulkTask)
		if res.Skipped || task.record == nil {
			summary.Skipped++
			return
		}
		done++
		b.collect(ctx, &summary, task.record, done)
	})

	summary.Elapsed = time.Since(start)
	b.logger.Info("bulk scan finished",
		"clean", summary.Clean,
		"detected", summary.Detected,
		"filtered", summary.Filtered,
		"errors", summary.Errors,
		"skipped", summary.Skipped,
		"duration_ms", summary.Elapsed.Milliseconds(),
	)
	return summary, ctx.Err()
}

// collect aplica filtros y contadores y reenvía el registro. Se llama desde una
// sola goroutine.
func (b *BulkRunner) collect(ctx context.Context, summary *Summary, rec *domain.ScanRecord, done int) {
	if rec.Intel != nil {
		summary.AbuserScoreSum += rec.Intel.AbuserScore
		summary.AbuserLookups++
	}

	dropped := false
	switch {
	case b.opts.CleanOnly && !isClean(rec):
		rec.Filtered = true
		dropped = true
	case b.opts.MaxFraudScore > 0 && rec.Intel != nil && rec.Intel.AbuserScore > b.opts.MaxFraudScore:
		rec.Filtered = true
	}

	switch {
	case rec.Filtered:
		summary.Filtered++
	case rec.Err != nil:
		summary.Errors++
	case rec.Report.Verdict.Classification.IsDetected():
		summary.Detected++
	default:
		summary.Clean++
	}

	if !dropped {
		for _, sink := range b.opts.Sinks {
			if err := sink.Write(ctx, rec); err != nil {
				b.logger.Warn("result sink failed", "index", rec.Index, "error", err.Error())
			}
		}
	}

	if b.opts.Notifier != nil {
		event := ports.NewEvent(ports.EventTypeTargetFinished, "bulk", ports.TargetFinishedEvent{
			Record: rec,
			Done:   done,
			Total:  summary.Total,
		})
		event.Target = rec.Proxy
		if rec.Err != nil {
			event.Severity = ports.EventSeverityWarning
		}
		if err := b.opts.Notifier.Notify(context.WithoutCancel(ctx), event); err != nil {
			b.logger.Debug("notifier error", "error", err.Error())
		}
	}
}

// isClean: veredicto sin detección y reputación consultada por debajo del umbral.
func isClean(rec *domain.ScanRecord) bool {
	if !rec.OK() || rec.Report.Verdict.Classification.IsDetected() {
		return false
	}
	return rec.Intel != nil && rec.Intel.AbuserScore <= CleanAbuserThreshold
}

// bulkTask adapta un objetivo a workerpool.Task.
type bulkTask struct {
	runner *BulkRunner
	index  int
	proxy  *domain.ProxyConfig
	record *domain.ScanRecord
}

func (t *bulkTask) Name() string  { return fmt.Sprintf("target-%d", t.index) }
func (t *bulkTask) Priority() int { return 0 }

func (t *bulkTask) Execute(ctx context.Context) error {
	b := t.runner
	stagger := time.Duration(t.index%b.opts.Concurrency) * b.opts.Stagger
	if stagger > 0 {
		if err := b.opts.Clock.Sleep(ctx, stagger); err != nil {
			return err
		}
	}

	start := time.Now()
	rec := &domain.ScanRecord{
		RunID: b.opts.RunID,
		Index: t.index,
		Proxy: t.proxy.Masked(),
	}
	t.record = rec

	deps, release, err := b.factory(t.proxy)
	if err != nil {
		rec.Err = err
		rec.Elapsed = time.Since(start)
		return err
	}
	defer release()

	deps.Intel = nil
	deps.Notifier = nil
	if deps.Clock == nil {
		deps.Clock = b.opts.Clock
	}
	if deps.Logger == nil {
		deps.Logger = b.logger
	}

	opts := b.opts.Session
	opts.Proxy = t.proxy
	session, err := NewSession(opts, deps)
	if err != nil {
		rec.Err = err
		rec.Elapsed = time.Since(start)
		return err
	}

	rec.Report, rec.Err = session.Run(ctx)

	if b.opts.Intel != nil && ctx.Err() == nil {
		intel, err := b.opts.Intel.Lookup(ctx, deps.Meter.Wrap(deps.Transport), deps.Profile)
		if err != nil {
			b.logger.Debug("ip intel lookup failed", "index", t.index, "error", err.Error())
		} else {
			rec.Intel = intel
			if rec.Report != nil {
				rec.Report.Intel = intel
			}
		}
	}

	rec.Elapsed = time.Since(start)
	return rec.Err
}
