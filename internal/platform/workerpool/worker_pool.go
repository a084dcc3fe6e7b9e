// internal/platform/workerpool/worker_pool.go
package workerpool

import (
	"context"
	"sync"
	"time"

	"proxylens/internal/platform/logx"
)

// Task representa una tarea a ejecutar en el worker pool.
type Task interface {
	// Execute ejecuta la tarea
	Execute(ctx context.Context) error

	// Priority retorna la prioridad de la tarea (mayor = más prioritario)
	Priority() int

	// Name retorna el nombre de la tarea
	Name() string
}

// Scheduler define el orden en el que se despachan las tareas.
type Scheduler interface {
	Schedule(tasks []Task) []Task
	Name() string
}

// WorkerPool ejecuta lotes de tareas con un máximo de workers en paralelo y
// entrega cada resultado en cuanto termina.
type WorkerPool struct {
	workers   int
	scheduler Scheduler
	logger    logx.Logger
}

// TaskResult representa el resultado de una tarea.
type TaskResult struct {
	Task     Task
	Error    error
	Duration time.Duration

	// Skipped indica que la tarea no llegó a ejecutarse (contexto cancelado)
	Skipped bool
}

// WorkerPoolConfig configura el worker pool.
type WorkerPoolConfig struct {
	Workers   int
	Scheduler Scheduler
	Logger    logx.Logger
}

// NewWorkerPool crea un nuevo worker pool.
func NewWorkerPool(cfg WorkerPoolConfig) *WorkerPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Scheduler == nil {
		cfg.Scheduler = NewFIFOScheduler()
	}
	if cfg.Logger == nil {
		cfg.Logger = logx.NewSilent()
	}

	return &WorkerPool{
		workers:   cfg.Workers,
		scheduler: cfg.Scheduler,
		logger:    cfg.Logger.With("component", "worker-pool"),
	}
}

// Run ejecuta tasks y llama a onResult (desde una sola goroutine) por cada una,
// incluidas las que no llegaron a empezar porque ctx se canceló. Retorna cuando
// todas tienen resultado.
func (wp *WorkerPool) Run(ctx context.Context, tasks []Task, onResult func(TaskResult)) WorkerPoolStats {
	stats := WorkerPoolStats{Workers: wp.workers, SchedulerName: wp.scheduler.Name(), Submitted: len(tasks)}
	if len(tasks) == 0 {
		return stats
	}
	start := time.Now()

	scheduled := wp.scheduler.Schedule(tasks)
	workers := wp.workers
	if workers > len(scheduled) {
		workers = len(scheduled)
	}

	wp.logger.Info("starting worker pool",
		"workers", workers,
		"tasks", len(scheduled),
		"scheduler", wp.scheduler.Name(),
	)

	queue := make(chan Task)
	results := make(chan TaskResult, len(scheduled))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go wp.worker(ctx, i, queue, results, &wg)
	}

	go func() {
		defer close(queue)
		for i, task := range scheduled {
			select {
			case queue <- task:
			case <-ctx.Done():
				for _, skipped := range scheduled[i:] {
					results <- TaskResult{Task: skipped, Error: ctx.Err(), Skipped: true}
				}
				return
			}
		}
	}()

	for i := 0; i < len(scheduled); i++ {
		r := <-results
		switch {
		case r.Skipped:
			stats.Skipped++
		case r.Error != nil:
			stats.Failed++
		default:
			stats.Completed++
		}
		if onResult != nil {
			onResult(r)
		}
	}
	wg.Wait()

	stats.Elapsed = time.Since(start)
	wp.logger.Info("worker pool finished",
		"completed", stats.Completed,
		"failed", stats.Failed,
		"skipped", stats.Skipped,
		"duration_ms", stats.Elapsed.Milliseconds(),
	)
	return stats
}

func (wp *WorkerPool) worker(ctx context.Context, id int, queue <-chan Task, results chan<- TaskResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for task := range queue {
		start := time.Now()
		wp.logger.Debug("executing task", "worker_id", id, "task", task.Name(), "priority", task.Priority())

		err := task.Execute(ctx)
		duration := time.Since(start)

		wp.logger.Debug("task completed",
			"worker_id", id,
			"task", task.Name(),
			"duration_ms", duration.Milliseconds(),
			"error", err != nil,
		)
		results <- TaskResult{Task: task, Error: err, Duration: duration}
	}
}

// WorkerPoolStats resume una ejecución de Run.
type WorkerPoolStats struct {
	Workers       int
	SchedulerName string
	Submitted     int
	Completed     int
	Failed        int
	Skipped       int
	Elapsed       time.Duration
}
