// cmd/proxylens/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // zonas IANA sin depender del sistema

	"golang.org/x/term"

	"proxylens/internal/adapters/output"
	"proxylens/internal/adapters/store"
	"proxylens/internal/core/domain"
	"proxylens/internal/core/ports"
	"proxylens/internal/core/usecases"
	"proxylens/internal/platform/config"
	"proxylens/internal/platform/logx"
	"proxylens/internal/platform/ui"
	"proxylens/internal/targets"
)

var (
	// Rellenables con -ldflags en build
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	// 1. Load centralized config
	cfg, err := config.Load(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintln(os.Stderr, "Try: proxylens -h for help")
		return exitUsage
	}
	if cfg.ShowHelp {
		config.PrintHelp(os.Stdout)
		return exitOK
	}
	if cfg.PrintVersion {
		config.PrintVersion(os.Stdout, version, commit, date)
		return exitOK
	}

	// 2. Shared logger
	logger, closeLog := logx.NewWithOptions(logx.Options{
		Level: logx.ParseLevel(cfg.Logging.Level),
		File:  cfg.Logging.File,
		JSON:  cfg.Logging.JSON,
	})
	defer closeLog()

	logger.Debug("proxylens starting",
		"version", version,
		"commit", commit,
		"bulk", cfg.BulkMode(),
		"browser", cfg.Session.Browser,
		"engine", cfg.Session.Engine,
	)

	// 3. Context and signals for clean shutdown
	ctx, cancel := rootContextWithSignals(cfg.Timeout())
	defer cancel()

	// 4. Shared services: profile, engine, sealer, geo, intel
	app, err := newApp(cfg, logger)
	if err != nil {
		logger.Err(err, "phase", "setup")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	defer app.Close()

	// 5. Presenter
	format := ui.LogFormatText
	if cfg.Logging.JSON {
		format = ui.LogFormatJSON
	}
	mode := ui.SelectMode(cfg.JSON, term.IsTerminal(int(os.Stderr.Fd())))
	presenter := ui.New(mode, cfg.Verbose, os.Stderr, format)
	defer presenter.Close()

	if cfg.BulkMode() {
		return runBulk(ctx, cfg, app, presenter, logger)
	}
	return runSingle(ctx, cfg, app, presenter, logger)
}

// runSingle ejecuta una sesión y muestra el informe.
func runSingle(ctx context.Context, cfg config.Config, app *app, presenter ui.Presenter, logger logx.Logger) int {
	var proxy *domain.ProxyConfig
	if cfg.Proxy != "" {
		p, err := domain.ParseProxy(cfg.Proxy)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitUsage
		}
		proxy = p
	}

	deps, release, err := app.dependencies(proxy)
	if err != nil {
		logger.Err(err, "phase", "transport")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer release()
	deps.Intel = app.intel
	deps.Notifier = presenter

	session, err := usecases.NewSession(app.sessionOptions(proxy), deps)
	if err != nil {
		logger.Err(err, "phase", "session-build")
		return exitFailure
	}

	presenter.Start(ui.RunInfo{
		Proxy:          proxyLabel(proxy),
		Profile:        app.profile.Name(),
		Engine:         cfg.Session.Engine,
		TimeoutSeconds: cfg.TimeoutS,
		Intel:          app.intel != nil,
	})

	start := time.Now()
	report, runErr := session.Run(ctx)
	stats := ui.RunStats{Duration: time.Since(start), Total: 1}

	if runErr != nil {
		stats.Errors = 1
		presenter.Finish(stats)
		logger.Err(runErr, "phase", "run", "kind", domain.KindName(runErr))
		if cfg.JSON {
			writeErrorJSON(os.Stdout, proxy, runErr)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
		}
		return exitFailure
	}

	if report.Verdict.Classification.IsDetected() {
		stats.Detected = 1
	} else {
		stats.Clean = 1
	}
	presenter.Finish(stats)

	if err := writeReport(os.Stdout, cfg, report); err != nil {
		logger.Err(err, "phase", "output")
		return exitFailure
	}
	return exitOK
}

// runBulk escanea la lista de proxies de --file.
func runBulk(ctx context.Context, cfg config.Config, app *app, presenter ui.Presenter, logger logx.Logger) int {
	list, warnings, err := targets.ParseFile(cfg.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}
	for _, w := range warnings {
		presenter.Warning(fmt.Sprintf("skipping %v", w))
	}
	if len(list) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no valid proxies in %s\n", cfg.File)
		return exitUsage
	}

	sinks, db, err := openSinks(ctx, cfg, app.intel != nil, logger)
	if err != nil {
		logger.Err(err, "phase", "output")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.Warn("failed to close sink", "error", err.Error())
			}
		}
	}()

	runner, err := usecases.NewBulkRunner(app.dependencies, usecases.BulkOptions{
		Session:       app.sessionOptions(nil),
		Concurrency:   cfg.Bulk.Concurrency,
		Stagger:       cfg.Bulk.Stagger,
		Intel:         app.intel,
		MaxFraudScore: cfg.Bulk.MaxFraudScore,
		CleanOnly:     cfg.Bulk.Clean,
		Sinks:         sinks,
		Notifier:      presenter,
		Logger:        logger,
	})
	if err != nil {
		logger.Err(err, "phase", "bulk-build")
		return exitFailure
	}

	presenter.Start(ui.RunInfo{
		Targets:        len(list),
		Profile:        app.profile.Name(),
		Engine:         cfg.Session.Engine,
		Concurrency:    cfg.Bulk.Concurrency,
		TimeoutSeconds: cfg.TimeoutS,
		Intel:          app.intel != nil,
		MaxFraudScore:  cfg.Bulk.MaxFraudScore,
	})

	summary, runErr := runner.Run(ctx, list)
	presenter.Finish(ui.RunStats{
		Duration: summary.Elapsed,
		Total:    summary.Total,
		Clean:    summary.Clean,
		Detected: summary.Detected,
		Filtered: summary.Filtered,
		Errors:   summary.Errors,
		Skipped:  summary.Skipped,
	})

	if db != nil {
		if err := db.SaveSummary(context.WithoutCancel(ctx), summary); err != nil {
			logger.Warn("failed to save run summary", "error", err.Error())
		}
	}
	if !cfg.JSON {
		output.RenderSummary(os.Stderr, summary)
	}

	if runErr != nil {
		logger.Err(runErr, "phase", "run", "run_id", summary.RunID, "skipped", summary.Skipped)
		return exitFailure
	}
	return exitOK
}

// openSinks abre los destinos de resultados configurados. Con --json los
// resultados también se emiten como JSON lines por stdout.
func openSinks(ctx context.Context, cfg config.Config, withIntel bool, logger logx.Logger) ([]ports.ResultSink, *store.Store, error) {
	var (
		sinks []ports.ResultSink
		db    *store.Store
	)
	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if cfg.Output.CSV != "" {
		csvSink, err := output.NewCSVSink(cfg.Output.CSV, withIntel, logger)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.Output.JSONL != "" {
		jsonl, err := output.NewJSONLSink(cfg.Output.JSONL, cfg.Bulk.MaxFraudScore, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, jsonl)
	}
	if cfg.JSON {
		sinks = append(sinks, output.NewJSONLWriter(os.Stdout, cfg.Bulk.MaxFraudScore, logger))
	}
	if cfg.Output.DB != "" {
		s, err := store.Open(ctx, cfg.Output.DB, logger)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		db = s
		sinks = append(sinks, s)
	}
	return sinks, db, nil
}

// writeReport decides and executes single-session output based on config.
func writeReport(w io.Writer, cfg config.Config, report *domain.Report) error {
	if cfg.JSON {
		if err := output.WriteReportJSON(w, report, true); err != nil {
			return fmt.Errorf("json output: %w", err)
		}
		return nil
	}

	if err := output.RenderReport(w, report, cfg.Verbose); err != nil {
		return fmt.Errorf("table output: %w", err)
	}
	if report.Intel != nil {
		output.RenderIntel(w, report.Intel)
	}
	return nil
}

// writeErrorJSON emite el fallo de la sesión como una línea JSON.
func writeErrorJSON(w io.Writer, proxy *domain.ProxyConfig, runErr error) {
	rec := &domain.ScanRecord{Proxy: proxyLabel(proxy), Err: runErr}
	_ = output.NewJSONLWriter(w, 0, nil).Write(context.Background(), rec)
}

func proxyLabel(p *domain.ProxyConfig) string {
	if p == nil {
		return "direct"
	}
	return p.Masked()
}

// rootContextWithSignals creates a root context with optional timeout and signal cancellation.
// The returned cancel stops the signal handler and releases the context.
func rootContextWithSignals(timeout time.Duration) (context.Context, context.CancelFunc) {
	var (
		base       context.Context
		baseCancel context.CancelFunc
	)
	if timeout > 0 {
		base, baseCancel = context.WithTimeout(context.Background(), timeout)
	} else {
		base, baseCancel = context.WithCancel(context.Background())
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-ch:
			baseCancel()
		case <-base.Done():
		}
	}()

	return base, func() {
		signal.Stop(ch)
		baseCancel()
	}
}
