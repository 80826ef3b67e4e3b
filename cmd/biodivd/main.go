// Command biodivd serves the survey dataset API: it opens the configured
// persistent and blob stores, installs the bundled plugins, and runs the
// asynchronous export worker behind an HTTP server.
package main

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"biodivcore/internal/adapters/datasets"
	"biodivcore/internal/blob"
	"biodivcore/internal/core"
	"biodivcore/plugins/invasives"
)

const shutdownTimeout = 10 * time.Second

var exitFunc = os.Exit

func main() {
	logger := newLogger(os.Stderr, os.Getenv("BIODIVD_LOG_LEVEL"))
	if err := run(context.Background(), logger); err != nil {
		logger.Error("server exited", "error", err)
		exitFunc(1)
	}
}

func newLogger(w *os.File, level string) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{Level: parseLevel(level)}))
}

func parseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// run wires the service and blocks until a signal arrives or the listener
// fails. Configuration is environment only:
//
//	BIODIVD_ADDR: listen address (default :8080)
//	BIODIVD_LOG_LEVEL: debug|info|warn|error (default info)
//	BIODIVD_TRACE_LOG: append JSON trace spans to this file when set
//	BIODIVCORE_STORAGE_DRIVER, BIODIVCORE_BLOB_DRIVER: see the store factories
func run(ctx context.Context, logger *slog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine := core.NewDefaultRulesEngine()
	store, err := core.OpenPersistentStore(engine)
	if err != nil {
		return fmt.Errorf("open persistent store: %w", err)
	}

	prom := core.NewPrometheusMetricsRecorder()
	vars := core.NewExpvarMetricsRecorder("biodivd_service")
	options := []core.Option{
		core.WithLogger(logger),
		core.WithMetricsRecorder(teeMetrics{prom, vars}),
		core.WithAuditRecorder(slogAudit{logger: logger}),
	}
	if path := os.Getenv("BIODIVD_TRACE_LOG"); path != "" {
		traceFile, openErr := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if openErr != nil {
			return fmt.Errorf("open trace log: %w", openErr)
		}
		defer func() {
			if cerr := traceFile.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close trace log: %w", cerr)
			}
		}()
		options = append(options, core.WithTracer(core.NewJSONTracer(traceFile)))
	}
	svc := core.NewService(store, options...)

	meta, err := svc.InstallPlugin(invasives.New())
	if err != nil {
		return fmt.Errorf("install invasives plugin: %w", err)
	}
	logger.Info("plugin installed", "name", meta.Name, "version", meta.Version, "datasets", len(meta.Datasets))

	blobStore, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	logger.Info("blob store ready", "driver", string(blobStore.Driver()))

	worker := datasets.NewWorker(svc, datasets.NewBlobObjectStore(blobStore, "exports/"), exportAudit{logger: logger})
	worker.Start()

	handler := datasets.NewHandler(svc)
	handler.Exports = worker

	mux := http.NewServeMux()
	mux.Handle("/api/v1/datasets/", handler)
	mux.Handle("/metrics", prom.Handler())
	mux.Handle("/debug/vars", expvar.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	addr := os.Getenv("BIODIVD_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr)
		if listenErr := server.ListenAndServe(); listenErr != nil && !errors.Is(listenErr, http.ErrServerClosed) {
			serveErr <- listenErr
		}
	}()

	select {
	case listenErr := <-serveErr:
		return listenErr
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		return fmt.Errorf("shutdown http server: %w", shutdownErr)
	}
	if workerErr := worker.Stop(shutdownCtx); workerErr != nil {
		return fmt.Errorf("stop export worker: %w", workerErr)
	}
	return nil
}

// teeMetrics feeds one observation to both the Prometheus and expvar
// recorders so /metrics and /debug/vars stay in sync.
type teeMetrics struct {
	prom *core.PrometheusMetricsRecorder
	vars *core.ExpvarMetricsRecorder
}

func (t teeMetrics) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	t.prom.Observe(ctx, operation, success, duration)
	t.vars.Observe(ctx, operation, success, duration)
}

// slogAudit writes service audit entries to the structured log.
type slogAudit struct {
	logger *slog.Logger
}

func (a slogAudit) Record(_ context.Context, entry core.AuditEntry) {
	a.logger.Debug("service audit",
		"operation", entry.Operation,
		"entity_id", entry.EntityID,
		"status", string(entry.Status),
		"violations", entry.Violations,
		"duration", entry.Duration,
	)
}

// exportAudit writes dataset export audit entries to the structured log.
type exportAudit struct {
	logger *slog.Logger
}

func (a exportAudit) Record(_ context.Context, entry datasets.AuditEntry) {
	a.logger.Info("export audit",
		"action", entry.Action,
		"template", entry.Template,
		"status", string(entry.Status),
		"actor", entry.Actor,
	)
}
