package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/registryx/repo-worker/pkg/cache"
	"github.com/registryx/repo-worker/pkg/config"
	"github.com/registryx/repo-worker/pkg/health"
	"github.com/registryx/repo-worker/pkg/helmrepo"
	"github.com/registryx/repo-worker/pkg/inventory"
	"github.com/registryx/repo-worker/pkg/objectstore"
	"github.com/registryx/repo-worker/pkg/registry"
	"github.com/registryx/repo-worker/pkg/token"
	"github.com/registryx/repo-worker/pkg/upstream"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		slog.Error("loading configuration", "error", err)
		os.Exit(1)
	}

	store, err := objectstore.New(cfg)
	if err != nil {
		slog.Error("constructing object store", "error", err)
		os.Exit(1)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		slog.Error("ensuring bucket", "bucket", cfg.S3Bucket, "error", err)
		os.Exit(1)
	}

	upstreams := upstream.NewRegistry(cfg.Upstreams)
	upstreamNames := make(map[string]bool, len(cfg.Upstreams))
	for name := range cfg.Upstreams {
		upstreamNames[name] = true
	}
	lookup := func(name string) cache.UpstreamClient {
		client := upstreams.Lookup(name)
		if client == nil {
			return nil
		}
		return client
	}

	metricsReg := prometheus.NewRegistry()
	metrics := health.NewMetrics(metricsReg)
	healthHandlers := health.New(store, metrics)

	var cacheController *cache.Controller
	if cfg.RedisAddr != "" {
		cacheController = cache.NewDistributed(store, lookup, cfg.MutableTagPatterns, metrics, cfg.RedisAddr)
	} else {
		cacheController = cache.New(store, lookup, cfg.MutableTagPatterns, metrics)
	}

	validator, err := token.NewValidator(ctx, cfg.JWTSecretKey, cfg.AuthEnabled, cfg.AnonymousPull)
	if err != nil {
		slog.Error("constructing token validator", "error", err)
		os.Exit(1)
	}

	regHandlers := registry.New(store, cacheController, upstreamNames, metrics)
	helmHandlers := helmrepo.New(store)
	invHandlers := inventory.New(store)

	root := mux.NewRouter()
	root.PathPrefix("/v2/").Handler(validator.Middleware(regHandlers.Router()))
	root.PathPrefix("/index.yaml").Handler(helmHandlers.Router())
	root.PathPrefix("/charts/").Handler(helmHandlers.Router())
	root.PathPrefix("/api/v1/charts").Handler(helmHandlers.Router())
	root.PathPrefix("/api/v1/inventory/").Handler(validator.Middleware(invHandlers.Router()))
	root.HandleFunc("/healthz", healthHandlers.Healthz).Methods("GET")
	root.HandleFunc("/readyz", healthHandlers.Readyz).Methods("GET")
	root.Handle(cfg.MetricsPath, health.MetricsHandler(metricsReg)).Methods("GET")

	server := &http.Server{
		Addr:    cfg.Host + ":" + cfg.Port,
		Handler: requestLogger(root),
	}

	healthHandlers.MarkReady()

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n := regHandlers.Sessions.Sweep(); n > 0 {
					slog.Info("swept expired upload sessions", "count", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("starting server", "addr", server.Addr, "bucket", cfg.S3Bucket, "auth_enabled", cfg.AuthEnabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	<-sweepDone
	slog.Info("shutdown complete")
}

// requestLogger logs every request's method, path, and remote address.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("request", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}
