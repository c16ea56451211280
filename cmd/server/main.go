// Package main is the entrypoint for the kube-query-agent server. It loads
// configuration, builds the Kubernetes client and the completion provider
// stack, starts the query API, metrics, and health probe servers, and handles
// graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/collector"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/config"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/health"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/metrics"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/prompt"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/provider"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/query"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/redact"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/server"
	"github.com/AditiNamboodirirpad/AI-query-agent-Kubernetes/internal/sink"
)

// heartbeatInterval is how often the main loop refreshes the liveness
// heartbeat and re-checks readiness.
const heartbeatInterval = 10 * time.Second

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "initializing logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("starting kube-query-agent",
		"backend", cfg.Provider.Backend,
		"namespace", cfg.Collector.Namespace,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		closeLog()
		os.Exit(1)
	}
}

// buildLogger constructs the process logger, optionally teeing output to an
// append-only file.
func buildLogger(cfg config.LoggingConfig) (*slog.Logger, func(), error) {
	level, err := config.ParseLogLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stdout
	closeLog := func() {}
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("opening log file %s: %w", cfg.File, err)
		}
		out = io.MultiWriter(os.Stdout, f)
		closeLog = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(out, opts)
	} else {
		handler = slog.NewJSONHandler(out, opts)
	}
	return slog.New(handler), closeLog, nil
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	// Build Kubernetes client configuration: in-cluster first, kubeconfig
	// fallback for local runs.
	restConfig, err := rest.InClusterConfig()
	if err != nil {
		kubeconfig := os.Getenv("KUBECONFIG")
		restConfig, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
		if err != nil {
			return fmt.Errorf("building kubernetes config (in-cluster and kubeconfig both failed): %w", err)
		}
		logger.Info("using kubeconfig credentials", "path", kubeconfig)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("creating kubernetes clientset: %w", err)
	}

	// Prometheus metrics.
	metricsRegistry := prometheus.NewRegistry()
	metricsRegistry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	metricsRegistry.MustRegister(prometheus.NewGoCollector())
	m := metrics.NewMetrics(metricsRegistry)

	// Redaction fails closed: an invalid pattern refuses to start the
	// process rather than serving unredacted logs.
	var redactor *redact.Redactor
	if !cfg.Redaction.Disabled {
		redactor, err = redact.New(cfg.Redaction.ExtraPatterns, logger)
		if err != nil {
			return fmt.Errorf("building log redactor: %w", err)
		}
	}

	chatProvider, err := buildProviderStack(ctx, cfg.Provider, m, logger)
	if err != nil {
		return err
	}

	rules, err := query.NewRuleEngine(cfg.Router.Rules, logger)
	if err != nil {
		return fmt.Errorf("compiling routing rules: %w", err)
	}

	kubeClient, err := collector.NewClientsetClient(clientset)
	if err != nil {
		return fmt.Errorf("creating cluster client: %w", err)
	}
	coll := collector.New(kubeClient, m, logger, collector.Options{
		CallTimeout:  cfg.Collector.Timeout,
		LogTailLines: cfg.Collector.LogTailLines,
	})

	dispatcher, err := buildDispatcher(ctx, cfg.Sinks, m, logger)
	if err != nil {
		return err
	}

	handler, err := query.NewHandler(query.HandlerOptions{
		Collector:  coll,
		Provider:   chatProvider,
		Builder:    prompt.NewBuilder(cfg.Provider.SystemPromptOverride, cfg.Provider.SystemPromptAppend),
		Redactor:   redactor,
		Rules:      rules,
		Dispatcher: dispatcher,
		Metrics:    m,
		Logger:     logger,
		Namespace:  cfg.Collector.Namespace,
	})
	if err != nil {
		return fmt.Errorf("building query handler: %w", err)
	}

	apiSrv, err := server.New(cfg.Server, handler, logger)
	if err != nil {
		return fmt.Errorf("creating query API server: %w", err)
	}
	go func() {
		if serveErr := apiSrv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("query API server failed", "error", serveErr)
			cancel()
		}
	}()

	healthHandler := health.NewHandler(health.WithLogger(logger))
	healthSrv, err := health.NewServer(healthHandler, cfg.Health.Port)
	if err != nil {
		return fmt.Errorf("creating health server: %w", err)
	}
	go func() {
		if serveErr := healthSrv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("health server failed", "error", serveErr)
		}
	}()

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
		metricsSrv = &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler: metricsMux,
		}
		go func() {
			if serveErr := metricsSrv.ListenAndServe(); serveErr != nil && serveErr != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", serveErr)
			}
		}()
	}

	logger.Info("server initialized",
		"queryPort", cfg.Server.Port,
		"healthPort", cfg.Health.Port,
		"metricsEnabled", cfg.Metrics.Enabled,
	)

	// Main loop: heartbeat and readiness refresh until shutdown.
	updateReadiness(ctx, clientset, chatProvider, healthHandler)
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutdown signal received, draining")
			return shutdown(cfg, logger, apiSrv, healthSrv, metricsSrv, dispatcher)
		case <-ticker.C:
			healthHandler.UpdateHeartbeat()
			updateReadiness(ctx, clientset, chatProvider, healthHandler)
		}
	}
}

// updateReadiness probes the API server and the completion provider.
func updateReadiness(ctx context.Context, clientset kubernetes.Interface, p provider.ChatProvider, h *health.Handler) {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := clientset.Discovery().ServerVersion()
	h.SetAPIServerReachable(err == nil)
	h.SetProviderHealthy(p.Healthy(probeCtx))
}

// buildProviderStack constructs the configured backend and wraps it with
// instrumentation, the token budget rate limiter, and the circuit breaker.
// A missing API key is a fatal startup error for key-based backends.
func buildProviderStack(ctx context.Context, cfg config.ProviderConfig, m *metrics.Metrics, logger *slog.Logger) (provider.ChatProvider, error) {
	var backend provider.ChatProvider
	var err error

	switch cfg.Backend {
	case "openai":
		if os.Getenv(cfg.APIKeyEnv) == "" {
			return nil, fmt.Errorf("API key environment variable %s is not set", cfg.APIKeyEnv)
		}
		backend, err = provider.NewOpenAIProvider(provider.OpenAIConfig{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			APIURL:      cfg.APIURL,
		}, provider.EnvKeySource{Var: cfg.APIKeyEnv}, logger)
	case "claude":
		if os.Getenv(cfg.APIKeyEnv) == "" {
			return nil, fmt.Errorf("API key environment variable %s is not set", cfg.APIKeyEnv)
		}
		backend, err = provider.NewClaudeProvider(provider.ClaudeConfig{
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			APIURL:      cfg.APIURL,
		}, provider.EnvKeySource{Var: cfg.APIKeyEnv}, logger)
	case "claude-bedrock":
		backend, err = provider.NewBedrockProvider(ctx, provider.BedrockConfig{
			Region:      cfg.Bedrock.Region,
			ModelID:     cfg.Bedrock.ModelID,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("building %s provider: %w", cfg.Backend, err)
	}

	instrumented, err := provider.NewInstrumentedProvider(backend, m)
	if err != nil {
		return nil, fmt.Errorf("instrumenting provider: %w", err)
	}

	fallback := provider.NewFallbackProvider(logger)

	var stack provider.ChatProvider = instrumented
	if cfg.RateLimit.DailyTokenBudget > 0 || cfg.RateLimit.HourlyTokenBudget > 0 {
		stack, err = provider.NewRateLimiter(stack, fallback,
			cfg.RateLimit.DailyTokenBudget, cfg.RateLimit.HourlyTokenBudget, logger)
		if err != nil {
			return nil, fmt.Errorf("building rate limiter: %w", err)
		}
	}

	if cfg.CircuitBreaker.Enabled {
		stack, err = provider.NewCircuitBreaker(stack, fallback,
			cfg.CircuitBreaker.ConsecutiveFailures, cfg.CircuitBreaker.OpenDuration, logger,
			provider.WithStateChangeHook(func(state provider.BreakerState) {
				switch state {
				case provider.BreakerClosed:
					m.CircuitBreakerState.Set(0)
				case provider.BreakerOpen:
					m.CircuitBreakerState.Set(1)
				case provider.BreakerHalfOpen:
					m.CircuitBreakerState.Set(2)
				}
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("building circuit breaker: %w", err)
		}
	}

	return stack, nil
}

// buildDispatcher assembles the transcript sinks. The log sink is always on;
// webhook and S3 are added when configured.
func buildDispatcher(ctx context.Context, cfg config.SinksConfig, m *metrics.Metrics, logger *slog.Logger) (*sink.Dispatcher, error) {
	logSink, err := sink.NewLogSink(logger)
	if err != nil {
		return nil, fmt.Errorf("building log sink: %w", err)
	}
	sinks := []sink.Sink{logSink}

	if cfg.Webhook != nil {
		webhookSink, err := sink.NewWebhookSink(sink.WebhookConfig{
			URL:            cfg.Webhook.URL,
			Headers:        cfg.Webhook.Headers,
			AllowedDomains: cfg.Webhook.AllowedDomains,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("building webhook sink: %w", err)
		}
		sinks = append(sinks, webhookSink)
	}

	if cfg.S3 != nil {
		s3Sink, err := sink.NewS3Sink(ctx, sink.S3Config{
			Bucket: cfg.S3.Bucket,
			Region: cfg.S3.Region,
			Prefix: cfg.S3.Prefix,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("building s3 sink: %w", err)
		}
		sinks = append(sinks, s3Sink)
	}

	return sink.NewDispatcher(sinks, m, logger)
}

// shutdown drains the HTTP servers and waits for in-flight sink deliveries.
func shutdown(cfg *config.Config, logger *slog.Logger, apiSrv *server.Server, healthSrv *health.Server, metricsSrv *http.Server, dispatcher *sink.Dispatcher) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("query API server shutdown error", "error", err)
	}
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("health server shutdown error", "error", err)
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	dispatcher.Wait()
	logger.Info("server stopped")
	return nil
}
