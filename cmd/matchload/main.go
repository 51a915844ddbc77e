package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/matchload/internal/client"
	"github.com/torosent/matchload/internal/config"
	"github.com/torosent/matchload/internal/httpclient"
	"github.com/torosent/matchload/internal/logging"
	"github.com/torosent/matchload/internal/metrics"
	"github.com/torosent/matchload/internal/output"
	"github.com/torosent/matchload/internal/runner"
	"github.com/torosent/matchload/internal/threshold"
	"github.com/torosent/matchload/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	runID := ulid.Make().String()

	log, err := logging.New(cfg.LogLevel, stderr)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	log = log.With(zap.String("run_id", runID))

	provider, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	service, err := httpclient.NewService(
		httpclient.NewClient(cfg.HTTPTimeout),
		cfg.HTTPBase,
		httpclient.WithTracePropagation(provider.ShouldPropagate()),
	)
	if err != nil {
		return err
	}

	players, err := client.New(client.Options{
		Service:              service,
		StreamURL:            cfg.StreamURL,
		Password:             cfg.Password,
		UserPrefix:           cfg.UserPrefix,
		QueueMode:            cfg.QueueMode,
		QueueTimeout:         cfg.QueueTimeout,
		SessionTimeout:       cfg.SessionTimeout,
		StreamConnectTimeout: cfg.StreamConnectTimeout,
		Tracer:               provider.Tracer(),
		Propagate:            provider.ShouldPropagate(),
		Logger:               log,
		RunID:                runID,
	})
	if err != nil {
		return err
	}

	var wrapped runner.Client = players
	if cfg.LogErrors {
		wrapped = runner.WithLogging(wrapped, logging.NewFailureLogger(log))
	}

	collector := metrics.NewCollector()
	r := runner.New(runner.Options{
		Clients:   cfg.Clients,
		RampDelay: cfg.RampDelay,
		Client:    wrapped,
		Recorder:  collector,
	})

	log.Info("starting run",
		zap.Int("clients", cfg.Clients),
		zap.Duration("ramp_delay", cfg.RampDelay),
		zap.String("http_base", cfg.HTTPBase),
		zap.String("ws_url", cfg.StreamURL),
	)

	var progress *output.ProgressReporter
	if cfg.Progress {
		progress = output.NewProgressReporter(collector, cfg.Clients, progressInterval, stderr)
		progress.Start()
	}
	result := r.Run(ctx)
	if progress != nil {
		progress.Stop()
	}

	log.Info("run finished",
		zap.Int64("successes", result.Successes),
		zap.Int64("failures", result.Failures),
		zap.Duration("elapsed", result.Duration),
	)

	summary := collector.Summarize()
	results := threshold.NewEvaluator(thresholds).Evaluate(summary)
	if cfg.JSONOutput {
		if err := output.PrintJSONReport(stdout, runID, result.Duration, summary, results); err != nil {
			return err
		}
	} else {
		output.PrintReport(stdout, summary)
		output.PrintThresholds(stdout, results)
	}

	if cfg.FailOnError && result.Failures > 0 {
		return fmt.Errorf("%d clients failed", result.Failures)
	}
	if n := threshold.Failed(results); n > 0 {
		return fmt.Errorf("%d of %d thresholds failed", n, len(results))
	}
	return nil
}
