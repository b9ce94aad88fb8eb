package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/idilsaglam/grocery/internal/api"
	"github.com/idilsaglam/grocery/internal/events"
	"github.com/idilsaglam/grocery/internal/telemetry"
	"github.com/idilsaglam/grocery/internal/ui"
	"go.uber.org/zap"
)

// serve runs the HTTP API until ctx is cancelled, then shuts down gracefully.
func (r *runner) serve(ctx context.Context) int {
	cfg := r.cfg

	prov, err := telemetry.Init(ctx, cfg.Environment, cfg.Telemetry)
	if err != nil {
		ui.Fail(r.errw, "telemetry: "+err.Error())
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := prov.Shutdown(sctx); err != nil {
			r.logger.Warn("telemetry shutdown error", zap.Error(err))
		}
	}()

	s, err := r.open(ctx, prov.Registry)
	if err != nil {
		ui.Fail(r.errw, "open store: "+err.Error())
		return 1
	}
	defer func() {
		if err := s.Close(); err != nil {
			r.logger.Warn("store close error", zap.Error(err))
		}
	}()

	token, err := r.apiToken()
	if err != nil {
		ui.Fail(r.errw, "auth: "+err.Error())
		return 1
	}
	if token == "" {
		r.logger.Warn("API token not set, /items is unauthenticated")
	}

	if cfg.Kafka.Enabled() {
		pub := events.NewPublisher(events.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), cfg.Kafka.BufferSize, r.logger)
		detach := pub.Attach(s)
		pubCtx, stop := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = pub.Run(pubCtx)
		}()
		defer func() {
			detach()
			stop()
			<-done
		}()
		r.logger.Info("change feed enabled",
			zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("topic", cfg.Kafka.Topic),
		)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      api.NewHandler(s, r.logger).WithToken(token).Router(prov.MetricsHandler),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info("starting HTTP server", zap.String("addr", cfg.HTTP.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			ui.Fail(r.errw, "serve: "+err.Error())
			return 1
		}
	case <-ctx.Done():
		r.logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("server forced to shutdown", zap.Error(err))
		return 1
	}
	r.logger.Info("server exited")
	return 0
}
