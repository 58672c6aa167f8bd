// Package metrics exposes Prometheus counters for account operations and
// serves them, together with a health probe, over HTTP.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/gophauth/internal/logging"
)

// Recorder counts operations by outcome and times them.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewRecorder registers the gophauth collectors on a private registry.
func NewRecorder() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Recorder{
		registry: registry,
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_operations_total",
				Help: "Account operations by name and result code",
			},
			[]string{"operation", "code"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophauth_operation_duration_seconds",
				Help:    "Account operation latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	registry.MustRegister(r.operations, r.duration)

	return r
}

// Observe records one finished operation. code is "OK" for successes and
// the stable error code otherwise.
func (r *Recorder) Observe(operation, code string, elapsed time.Duration) {
	r.operations.WithLabelValues(operation, code).Inc()
	r.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves /metrics and /healthz.
func (r *Recorder) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return mux
}

// Server is the HTTP side of the recorder.
type Server struct {
	addr     string
	recorder *Recorder
	logger   logging.Logger
}

func NewServer(addr string, recorder *Recorder, logger logging.Logger) *Server {
	return &Server{addr: addr, recorder: recorder, logger: logger.With("module", "metrics")}
}

// Run serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.logger.Error(ctx, "failed to listen", "addr", s.addr, "err", err)
		return err
	}

	srv := &http.Server{
		Handler:           s.recorder.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "metrics server started", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info(ctx, "metrics server stopped")
		return nil
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	}
}
