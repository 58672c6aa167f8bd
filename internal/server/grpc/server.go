package grpc

import (
	"context"
	"net"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
)

type GRPCServer struct {
	address  string
	accounts AccountService
	metrics  *metrics.Recorder
	tracer   trace.TracerProvider
	logger   logging.Logger
	now      func() time.Time
}

// Option customises a GRPCServer.
type Option func(*GRPCServer)

// WithMetrics records every call into r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(s *GRPCServer) { s.metrics = r }
}

// WithTracerProvider makes the server open a span per call.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *GRPCServer) { s.tracer = tp }
}

func NewGRPCServer(address string, l logging.Logger, accounts AccountService, opts ...Option) *GRPCServer {
	s := &GRPCServer{
		address:  address,
		accounts: accounts,
		tracer:   noop.NewTracerProvider(),
		logger:   l.With("module", "grpc_server"),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// NewServer builds a grpc.Server with the account service and the
// interceptor chain registered.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(s.interceptors()...))
	srv := grpc.NewServer(opts...)
	srv.RegisterService(&serviceDesc, s)
	return srv
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", s.address)

	// starts accepting incoming connections
	if err := srv.Serve(listen); err != nil {
		return err
	}

	return nil
}
