package grpc

import (
	"context"
	"path"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/gophauth/internal/api"
	"github.com/dmitrijs2005/gophauth/internal/apperr"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

const tracerName = "github.com/dmitrijs2005/gophauth/internal/server/grpc"

func (s *GRPCServer) interceptors() []grpc.UnaryServerInterceptor {
	return []grpc.UnaryServerInterceptor{
		s.statusInterceptor,
		s.requestIDInterceptor,
		s.tracingInterceptor,
		s.metricsInterceptor,
		s.accessTokenInterceptor,
	}
}

func (s *GRPCServer) statusInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	resp, err := handler(ctx, req)
	return resp, toStatus(err)
}

func (s *GRPCServer) requestIDInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ulid.Make().String()
	_ = grpc.SendHeader(ctx, metadata.Pairs(api.RequestIDHeader, id))

	start := s.now()
	resp, err := handler(ctx, req)
	elapsed := s.now().Sub(start)

	code := "OK"
	if err != nil {
		code = string(apperr.CodeOf(err))
	}

	log := s.logger.With("request_id", id, "method", info.FullMethod, "code", code, "duration", elapsed)
	switch {
	case err == nil:
		log.Info(ctx, "request served")
	case apperr.From(err).Kind() == apperr.KindInternal, apperr.From(err).Kind() == apperr.KindDependency:
		log.Error(ctx, "request failed", "error", err)
	default:
		log.Warn(ctx, "request rejected")
	}

	return resp, err
}

func (s *GRPCServer) tracingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, span := s.tracer.Tracer(tracerName).Start(ctx, info.FullMethod,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("rpc.service", api.ServiceName)),
	)
	defer span.End()

	resp, err := handler(ctx, req)
	if err != nil {
		code := apperr.CodeOf(err)
		span.SetAttributes(attribute.String("gophauth.error_code", string(code)))
		span.SetStatus(otelcodes.Error, string(code))
	}

	return resp, err
}

func (s *GRPCServer) metricsInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if s.metrics == nil {
		return handler(ctx, req)
	}

	start := s.now()
	resp, err := handler(ctx, req)

	code := "OK"
	if err != nil {
		code = string(apperr.CodeOf(err))
	}
	s.metrics.Observe(path.Base(info.FullMethod), code, s.now().Sub(start))

	return resp, err
}

// accessTokenInterceptor verifies the access token of methods that act on
// the caller's own account and puts the account id into the context.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !authenticated[info.FullMethod] {
		return handler(ctx, req)
	}

	var accessToken string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(common.AccessTokenHeaderName)
		if len(values) > 0 {
			accessToken = values[0]
		}
	}
	if len(accessToken) == 0 {
		return nil, apperr.ErrUnauthenticated
	}

	claims, err := s.accounts.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return handler(withAccountID(ctx, claims.AccountID()), req)
}
