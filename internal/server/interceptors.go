package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/oggyb/muzz-match/internal/auth"
	"github.com/oggyb/muzz-match/internal/logger"
)

// requestLogger builds the per-call logger: request id from x-request-id
// metadata (or a fresh uuid), method and peer address.
func requestLogger(ctx context.Context, base *slog.Logger, method string) *slog.Logger {
	var rid string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("x-request-id"); len(v) > 0 && v[0] != "" {
			rid = v[0]
		}
	}
	if rid == "" {
		rid = uuid.NewString()
	}

	peerStr := "-"
	if p, ok := peer.FromContext(ctx); ok && p != nil && p.Addr != nil {
		peerStr = p.Addr.String()
	}

	return base.With(
		slog.String("request_id", rid),
		slog.String("method", method),
		slog.String("peer", peerStr),
	)
}

func orGlobal(l *slog.Logger) *slog.Logger {
	if l == nil {
		return logger.L()
	}
	return l
}

// UnaryLoggingInterceptor puts a request-scoped logger into ctx and writes
// one Info line per call: msg="grpc" with the status code and duration.
func UnaryLoggingInterceptor(base *slog.Logger) grpc.UnaryServerInterceptor {
	base = orGlobal(base)
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		l := requestLogger(ctx, base, info.FullMethod)

		resp, err := handler(logger.Into(ctx, l), req)

		l.Info("grpc",
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)
		return resp, err
	}
}

// StreamLoggingInterceptor is UnaryLoggingInterceptor for streams. The line
// is written when the stream ends.
func StreamLoggingInterceptor(base *slog.Logger) grpc.StreamServerInterceptor {
	base = orGlobal(base)
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		start := time.Now()
		l := requestLogger(ss.Context(), base, info.FullMethod)

		err := handler(srv, withContext(ss, logger.Into(ss.Context(), l)))

		l.Info("grpc",
			slog.String("code", status.Code(err).String()),
			slog.Duration("dur", time.Since(start)),
		)
		return err
	}
}

func panicLogger(ctx context.Context, base *slog.Logger) *slog.Logger {
	if l, ok := logger.Lookup(ctx); ok {
		return l
	}
	return orGlobal(base)
}

func logPanic(l *slog.Logger, method string, r any) {
	l.Error("panic recovered",
		slog.String("method", method),
		slog.Any("panic", r),
		slog.String("stack", string(debug.Stack())),
	)
}

// Recover turns a handler panic into codes.Internal without leaking details.
func Recover(base *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(panicLogger(ctx, base), info.FullMethod, r)
				resp, err = nil, status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// StreamRecover is Recover for streams.
func StreamRecover(base *slog.Logger) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logPanic(panicLogger(ss.Context(), base), info.FullMethod, r)
				err = status.Error(codes.Internal, "internal server error")
			}
		}()
		return handler(srv, ss)
	}
}

// WithTimeout bounds unary calls that arrive without a deadline. A zero
// duration disables it.
func WithTimeout(d time.Duration) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if d <= 0 {
			return handler(ctx, req)
		}
		if _, ok := ctx.Deadline(); ok {
			return handler(ctx, req)
		}

		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return handler(ctx, req)
	}
}

// public methods skip authentication.
func public(method string) bool {
	return strings.HasPrefix(method, "/grpc.health.v1.") ||
		strings.HasPrefix(method, "/grpc.reflection.")
}

func authenticate(ctx context.Context, v auth.Validator) (context.Context, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	token, err := auth.BearerToken(header)
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "missing bearer token")
	}
	userID, err := v.Validate(token)
	if err != nil {
		logger.From(ctx).Debug("token rejected", slog.Any("err", err))
		return nil, status.Error(codes.Unauthenticated, "invalid token")
	}
	return auth.WithUserID(ctx, userID), nil
}

// UnaryAuth requires a valid bearer token and binds its user to ctx.
func UnaryAuth(v auth.Validator) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if public(info.FullMethod) {
			return handler(ctx, req)
		}
		ctx, err := authenticate(ctx, v)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamAuth is UnaryAuth for streams. Rejected streams never reach the handler.
func StreamAuth(v auth.Validator) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if public(info.FullMethod) {
			return handler(srv, ss)
		}
		ctx, err := authenticate(ss.Context(), v)
		if err != nil {
			return err
		}
		return handler(srv, withContext(ss, ctx))
	}
}

type contextStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *contextStream) Context() context.Context { return s.ctx }

func withContext(ss grpc.ServerStream, ctx context.Context) grpc.ServerStream {
	return &contextStream{ServerStream: ss, ctx: ctx}
}
