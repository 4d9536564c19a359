package errors

import (
	"context"
	"errors"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Domain is set on every ErrorInfo detail.
const Domain = "muzz-match"

var kindCodes = map[Kind]codes.Code{
	KindValidation:   codes.InvalidArgument,
	KindConflict:     codes.AlreadyExists,
	KindNotFound:     codes.NotFound,
	KindUnauthorized: codes.Unauthenticated,
	KindForbidden:    codes.PermissionDenied,
	KindRateLimited:  codes.ResourceExhausted,
	KindInternal:     codes.Internal,
}

// Map converts service/repo/infra errors into gRPC status errors.
// Typed errors keep their kind in an ErrorInfo detail so clients can
// branch on Reason instead of parsing messages.
func Map(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var e *Error
	switch {
	case errors.As(err, &e):
		return withKind(kindCodes[e.Kind], e.Kind, e.Msg)

	case errors.Is(err, gorm.ErrRecordNotFound):
		return withKind(codes.NotFound, KindNotFound, "record not found")

	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	default:
		return withKind(codes.Internal, KindInternal, "internal error")
	}
}

// KindFromStatus extracts the kind from a status produced by Map.
func KindFromStatus(err error) Kind {
	st, ok := status.FromError(err)
	if !ok {
		return KindInternal
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == Domain {
			return Kind(info.GetReason())
		}
	}
	return KindInternal
}

func withKind(code codes.Code, kind Kind, msg string) error {
	st := status.New(code, msg)
	if detailed, err := st.WithDetails(&errdetails.ErrorInfo{Reason: string(kind), Domain: Domain}); err == nil {
		st = detailed
	}
	return st.Err()
}
