package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dmitrijs2005/gophauth/internal/apperr"
)

var kindCodes = map[apperr.Kind]codes.Code{
	apperr.KindValidation: codes.InvalidArgument,
	apperr.KindConflict:   codes.AlreadyExists,
	apperr.KindAuth:       codes.Unauthenticated,
	apperr.KindNotFound:   codes.NotFound,
	apperr.KindDependency: codes.Unavailable,
	apperr.KindInternal:   codes.Internal,
}

// toStatus converts a service error into a gRPC status. The status message
// is the stable error code so clients can recover it with apperr.
// Errors that already carry a status pass through untouched.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		var e *apperr.Error
		if !errors.As(err, &e) {
			return err
		}
	}

	e := apperr.From(err)
	return status.Error(kindCodes[e.Kind()], string(e.Code))
}
