package api

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/solatis/rulebook/internal/interchange"
	"github.com/solatis/rulebook/internal/types"
)

// toStatus maps store and interchange errors to gRPC status codes.
// Import failures keep their user-facing message verbatim.
// Rejected transitions map to FAILED_PRECONDITION or NOT_FOUND.
// Undecodable commands and values map to INVALID_ARGUMENT.
func toStatus(err error) error {
	var importErr *interchange.ImportError
	switch {
	case errors.As(err, &importErr):
		return status.Error(codes.InvalidArgument, importErr.Message)
	case errors.Is(err, types.ErrRuleSetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrIndexOutOfRange), errors.Is(err, types.ErrNoSelection):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, types.ErrUnknownCommand),
		errors.Is(err, types.ErrInvalidArguments),
		errors.Is(err, types.ErrCoercionFailed):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// fromStatus recovers the sentinel error behind a status returned by toStatus.
// Unknown codes are returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	var sentinel error
	switch st.Code() {
	case codes.NotFound:
		sentinel = types.ErrRuleSetNotFound
	case codes.FailedPrecondition:
		if st.Message() == types.ErrNoSelection.Error() {
			sentinel = types.ErrNoSelection
		} else {
			sentinel = types.ErrIndexOutOfRange
		}
	default:
		return err
	}
	return &remoteError{status: st, sentinel: sentinel}
}

type remoteError struct {
	status   *status.Status
	sentinel error
}

func (e *remoteError) Error() string { return e.status.Message() }

func (e *remoteError) Unwrap() error { return e.sentinel }

// GRPCStatus lets status.FromError see through the wrapper.
func (e *remoteError) GRPCStatus() *status.Status { return e.status }
