package errors

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrUnauthenticated    = fmt.Errorf("unauthenticated")
	ErrEmptyMessage       = fmt.Errorf("message is empty")
	ErrMessageTooLong     = fmt.Errorf("message is too long")
	ErrStoreUnavailable   = fmt.Errorf("store unavailable")
	ErrSubscription       = fmt.Errorf("subscription failed")
	ErrNotSubscribed      = fmt.Errorf("feed is not subscribed to a channel")
	ErrSubscriptionClosed = fmt.Errorf("feed subscription is closed")
	ErrInvalidIdentity    = fmt.Errorf("invalid identity")
	ErrForbidden          = fmt.Errorf("forbidden")
	ErrInvalidDocument    = fmt.Errorf("invalid document")
	ErrInvalidCollection  = fmt.Errorf("invalid collection name")
	ErrStoreClosed        = fmt.Errorf("store is closed")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
	ErrEmptyWords         = fmt.Errorf("no words have been found")
)

// Is and As forward to the standard library so callers need a single errors import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

// Code is the stable machine-readable name of an error, shared by the gateway payloads.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case errors.Is(err, ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, ErrMessageTooLong):
		return "message_too_long"
	case errors.Is(err, ErrInvalidIdentity):
		return "invalid_identity"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidCollection):
		return "invalid_collection"
	case errors.Is(err, ErrInvalidDocument):
		return "invalid_document"
	case errors.Is(err, ErrStoreUnavailable):
		return "store_unavailable"
	case errors.Is(err, ErrSubscription):
		return "subscription_error"
	case errors.Is(err, ErrNotSubscribed), errors.Is(err, ErrSubscriptionClosed):
		return "not_subscribed"
	default:
		return "internal"
	}
}

// MapToGRPCError converts domain errors into gRPC status errors.
func MapToGRPCError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, ErrForbidden):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrInvalidIdentity),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrInvalidCollection):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrStoreClosed),
		errors.Is(err, ErrSubscription):
		return status.Error(codes.Unavailable, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

// MapToHTTPStatus gives the status code the gateway answers with.
func MapToHTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrMessageTooLong),
		errors.Is(err, ErrInvalidIdentity),
		errors.Is(err, ErrInvalidDocument),
		errors.Is(err, ErrInvalidCollection):
		return http.StatusBadRequest
	case errors.Is(err, ErrStoreUnavailable), errors.Is(err, ErrSubscription):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromGRPCError turns a status received from a remote store back into a domain error.
func FromGRPCError(err error) error {
	st, ok := status.FromError(err)
	if !ok || err == nil {
		return err
	}
	switch st.Code() {
	case codes.Unauthenticated:
		return fmt.Errorf("%w: %s", ErrUnauthenticated, st.Message())
	case codes.PermissionDenied:
		return fmt.Errorf("%w: %s", ErrForbidden, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", ErrInvalidDocument, st.Message())
	default:
		return err
	}
}
