package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestMapToGRPCError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"unauthenticated", ErrUnauthenticated, codes.Unauthenticated},
		{"forbidden", ErrForbidden, codes.PermissionDenied},
		{"empty message", ErrEmptyMessage, codes.InvalidArgument},
		{"invalid document", fmt.Errorf("decode: %w", ErrInvalidDocument), codes.InvalidArgument},
		{"store unavailable wrapped", fmt.Errorf("%w: disk full", ErrStoreUnavailable), codes.Unavailable},
		{"unknown", fmt.Errorf("boom"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, ok := status.FromError(MapToGRPCError(tt.err))
			require.True(t, ok)
			require.Equal(t, tt.want, st.Code())
		})
	}
}

func TestMapToGRPCError_KeepsStatus(t *testing.T) {
	req := require.New(t)
	original := status.Error(codes.NotFound, "missing")
	req.Equal(original, MapToGRPCError(original))
	req.NoError(MapToGRPCError(nil))
}

func TestMapToHTTPStatus(t *testing.T) {
	req := require.New(t)
	req.Equal(http.StatusOK, MapToHTTPStatus(nil))
	req.Equal(http.StatusUnauthorized, MapToHTTPStatus(ErrUnauthenticated))
	req.Equal(http.StatusBadRequest, MapToHTTPStatus(ErrEmptyMessage))
	req.Equal(http.StatusBadRequest, MapToHTTPStatus(ErrMessageTooLong))
	req.Equal(http.StatusServiceUnavailable, MapToHTTPStatus(fmt.Errorf("%w: timeout", ErrStoreUnavailable)))
	req.Equal(http.StatusBadRequest, MapToHTTPStatus(fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrInvalidCollection)))
	req.Equal(http.StatusInternalServerError, MapToHTTPStatus(fmt.Errorf("boom")))
}

func TestCode(t *testing.T) {
	req := require.New(t)
	req.Equal("unauthenticated", Code(ErrUnauthenticated))
	req.Equal("empty_message", Code(ErrEmptyMessage))
	req.Equal("store_unavailable", Code(fmt.Errorf("%w: x", ErrStoreUnavailable)))
	req.Equal("subscription_error", Code(ErrSubscription))
	req.Equal("invalid_collection", Code(fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrInvalidCollection)))
	req.Equal("invalid_document", Code(fmt.Errorf("%w: %w", ErrStoreUnavailable, ErrInvalidDocument)))
	req.Equal(http.StatusBadRequest, MapToHTTPStatus(ErrInvalidDocument))
	req.Equal("internal", Code(fmt.Errorf("boom")))
}

func TestFromGRPCError(t *testing.T) {
	req := require.New(t)

	req.Nil(FromGRPCError(nil))
	req.ErrorIs(FromGRPCError(status.Error(codes.Unauthenticated, "no token")), ErrUnauthenticated)
	req.ErrorIs(FromGRPCError(status.Error(codes.PermissionDenied, "not you")), ErrForbidden)
	req.ErrorIs(FromGRPCError(status.Error(codes.InvalidArgument, "bad")), ErrInvalidDocument)

	unavailable := status.Error(codes.Unavailable, "down")
	req.Equal(unavailable, FromGRPCError(unavailable))
}
