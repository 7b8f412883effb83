package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestCodeMappings(t *testing.T) {
	cases := []struct {
		code Code
		http int
		grpc codes.Code
	}{
		{CodeValidation, http.StatusBadRequest, codes.InvalidArgument},
		{CodeNotFound, http.StatusNotFound, codes.NotFound},
		{CodeUnauthenticated, http.StatusUnauthorized, codes.Unauthenticated},
		{CodePermissionDenied, http.StatusForbidden, codes.PermissionDenied},
		{CodeConflict, http.StatusConflict, codes.AlreadyExists},
		{CodeUnavailable, http.StatusServiceUnavailable, codes.Unavailable},
		{CodeRateLimited, http.StatusTooManyRequests, codes.ResourceExhausted},
		{CodeUnknown, http.StatusInternalServerError, codes.Internal},
	}
	for _, c := range cases {
		if got := c.code.HTTPStatus(); got != c.http {
			t.Errorf("%s HTTPStatus = %d, want %d", c.code, got, c.http)
		}
		if got := c.code.GRPCCode(); got != c.grpc {
			t.Errorf("%s GRPCCode = %v, want %v", c.code, got, c.grpc)
		}
	}
}

func TestWrapAndIs(t *testing.T) {
	cause := errors.New("dial tcp: timeout")
	err := fmt.Errorf("provision: %w", Wrap(CodeExternal, "cPanel unreachable", cause))
	if !errors.Is(err, New(CodeExternal, "")) {
		t.Fatalf("expected code match through wrapping")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if CodeOf(err) != CodeExternal {
		t.Fatalf("CodeOf = %s", CodeOf(err))
	}
	if CodeOf(errors.New("plain")) != CodeUnknown {
		t.Fatalf("plain errors are unknown")
	}
}

func TestToGRPC(t *testing.T) {
	st, _ := status.FromError(ToGRPC(Validation("bad input", map[string]string{"email": "required"})))
	if st.Code() != codes.InvalidArgument || st.Message() != "bad input" {
		t.Fatalf("unexpected status: %v", st)
	}
	st, _ = status.FromError(ToGRPC(errors.New("sql: connection refused")))
	if st.Code() != codes.Internal || st.Message() != "internal error" {
		t.Fatalf("internal details leaked: %v", st)
	}
	if ToGRPC(nil) != nil {
		t.Fatalf("nil stays nil")
	}
}
