package auth

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/models"
)

// AdminLookup resolves admin accounts for role re-checks.
type AdminLookup interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
}

// NewUnaryAuthInterceptor returns a gRPC unary interceptor that extracts and validates
// a Bearer JWT from incoming metadata and injects the Principal into the context.
// Methods listed in allowUnauthenticated will bypass authentication (e.g., health checks).
func NewUnaryAuthInterceptor(secret string, allowUnauthenticated ...string) grpc.UnaryServerInterceptor {
	allow := make(map[string]struct{}, len(allowUnauthenticated))
	for _, m := range allowUnauthenticated {
		allow[strings.TrimSpace(m)] = struct{}{}
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if _, ok := allow[info.FullMethod]; ok {
			return handler(ctx, req)
		}
		p, err := ParseFromMD(ctx, secret)
		if err != nil {
			return nil, status.Errorf(codes.Unauthenticated, "auth error: %v", err)
		}
		return handler(WithPrincipal(ctx, p), req)
	}
}

// RequirePrincipal ensures a principal is present in context.
func RequirePrincipal(ctx context.Context) (*Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return nil, apperrors.New(apperrors.CodeUnauthenticated, "Please sign in to continue.")
	}
	return p, nil
}

// RequireKind ensures the principal has the given kind (lowercased compare).
func RequireKind(ctx context.Context, kind string) (*Principal, error) {
	p, err := RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	if p.Kind != strings.ToLower(kind) {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "only "+strings.ToLower(kind)+" can perform this action")
	}
	return p, nil
}

// RequireCustomer ensures the caller is a signed-in customer.
func RequireCustomer(ctx context.Context) (*Principal, error) {
	return RequireKind(ctx, KindCustomer)
}

// RequireAdmin ensures the caller is an admin principal AND that the account
// still exists with an admin role. This prevents spoofing with stale tokens.
func RequireAdmin(ctx context.Context, admins AdminLookup) (*Principal, error) {
	p, err := RequireKind(ctx, KindAdmin)
	if err != nil {
		return nil, err
	}
	if admins == nil {
		return nil, apperrors.Internal("admins repository not configured", nil)
	}
	a, err := admins.GetByEmail(ctx, p.Email)
	if err != nil {
		return nil, apperrors.Internal("get admin", err)
	}
	if a == nil || a.ID != p.Subject || !models.IsAdminRole(strings.ToLower(strings.TrimSpace(a.Role))) {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "only admin can perform this action")
	}
	return p, nil
}
