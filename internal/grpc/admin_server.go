package grpcserver

import (
	"context"
	"encoding/json"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/portal"
	"webHostingPortal/internal/provisioning"
	"webHostingPortal/internal/settings"
	"webHostingPortal/models"
)

// AdminServer implements AdminService for back-office tooling.
type AdminServer struct {
	Admins      auth.AdminLookup
	Dashboard   *portal.Dashboard
	Services    *portal.Services
	Support     *portal.Support
	Settings    *settings.Store
	Provisioner *provisioning.Provisioner
}

func (s *AdminServer) requireAdmin(ctx context.Context) error {
	_, err := auth.RequireAdmin(ctx, s.Admins)
	return apperrors.ToGRPC(err)
}

func (s *AdminServer) GetDashboardStats(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	st, err := s.Dashboard.Stats(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(st)
}

type listOrdersRequest struct {
	Statuses  []models.ServiceStatus `json:"statuses"`
	UserID    string                 `json:"userId"`
	From      *time.Time             `json:"from"`
	To        *time.Time             `json:"to"`
	PageSize  int                    `json:"pageSize"`
	PageToken string                 `json:"pageToken"`
}

// ListOrders pages through orders newest first.
func (s *AdminServer) ListOrders(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req listOrdersRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	page, err := s.Services.ListOrders(ctx, portal.OrderQuery{
		Statuses:  req.Statuses,
		UserID:    req.UserID,
		From:      req.From,
		To:        req.To,
		PageSize:  req.PageSize,
		PageToken: req.PageToken,
	})
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(page)
}

type statusRequest struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (s *AdminServer) UpdateOrderStatus(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req statusRequest
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	svc, err := s.Services.UpdateServiceStatus(ctx, req.ID, models.ServiceStatus(req.Status))
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(map[string]any{"service": svc})
}

func (s *AdminServer) ListTickets(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req struct {
		Statuses []models.TicketStatus `json:"statuses"`
	}
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	list, err := s.Support.List(ctx, req.Statuses)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(map[string]any{"tickets": list})
}

func (s *AdminServer) BulkAutoReply(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	n, err := s.Support.BulkAutoReply(ctx)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(map[string]any{"count": n})
}

// SetMaintenance saves the maintenance section with the same validation as
// the admin settings page.
func (s *AdminServer) SetMaintenance(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(in.AsMap())
	if err != nil {
		return nil, apperrors.ToGRPC(apperrors.Validation("Invalid settings payload.", nil))
	}
	v, err := s.Settings.Save(ctx, models.SectionMaintenance, body)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(map[string]any{"settings": v})
}

// TestSubdomain runs a dry provisioning check. Nothing is created.
func (s *AdminServer) TestSubdomain(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	var req struct {
		Subdomain string `json:"subdomain"`
	}
	if err := decodeStruct(in, &req); err != nil {
		return nil, err
	}
	res, err := s.Provisioner.Test(ctx, req.Subdomain)
	if err != nil {
		return nil, apperrors.ToGRPC(err)
	}
	return encodeStruct(res)
}
