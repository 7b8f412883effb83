package portal

import (
	"context"

	clog "github.com/charmbracelet/log"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// Audit records authentication events.
type Audit struct {
	logs    *repository.AuthLogRepository
	metrics *telemetry.Collector
	log     *clog.Logger
}

func NewAudit(logs *repository.AuthLogRepository, metrics *telemetry.Collector) *Audit {
	if metrics == nil {
		metrics = telemetry.NewCollector()
	}
	return &Audit{logs: logs, metrics: metrics, log: logging.For("audit")}
}

// Record stores an auth event. Failures are logged and never reach the caller.
func (a *Audit) Record(ctx context.Context, email, action, ip string) {
	a.metrics.AuthEvents.WithLabelValues(action, "ok").Inc()
	if _, err := a.logs.Create(ctx, &models.AuthLog{Email: email, Action: action, IP: ip}); err != nil {
		a.log.Error("failed to log auth event", "action", action, "email", email, "err", err)
	}
}

// RegisteredFrom reports whether an account was already registered from ip.
func (a *Audit) RegisteredFrom(ctx context.Context, ip string) (bool, error) {
	return a.logs.ExistsForIP(ctx, models.AuthActionRegister, ip)
}

func (a *Audit) List(ctx context.Context, limit int) ([]models.AuthLog, error) {
	list, err := a.logs.List(ctx, limit)
	if err != nil {
		return nil, apperrors.Internal("Failed to load authentication logs.", err)
	}
	return list, nil
}

// Clear deletes every auth log and returns how many were removed.
func (a *Audit) Clear(ctx context.Context) (int64, error) {
	n, err := a.logs.DeleteAll(ctx)
	if err != nil {
		return 0, apperrors.Internal("Could not clear authentication logs from the database.", err)
	}
	a.log.Info("auth logs cleared", "count", n)
	return n, nil
}

// MultiLoginReport lists IPs that registered more than one distinct account.
func (a *Audit) MultiLoginReport(ctx context.Context) ([]models.MultiLoginGroup, error) {
	groups, err := a.logs.MultiLoginReport(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to build the multi-login report.", err)
	}
	return groups, nil
}
