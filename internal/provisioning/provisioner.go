// Package provisioning registers free subdomains under the configured root
// domain through the cPanel UAPI and records them locally.
package provisioning

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	clog "github.com/charmbracelet/log"
	"github.com/im7mortal/kmutex"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/cpanel"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/review"
	"webHostingPortal/internal/settings"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// User-facing outcomes.
const (
	MsgDomainMissing     = "DNS domain is not configured in the admin settings."
	MsgAutoDNSDisabled   = "Automatic subdomain creation is currently disabled. Please contact support."
	MsgNotAllowed        = "This subdomain is not allowed."
	MsgTaken             = "This subdomain is already taken."
	MsgCheckFailed       = "An error occurred while communicating with the cPanel API."
	MsgCreateFailed      = "The subdomain was approved, but creating it via the cPanel API failed. Please contact support."
	MsgReady             = "Congratulations! Your subdomain is ready."
	MsgReviewUnavailable = "The name review service did not respond. Please try again."
	testModePrefix       = "(Test Mode) "
)

// Result is the outcome of a provisioning attempt. Business rejections are
// results, not errors.
type Result struct {
	Success   bool              `json:"success"`
	IsError   bool              `json:"isError"`
	Message   string            `json:"message"`
	Subdomain string            `json:"subdomain,omitempty"`
	Record    *models.Subdomain `json:"record,omitempty"`
}

func rejected(msg string) *Result { return &Result{Message: msg, IsError: true} }

// Request asks for label under the configured root domain, optionally linked
// to one of the user's services.
type Request struct {
	UserID    string
	Label     string
	ServiceID string
}

// SettingsReader is the part of the settings store provisioning reads.
type SettingsReader interface {
	Domain(ctx context.Context) (models.DomainSettings, bool, error)
	DNS(ctx context.Context) (models.DNSSettings, bool, error)
}

// Panel is the hosting control panel API.
type Panel interface {
	IsAvailable(ctx context.Context, label, root string) (bool, error)
	AddSubdomain(ctx context.Context, label, root string) error
}

// PanelFactory builds a Panel for the configured account.
type PanelFactory func(cfg cpanel.Config) (Panel, error)

// CpanelFactory returns a PanelFactory backed by cpanel.Client.
func CpanelFactory(hc *http.Client) PanelFactory {
	return func(cfg cpanel.Config) (Panel, error) {
		c, err := cpanel.New(cfg, hc)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

// Provisioner runs the subdomain flow. Attempts for the same fqdn are
// serialised in-process; the unique fqdn column guards across processes.
type Provisioner struct {
	settings   SettingsReader
	reviewer   review.NameReviewer
	subdomains repository.SubdomainRepositoryI
	services   repository.ServiceRepositoryI
	newPanel   PanelFactory
	metrics    *telemetry.Collector
	locks      *kmutex.Kmutex
	log        *clog.Logger
}

// New returns a Provisioner. A nil metrics collector gets a private one.
func New(st SettingsReader, rv review.NameReviewer, subs repository.SubdomainRepositoryI, svcs repository.ServiceRepositoryI, newPanel PanelFactory, metrics *telemetry.Collector) *Provisioner {
	if metrics == nil {
		metrics = telemetry.NewCollector()
	}
	return &Provisioner{
		settings:   st,
		reviewer:   rv,
		subdomains: subs,
		services:   svcs,
		newPanel:   newPanel,
		metrics:    metrics,
		locks:      kmutex.New(),
		log:        logging.For("provisioning"),
	}
}

// Create provisions a subdomain for a customer. When DNS test mode is on the
// control panel is skipped but the subdomain is still recorded.
func (p *Provisioner) Create(ctx context.Context, req Request) (*Result, error) {
	return p.run(ctx, req, false)
}

// Test runs the flow in test mode for the admin DNS page. Nothing is persisted.
func (p *Provisioner) Test(ctx context.Context, label string) (*Result, error) {
	return p.run(ctx, Request{Label: label}, true)
}

func (p *Provisioner) run(ctx context.Context, req Request, adminTest bool) (res *Result, err error) {
	ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "provisioning.Create")
	defer func() {
		if res != nil {
			res.IsError = !res.Success
		}
		outcome := "rejected"
		switch {
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case res.Success:
			outcome = "created"
		}
		p.metrics.SubdomainRequests.WithLabelValues(outcome).Inc()
		span.End()
	}()

	label := strings.ToLower(strings.TrimSpace(req.Label))
	span.SetAttributes(attribute.String("subdomain.label", label), attribute.Bool("subdomain.admin_test", adminTest))
	if msg := LabelProblem(label); msg != "" {
		return nil, apperrors.Validation("Validation failed. Please check the form.", map[string]string{"subdomain": msg})
	}
	if req.ServiceID != "" {
		if _, err := p.ownedService(ctx, req.UserID, req.ServiceID); err != nil {
			return nil, err
		}
	}

	dom, _, err := p.settings.Domain(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read domain settings.", err)
	}
	root := strings.ToLower(strings.TrimSpace(dom.Domain))
	if root == "" {
		return rejected(MsgDomainMissing), nil
	}
	dns, _, err := p.settings.DNS(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read DNS settings.", err)
	}
	testMode := adminTest || dns.TestModeEnabled
	if !testMode && !dns.AutoDNSEnabled {
		return rejected(MsgAutoDNSDisabled), nil
	}
	cfg := settings.CpanelConfig(dns)
	if fields := cfg.Validate(); fields != nil && !testMode {
		return rejected(invalidSettingsMessage(fields)), nil
	}

	fqdn := label + "." + root
	p.locks.Lock(fqdn)
	defer p.locks.Unlock(fqdn)

	if existing, err := p.subdomains.GetByFQDN(ctx, fqdn); err != nil {
		return nil, apperrors.Internal("Failed to check existing subdomains.", err)
	} else if existing != nil {
		return rejected(MsgTaken), nil
	}

	verdict, err := p.reviewer.ReviewName(ctx, label)
	if err != nil {
		p.log.Warn("name review failed", "label", label, "err", err)
		return rejected(MsgReviewUnavailable), nil
	}
	if !verdict.Allowed {
		msg := verdict.Reason
		if msg == "" {
			msg = MsgNotAllowed
		}
		return rejected(msg), nil
	}

	if testMode {
		res := &Result{Success: true, Message: testModePrefix + MsgReady, Subdomain: fqdn}
		if adminTest {
			return res, nil
		}
		return p.record(ctx, req, label, fqdn, res)
	}

	panel, err := p.newPanel(cfg)
	if err != nil {
		return nil, apperrors.Internal("Failed to configure the cPanel client.", err)
	}
	ok, err := panel.IsAvailable(ctx, label, root)
	if err != nil {
		p.log.Warn("cpanel availability check failed", "fqdn", fqdn, "err", err)
		return rejected(availabilityMessage(err)), nil
	}
	if !ok {
		return rejected(MsgTaken), nil
	}
	if err := panel.AddSubdomain(ctx, label, root); err != nil {
		p.log.Error("cpanel add_subdomain failed", "fqdn", fqdn, "err", err)
		return rejected(MsgCreateFailed), nil
	}
	p.log.Info("subdomain created", "fqdn", fqdn, "user", req.UserID)
	return p.record(ctx, req, label, fqdn, &Result{Success: true, Message: MsgReady, Subdomain: fqdn})
}

func (p *Provisioner) record(ctx context.Context, req Request, label, fqdn string, res *Result) (*Result, error) {
	rec, err := p.subdomains.Create(ctx, &models.Subdomain{
		UserID:    req.UserID,
		Label:     label,
		FQDN:      fqdn,
		ServiceID: req.ServiceID,
	})
	if errors.Is(err, repository.ErrDuplicate) {
		return rejected(MsgTaken), nil
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to save the subdomain.", err)
	}
	res.Record = rec
	if req.ServiceID != "" {
		if err := p.services.SetSubdomain(ctx, req.ServiceID, fqdn); err != nil {
			return nil, apperrors.Internal("Failed to link the subdomain to the service.", err)
		}
	}
	return res, nil
}

func (p *Provisioner) ownedService(ctx context.Context, userID, serviceID string) (*models.Service, error) {
	s, err := p.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load the service.", err)
	}
	if s == nil || s.UserID != userID {
		return nil, apperrors.NotFound("Service not found.")
	}
	return s, nil
}

// List returns the user's subdomains, newest first.
func (p *Provisioner) List(ctx context.Context, userID string) ([]models.Subdomain, error) {
	list, err := p.subdomains.ListByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to load subdomains.", err)
	}
	return list, nil
}

// PanelAccess returns the service behind fqdn when userID owns it.
func (p *Provisioner) PanelAccess(ctx context.Context, userID, fqdn string) (*models.Service, error) {
	s, err := p.services.GetBySubdomain(ctx, strings.ToLower(strings.TrimSpace(fqdn)))
	if err != nil {
		return nil, apperrors.Internal("Failed to load the service.", err)
	}
	if s == nil || s.UserID != userID {
		return nil, apperrors.New(apperrors.CodePermissionDenied, "You do not have access to this domain.")
	}
	return s, nil
}

// LabelProblem returns the validation message for label, or "".
func LabelProblem(label string) string {
	switch {
	case len(label) < 3:
		return "Subdomain must be at least 3 characters long."
	case len(label) > 30:
		return "Subdomain must be no more than 30 characters long."
	case !validate.SubdomainLabel(label):
		return "Subdomain can only contain lowercase letters, numbers, and hyphens, and cannot start or end with a hyphen."
	}
	return ""
}

func invalidSettingsMessage(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return "cPanel provider settings are invalid or incomplete in the admin panel. Please check them. Errors: " + strings.Join(parts, ", ")
}

func availabilityMessage(err error) string {
	var ce *cpanel.Error
	if errors.As(err, &ce) {
		if len(ce.Messages) > 0 {
			return ce.Messages[0]
		}
		if ce.StatusCode != 0 && (ce.StatusCode < 200 || ce.StatusCode >= 300) {
			if ce.Body != "" {
				return fmt.Sprintf("Could not verify availability. cPanel API responded with status %d: %s", ce.StatusCode, ce.Body)
			}
			return fmt.Sprintf("Could not verify availability. cPanel API responded with status %d.", ce.StatusCode)
		}
		return "Unknown cPanel API error during check."
	}
	return MsgCheckFailed
}
