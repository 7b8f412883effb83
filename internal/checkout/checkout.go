// Package checkout turns a plan into a purchased service through a small
// state machine:
//
//	review --SelectPayment--> payment --Confirm--> completed
//	review|payment --Cancel--> cancelled
package checkout

import (
	"context"
	"errors"
	"fmt"

	clog "github.com/charmbracelet/log"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/db"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// GatewaySource returns the enabled payment gateways. Implementations fall
// back to the fake gateway when nothing is configured.
type GatewaySource interface {
	Gateways(ctx context.Context) models.GatewaySettings
}

// Method is one selectable payment option.
type Method struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	QRCodeURL string `json:"qrCodeUrl,omitempty"`
}

// Options are the payment choices offered for a checkout.
type Options struct {
	Methods []Method `json:"methods"`
	Default string   `json:"default"`
}

// Has reports whether id is one of the offered methods.
func (o Options) Has(id string) bool {
	for _, m := range o.Methods {
		if m.ID == id {
			return true
		}
	}
	return false
}

// OptionsFrom lists enabled gateways. The fake gateway is preferred as the
// default; with nothing enabled the fake gateway is offered alone.
func OptionsFrom(g models.GatewaySettings) Options {
	var o Options
	if g.FakeGateway.Enabled {
		o.Methods = append(o.Methods, Method{ID: models.PaymentFakeGateway, Label: "Pay with QR code", QRCodeURL: g.FakeGateway.QRCodeURL})
	}
	if g.Razorpay.Enabled {
		o.Methods = append(o.Methods, Method{ID: models.PaymentRazorpay, Label: "Razorpay"})
	}
	if len(o.Methods) == 0 {
		return OptionsFrom(models.DefaultGatewaySettings())
	}
	o.Default = o.Methods[0].ID
	return o
}

// Session is a checkout with the plan and payment options it was opened for.
type Session struct {
	Checkout *models.Checkout `json:"checkout"`
	Plan     *models.Plan     `json:"plan"`
	Options  Options          `json:"options"`
	Service  *models.Service  `json:"service,omitempty"`
}

// Service runs checkouts.
type Service struct {
	db        *db.DB
	checkouts *repository.CheckoutRepository
	plans     *repository.PlanRepository
	services  *repository.ServiceRepository
	gateways  GatewaySource
	metrics   *telemetry.Collector
	log       *clog.Logger
}

func New(d *db.DB, checkouts *repository.CheckoutRepository, plans *repository.PlanRepository, services *repository.ServiceRepository, gateways GatewaySource, metrics *telemetry.Collector) *Service {
	if metrics == nil {
		metrics = telemetry.NewCollector()
	}
	return &Service{
		db:        d,
		checkouts: checkouts,
		plans:     plans,
		services:  services,
		gateways:  gateways,
		metrics:   metrics,
		log:       logging.For("checkout"),
	}
}

// Start opens a checkout for planID in the review step.
func (s *Service) Start(ctx context.Context, userID, planID string) (*Session, error) {
	plan, err := s.plan(ctx, planID)
	if err != nil {
		return nil, err
	}
	opts := OptionsFrom(s.gateways.Gateways(ctx))
	c, err := s.checkouts.Create(ctx, &models.Checkout{UserID: userID, PlanID: plan.ID, PaymentMethod: opts.Default})
	if err != nil {
		return nil, apperrors.Internal("Failed to start checkout.", err)
	}
	s.metrics.CheckoutTransitions.WithLabelValues(string(models.CheckoutReview)).Inc()
	return &Session{Checkout: c, Plan: plan, Options: opts}, nil
}

// Get returns the caller's checkout.
func (s *Service) Get(ctx context.Context, userID, id string) (*Session, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	plan, err := s.plan(ctx, c.PlanID)
	if err != nil {
		return nil, err
	}
	sess := &Session{Checkout: c, Plan: plan, Options: OptionsFrom(s.gateways.Gateways(ctx))}
	if c.ServiceID != "" {
		if sess.Service, err = s.services.GetByID(ctx, c.ServiceID); err != nil {
			return nil, apperrors.Internal("Failed to load the service.", err)
		}
	}
	return sess, nil
}

// SelectPayment records the payment method and moves to the payment step.
// The method can be changed again while in the payment step.
func (s *Service) SelectPayment(ctx context.Context, userID, id, method string) (*Session, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CheckoutReview && c.Status != models.CheckoutPayment {
		return nil, invalidTransition("select a payment method for", c.Status)
	}
	opts := OptionsFrom(s.gateways.Gateways(ctx))
	if !opts.Has(method) {
		return nil, apperrors.Validation("Please choose an available payment method.", map[string]string{"paymentMethod": "This payment method is not available."})
	}
	from := c.Status
	c.Status = models.CheckoutPayment
	c.PaymentMethod = method
	if err := s.transition(ctx, c, from); err != nil {
		return nil, err
	}
	return s.Get(ctx, userID, id)
}

// Confirm completes the payment step. The service is created and the
// checkout completed in one transaction. Fake-gateway orders are active at
// once; real gateways leave the service pending until payment is verified.
func (s *Service) Confirm(ctx context.Context, userID, id string) (*Session, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CheckoutPayment {
		return nil, invalidTransition("confirm", c.Status)
	}
	if !OptionsFrom(s.gateways.Gateways(ctx)).Has(c.PaymentMethod) {
		return nil, apperrors.Validation("The selected payment method is no longer available. Please choose another.", nil)
	}
	plan, err := s.plan(ctx, c.PlanID)
	if err != nil {
		return nil, err
	}
	status := models.ServiceStatusPending
	if c.PaymentMethod == models.PaymentFakeGateway {
		status = models.ServiceStatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, apperrors.Internal("Failed to place the order.", err)
	}
	svc, err := s.services.CreateTx(ctx, tx, models.NewServiceFromPlan(userID, plan, c.PaymentMethod, status))
	if err != nil {
		_ = tx.Rollback()
		return nil, apperrors.Internal("Failed to place the order.", err)
	}
	c.Status = models.CheckoutCompleted
	c.ServiceID = svc.ID
	if err := s.checkouts.TransitionTx(ctx, tx, c, models.CheckoutPayment); err != nil {
		_ = tx.Rollback()
		return nil, transitionErr(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, apperrors.Internal("Failed to place the order.", err)
	}
	s.metrics.CheckoutTransitions.WithLabelValues(string(models.CheckoutCompleted)).Inc()
	s.log.Info("order placed", "user", userID, "plan", plan.ID, "service", svc.ID, "method", c.PaymentMethod, "status", status)
	return &Session{Checkout: c, Plan: plan, Options: OptionsFrom(s.gateways.Gateways(ctx)), Service: svc}, nil
}

// Cancel abandons a checkout that has not completed.
func (s *Service) Cancel(ctx context.Context, userID, id string) (*models.Checkout, error) {
	c, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, invalidTransition("cancel", c.Status)
	}
	from := c.Status
	c.Status = models.CheckoutCancelled
	if err := s.transition(ctx, c, from); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) transition(ctx context.Context, c *models.Checkout, from models.CheckoutStatus) error {
	if err := s.checkouts.Transition(ctx, c, from); err != nil {
		return transitionErr(err)
	}
	s.metrics.CheckoutTransitions.WithLabelValues(string(c.Status)).Inc()
	return nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (*models.Checkout, error) {
	c, err := s.checkouts.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load checkout.", err)
	}
	if c == nil || c.UserID != userID {
		return nil, apperrors.NotFound("Checkout not found.")
	}
	return c, nil
}

func (s *Service) plan(ctx context.Context, id string) (*models.Plan, error) {
	p, err := s.plans.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("Failed to load plan.", err)
	}
	if p == nil {
		return nil, apperrors.NotFound("Plan not found.")
	}
	return p, nil
}

func invalidTransition(action string, st models.CheckoutStatus) error {
	return apperrors.Validation(fmt.Sprintf("Cannot %s a checkout that is %s.", action, st), nil)
}

func transitionErr(err error) error {
	if errors.Is(err, repository.ErrStaleState) {
		return apperrors.Wrap(apperrors.CodeConflict, "This checkout was updated elsewhere. Please refresh and try again.", err)
	}
	return apperrors.Internal("Failed to update checkout.", err)
}
