package checkout

import (
	"context"
	"testing"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/testutil"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

type staticGateways models.GatewaySettings

func (g *staticGateways) Gateways(context.Context) models.GatewaySettings {
	return models.GatewaySettings(*g)
}

func newService(t *testing.T, name string, g *staticGateways) (*Service, *models.Plan) {
	t.Helper()
	d := testutil.OpenInMemoryDB(t, name)
	plans := repository.NewPlanRepository(d)
	plan, err := plans.Save(context.Background(), &models.Plan{Name: "Premium", Price: 10, Websites: models.UnlimitedWebsites, StorageMB: 10240, Features: []string{"Unlimited Websites"}})
	if err != nil {
		t.Fatalf("save plan: %v", err)
	}
	return New(d, repository.NewCheckoutRepository(d), plans, repository.NewServiceRepository(d), g, nil), plan
}

func TestOptionsFrom(t *testing.T) {
	o := OptionsFrom(models.GatewaySettings{})
	if len(o.Methods) != 1 || o.Default != models.PaymentFakeGateway {
		t.Fatalf("empty settings should fall back to fake: %+v", o)
	}
	o = OptionsFrom(models.GatewaySettings{Razorpay: models.RazorpaySettings{Enabled: true}})
	if o.Default != models.PaymentRazorpay || o.Has(models.PaymentFakeGateway) {
		t.Fatalf("razorpay only: %+v", o)
	}
	o = OptionsFrom(models.GatewaySettings{FakeGateway: models.FakeGatewaySettings{Enabled: true, QRCodeURL: "https://qr"}, Razorpay: models.RazorpaySettings{Enabled: true}})
	if o.Default != models.PaymentFakeGateway || len(o.Methods) != 2 || o.Methods[0].QRCodeURL != "https://qr" {
		t.Fatalf("both: %+v", o)
	}
}

func TestCheckout_FakeGatewayActivatesService(t *testing.T) {
	ctx := context.Background()
	g := staticGateways(models.DefaultGatewaySettings())
	svc, plan := newService(t, "checkout_fake", &g)

	sess, err := svc.Start(ctx, "u1", plan.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Checkout.Status != models.CheckoutReview || sess.Checkout.PaymentMethod != models.PaymentFakeGateway {
		t.Fatalf("unexpected start %+v", sess.Checkout)
	}
	id := sess.Checkout.ID

	if _, err := svc.Confirm(ctx, "u1", id); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("confirm from review should fail validation, got %v", err)
	}
	if _, err := svc.SelectPayment(ctx, "u1", id, models.PaymentRazorpay); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("disabled method should be rejected, got %v", err)
	}
	if _, err := svc.SelectPayment(ctx, "u2", id, models.PaymentFakeGateway); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("foreign checkout should be hidden, got %v", err)
	}

	sess, err = svc.SelectPayment(ctx, "u1", id, models.PaymentFakeGateway)
	if err != nil || sess.Checkout.Status != models.CheckoutPayment {
		t.Fatalf("select: %+v %v", sess, err)
	}
	sess, err = svc.Confirm(ctx, "u1", id)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if sess.Checkout.Status != models.CheckoutCompleted || sess.Service == nil {
		t.Fatalf("unexpected confirm %+v", sess)
	}
	if sess.Service.Status != models.ServiceStatusActive || sess.Service.PlanName != "Premium" || sess.Service.Price != 10 {
		t.Fatalf("service snapshot wrong: %+v", sess.Service)
	}

	again, err := svc.Get(ctx, "u1", id)
	if err != nil || again.Service == nil || again.Service.ID != sess.Service.ID {
		t.Fatalf("get after confirm: %+v %v", again, err)
	}
	if _, err := svc.Cancel(ctx, "u1", id); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("completed checkout cannot be cancelled, got %v", err)
	}
	if _, err := svc.Confirm(ctx, "u1", id); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("double confirm should fail, got %v", err)
	}
}

func TestCheckout_RealGatewayLeavesServicePending(t *testing.T) {
	ctx := context.Background()
	g := staticGateways{Razorpay: models.RazorpaySettings{Enabled: true}}
	svc, plan := newService(t, "checkout_razorpay", &g)

	sess, err := svc.Start(ctx, "u1", plan.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.SelectPayment(ctx, "u1", sess.Checkout.ID, models.PaymentRazorpay); err != nil {
		t.Fatalf("select: %v", err)
	}
	done, err := svc.Confirm(ctx, "u1", sess.Checkout.ID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if done.Service.Status != models.ServiceStatusPending || done.Service.PaymentMethod != models.PaymentRazorpay {
		t.Fatalf("expected pending razorpay service, got %+v", done.Service)
	}
}

func TestCheckout_CancelAndUnknownPlan(t *testing.T) {
	ctx := context.Background()
	g := staticGateways(models.DefaultGatewaySettings())
	svc, plan := newService(t, "checkout_cancel", &g)

	if _, err := svc.Start(ctx, "u1", "missing"); apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("unknown plan: %v", err)
	}
	sess, _ := svc.Start(ctx, "u1", plan.ID)
	c, err := svc.Cancel(ctx, "u1", sess.Checkout.ID)
	if err != nil || c.Status != models.CheckoutCancelled {
		t.Fatalf("cancel: %+v %v", c, err)
	}
	if _, err := svc.SelectPayment(ctx, "u1", c.ID, models.PaymentFakeGateway); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("cancelled checkout is final, got %v", err)
	}

	// Disabling the chosen gateway between steps blocks confirmation.
	sess, _ = svc.Start(ctx, "u1", plan.ID)
	if _, err := svc.SelectPayment(ctx, "u1", sess.Checkout.ID, models.PaymentFakeGateway); err != nil {
		t.Fatalf("select: %v", err)
	}
	g = staticGateways{Razorpay: models.RazorpaySettings{Enabled: true}}
	if _, err := svc.Confirm(ctx, "u1", sess.Checkout.ID); apperrors.CodeOf(err) != apperrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}
