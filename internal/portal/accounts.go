// Package portal implements the storefront, customer dashboard and admin
// operations on top of the repositories.
package portal

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	clog "github.com/charmbracelet/log"
	"github.com/juju/clock"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/ipinfo"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/mailer"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/internal/validate"
	"webHostingPortal/models"
	"webHostingPortal/repository"
)

// CodeTTL is how long login, verification and reset codes stay valid.
const CodeTTL = 10 * time.Minute

const (
	msgInvalidCredentials = "Invalid email or password."
	msgInvalidCode        = "Invalid or expired verification code."
	msgResetGeneric       = "If an account with that email exists, we have sent instructions to reset your password."
)

// AccountSettings is the part of the settings store accounts read.
type AccountSettings interface {
	SMTP(ctx context.Context) (models.SMTPSettings, error)
	Security(ctx context.Context) (models.SecuritySettings, error)
}

// PrivacyLookup reports anonymising-network signals for an IP.
type PrivacyLookup interface {
	Lookup(ctx context.Context, ip, token string) (*ipinfo.Privacy, error)
}

// AccountsConfig carries the session settings.
type AccountsConfig struct {
	AppName   string
	JWTSecret string
	TokenTTL  time.Duration
}

// Accounts handles registration, sign-in and password recovery.
type Accounts struct {
	users    *repository.UserRepository
	admins   *repository.AdminRepository
	audit    *Audit
	settings AccountSettings
	mail     mailer.Sender
	privacy  PrivacyLookup
	cfg      AccountsConfig
	clock    clock.Clock
	metrics  *telemetry.Collector
	log      *clog.Logger
}

func NewAccounts(users *repository.UserRepository, admins *repository.AdminRepository, audit *Audit, st AccountSettings, mail mailer.Sender, privacy PrivacyLookup, cfg AccountsConfig, clk clock.Clock, metrics *telemetry.Collector) *Accounts {
	if clk == nil {
		clk = clock.WallClock
	}
	if metrics == nil {
		metrics = telemetry.NewCollector()
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Accounts{
		users:    users,
		admins:   admins,
		audit:    audit,
		settings: st,
		mail:     mail,
		privacy:  privacy,
		cfg:      cfg,
		clock:    clk,
		metrics:  metrics,
		log:      logging.For("accounts"),
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	IP              string `json:"-"`
}

// RegisterResult tells the client whether a verification code is on its way.
type RegisterResult struct {
	Message              string       `json:"message"`
	RequiresVerification bool         `json:"requiresVerification"`
	Email                string       `json:"email"`
	User                 *models.User `json:"user"`
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (*RegisterResult, error) {
	email := normalizeEmail(in.Email)
	f := validate.Fields{}
	f.Check(validate.Email(email), "email", "Invalid email address.")
	f.Check(len(in.Password) >= 6, "password", "Password must be at least 6 characters.")
	f.Check(in.Password == in.ConfirmPassword, "confirmPassword", "Passwords do not match.")
	if !f.Empty() {
		return nil, apperrors.Validation("Validation failed.", f)
	}

	sec, err := a.settings.Security(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read security settings.", err)
	}
	if sec.MultiLoginProtectionEnabled {
		seen, err := a.audit.RegisteredFrom(ctx, in.IP)
		if err != nil {
			return nil, apperrors.Internal("Failed to check registration history.", err)
		}
		if seen {
			return nil, apperrors.New(apperrors.CodeConflict, "An account has already been registered from this IP address.")
		}
	}
	if sec.AntiVPNEnabled && sec.IPInfoAPIToken != "" && a.privacy != nil {
		p, err := a.privacy.Lookup(ctx, in.IP, sec.IPInfoAPIToken)
		switch {
		case err != nil:
			a.log.Warn("ipinfo lookup failed, allowing registration", "ip", in.IP, "err", err)
		case p.Anonymous():
			return nil, apperrors.New(apperrors.CodePermissionDenied, "Registrations from VPNs, proxies, or hosting services are not allowed.")
		}
	}

	smtp, err := a.settings.SMTP(ctx)
	if err != nil {
		return nil, apperrors.Internal("Failed to read SMTP settings.", err)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.Internal("Failed to create account.", err)
	}
	status := models.UserStatusActive
	if smtp.VerificationRequired() {
		status = models.UserStatusPending
	}
	u, err := a.users.Create(ctx, &models.User{Email: email, PasswordHash: hash, Status: status})
	if errors.Is(err, repository.ErrDuplicate) {
		return nil, apperrors.New(apperrors.CodeConflict, "An account with this email already exists.")
	}
	if err != nil {
		return nil, apperrors.Internal("Failed to create account.", err)
	}
	a.audit.Record(ctx, email, models.AuthActionRegister, in.IP)

	if status == models.UserStatusActive {
		return &RegisterResult{Message: "Account created successfully! Redirecting to login...", Email: email, User: u}, nil
	}
	if err := a.sendCode(ctx, u, repository.CodeVerification, mailer.VerificationMessage); err != nil {
		// The account exists; signing in with the right password sends a new code.
		a.log.Error("verification email failed", "email", email, "err", err)
	}
	return &RegisterResult{
		Message:              "Account created! We've sent a verification code to your email.",
		RequiresVerification: true,
		Email:                email,
		User:                 u,
	}, nil
}

// LoginResult is either a finished sign-in (Token set) or a pending second
// step (NextStep "verify").
type LoginResult struct {
	Message  string `json:"message"`
	NextStep string `json:"nextStep,omitempty"`
	UserID   string `json:"userId,omitempty"`
	Token    string `json:"token,omitempty"`
	Kind     string `json:"kind,omitempty"`
}

// Login checks credentials. Admins are signed in directly; customers get a
// login code by email and finish with VerifyLogin.
func (a *Accounts) Login(ctx context.Context, email, password, ip string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.Validation("Email and password are required.", nil)
	}

	adm, err := a.admins.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Failed to sign in.", err)
	}
	if adm != nil {
		if !auth.CheckPassword(adm.PasswordHash, password) {
			a.metrics.AuthEvents.WithLabelValues(models.AuthActionLogin, "failed").Inc()
			return nil, apperrors.New(apperrors.CodeUnauthenticated, msgInvalidCredentials)
		}
		token, err := a.issue(adm.ID, adm.Email, auth.KindAdmin)
		if err != nil {
			return nil, err
		}
		a.audit.Record(ctx, email, models.AuthActionLogin, ip)
		return &LoginResult{Message: "Welcome back!", UserID: adm.ID, Token: token, Kind: auth.KindAdmin}, nil
	}

	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Internal("Failed to sign in.", err)
	}
	if u == nil || !auth.CheckPassword(u.PasswordHash, password) {
		a.metrics.AuthEvents.WithLabelValues(models.AuthActionLogin, "failed").Inc()
		return nil, apperrors.New(apperrors.CodeUnauthenticated, msgInvalidCredentials)
	}
	switch u.Status {
	case models.UserStatusPending:
		if err := a.sendCode(ctx, u, repository.CodeVerification, mailer.VerificationMessage); err != nil {
			a.log.Error("verification resend failed", "email", email, "err", err)
		}
		return nil, apperrors.New(apperrors.CodePermissionDenied, "Your account is pending verification. We've sent a new verification code to your email.")
	case models.UserStatusActive:
	default:
		return nil, apperrors.New(apperrors.CodePermissionDenied, "Your account has been "+strings.ToLower(string(u.Status))+". Please contact support.")
	}
	if err := a.sendCode(ctx, u, repository.CodeLogin, mailer.LoginCodeMessage); err != nil {
		return nil, err
	}
	return &LoginResult{
		Message:  "We've sent a 6-digit verification code to your email address.",
		NextStep: "verify",
		UserID:   u.ID,
	}, nil
}

// VerifyLogin finishes a customer sign-in with the emailed code.
func (a *Accounts) VerifyLogin(ctx context.Context, userID, code, ip string) (*LoginResult, error) {
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("Failed to verify code.", err)
	}
	if u == nil || !u.CanSignIn() || !a.codeValid(u.LoginCode, u.LoginCodeExpires, code) {
		a.metrics.AuthEvents.WithLabelValues(models.AuthActionLogin, "failed").Inc()
		return nil, apperrors.New(apperrors.CodeUnauthenticated, msgInvalidCode)
	}
	if err := a.users.SetCode(ctx, u.ID, repository.CodeLogin, "", time.Time{}); err != nil {
		return nil, apperrors.Internal("Failed to verify code.", err)
	}
	token, err := a.issue(u.ID, u.Email, auth.KindCustomer)
	if err != nil {
		return nil, err
	}
	a.audit.Record(ctx, u.Email, models.AuthActionLogin, ip)
	return &LoginResult{Message: "Signed in.", UserID: u.ID, Token: token, Kind: auth.KindCustomer}, nil
}

// Activate verifies a pending account with the code sent at registration.
func (a *Accounts) Activate(ctx context.Context, email, code, ip string) (string, error) {
	email = normalizeEmail(email)
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Internal("Failed to verify account.", err)
	}
	if u == nil || u.Status != models.UserStatusPending || !a.codeValid(u.VerificationCode, u.VerificationExpires, code) {
		return "", apperrors.Validation(msgInvalidCode, nil)
	}
	if err := a.users.UpdateStatus(ctx, u.ID, models.UserStatusActive); err != nil {
		return "", apperrors.Internal("Failed to verify account.", err)
	}
	if err := a.users.SetCode(ctx, u.ID, repository.CodeVerification, "", time.Time{}); err != nil {
		return "", apperrors.Internal("Failed to verify account.", err)
	}
	a.audit.Record(ctx, email, models.AuthActionVerification, ip)
	return "Your account has been verified! You can now log in.", nil
}

// RequestPasswordReset emails a reset code. The answer is the same whether
// or not the account exists.
func (a *Accounts) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = normalizeEmail(email)
	if !validate.Email(email) {
		return "", apperrors.Validation("Please enter a valid email address.", map[string]string{"email": "Please enter a valid email address."})
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Internal("An error occurred. Please try again later.", err)
	}
	if u == nil {
		return msgResetGeneric, nil
	}
	if err := a.sendCode(ctx, u, repository.CodeReset, mailer.PasswordResetMessage); err != nil {
		a.log.Error("password reset email failed", "email", email, "err", err)
	}
	return msgResetGeneric, nil
}

// ResetPasswordInput is the password reset form.
type ResetPasswordInput struct {
	Email           string `json:"email"`
	OTP             string `json:"otp"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (a *Accounts) ResetPassword(ctx context.Context, in ResetPasswordInput) (string, error) {
	email := normalizeEmail(in.Email)
	otp := strings.TrimSpace(in.OTP)
	f := validate.Fields{}
	f.Check(validate.Email(email), "email", "Please enter a valid email address.")
	f.Check(len(otp) == 6, "otp", "OTP must be 6 digits.")
	f.Check(len(in.Password) >= 6, "password", "Password must be at least 6 characters.")
	f.Check(in.Password == in.ConfirmPassword, "confirmPassword", "Passwords do not match.")
	if !f.Empty() {
		return "", apperrors.Validation("Validation failed.", f)
	}
	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		return "", apperrors.Internal("An error occurred. Please try again.", err)
	}
	if u == nil {
		return "", apperrors.Validation("Invalid OTP or email address.", nil)
	}
	if !a.codeValid(u.ResetOTP, u.ResetOTPExpires, otp) {
		return "", apperrors.Validation("Invalid or expired OTP.", nil)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return "", apperrors.Internal("An error occurred. Please try again.", err)
	}
	if err := a.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return "", apperrors.Internal("An error occurred. Please try again.", err)
	}
	if err := a.users.SetCode(ctx, u.ID, repository.CodeReset, "", time.Time{}); err != nil {
		return "", apperrors.Internal("An error occurred. Please try again.", err)
	}
	a.log.Info("password reset", "user", u.ID)
	return "Password has been reset successfully! You can now log in.", nil
}

type messageFunc func(app, to, code string) mailer.Message

func (a *Accounts) sendCode(ctx context.Context, u *models.User, kind repository.CodeKind, build messageFunc) error {
	code, err := auth.NewCode(6)
	if err != nil {
		return apperrors.Internal("Failed to send verification code.", err)
	}
	if err := a.users.SetCode(ctx, u.ID, kind, code, a.clock.Now().Add(CodeTTL)); err != nil {
		return apperrors.Internal("Failed to send verification code.", err)
	}
	if err := a.mail.Send(ctx, build(a.cfg.AppName, u.Email, code)); err != nil {
		a.metrics.MailFailures.Inc()
		if errors.Is(err, mailer.ErrNotConfigured) {
			return apperrors.Wrap(apperrors.CodeUnavailable, mailer.ErrNotConfigured.Error(), err)
		}
		return apperrors.Wrap(apperrors.CodeExternal, "Failed to send verification code.", err)
	}
	return nil
}

func (a *Accounts) codeValid(stored string, expires time.Time, given string) bool {
	given = strings.TrimSpace(given)
	if stored == "" || given == "" || !a.clock.Now().Before(expires) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1
}

func (a *Accounts) issue(subject, email, kind string) (string, error) {
	token, err := auth.IssueToken(a.cfg.JWTSecret, auth.Principal{Subject: subject, Email: email, Kind: kind}, a.cfg.TokenTTL)
	if err != nil {
		return "", apperrors.Internal("Failed to start session.", err)
	}
	return token, nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
