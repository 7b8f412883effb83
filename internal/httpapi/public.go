package httpapi

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/portal"
	"webHostingPortal/models"
)

func (s *Server) handleStorefront(w http.ResponseWriter, r *http.Request) {
	sf, err := s.deps.Catalog.Storefront(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sf)
}

func (s *Server) handleListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := s.deps.Catalog.ListPlans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plans": plans})
}

func (s *Server) handleGetPlan(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Catalog.GetPlan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"plan": p})
}

// handleMaintenanceStatus lets pages show the banner without being gated.
func (s *Server) handleMaintenanceStatus(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Settings.Maintenance(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := map[string]any{"enabled": m.Enabled, "type": m.Type, "notice": maintenanceNotice(m)}
	if m.Enabled && m.Type == models.MaintenanceFull {
		out["message"] = m.FullMessage
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveAds(w http.ResponseWriter, r *http.Request) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		s.writeError(w, r, apperrors.Validation("Location is required.", map[string]string{"location": "Location is required"}))
		return
	}
	ads, err := s.deps.Settings.ActiveAdvertisements(r.Context(), location)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"advertisements": ads})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in portal.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	in.IP = clientIP(r, s.deps.TrustProxy)
	res, err := s.deps.Accounts.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, res.Message, map[string]any{
		"requiresVerification": res.RequiresVerification,
		"email":                res.Email,
		"user":                 res.User,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Accounts.Login(r.Context(), in.Email, in.Password, clientIP(r, s.deps.TrustProxy))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type verifyLoginRequest struct {
	UserID string `json:"userId"`
	Code   string `json:"code"`
}

func (s *Server) handleVerifyLogin(w http.ResponseWriter, r *http.Request) {
	var in verifyLoginRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Accounts.VerifyLogin(r.Context(), in.UserID, in.Code, clientIP(r, s.deps.TrustProxy))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type activateRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	var in activateRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Accounts.Activate(r.Context(), in.Email, in.Code, clientIP(r, s.deps.TrustProxy))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, msg, nil)
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Accounts.RequestPasswordReset(r.Context(), in.Email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, msg, nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in portal.ResetPasswordInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	msg, err := s.deps.Accounts.ResetPassword(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, msg, nil)
}
