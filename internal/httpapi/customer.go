package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/auth"
	"webHostingPortal/internal/portal"
	"webHostingPortal/internal/provisioning"
)

// caller is the signed-in principal. Routes using it sit behind requireCustomer
// or requireAdmin.
func caller(r *http.Request) *auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

func (s *Server) handleMyServices(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Services.ListOwn(r.Context(), caller(r).Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": list})
}

func (s *Server) handleMyService(w http.ResponseWriter, r *http.Request) {
	svc, err := s.deps.Services.GetOwn(r.Context(), caller(r).Subject, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"service": svc})
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	var in struct {
		PlanID string `json:"planId"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Checkout.Start(r.Context(), caller(r).Subject, in.PlanID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Checkout.Get(r.Context(), caller(r).Subject, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSelectPayment(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Method string `json:"method"`
	}
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.deps.Checkout.SelectPayment(r.Context(), caller(r).Subject, mux.Vars(r)["id"], in.Method)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleConfirmCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Checkout.Confirm(r.Context(), caller(r).Subject, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleCancelCheckout(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Checkout.Cancel(r.Context(), caller(r).Subject, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Checkout cancelled.", map[string]any{"checkout": c})
}

func (s *Server) handleMySubdomains(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Provisioner.List(r.Context(), caller(r).Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"subdomains": list})
}

type subdomainRequest struct {
	Subdomain string `json:"subdomain"`
	ServiceID string `json:"serviceId"`
}

// handleCreateSubdomain answers 200 with success=false and isError=true for
// business rejections so the form can show the reason inline.
func (s *Server) handleCreateSubdomain(w http.ResponseWriter, r *http.Request) {
	var in subdomainRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Provisioner.Create(r.Context(), provisioning.Request{
		UserID:    caller(r).Subject,
		Label:     in.Subdomain,
		ServiceID: in.ServiceID,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	code := http.StatusOK
	if res.Success {
		code = http.StatusCreated
	}
	writeJSON(w, code, res)
}

// handlePanelAccess hands out the control panel address for a domain the
// customer owns.
func (s *Server) handlePanelAccess(w http.ResponseWriter, r *http.Request) {
	domain := strings.TrimSpace(r.URL.Query().Get("domain"))
	if domain == "" {
		s.writeError(w, r, apperrors.Validation("Domain is required.", map[string]string{"domain": "Domain is required."}))
		return
	}
	svc, err := s.deps.Provisioner.PanelAccess(r.Context(), caller(r).Subject, domain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	dns, _, err := s.deps.Settings.DNS(r.Context())
	if err != nil {
		s.writeError(w, r, apperrors.Internal("Failed to read DNS settings.", err))
		return
	}
	out := map[string]any{"service": svc, "domain": strings.ToLower(domain)}
	if dns.Host != "" {
		out["panelUrl"] = fmt.Sprintf("https://%s:%d", dns.Host, dns.CpanelPort())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMyTickets(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Support.ListOwn(r.Context(), caller(r).Subject)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": list})
}

func (s *Server) handleSubmitTicket(w http.ResponseWriter, r *http.Request) {
	var in portal.TicketInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := caller(r)
	res, err := s.deps.Support.Submit(r.Context(), p.Subject, p.Email, in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, res.Message, map[string]any{"ticket": res.Ticket, "result": res.Priority})
}

func (s *Server) handleMyTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Support.GetOwn(r.Context(), caller(r).Subject, mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": t})
}

type replyRequest struct {
	Message string `json:"message"`
}

func (s *Server) handleUserReply(w http.ResponseWriter, r *http.Request) {
	var in replyRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p := caller(r)
	rp, err := s.deps.Support.ReplyAsUser(r.Context(), p.Subject, p.Email, mux.Vars(r)["id"], in.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Reply sent.", map[string]any{"reply": rp})
}
