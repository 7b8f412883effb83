package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"webHostingPortal/internal/apperrors"
	"webHostingPortal/internal/portal"
	"webHostingPortal/models"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	st, err := s.deps.Dashboard.Stats(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSavePlan(w http.ResponseWriter, r *http.Request) {
	var in portal.PlanInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	code, msg := http.StatusCreated, "Plan created successfully."
	if id := mux.Vars(r)["id"]; id != "" {
		in.ID = id
		code, msg = http.StatusOK, "Plan updated successfully."
	}
	p, err := s.deps.Catalog.SavePlan(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, code, msg, map[string]any{"plan": p})
}

func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Catalog.DeletePlan(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Plan deleted successfully.", nil)
}

// listParam accepts repeated or comma separated values.
func listParam(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func intParam(r *http.Request, key string, def, min, max int) int {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// timeParam parses RFC 3339 or a bare date. A bare "to" date covers the whole day.
func timeParam(r *http.Request, key string, endOfDay bool) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.Validation("Invalid date.", map[string]string{key: "Use YYYY-MM-DD or RFC 3339."})
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	from, err := timeParam(r, "from", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	to, err := timeParam(r, "to", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	q := portal.OrderQuery{
		UserID:    strings.TrimSpace(r.URL.Query().Get("user")),
		From:      from,
		To:        to,
		PageSize:  intParam(r, "pageSize", 50, 1, 200),
		PageToken: r.URL.Query().Get("pageToken"),
	}
	for _, st := range listParam(r, "status") {
		q.Statuses = append(q.Statuses, models.ServiceStatus(st))
	}
	page, err := s.deps.Services.ListOrders(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	svc, err := s.deps.Services.UpdateServiceStatus(r.Context(), mux.Vars(r)["id"], models.ServiceStatus(in.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Service status updated.", map[string]any{"service": svc})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := s.deps.Services.ListUsers(r.Context(), intParam(r, "limit", 50, 1, 500), intParam(r, "offset", 0, 0, 1<<30))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Services.GetUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Services.UpdateUserStatus(r.Context(), mux.Vars(r)["id"], models.UserStatus(in.Status))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "User status updated.", map[string]any{"user": u})
}

func (s *Server) handleAdminTickets(w http.ResponseWriter, r *http.Request) {
	var statuses []models.TicketStatus
	for _, st := range listParam(r, "status") {
		statuses = append(statuses, models.TicketStatus(st))
	}
	list, err := s.deps.Support.List(r.Context(), statuses)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickets": list})
}

func (s *Server) handleAdminTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.deps.Support.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ticket": t})
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var in statusRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.deps.Support.UpdateStatus(r.Context(), mux.Vars(r)["id"], models.TicketStatus(in.Status)); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Ticket status updated.", nil)
}

func (s *Server) handleAdminReply(w http.ResponseWriter, r *http.Request) {
	var in replyRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	rp, err := s.deps.Support.ReplyAsAdmin(r.Context(), caller(r).Email, mux.Vars(r)["id"], in.Message)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusCreated, "Reply sent.", map[string]any{"reply": rp})
}

func (s *Server) handleClearTickets(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Support.ClearAll(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "All tickets have been cleared.", map[string]any{"deleted": n})
}

func (s *Server) handleBulkAutoReply(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Support.BulkAutoReply(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	msg := "No open tickets to reply to."
	if n > 0 {
		msg = "Auto-reply sent to " + strconv.Itoa(n) + " ticket(s)."
	}
	writeOK(w, http.StatusOK, msg, map[string]any{"count": n})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	v, err := s.deps.Settings.Get(r.Context(), mux.Vars(r)["section"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"settings": v})
}

func (s *Server) handleSaveSettings(w http.ResponseWriter, r *http.Request) {
	body, err := readRaw(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	section := mux.Vars(r)["section"]
	if _, err := s.deps.Settings.Save(r.Context(), section, body); err != nil {
		s.writeError(w, r, err)
		return
	}
	v, err := s.deps.Settings.Get(r.Context(), section)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("settings saved", "section", section, "by", caller(r).Email)
	writeOK(w, http.StatusOK, "Settings saved successfully!", map[string]any{"settings": v})
}

func (s *Server) handleSaveAd(w http.ResponseWriter, r *http.Request) {
	var in models.Advertisement
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	if id, ok := mux.Vars(r)["id"]; ok {
		in.ID = id
	}
	ad, err := s.deps.Settings.SaveAdvertisement(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, fmt.Sprintf("Advertisement %q has been saved.", ad.Name), map[string]any{"advertisement": ad})
}

func (s *Server) handleDeleteAd(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Settings.DeleteAdvertisement(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Advertisement deleted successfully.", nil)
}

func (s *Server) handleDNSTest(w http.ResponseWriter, r *http.Request) {
	var in subdomainRequest
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.deps.Provisioner.Test(r.Context(), in.Subdomain)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAuthLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.deps.Audit.List(r.Context(), intParam(r, "limit", 200, 1, 1000))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (s *Server) handleClearAuthLogs(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Audit.Clear(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeOK(w, http.StatusOK, "Successfully cleared "+strconv.FormatInt(n, 10)+" log entries.", map[string]any{"deleted": n})
}

func (s *Server) handleMultiLogin(w http.ResponseWriter, r *http.Request) {
	groups, err := s.deps.Audit.MultiLoginReport(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}
