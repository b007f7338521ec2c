// Package admin serves the token protected statistics dashboard.
package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/rampantspark/goforwarded/internal/stats"
)

const (
	topItemsCount  = 10
	recentRequests = 50
)

// Handler handles admin UI HTTP requests.
type Handler struct {
	auth         *Authenticator
	statsManager *stats.Manager
	renderer     *Renderer
	clientIP     func(*http.Request) string
	logger       *slog.Logger
}

// NewHandler creates a new admin handler.
//
// Parameters:
//   - auth: authenticator instance
//   - statsManager: stats manager for retrieving data
//   - clientIP: resolves the client address for audit logging
//   - logger: structured logger instance
//
// Returns a new Handler instance.
func NewHandler(auth *Authenticator, statsManager *stats.Manager, clientIP func(*http.Request) string, logger *slog.Logger) *Handler {
	return &Handler{
		auth:         auth,
		statsManager: statsManager,
		renderer:     NewRenderer(auth.Path()),
		clientIP:     clientIP,
		logger:       logger,
	}
}

// Register adds the admin routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	path := h.auth.Path()
	mux.HandleFunc("GET "+path, h.HandleUI)
	mux.HandleFunc("GET "+path+"/login", h.HandleLogin)
	mux.HandleFunc("GET "+path+"/data", h.HandleData)
}

// HandleLogin validates the token query parameter, sets the session cookie
// and redirects to the dashboard so the token does not stay in the URL.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.auth.ValidateToken(r.URL.Query().Get("token")) {
		h.logger.Warn("Failed admin login attempt",
			"ip", h.clientIP(r),
			"remote_addr", r.RemoteAddr,
			"user_agent", r.Header.Get("User-Agent"))
		h.forbidden(w)
		return
	}

	h.logger.Info("Successful admin login", "ip", h.clientIP(r))
	h.auth.SetCookie(w)
	http.Redirect(w, r, h.auth.Path(), http.StatusSeeOther)
}

// dashboardData is the JSON document served at /data.
type dashboardData struct {
	Summary stats.Summary       `json:"summary"`
	Charts  stats.ChartData     `json:"charts"`
	Recent  []stats.RequestInfo `json:"recent"`
}

// HandleData serves the dashboard content as JSON.
func (h *Handler) HandleData(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	h.setSecurityHeaders(w)
	if !h.auth.IsAuthenticated(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid or missing authentication token"})
		return
	}

	data := dashboardData{
		Summary: h.statsManager.GetSummary(ctx),
		Charts:  h.statsManager.GetChartData(ctx, topItemsCount),
		Recent:  h.statsManager.GetRecentRequests(ctx, recentRequests),
	}
	if ctx.Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn("Failed to write admin data", "error", err)
	}
}

// HandleUI serves the HTML dashboard.
func (h *Handler) HandleUI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.auth.IsAuthenticated(r) {
		h.forbidden(w)
		return
	}

	page := h.renderer.RenderDashboard(
		h.statsManager.GetSummary(ctx),
		h.statsManager.GetChartData(ctx, topItemsCount),
		h.statsManager.GetRecentRequests(ctx, recentRequests),
		recentRequests,
	)
	if ctx.Err() != nil {
		return
	}

	h.setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	io.WriteString(w, page)
}

func (h *Handler) forbidden(w http.ResponseWriter) {
	h.setSecurityHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	io.WriteString(w, "<!DOCTYPE html>\n<html>\n<head><title>Access Denied</title></head>\n<body>\n<h1>403 Forbidden</h1>\n<p>Invalid or missing authentication token.</p>\n</body>\n</html>")
}

// setSecurityHeaders hardens admin responses. The dashboard has no scripts,
// so the CSP forbids them outright.
func (h *Handler) setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Security-Policy",
		"default-src 'none'; style-src 'unsafe-inline'; frame-ancestors 'none'")
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "no-referrer")
	w.Header().Set("Cache-Control", "no-store")
}

// Path returns the admin endpoint path.
func (h *Handler) Path() string {
	return h.auth.Path()
}

// LoginURL returns the login URL below baseURL.
func (h *Handler) LoginURL(baseURL string) string {
	return h.auth.LoginURL(baseURL)
}

// AdminURL returns the dashboard URL below baseURL.
func (h *Handler) AdminURL(baseURL string) string {
	return h.auth.AdminURL(baseURL)
}
