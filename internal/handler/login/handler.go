package login

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kite-dashboard/backend/pkg/utils"
)

// Config describes where the broker login starts and where it returns.
type Config struct {
	APIKey      string
	LoginURL    string
	FrontendURL string
}

// Handler serves the broker login link and its callback.
type Handler struct {
	cfg Config
}

// New creates a login handler.
func New(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

// RegisterRoutes mounts GET / and GET /callback.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.handleLoginURL)
	r.Get("/callback", h.handleCallback)
}

func (h *Handler) handleLoginURL(w http.ResponseWriter, r *http.Request) {
	if h.cfg.APIKey == "" {
		utils.RespondError(w, http.StatusServiceUnavailable, "ZERODHA_API_KEY not configured")
		return
	}

	query := url.Values{}
	query.Set("v", "3")
	query.Set("api_key", h.cfg.APIKey)
	utils.RespondJSON(w, http.StatusOK, map[string]string{
		"login_url": h.cfg.LoginURL + "?" + query.Encode(),
	})
}

// handleCallback hands the request token back to the frontend.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	params := url.Values{}
	if token := strings.TrimSpace(r.URL.Query().Get("request_token")); token != "" {
		params.Set("request_token", token)
	} else {
		reason := r.URL.Query().Get("error")
		if reason == "" {
			reason = "missing request_token"
		}
		params.Set("error", reason)
	}

	target := strings.TrimRight(h.cfg.FrontendURL, "/") + "/?" + params.Encode()
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}
