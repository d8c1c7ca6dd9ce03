package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/kite-dashboard/backend/internal/config"
	"github.com/zhouzirui/kite-dashboard/backend/internal/handler/chatbot"
	"github.com/zhouzirui/kite-dashboard/backend/internal/handler/login"
	"github.com/zhouzirui/kite-dashboard/backend/internal/handler/news"
	"github.com/zhouzirui/kite-dashboard/backend/internal/handler/portfolio"
	middlewarePkg "github.com/zhouzirui/kite-dashboard/backend/internal/middleware"
	"github.com/zhouzirui/kite-dashboard/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services. A nil news source disables
// the market news routes.
func NewRouter(cfg *config.Config, chatSvc chatbot.Replier, holdings portfolio.Source, newsSrc news.Source) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS(cfg.Server.FrontendURL))

	login.New(login.Config{
		APIKey:      cfg.Kite.APIKey,
		LoginURL:    cfg.Kite.LoginURL,
		FrontendURL: cfg.Server.FrontendURL,
	}).RegisterRoutes(r)

	chatbot.New(chatSvc).RegisterRoutes(r)
	portfolio.New(holdings).RegisterRoutes(r)

	if newsSrc != nil {
		news.New(newsSrc).RegisterRoutes(r)
	} else {
		unavailable := func(w http.ResponseWriter, r *http.Request) {
			utils.RespondError(w, http.StatusServiceUnavailable, "market news unavailable")
		}
		r.Get("/market-news", unavailable)
		r.Get("/market-news/stream", unavailable)
	}

	return r
}
