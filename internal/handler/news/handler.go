package news

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	newsService "github.com/zhouzirui/kite-dashboard/backend/internal/service/news"
	"github.com/zhouzirui/kite-dashboard/backend/pkg/utils"
)

const noHoldingsMessage = "No holdings found in the database."

// Source produces news items for the top holdings.
type Source interface {
	TopHoldingsNews(ctx context.Context) ([]portfolio.NewsItem, error)
	Stream(ctx context.Context, emit func(portfolio.NewsItem)) error
}

// Handler serves market news as a JSON array or an event stream.
type Handler struct {
	source Source
}

// New creates a news handler.
func New(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes mounts the news routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/market-news", h.handleNews)
	r.Get("/market-news/stream", h.handleStream)
}

func (h *Handler) handleNews(w http.ResponseWriter, r *http.Request) {
	items, err := h.source.TopHoldingsNews(r.Context())
	if errors.Is(err, newsService.ErrNoHoldings) {
		utils.RespondError(w, http.StatusNotFound, noHoldingsMessage)
		return
	}
	if err != nil {
		log.Printf("[news] market news failed: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondJSON(w, http.StatusOK, items)
}

// handleStream sends one "news" event per item, then "done" or "error".
func (h *Handler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	utils.SetupSSEHeaders(w)

	count := 0
	err := h.source.Stream(r.Context(), func(item portfolio.NewsItem) {
		count++
		utils.SendSSEEvent(w, flusher, "news", item)
	})

	switch {
	case errors.Is(err, newsService.ErrNoHoldings):
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": noHoldingsMessage})
	case errors.Is(err, context.Canceled):
		log.Printf("[news] stream closed by client after %d items", count)
	case err != nil:
		log.Printf("[news] stream failed: %v", err)
		utils.SendSSEEvent(w, flusher, "error", map[string]string{"error": err.Error()})
	default:
		utils.SendSSEEvent(w, flusher, "done", map[string]int{"count": count})
	}
}
