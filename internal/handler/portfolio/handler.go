package portfolio

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/kite-dashboard/backend/internal/model/portfolio"
	"github.com/zhouzirui/kite-dashboard/backend/pkg/utils"
)

// Source reads the stored portfolio.
type Source interface {
	List(ctx context.Context) ([]portfolio.Holding, error)
	SectorAllocation(ctx context.Context) ([]portfolio.SectorAllocation, error)
}

// Handler serves holdings and sector allocation.
type Handler struct {
	source Source
}

// New creates a portfolio handler.
func New(source Source) *Handler {
	return &Handler{source: source}
}

// RegisterRoutes mounts the portfolio routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/holdings", h.handleHoldings)
	r.Get("/sector-allocation", h.handleSectors)
}

func (h *Handler) handleHoldings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.source.List(r.Context())
	if err != nil {
		log.Printf("[portfolio] list holdings: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []portfolio.Holding{}
	}
	utils.RespondJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleSectors(w http.ResponseWriter, r *http.Request) {
	rows, err := h.source.SectorAllocation(r.Context())
	if err != nil {
		log.Printf("[portfolio] sector allocation: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if rows == nil {
		rows = []portfolio.SectorAllocation{}
	}
	utils.RespondJSON(w, http.StatusOK, rows)
}
