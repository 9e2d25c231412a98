// Package api exposes the stored listings' aggregates as read-only JSON.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"RealEstateCrawler/internal/infrastructure/storage"
)

// Queries is the aggregation surface the handlers read from.
type Queries interface {
	ApartmentDemand(ctx context.Context, selling bool) ([]storage.DemandRow, error)
	PriceDistribution(ctx context.Context, selling bool) ([]storage.Distribution, error)
	AreaDistribution(ctx context.Context, selling bool) ([]storage.Distribution, error)
	AveragePrices(ctx context.Context, selling bool, filter storage.MonthFilter) ([]storage.AveragePrice, error)
	PricePerSqm(ctx context.Context, selling bool) ([]storage.PricePerSqm, error)
	Districts(ctx context.Context) ([]string, error)
	MapPoints(ctx context.Context) ([]storage.MapPoint, error)
}

var _ Queries = (*storage.Analytics)(nil)

// Handler serves the dashboard endpoints.
type Handler struct {
	queries Queries
	logger  *slog.Logger
}

// NewHandler binds handlers to the aggregation queries.
func NewHandler(queries Queries, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{queries: queries, logger: logger}
}

// Router builds a mux router with every route registered.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/apartment-demand", h.apartmentDemand).Methods(http.MethodGet)
	api.HandleFunc("/price-distribution", h.priceDistribution).Methods(http.MethodGet)
	api.HandleFunc("/area-distribution", h.areaDistribution).Methods(http.MethodGet)
	api.HandleFunc("/apartment-average-data", h.apartmentAverageData).Methods(http.MethodGet)
	api.HandleFunc("/price-per-sqm", h.pricePerSqm).Methods(http.MethodGet)
	api.HandleFunc("/districts", h.districts).Methods(http.MethodGet)
	api.HandleFunc("/apartment-map", h.apartmentMap).Methods(http.MethodGet)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) apartmentDemand(w http.ResponseWriter, r *http.Request) {
	sale, err := h.queries.ApartmentDemand(r.Context(), true)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rent, err := h.queries.ApartmentDemand(r.Context(), false)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]storage.DemandRow{
		"sale": nonNil(sale),
		"rent": nonNil(rent),
	})
}

func (h *Handler) priceDistribution(w http.ResponseWriter, r *http.Request) {
	selling, ok := h.sellingParam(w, r)
	if !ok {
		return
	}
	rows, err := h.queries.PriceDistribution(r.Context(), selling)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"is_selling": selling, "distribution": nonNil(rows)})
}

func (h *Handler) areaDistribution(w http.ResponseWriter, r *http.Request) {
	selling, ok := h.sellingParam(w, r)
	if !ok {
		return
	}
	rows, err := h.queries.AreaDistribution(r.Context(), selling)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"is_selling": selling, "distribution": nonNil(rows)})
}

func (h *Handler) apartmentAverageData(w http.ResponseWriter, r *http.Request) {
	var filter storage.MonthFilter
	var err error
	if filter.Year, err = intParam(r, "year", 1900, 9999); err != nil {
		h.badRequest(w, err)
		return
	}
	if filter.Month, err = intParam(r, "month", 1, 12); err != nil {
		h.badRequest(w, err)
		return
	}

	sale, err := h.queries.AveragePrices(r.Context(), true, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rent, err := h.queries.AveragePrices(r.Context(), false, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]storage.AveragePrice{
		"average_price_data_sale": nonNil(sale),
		"average_price_data_rent": nonNil(rent),
	})
}

func (h *Handler) pricePerSqm(w http.ResponseWriter, r *http.Request) {
	selling, ok := h.sellingParam(w, r)
	if !ok {
		return
	}
	rows, err := h.queries.PricePerSqm(r.Context(), selling)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"is_selling": selling, "price_per_sqm": nonNil(rows)})
}

func (h *Handler) districts(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.Districts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]string{"districts": nonNil(rows)})
}

func (h *Handler) apartmentMap(w http.ResponseWriter, r *http.Request) {
	rows, err := h.queries.MapPoints(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]storage.MapPoint{"points": nonNil(rows)})
}

// sellingParam reads ?selling=; absent means sale listings.
func (h *Handler) sellingParam(w http.ResponseWriter, r *http.Request) (bool, bool) {
	raw := r.URL.Query().Get("selling")
	if raw == "" {
		return true, true
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		h.badRequest(w, fmt.Errorf("selling must be 0 or 1, got %q", raw))
		return false, false
	}
	return v, true
}

func intParam(r *http.Request, name string, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be an integer in [%d, %d], got %q", name, lo, hi, raw)
	}
	return v, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, storage.ErrDetailedSchemaRequired) {
		h.writeJSON(w, http.StatusNotImplemented, map[string]string{"error": err.Error()})
		return
	}
	h.logger.Error("query failed", "path", r.URL.Path, "error", err)
	h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("write response", "error", err)
	}
}

func nonNil[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}
