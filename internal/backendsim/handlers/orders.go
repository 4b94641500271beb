package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"campus-eats/internal/backendsim/service"
	"campus-eats/internal/domain"
	"campus-eats/internal/orderapi"
)

type OrderHandler struct {
	service service.OrderServiceInterface
}

func NewOrderHandler(svc service.OrderServiceInterface) *OrderHandler {
	return &OrderHandler{service: svc}
}

func Router(h *OrderHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders", h.ListOrders)
	mux.HandleFunc("PUT /api/v1/orders/{order_id}/status", h.UpdateStatus)
	mux.HandleFunc("POST /api/v1/orders", h.CreateOrder)
	return mux
}

func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor := r.URL.Query().Get("actor")
	filter := domain.Status(r.URL.Query().Get("status"))

	records, err := h.service.ListOrders(r.Context(), actor, filter)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeProblem(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	if records == nil {
		records = []orderapi.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("order_id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	err := h.service.UpdateStatus(r.Context(), id, domain.Status(body.Status))
	switch {
	case errors.Is(err, service.ErrValidation):
		writeProblem(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, service.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req service.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	id, err := h.service.CreateOrder(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeProblem(w, http.StatusBadRequest, "bad_request", err.Error())
			return
		}
		writeProblem(w, http.StatusInternalServerError, "db_error", err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeProblem emits a simplified problem+json error shape.
func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
