package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"campus-eats/internal/domain"
	"campus-eats/internal/engine"
)

// EngineAPI is the engine surface the facade exposes to the rendering
// UI.
type EngineAPI interface {
	Snapshot() []domain.Order
	RequestTransition(orderID string, target domain.Status) error
	SetStatusFilter(filter domain.Status) error
	Refresh() error
}

type ConsoleHandler struct {
	engine EngineAPI
}

func NewConsoleHandler(e EngineAPI) *ConsoleHandler {
	return &ConsoleHandler{engine: e}
}

func Router(h *ConsoleHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/orders", h.ListOrders)
	mux.HandleFunc("POST /api/v1/orders/{order_id}/transition", h.RequestTransition)
	mux.HandleFunc("PUT /api/v1/filter", h.SetFilter)
	mux.HandleFunc("POST /api/v1/refresh", h.Refresh)
	return mux
}

// orderView is the wire shape served to the UI.
type orderView struct {
	ID             string     `json:"id"`
	Status         string     `json:"status"`
	Fulfillment    string     `json:"fulfillment"`
	Items          []itemView `json:"items"`
	TotalAmount    float64    `json:"total_amount"`
	CustomerName   string     `json:"customer_name"`
	CustomerEmail  string     `json:"customer_email,omitempty"`
	AssignedStaff  string     `json:"assigned_staff,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	VoucherCode    string     `json:"voucher_code,omitempty"`
	DiscountAmount float64    `json:"discount_amount,omitempty"`
	DealID         string     `json:"deal_id,omitempty"`
}

type itemView struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

func (h *ConsoleHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.engine.Snapshot()
	views := make([]orderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toView(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": views})
}

func (h *ConsoleHandler) RequestTransition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("order_id")

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	target := domain.Status(body.Status)
	if !target.IsValid() {
		writeProblem(w, http.StatusBadRequest, "bad_request", "unknown status "+body.Status)
		return
	}

	err := h.engine.RequestTransition(id, target)
	switch {
	case errors.Is(err, engine.ErrUnknownOrder):
		writeProblem(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrIllegalTransition):
		writeProblem(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, engine.ErrDisposed):
		writeProblem(w, http.StatusServiceUnavailable, "disposed", err.Error())
	case err != nil:
		writeProblem(w, http.StatusInternalServerError, "internal", err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": target.String()})
	}
}

func (h *ConsoleHandler) SetFilter(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeProblem(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	if err := h.engine.SetStatusFilter(domain.Status(body.Status)); err != nil {
		if errors.Is(err, engine.ErrDisposed) {
			writeProblem(w, http.StatusServiceUnavailable, "disposed", err.Error())
			return
		}
		writeProblem(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConsoleHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.engine.Refresh(); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "disposed", err.Error())
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func toView(o domain.Order) orderView {
	v := orderView{
		ID:            o.ID,
		Status:        o.Status.String(),
		Fulfillment:   string(o.Fulfillment),
		TotalAmount:   o.TotalAmount,
		CustomerName:  o.CustomerName,
		CustomerEmail: o.CustomerEmail,
		AssignedStaff: o.AssignedStaff,
		CreatedAt:     o.CreatedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, itemView{Name: it.Name, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	if o.Promo != nil {
		v.VoucherCode = o.Promo.VoucherCode
		v.DiscountAmount = o.Promo.DiscountAmount
		v.DealID = o.Promo.DealID
	}
	return v
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, code int, typ, detail string) {
	writeJSON(w, code, map[string]any{
		"type":   typ,
		"title":  http.StatusText(code),
		"status": code,
		"detail": detail,
	})
}
