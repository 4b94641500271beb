package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"campus-eats/internal/backendsim/service"
	"campus-eats/internal/domain"
	"campus-eats/internal/orderapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) ListOrders(ctx context.Context, actorID string, statusFilter domain.Status) ([]orderapi.Record, error) {
	args := m.Called(ctx, actorID, statusFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]orderapi.Record), args.Error(1)
}

func (m *mockService) UpdateStatus(ctx context.Context, orderID string, target domain.Status) error {
	return m.Called(ctx, orderID, target).Error(0)
}

func (m *mockService) CreateOrder(ctx context.Context, req service.CreateOrderRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func TestListOrdersHandler(t *testing.T) {
	svc := new(mockService)
	svc.On("ListOrders", mock.Anything, "vendor-9", domain.StatusPending).
		Return([]orderapi.Record{{ID: json.Number("41"), Status: "PENDING_CONFIRMATION"}}, nil)

	mux := Router(NewOrderHandler(svc))
	req := httptest.NewRequest("GET", "/api/v1/orders?actor=vendor-9&status=pending", nil)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var records []orderapi.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "41", records[0].ID.String())
}

func TestListOrdersHandlerMissingActor(t *testing.T) {
	svc := new(mockService)
	svc.On("ListOrders", mock.Anything, "", domain.Status("")).
		Return(nil, service.ErrValidation)

	mux := Router(NewOrderHandler(svc))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/orders", nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateStatusHandler(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateStatus", mock.Anything, "41", domain.StatusPreparing).Return(nil)

	mux := Router(NewOrderHandler(svc))
	req := httptest.NewRequest("PUT", "/api/v1/orders/41/status", strings.NewReader(`{"status":"preparing"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdateStatusHandlerNotFound(t *testing.T) {
	svc := new(mockService)
	svc.On("UpdateStatus", mock.Anything, "999", domain.StatusReady).Return(service.ErrNotFound)

	mux := Router(NewOrderHandler(svc))
	req := httptest.NewRequest("PUT", "/api/v1/orders/999/status", strings.NewReader(`{"status":"ready"}`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateStatusHandlerBadBody(t *testing.T) {
	mux := Router(NewOrderHandler(new(mockService)))
	req := httptest.NewRequest("PUT", "/api/v1/orders/41/status", strings.NewReader(`{`))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateOrderHandler(t *testing.T) {
	svc := new(mockService)
	svc.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req service.CreateOrderRequest) bool {
		return req.ActorID == "vendor-9" && len(req.Items) == 1
	})).Return("42", nil)

	mux := Router(NewOrderHandler(svc))
	body := `{"actor_id":"vendor-9","order_type":"pickup","customer_name":"Alex",
	          "items":[{"name":"Laksa","quantity":2,"unit_price":6.5}]}`
	req := httptest.NewRequest("POST", "/api/v1/orders", strings.NewReader(body))
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "42", resp["id"])
}
