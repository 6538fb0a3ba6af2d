package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"plate/internal/auth"
	"plate/internal/domain"
	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/kds/usecase"
)

type mockOrderEntryUseCase struct {
	PlaceOrderFunc func(ctx context.Context, id auth.Identity, draft domain.Order) (*usecase.OrderEntryResult, error)
}

func (m *mockOrderEntryUseCase) PlaceOrder(ctx context.Context, id auth.Identity, draft domain.Order) (*usecase.OrderEntryResult, error) {
	return m.PlaceOrderFunc(ctx, id, draft)
}

func TestOrderController_CreateOrder(t *testing.T) {
	waiter := auth.Identity{UserID: "server-7", Role: auth.RoleServer}
	var gotDraft domain.Order
	uc := &mockOrderEntryUseCase{
		PlaceOrderFunc: func(ctx context.Context, id auth.Identity, draft domain.Order) (*usecase.OrderEntryResult, error) {
			assert.Equal(t, waiter, id)
			gotDraft = draft
			return &usecase.OrderEntryResult{
				Order: domain.Order{ID: 31, Status: domain.OrderStatusNew, Items: []string{"burger", "beer"}},
				Routings: []usecase.RoutedStation{
					{Routing: domain.OrderRouting{ID: 90, OrderID: 31, StationID: 1}, StationName: "Grill"},
					{Routing: domain.OrderRouting{ID: 91, OrderID: 31, StationID: 5}, StationName: "Bar"},
				},
			}, nil
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := httptest.NewRecorder()
	body := `{"tableId": 4, "seatId": 12, "items": ["burger", "beer"]}`
	ctrl.CreateOrder(rec, routedRequest(http.MethodPost, "/api/orders", body, nil, &waiter))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, gotDraft.TableID)
	assert.Equal(t, int64(4), *gotDraft.TableID)
	assert.Equal(t, []string{"burger", "beer"}, gotDraft.Items)

	var resp dto.CreateOrderResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(31), resp.OrderID)
	assert.Equal(t, "new", resp.Status)
	require.Len(t, resp.Routings, 2)
	assert.Equal(t, "Bar", resp.Routings[1].StationName)
}

func TestOrderController_Validation(t *testing.T) {
	ctrl := NewOrderController(&mockOrderEntryUseCase{}, zap.NewNop())

	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"bad json", `{"items": [`, "body"},
		{"nothing to order", `{"tableId": 4}`, "items"},
		{"bad table", `{"tableId": 0, "items": ["tea"]}`, "tableId"},
		{"seat without table", `{"seatId": 3, "items": ["tea"]}`, "seatId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ctrl.CreateOrder(rec, routedRequest(http.MethodPost, "/api/orders", tt.body, nil, &cook))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			require.NotEmpty(t, resp.Details)
			assert.Equal(t, tt.field, resp.Details[0].Field)
		})
	}
}

func TestOrderController_UseCaseValidationError(t *testing.T) {
	uc := &mockOrderEntryUseCase{
		PlaceOrderFunc: func(ctx context.Context, id auth.Identity, draft domain.Order) (*usecase.OrderEntryResult, error) {
			return nil, apperrors.NewValidationError("invalid order", apperrors.ValidationDetail{Field: "type", Message: "bad"})
		},
	}
	ctrl := NewOrderController(uc, zap.NewNop())

	rec := httptest.NewRecorder()
	ctrl.CreateOrder(rec, routedRequest(http.MethodPost, "/api/orders", `{"items": ["tea"], "type": "dessert"}`, nil, &cook))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"type"`)
}
