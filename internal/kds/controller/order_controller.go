package controller

import (
	"context"
	"net/http"
	"time"

	"plate/internal/auth"
	"plate/internal/domain"
	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/kds/usecase"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderEntryUseCase interface {
	PlaceOrder(ctx context.Context, id auth.Identity, draft domain.Order) (*usecase.OrderEntryResult, error)
}

type OrderController struct {
	responder
	useCase OrderEntryUseCase
}

func NewOrderController(useCase OrderEntryUseCase, logger *zap.Logger) *OrderController {
	return &OrderController{
		responder: responder{logger: logger},
		useCase:   useCase,
	}
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if details := validateCreateOrder(req); len(details) > 0 {
		c.writeValidationError(w, traceID, "validation failed", details...)
		return
	}

	id, _ := auth.FromContext(r.Context())
	result, err := c.useCase.PlaceOrder(r.Context(), id, domain.Order{
		TableID:    req.TableID,
		SeatID:     req.SeatID,
		ResidentID: req.ResidentID,
		Items:      req.Items,
		Transcript: req.Transcript,
		Type:       req.Type,
	})
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	routed := make([]dto.RoutedStationDTO, 0, len(result.Routings))
	for _, rs := range result.Routings {
		routed = append(routed, dto.RoutedStationDTO{
			RoutingID:   rs.Routing.ID,
			StationID:   rs.Routing.StationID,
			StationName: rs.StationName,
		})
	}

	c.writeJSON(w, http.StatusCreated, dto.CreateOrderResponse{
		TraceID:   traceID,
		OrderID:   result.Order.ID,
		Status:    result.Order.Status,
		Items:     result.Order.Items,
		Routings:  routed,
		Timestamp: time.Now().UTC(),
	})
}

func validateCreateOrder(req dto.CreateOrderRequest) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail

	if req.TableID != nil && *req.TableID <= 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "tableId",
			Message: "tableId must be a positive integer",
		})
	}
	if req.SeatID != nil && *req.SeatID <= 0 {
		details = append(details, apperrors.ValidationDetail{
			Field:   "seatId",
			Message: "seatId must be a positive integer",
		})
	}
	if req.SeatID != nil && req.TableID == nil {
		details = append(details, apperrors.ValidationDetail{
			Field:   "seatId",
			Message: "seatId requires tableId",
		})
	}
	if len(req.Items) == 0 && req.Transcript == "" {
		details = append(details, apperrors.ValidationDetail{
			Field:   "items",
			Message: "items or transcript is required",
		})
	}

	return details
}
