package controller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"plate/internal/auth"
	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/kds/service"
	"plate/internal/routing"
	"plate/internal/voice"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CommandUseCase interface {
	Execute(ctx context.Context, id auth.Identity, m service.Mutation) (*service.MutationResult, error)
	DispatchVoice(ctx context.Context, id auth.Identity, parsed voice.Parsed, stationID *int64) (string, error)
}

const maxVoiceTextLength = 500

type CommandController struct {
	responder
	useCase CommandUseCase
}

func NewCommandController(useCase CommandUseCase, logger *zap.Logger) *CommandController {
	return &CommandController{
		responder: responder{logger: logger},
		useCase:   useCase,
	}
}

func (c *CommandController) Start(w http.ResponseWriter, r *http.Request) {
	c.execute(w, r, service.ActionStart)
}

func (c *CommandController) Bump(w http.ResponseWriter, r *http.Request) {
	c.execute(w, r, service.ActionBump)
}

func (c *CommandController) Recall(w http.ResponseWriter, r *http.Request) {
	c.execute(w, r, service.ActionRecall)
}

func (c *CommandController) SetPriority(w http.ResponseWriter, r *http.Request) {
	c.execute(w, r, service.ActionPriority)
}

func (c *CommandController) execute(w http.ResponseWriter, r *http.Request, action service.Action) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("action", string(action)))

	routingID, err := strconv.ParseInt(chi.URLParam(r, "routingId"), 10, 64)
	if err != nil || routingID <= 0 {
		logger.Warn("invalid routingId in path")
		c.writeValidationError(w, traceID, "invalid routingId", apperrors.ValidationDetail{
			Field:   "routingId",
			Message: "routingId must be a positive integer",
		})
		return
	}

	m := service.Mutation{Action: action, RoutingID: routingID}

	if action == service.ActionPriority {
		var req dto.PriorityRequest
		if err := decodeJSON(r, &req); err != nil {
			logger.Warn("invalid JSON body", zap.Error(err))
			c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
				Field:   "body",
				Message: "request body must be valid JSON",
			})
			return
		}
		if req.Level == nil || *req.Level < 0 || *req.Level > 10 {
			c.writeValidationError(w, traceID, "invalid priority", apperrors.ValidationDetail{
				Field:   "level",
				Message: "level must be between 0 and 10",
			})
			return
		}
		m.Priority = routing.StoredPriority(*req.Level)
	}

	id, ok := auth.FromContext(r.Context())
	if !ok {
		c.writeError(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required")
		return
	}

	result, err := c.useCase.Execute(r.Context(), id, m)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.ActionResponse{
		TraceID:   traceID,
		Action:    string(action),
		RoutingID: result.Routing.ID,
		OrderID:   result.Order.ID,
		Status:    string(routing.DeriveStatus(result.Routing)),
		Priority:  result.Routing.Priority,
		Message:   actionMessage(action, result),
		Timestamp: time.Now().UTC(),
	})
}

func actionMessage(action service.Action, result *service.MutationResult) string {
	switch action {
	case service.ActionStart:
		return fmt.Sprintf("Order %d started", result.Order.ID)
	case service.ActionBump:
		return fmt.Sprintf("Order %d bumped", result.Order.ID)
	case service.ActionRecall:
		return fmt.Sprintf("Order %d recalled", result.Order.ID)
	default:
		return fmt.Sprintf("Order %d priority set to %d", result.Order.ID, result.Routing.Priority/10)
	}
}

// Voice serves POST /api/kds/voice: it parses the transcribed text and
// runs the resulting command. Unrecognized text is not an error; the
// response carries the unknown-command message.
func (c *CommandController) Voice(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.VoiceCommandRequest
	if err := decodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid JSON body", apperrors.ValidationDetail{
			Field:   "body",
			Message: "request body must be valid JSON",
		})
		return
	}

	if len(req.Text) > maxVoiceTextLength {
		c.writeValidationError(w, traceID, "invalid voice command", apperrors.ValidationDetail{
			Field:   "text",
			Message: fmt.Sprintf("text must be at most %d characters", maxVoiceTextLength),
		})
		return
	}
	if req.StationID != nil && *req.StationID <= 0 {
		c.writeValidationError(w, traceID, "invalid voice command", apperrors.ValidationDetail{
			Field:   "stationId",
			Message: "stationId must be a positive integer",
		})
		return
	}

	id, _ := auth.FromContext(r.Context())
	parsed := voice.Parse(req.Text)
	logger.Info("voice command received",
		zap.String("action", string(parsed.Action())),
		zap.Float64("confidence", parsed.Confidence),
		zap.String("text", strings.TrimSpace(req.Text)))

	message, err := c.useCase.DispatchVoice(r.Context(), id, parsed, req.StationID)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	c.writeJSON(w, http.StatusOK, dto.VoiceCommandResponse{
		TraceID:   traceID,
		Command:   parsed,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}
