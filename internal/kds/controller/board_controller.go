package controller

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"plate/internal/domain"
	"plate/internal/dto"
	apperrors "plate/internal/errors"
	"plate/internal/routing"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BoardUseCase interface {
	ListStations(ctx context.Context) []domain.Station
	ListOrders(ctx context.Context, stationID int64) []routing.Entry
	ListByTable(ctx context.Context, stationID int64) []routing.TableGroup
	Stats(ctx context.Context) []routing.StationStats
}

const (
	stationsCacheControl = "public, max-age=60"
	ordersCacheControl   = "public, max-age=5"
)

type BoardController struct {
	responder
	useCase BoardUseCase
}

func NewBoardController(useCase BoardUseCase, logger *zap.Logger) *BoardController {
	return &BoardController{
		responder: responder{logger: logger},
		useCase:   useCase,
	}
}

func (c *BoardController) ListStations(w http.ResponseWriter, r *http.Request) {
	stations := c.useCase.ListStations(r.Context())

	w.Header().Set("Cache-Control", stationsCacheControl)
	c.writeJSON(w, http.StatusOK, dto.NewStationDTOs(stations))
}

// ListOrders serves GET /api/kds/orders. station_id narrows the board to
// one station and group=table clusters it by table and seat.
func (c *BoardController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	stationID, err := optionalID(r, "station_id")
	if err != nil {
		logger.Warn("invalid station_id", zap.Error(err))
		c.writeValidationError(w, traceID, "invalid station_id", apperrors.ValidationDetail{
			Field:   "station_id",
			Message: "station_id must be a positive integer",
		})
		return
	}

	group := r.URL.Query().Get("group")
	if group != "" && group != "table" {
		c.writeValidationError(w, traceID, "invalid group", apperrors.ValidationDetail{
			Field:   "group",
			Message: `group must be "table"`,
		})
		return
	}

	w.Header().Set("Cache-Control", ordersCacheControl)
	if group == "table" {
		c.writeJSON(w, http.StatusOK, dto.NewTableGroupDTOs(c.useCase.ListByTable(r.Context(), stationID)))
		return
	}
	c.writeJSON(w, http.StatusOK, dto.NewRoutingDTOs(c.useCase.ListOrders(r.Context(), stationID)))
}

func (c *BoardController) Stats(w http.ResponseWriter, r *http.Request) {
	c.writeJSON(w, http.StatusOK, dto.StatsResponse{
		Stations:    dto.NewStationStatsDTOs(c.useCase.Stats(r.Context())),
		GeneratedAt: time.Now().UTC(),
	})
}

// optionalID reads a positive integer query parameter; absent means zero.
func optionalID(r *http.Request, name string) (int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	if id <= 0 {
		return 0, strconv.ErrRange
	}
	return id, nil
}
