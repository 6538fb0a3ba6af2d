package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"plate/internal/auth"
	"plate/internal/domain"
	apperrors "plate/internal/errors"
	"plate/internal/voice"

	"go.uber.org/zap"
)

type OrderCreator interface {
	CreateOrder(ctx context.Context, order domain.Order, stationIDs []int64) (*domain.Order, []domain.OrderRouting, error)
}

const (
	maxOrderItems = 50
	maxItemLength = 200
)

type stationRule struct {
	station string
	pattern *regexp.Regexp
}

// stationRules are tried in order; an item goes to the first station whose
// keywords it mentions.
var stationRules = []stationRule{
	{domain.StationBar, regexp.MustCompile(`(?i)\b(?:beers?|wines?|cokes?|colas?|sodas?|juices?|coffees?|teas?|lattes?|espressos?|cappuccinos?|waters?|lemonades?|cocktails?|margaritas?|mojitos?|smoothies?|milkshakes?|drinks?|sprites?|pints?)\b`)},
	{domain.StationFryer, regexp.MustCompile(`(?i)\b(?:fries|chips|onion rings?|nuggets?|tenders?|wings?|calamari|fried|tempura|churros?)\b`)},
	{domain.StationSalad, regexp.MustCompile(`(?i)\b(?:salads?|caesar|slaw|greens|bowls?|fruit cups?)\b`)},
	{domain.StationGrill, regexp.MustCompile(`(?i)\b(?:burgers?|steaks?|grilled|ribs?|chops?|salmon|sausages?|hot ?dogs?|kebabs?|skewers?|chicken breasts?|sandwich(?:es)?|paninis?)\b`)},
}

// StationFor returns the station type an item is prepared at, or
// fallback when no keyword matches.
func StationFor(item, fallback string) string {
	for _, r := range stationRules {
		if r.pattern.MatchString(item) {
			return r.station
		}
	}
	return fallback
}

// OrderTypeFor classifies an order as a drink order when every item is
// prepared at the bar.
func OrderTypeFor(items []string) string {
	for _, item := range items {
		if StationFor(item, "") != domain.StationBar {
			return domain.OrderTypeFood
		}
	}
	return domain.OrderTypeDrink
}

type RoutedStation struct {
	Routing     domain.OrderRouting
	StationName string
}

type OrderEntryResult struct {
	Order    domain.Order
	Routings []RoutedStation
}

// OrderEntryUseCase takes a server's order, splits it into items when it
// arrives as a transcript and fans it out to the stations that prepare it.
type OrderEntryUseCase struct {
	creator        OrderCreator
	stations       StationFinder
	defaultStation string
	logger         *zap.Logger
}

func NewOrderEntryUseCase(creator OrderCreator, stations StationFinder, defaultStation string, logger *zap.Logger) *OrderEntryUseCase {
	return &OrderEntryUseCase{
		creator:        creator,
		stations:       stations,
		defaultStation: defaultStation,
		logger:         logger,
	}
}

func (uc *OrderEntryUseCase) PlaceOrder(ctx context.Context, id auth.Identity, draft domain.Order) (*OrderEntryResult, error) {
	items := cleanItems(draft.Items)
	if len(items) == 0 && strings.TrimSpace(draft.Transcript) != "" {
		items = voice.ParseItems(draft.Transcript)
	}

	if err := validateItems(items); err != nil {
		return nil, err
	}
	draft.Items = items

	if draft.Type == "" {
		draft.Type = OrderTypeFor(items)
	}
	if !domain.ValidOrderType(draft.Type) {
		return nil, apperrors.NewValidationError("invalid order",
			apperrors.ValidationDetail{Field: "type", Message: fmt.Sprintf("must be %q or %q", domain.OrderTypeFood, domain.OrderTypeDrink)})
	}

	if id.UserID != "" {
		serverID := id.UserID
		draft.ServerID = &serverID
	}

	stationIDs, names, err := uc.route(ctx, draft)
	if err != nil {
		return nil, err
	}

	order, routings, err := uc.creator.CreateOrder(ctx, draft, stationIDs)
	if err != nil {
		return nil, err
	}

	result := &OrderEntryResult{Order: *order}
	for _, rt := range routings {
		result.Routings = append(result.Routings, RoutedStation{Routing: rt, StationName: names[rt.StationID]})
	}

	uc.logger.Info("order placed",
		zap.Int64("orderId", order.ID),
		zap.Int("items", len(items)),
		zap.Int("stations", len(stationIDs)))

	return result, nil
}

func cleanItems(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func validateItems(items []string) error {
	if len(items) == 0 {
		return apperrors.NewValidationError("invalid order",
			apperrors.ValidationDetail{Field: "items", Message: "at least one item is required"})
	}
	if len(items) > maxOrderItems {
		return apperrors.NewValidationError("invalid order",
			apperrors.ValidationDetail{Field: "items", Message: fmt.Sprintf("at most %d items are allowed", maxOrderItems)})
	}

	var details []apperrors.ValidationDetail
	for i, item := range items {
		if len(item) > maxItemLength {
			details = append(details, apperrors.ValidationDetail{
				Field:   fmt.Sprintf("items[%d]", i),
				Message: fmt.Sprintf("must be at most %d characters", maxItemLength),
			})
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid order", details...)
	}
	return nil
}

// route resolves the stations for every item, in first-use order. Drink
// orders go to the bar as a whole. Station types with no configured
// station fall back to the default station.
func (uc *OrderEntryUseCase) route(ctx context.Context, o domain.Order) ([]int64, map[int64]string, error) {
	resolved := map[string]*domain.Station{}
	names := map[int64]string{}
	var ids []int64

	for _, item := range o.Items {
		want := StationFor(item, uc.defaultStation)
		if o.Type == domain.OrderTypeDrink {
			want = domain.StationBar
		}

		st, err := uc.resolve(ctx, resolved, want)
		if err != nil {
			return nil, nil, err
		}
		if _, seen := names[st.ID]; seen {
			continue
		}
		names[st.ID] = st.Name
		ids = append(ids, st.ID)
	}

	return ids, names, nil
}

func (uc *OrderEntryUseCase) resolve(ctx context.Context, resolved map[string]*domain.Station, want string) (*domain.Station, error) {
	if st, ok := resolved[want]; ok {
		return st, nil
	}

	st, err := uc.stations.FindByName(ctx, want)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); !ok {
			return nil, err
		}
		if want == uc.defaultStation {
			return nil, apperrors.NewValidationError(fmt.Sprintf("no station configured for %q", want))
		}
		uc.logger.Warn("station not configured, using default",
			zap.String("station", want),
			zap.String("default", uc.defaultStation))
		st, err = uc.resolve(ctx, resolved, uc.defaultStation)
		if err != nil {
			return nil, err
		}
	}

	resolved[want] = st
	return st, nil
}
