package routing

import "plate/internal/domain"

// DeriveOrderStatus rolls the station routings of one order up into the
// order's status: ready once every station has bumped, in progress once any
// station has started or bumped. Delivered and cancelled orders keep their
// status.
func DeriveOrderStatus(current string, routings []domain.OrderRouting) string {
	if current == domain.OrderStatusDelivered || current == domain.OrderStatusCancelled {
		return current
	}
	if len(routings) == 0 {
		return current
	}

	completed, started := 0, 0
	for _, r := range routings {
		switch DeriveStatus(r) {
		case StatusReady:
			completed++
		case StatusPreparing:
			started++
		}
	}

	switch {
	case completed == len(routings):
		return domain.OrderStatusReady
	case completed > 0 || started > 0:
		return domain.OrderStatusInProgress
	default:
		return domain.OrderStatusNew
	}
}
