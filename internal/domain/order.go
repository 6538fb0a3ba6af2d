package domain

import "time"

type Order struct {
	ID         int64     `json:"id"`
	TableID    *int64    `json:"table_id"`
	SeatID     *int64    `json:"seat_id"`
	ResidentID *string   `json:"resident_id"`
	ServerID   *string   `json:"server_id"`
	Items      []string  `json:"items"`
	Transcript string    `json:"transcript"`
	Status     string    `json:"status"`
	Type       string    `json:"type"`
	CreatedAt  time.Time `json:"created_at"`
}

const (
	OrderStatusNew        = "new"
	OrderStatusInProgress = "in_progress"
	OrderStatusReady      = "ready"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

const (
	OrderTypeFood  = "food"
	OrderTypeDrink = "drink"
)

func ValidOrderType(t string) bool {
	return t == OrderTypeFood || t == OrderTypeDrink
}

// Active reports whether the order still belongs on a kitchen display.
func (o Order) Active() bool {
	return o.Status != OrderStatusDelivered && o.Status != OrderStatusCancelled
}
