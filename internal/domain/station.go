package domain

type Station struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Type         string `json:"type"`
	Color        string `json:"color"`
	DisplayOrder int    `json:"display_order"`
	IsActive     bool   `json:"is_active"`
}

const (
	StationGrill = "grill"
	StationFryer = "fryer"
	StationSalad = "salad"
	StationExpo  = "expo"
	StationBar   = "bar"
)
