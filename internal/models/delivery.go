package models

// Coordinate is an immutable (latitude, longitude) pair in degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
)

// DeliveryStep is one milestone in a delivery's visible timeline.
// The id sequence per method is fixed; only Status mutates.
type DeliveryStep struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	EstimatedTime string     `json:"estimatedTime"`
	Status        StepStatus `json:"status"`
	Icon          string     `json:"icon"`
}

// DeliveryPlan is derived, never persisted; recomputed on demand from
// (origin, destination, method).
type DeliveryPlan struct {
	DistanceKm    float64        `json:"distanceKm"`
	EstimatedTime string         `json:"estimatedTime"`
	Cost          float64        `json:"cost"`
	Steps         []DeliveryStep `json:"steps"`
}
