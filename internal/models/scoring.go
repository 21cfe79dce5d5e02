// internal/models/scoring.go
package models

import "time"

type EventType string

const (
	EventAssigned     EventType = "ASSIGNED"
	EventAccepted     EventType = "ACCEPTED"
	EventRejected     EventType = "REJECTED"
	EventDelivered    EventType = "DELIVERED"
	EventCancelled    EventType = "CANCELLED"
	EventLateResponse EventType = "LATE_RESPONSE"
)

// TriggerPeriodicSweep tags score history rows written by the hourly
// sweep rather than by a vendor lifecycle event.
const TriggerPeriodicSweep = "PERIODIC_SWEEP"

// PerformanceEvent is one append-only row in performance_events.
// RespondedAt is set on ACCEPTED, REJECTED and LATE_RESPONSE events;
// QuotedPrice and ProductID are set when the event carries a price quote.
type PerformanceEvent struct {
	ID          string     `json:"id"`
	VendorID    string     `json:"vendorId"`
	OrderID     string     `json:"orderId"`
	ProductID   string     `json:"productId,omitempty"`
	EventType   EventType  `json:"eventType"`
	AssignedAt  time.Time  `json:"assignedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	QuotedPrice *float64   `json:"quotedPrice,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Weights holds the relative weight of each component score in the
// overall score. The five values must sum to 1.0.
type Weights struct {
	ResponseSpeed    float64 `json:"responseSpeed" mapstructure:"response_speed"`
	AcceptanceRate   float64 `json:"acceptanceRate" mapstructure:"acceptance_rate"`
	Price            float64 `json:"price" mapstructure:"price"`
	DeliverySuccess  float64 `json:"deliverySuccess" mapstructure:"delivery_success"`
	CancellationRate float64 `json:"cancellationRate" mapstructure:"cancellation_rate"`
}
