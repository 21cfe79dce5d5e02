// internal/models/vendor.go
package models

import "time"

type VendorOffer struct {
	VendorID          string    `json:"vendorId"`
	ProductID         string    `json:"productId"`
	UnitPrice         float64   `json:"unitPrice"`
	AvailableQuantity int       `json:"availableQuantity"`
	LeadTimeDays      int       `json:"leadTimeDays"`
	IsActive          bool      `json:"isActive"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type ComponentScores struct {
	ResponseSpeed        float64 `json:"responseSpeed"`
	AcceptanceRate       float64 `json:"acceptanceRate"`
	PriceCompetitiveness float64 `json:"priceCompetitiveness"`
	DeliverySuccess      float64 `json:"deliverySuccess"`
	CancellationRate     float64 `json:"cancellationRate"`
}

// VendorScore is the single live row per vendor in vendor_scores.
// Historical snapshots live in vendor_score_history.
type VendorScore struct {
	VendorID     string          `json:"vendorId"`
	Components   ComponentScores `json:"components"`
	OverallScore float64         `json:"overallScore"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type ScoreHistoryEntry struct {
	ID           string          `json:"id"`
	VendorID     string          `json:"vendorId"`
	TriggerEvent string          `json:"triggerEvent"`
	Components   ComponentScores `json:"components"`
	OverallScore float64         `json:"overallScore"`
	CreatedAt    time.Time       `json:"createdAt"`
}
