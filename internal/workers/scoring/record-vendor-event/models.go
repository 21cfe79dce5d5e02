// internal/workers/scoring/record-vendor-event/models.go
package recordvendorevent

import (
	"time"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type Input struct {
	VendorID    string     `json:"vendorId"`
	OrderID     string     `json:"orderId"`
	ProductID   string     `json:"productId,omitempty"`
	EventType   string     `json:"eventType"`
	AssignedAt  time.Time  `json:"assignedAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
	QuotedPrice *float64   `json:"quotedPrice,omitempty"`
}

type Output struct {
	VendorID     string                 `json:"vendorId"`
	OverallScore float64                `json:"overallScore"`
	Components   models.ComponentScores `json:"components"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}
