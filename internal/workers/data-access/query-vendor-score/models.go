// internal/workers/data-access/query-vendor-score/models.go
package queryvendorscore

import (
	"time"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

type Input struct {
	VendorID string `json:"vendorId"`
}

type Output struct {
	VendorID     string                 `json:"vendorId"`
	OverallScore float64                `json:"overallScore"`
	Components   models.ComponentScores `json:"components"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}
