// internal/workers/routing/rank-vendors/models.go
package rankvendors

import "github.com/newbihanigroup-creator/khaacho-sub002/internal/models"

type Input struct {
	ProductID       string   `json:"productId"`
	Quantity        int      `json:"quantity"`
	MinOverallScore float64  `json:"minOverallScore,omitempty"`
	TopN            int      `json:"topN,omitempty"`
	ExcludeVendors  []string `json:"excludeVendors,omitempty"`
}

type Output struct {
	ProductID      string                `json:"productId"`
	Candidates     []models.RankedVendor `json:"candidates"`
	ChosenVendorID string                `json:"chosenVendorId"`
}
