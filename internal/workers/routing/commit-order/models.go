// internal/workers/routing/commit-order/models.go
package commitorder

import "github.com/newbihanigroup-creator/khaacho-sub002/internal/models"

type Input struct {
	OrderID    string                   `json:"orderId"`
	Items      []models.OrderLine       `json:"items"`
	Selections []models.VendorSelection `json:"selections"`
}

type Output struct {
	CommittedOrderID string              `json:"committedOrderId"`
	Groups           []models.SplitGroup `json:"groups"`
}
