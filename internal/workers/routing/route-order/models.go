// internal/workers/routing/route-order/models.go
package routeorder

import "github.com/newbihanigroup-creator/khaacho-sub002/internal/models"

type Input struct {
	OrderID string             `json:"orderId"`
	Items   []models.OrderLine `json:"items"`
}

type Output struct {
	CommittedOrderID string                   `json:"committedOrderId"`
	Attempts         int                      `json:"attempts"`
	Groups           []models.SplitGroup      `json:"groups"`
	Selections       []models.SelectionRecord `json:"selections"`
	Weights          models.Weights           `json:"weights"`
}
