// internal/models/routing.go
package models

import "time"

type RoutingRequest struct {
	OrderID string      `json:"orderId"`
	Items   []OrderLine `json:"items"`
}

type OrderLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// RankedVendor is one candidate returned by vendor ranking for a
// single product, ordered by overall score, then unit price, then id.
type RankedVendor struct {
	VendorID          string          `json:"vendorId"`
	OverallScore      float64         `json:"overallScore"`
	Components        ComponentScores `json:"components"`
	UnitPrice         float64         `json:"unitPrice"`
	AvailableQuantity int             `json:"availableQuantity"`
	LeadTimeDays      int             `json:"leadTimeDays"`
}

// VendorSelection binds one order line to the vendor chosen for it.
type VendorSelection struct {
	ProductID    string  `json:"productId"`
	Quantity     int     `json:"quantity"`
	VendorID     string  `json:"vendorId"`
	UnitPrice    float64 `json:"unitPrice"`
	OverallScore float64 `json:"overallScore"`
}

type SplitItem struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type SplitGroup struct {
	VendorID string      `json:"vendorId"`
	Items    []SplitItem `json:"items"`
	Subtotal float64     `json:"subtotal"`
}

type SubOrder struct {
	ID            string         `json:"id"`
	ParentOrderID string         `json:"parentOrderId"`
	VendorID      string         `json:"vendorId"`
	Status        string         `json:"status"`
	Subtotal      float64        `json:"subtotal"`
	Items         []SubOrderItem `json:"items"`
	CreatedAt     time.Time      `json:"createdAt"`
}

type SubOrderItem struct {
	ID         string  `json:"id"`
	SubOrderID string  `json:"subOrderId"`
	ProductID  string  `json:"productId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

type CommitState string

const (
	CommitStatePlanned    CommitState = "PLANNED"
	CommitStateCommitting CommitState = "COMMITTING"
	CommitStateCommitted  CommitState = "COMMITTED"
	CommitStateAborted    CommitState = "ABORTED"
)

type FailureCause string

const (
	FailureCauseStock      FailureCause = "stock"
	FailureCauseScore      FailureCause = "score"
	FailureCauseContention FailureCause = "contention"
)

// FailureReason explains a terminal routing failure: which line could
// not be placed and why.
type FailureReason struct {
	ProductID string       `json:"productId,omitempty"`
	VendorID  string       `json:"vendorId,omitempty"`
	Cause     FailureCause `json:"cause"`
	Message   string       `json:"message"`
}

type CandidateRecord struct {
	VendorID     string  `json:"vendorId"`
	OverallScore float64 `json:"overallScore"`
	UnitPrice    float64 `json:"unitPrice"`
}

type SelectionRecord struct {
	ProductID    string            `json:"productId"`
	Quantity     int               `json:"quantity"`
	VendorID     string            `json:"vendorId"`
	UnitPrice    float64           `json:"unitPrice"`
	OverallScore float64           `json:"overallScore"`
	Candidates   []CandidateRecord `json:"candidates"`
}

type DecisionStatus string

const (
	DecisionStatusCommitted DecisionStatus = "COMMITTED"
	DecisionStatusFailed    DecisionStatus = "FAILED"
)

// RoutingDecision is the immutable audit record of one routing run:
// candidate sets, chosen vendors, the weights in force and the outcome.
type RoutingDecision struct {
	ID            string            `json:"id"`
	OrderID       string            `json:"orderId"`
	Status        DecisionStatus    `json:"status"`
	Attempts      int               `json:"attempts"`
	Selections    []SelectionRecord `json:"selections"`
	Groups        []SplitGroup      `json:"groups,omitempty"`
	Weights       Weights           `json:"weights"`
	FailureReason *FailureReason    `json:"failureReason,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
}
