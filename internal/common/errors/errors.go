// Package errors provides standardized error handling for BPMN workflow integration.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Routing and scoring error codes surfaced to the workflow engine.
const (
	ErrCodeNoEligibleVendor     ErrorCode = "NO_ELIGIBLE_VENDOR"
	ErrCodeIncompleteAllocation ErrorCode = "INCOMPLETE_ALLOCATION"
	ErrCodeStockConflict        ErrorCode = "STOCK_CONFLICT"
	ErrCodeLockTimeout          ErrorCode = "LOCK_TIMEOUT"
	ErrCodeRoutingExhausted     ErrorCode = "ROUTING_EXHAUSTED"
	ErrCodeOrderCommitFailed    ErrorCode = "ORDER_COMMIT_FAILED"

	ErrCodeInvalidWeights        ErrorCode = "INVALID_WEIGHTS"
	ErrCodeEventValidationFailed ErrorCode = "EVENT_VALIDATION_FAILED"
	ErrCodeScoreUpdateFailed     ErrorCode = "SCORE_UPDATE_FAILED"
	ErrCodeVendorScoreNotFound   ErrorCode = "VENDOR_SCORE_NOT_FOUND"

	ErrCodePayloadInvalid ErrorCode = "PAYLOAD_INVALID"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeQueryExecutionFailed     ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeQueryTimeout             ErrorCode = "QUERY_TIMEOUT"
	ErrCodeDatabaseInsertFailed     ErrorCode = "DATABASE_INSERT_FAILED"

	ErrCodeElasticsearchConnectionFailed ErrorCode = "ELASTICSEARCH_CONNECTION_FAILED"
	ErrCodeSearchQueryFailed             ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout                 ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound                 ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeDecisionLogFailed      ErrorCode = "DECISION_LOG_FAILED"
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}

	if e.ErrorVariables != nil {
		for k, v := range e.ErrorVariables {
			vars[k] = v
		}
	}

	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewNoEligibleVendorError creates a non-retryable ranking error: no active
// vendor covers the product with sufficient stock and score.
func NewNoEligibleVendorError(productID string, quantity int, minScore float64) *StandardError {
	return &StandardError{
		Code:      ErrCodeNoEligibleVendor,
		Message:   "No eligible vendor for product",
		Details:   fmt.Sprintf("productId: %s, quantity: %d, minOverallScore: %.1f", productID, quantity, minScore),
		Retryable: false,
		Metadata: map[string]interface{}{
			"productId":       productID,
			"quantity":        quantity,
			"minOverallScore": minScore,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewIncompleteAllocationError creates a non-retryable allocation defect:
// at least one order line reached splitting without a chosen vendor.
func NewIncompleteAllocationError(orderID string, productIDs []string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIncompleteAllocation,
		Message:   "Order lines missing a vendor selection",
		Details:   fmt.Sprintf("orderId: %s, products: %s", orderID, strings.Join(productIDs, ",")),
		Retryable: false,
		Metadata: map[string]interface{}{
			"orderId":    orderID,
			"productIds": productIDs,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewStockConflictError creates a stock conflict error. Retryable by the
// routing pipeline after excluding the conflicting vendor, never by a
// blind re-run of the same commit.
func NewStockConflictError(vendorID, productID string, available, requested int) *StandardError {
	return &StandardError{
		Code:      ErrCodeStockConflict,
		Message:   "Offer stock below requested quantity at commit time",
		Details:   fmt.Sprintf("vendorId: %s, productId: %s, available: %d, requested: %d", vendorID, productID, available, requested),
		Retryable: true,
		Metadata: map[string]interface{}{
			"vendorId":  vendorID,
			"productId": productID,
			"available": available,
			"requested": requested,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewLockTimeoutError creates a retryable lock contention error.
func NewLockTimeoutError(orderID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeLockTimeout,
		Message:   "Row lock contention during stock commit",
		Details:   fmt.Sprintf("orderId: %s, error: %s", orderID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"orderId": orderID},
		Timestamp: time.Now().UTC(),
	}
}

// NewRoutingExhaustedError creates a non-retryable terminal routing failure
// after the attempt budget is spent.
func NewRoutingExhaustedError(orderID string, attempts int, productID, vendorID, cause string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRoutingExhausted,
		Message:   "Routing attempts exhausted",
		Details:   fmt.Sprintf("orderId: %s, attempts: %d, cause: %s", orderID, attempts, cause),
		Retryable: false,
		Metadata: map[string]interface{}{
			"orderId":   orderID,
			"attempts":  attempts,
			"productId": productID,
			"vendorId":  vendorID,
			"cause":     cause,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewOrderCommitFailedError creates a retryable commit error for failures
// other than stock conflicts and lock timeouts.
func NewOrderCommitFailedError(orderID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeOrderCommitFailed,
		Message:   "Order commit transaction failed",
		Details:   fmt.Sprintf("orderId: %s, error: %s", orderID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"orderId": orderID},
		Timestamp: time.Now().UTC(),
	}
}

// NewInvalidWeightsError creates a non-retryable weights validation error.
func NewInvalidWeightsError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInvalidWeights,
		Message:   "Scoring weights rejected",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewEventValidationFailedError creates a non-retryable event validation error.
func NewEventValidationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeEventValidationFailed,
		Message:   "Performance event rejected",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewScoreUpdateFailedError creates a retryable score recompute error.
func NewScoreUpdateFailedError(vendorID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeScoreUpdateFailed,
		Message:   "Vendor score update failed",
		Details:   fmt.Sprintf("vendorId: %s, error: %s", vendorID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"vendorId": vendorID},
		Timestamp: time.Now().UTC(),
	}
}

// NewVendorScoreNotFoundError creates a non-retryable lookup error.
func NewVendorScoreNotFoundError(vendorID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeVendorScoreNotFound,
		Message:   "No score row for vendor",
		Details:   fmt.Sprintf("vendorId: %s", vendorID),
		Retryable: false,
		Metadata:  map[string]interface{}{"vendorId": vendorID},
		Timestamp: time.Now().UTC(),
	}
}

// NewPayloadInvalidError creates a non-retryable job payload schema error.
func NewPayloadInvalidError(taskType, details string) *StandardError {
	return &StandardError{
		Code:      ErrCodePayloadInvalid,
		Message:   "Job payload failed schema validation",
		Details:   fmt.Sprintf("taskType: %s, %s", taskType, details),
		Retryable: false,
		Metadata:  map[string]interface{}{"taskType": taskType},
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseConnectionFailedError creates a retryable database connection error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseConnectionFailed,
		Message:   "Database connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryExecutionFailedError creates a retryable query execution error.
func NewQueryExecutionFailedError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryExecutionFailed,
		Message:   "Database query execution error",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewQueryTimeoutError creates a retryable query timeout error.
func NewQueryTimeoutError(operation string) *StandardError {
	return &StandardError{
		Code:      ErrCodeQueryTimeout,
		Message:   "Database query timeout",
		Details:   fmt.Sprintf("operation: %s", operation),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewElasticsearchConnectionFailedError creates a retryable Elasticsearch connection error.
func NewElasticsearchConnectionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeElasticsearchConnectionFailed,
		Message:   "Elasticsearch connection error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable search query error.
func NewSearchQueryFailedError(queryType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Elasticsearch query error",
		Details:   fmt.Sprintf("queryType: %s, error: %s", queryType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable search timeout error.
func NewSearchTimeoutError(queryType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Elasticsearch query timeout",
		Details:   fmt.Sprintf("queryType: %s", queryType),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable index not found error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Elasticsearch index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDecisionLogFailedError creates a retryable decision log write error.
func NewDecisionLogFailedError(orderID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDecisionLogFailed,
		Message:   "Routing decision write failed",
		Details:   fmt.Sprintf("orderId: %s, error: %s", orderID, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"orderId": orderID},
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationSendFailedError creates a retryable notification send error.
func NewNotificationSendFailedError(notificationType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationSendFailed,
		Message:   "Notification delivery failed",
		Details:   fmt.Sprintf("type: %s, error: %s", notificationType, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// Generic constructors

func NewBusinessRuleError(message, details string) *StandardError {
	return &StandardError{
		Code:      "BUSINESS_RULE_VIOLATION",
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

func NewExternalServiceError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "EXTERNAL_SERVICE_ERROR",
		Message:   fmt.Sprintf("External service '%s' error", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewTimeoutError(service string, err error) *StandardError {
	return &StandardError{
		Code:      "TIMEOUT_ERROR",
		Message:   fmt.Sprintf("Service '%s' timeout", service),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

func NewResourceNotFoundError(service, details string) *StandardError {
	return &StandardError{
		Code:      "RESOURCE_NOT_FOUND",
		Message:   fmt.Sprintf("Resource not found in %s", service),
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes. The
// process models use the same code strings, so the mapping is identity.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeNoEligibleVendor:              "NO_ELIGIBLE_VENDOR",
	ErrCodeIncompleteAllocation:          "INCOMPLETE_ALLOCATION",
	ErrCodeStockConflict:                 "STOCK_CONFLICT",
	ErrCodeLockTimeout:                   "LOCK_TIMEOUT",
	ErrCodeRoutingExhausted:              "ROUTING_EXHAUSTED",
	ErrCodeOrderCommitFailed:             "ORDER_COMMIT_FAILED",
	ErrCodeInvalidWeights:                "INVALID_WEIGHTS",
	ErrCodeEventValidationFailed:         "EVENT_VALIDATION_FAILED",
	ErrCodeScoreUpdateFailed:             "SCORE_UPDATE_FAILED",
	ErrCodeVendorScoreNotFound:           "VENDOR_SCORE_NOT_FOUND",
	ErrCodePayloadInvalid:                "PAYLOAD_INVALID",
	ErrCodeDatabaseConnectionFailed:      "DATABASE_CONNECTION_FAILED",
	ErrCodeQueryExecutionFailed:          "QUERY_EXECUTION_FAILED",
	ErrCodeQueryTimeout:                  "QUERY_TIMEOUT",
	ErrCodeDatabaseInsertFailed:          "DATABASE_INSERT_FAILED",
	ErrCodeElasticsearchConnectionFailed: "ELASTICSEARCH_CONNECTION_FAILED",
	ErrCodeSearchQueryFailed:             "SEARCH_QUERY_FAILED",
	ErrCodeSearchTimeout:                 "SEARCH_TIMEOUT",
	ErrCodeIndexNotFound:                 "INDEX_NOT_FOUND",
	ErrCodeDecisionLogFailed:             "DECISION_LOG_FAILED",
	ErrCodeNotificationSendFailed:        "NOTIFICATION_SEND_FAILED",
}

// GetRetryCount returns the recommended retry count per error code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeDatabaseConnectionFailed,
		ErrCodeQueryExecutionFailed,
		ErrCodeDatabaseInsertFailed,
		ErrCodeElasticsearchConnectionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeScoreUpdateFailed,
		ErrCodeDecisionLogFailed,
		ErrCodeNotificationSendFailed:
		return 3 // Retryable technical errors

	case ErrCodeLockTimeout,
		ErrCodeOrderCommitFailed,
		ErrCodeQueryTimeout,
		ErrCodeSearchTimeout:
		return 2 // Contention and timeouts: short retry budget

	case ErrCodeStockConflict:
		return 0 // Retry means re-ranking with exclusions, not a blind re-run

	default:
		return 0 // Business errors: no retry
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code) // Fallback
	}

	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "WEIGHTS") || strings.Contains(codeStr, "SCORE") ||
		strings.Contains(codeStr, "EVENT"):
		return "SCORING"
	case strings.Contains(codeStr, "VENDOR") || strings.Contains(codeStr, "STOCK") ||
		strings.Contains(codeStr, "ROUTING") || strings.Contains(codeStr, "ALLOCATION") ||
		strings.Contains(codeStr, "COMMIT") || strings.Contains(codeStr, "LOCK") ||
		strings.Contains(codeStr, "DECISION"):
		return "ROUTING"
	case strings.Contains(codeStr, "DATABASE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "ELASTICSEARCH") || strings.Contains(codeStr, "SEARCH") ||
		strings.Contains(codeStr, "INDEX"):
		return "SEARCH"
	case strings.Contains(codeStr, "NOTIFICATION"):
		return "NOTIFICATION"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "VALIDATION") ||
		strings.Contains(codeStr, "PAYLOAD"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
