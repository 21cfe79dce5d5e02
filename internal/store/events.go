package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/scoring"
)

// EventStore persists performance_events (append-only) and aggregates
// them into the windows the score calculator consumes.
type EventStore struct {
	db *sql.DB
}

func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

const insertEventQuery = `
INSERT INTO performance_events (id, vendor_id, order_id, product_id,
	event_type, assigned_at, responded_at, quoted_price, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Insert appends one performance event. Rows are never updated or
// deleted; retention is an external concern.
func (s *EventStore) Insert(ctx context.Context, ev models.PerformanceEvent) error {
	var productID sql.NullString
	if ev.ProductID != "" {
		productID = sql.NullString{String: ev.ProductID, Valid: true}
	}
	var respondedAt sql.NullTime
	if ev.RespondedAt != nil {
		respondedAt = sql.NullTime{Time: *ev.RespondedAt, Valid: true}
	}
	var quotedPrice sql.NullFloat64
	if ev.QuotedPrice != nil {
		quotedPrice = sql.NullFloat64{Float64: *ev.QuotedPrice, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, insertEventQuery,
		ev.ID, ev.VendorID, ev.OrderID, productID,
		ev.EventType, ev.AssignedAt, respondedAt, quotedPrice, ev.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

const windowQuery = `
SELECT
	count(*) FILTER (WHERE event_type = 'ASSIGNED'),
	count(*) FILTER (WHERE event_type = 'ACCEPTED'),
	count(*) FILTER (WHERE event_type = 'REJECTED'),
	count(*) FILTER (WHERE event_type = 'DELIVERED'),
	count(*) FILTER (WHERE event_type = 'CANCELLED'),
	count(*) FILTER (WHERE event_type = 'LATE_RESPONSE'),
	count(*) FILTER (WHERE event_type IN ('ACCEPTED','REJECTED','LATE_RESPONSE') AND responded_at IS NOT NULL),
	COALESCE(sum(extract(epoch FROM (responded_at - assigned_at)) / 60)
		FILTER (WHERE event_type IN ('ACCEPTED','REJECTED','LATE_RESPONSE') AND responded_at IS NOT NULL), 0)
FROM performance_events
WHERE vendor_id = $1 AND created_at >= $2`

const quotesQuery = `
SELECT product_id, quoted_price
FROM performance_events
WHERE vendor_id = $1 AND created_at >= $2
  AND quoted_price IS NOT NULL AND product_id IS NOT NULL`

// Window aggregates the vendor's events since the window start into the
// counts and response timing the calculator scores from.
func (s *EventStore) Window(ctx context.Context, vendorID string, since time.Time) (scoring.Window, error) {
	var w scoring.Window
	err := s.db.QueryRowContext(ctx, windowQuery, vendorID, since).Scan(
		&w.Assigned, &w.Accepted, &w.Rejected, &w.Delivered, &w.Cancelled,
		&w.LateResponses, &w.ResponseCount, &w.TotalResponseMinutes,
	)
	if err != nil {
		return scoring.Window{}, errors.NewQueryExecutionFailedError("event_window", err)
	}

	rows, err := s.db.QueryContext(ctx, quotesQuery, vendorID, since)
	if err != nil {
		return scoring.Window{}, errors.NewQueryExecutionFailedError("event_window_quotes", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q scoring.Quote
		if err := rows.Scan(&q.ProductID, &q.Price); err != nil {
			return scoring.Window{}, errors.NewQueryExecutionFailedError("event_window_quotes", err)
		}
		w.Quotes = append(w.Quotes, q)
	}
	return w, rows.Err()
}

const marketPricesQuery = `
SELECT product_id, min(quoted_price), max(quoted_price)
FROM performance_events
WHERE product_id = ANY($1) AND created_at >= $2 AND quoted_price IS NOT NULL
GROUP BY product_id`

// MarketPrices returns the observed min/max quote per product across all
// vendors, for price-competitiveness normalization.
func (s *EventStore) MarketPrices(ctx context.Context, productIDs []string, since time.Time) (scoring.MarketPrices, error) {
	rows, err := s.db.QueryContext(ctx, marketPricesQuery, pq.Array(productIDs), since)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("market_prices", err)
	}
	defer rows.Close()

	market := scoring.MarketPrices{}
	for rows.Next() {
		var productID string
		var r scoring.PriceRange
		if err := rows.Scan(&productID, &r.Min, &r.Max); err != nil {
			return nil, errors.NewQueryExecutionFailedError("market_prices", err)
		}
		market[productID] = r
	}
	return market, rows.Err()
}

const unansweredQuery = `
SELECT e.vendor_id, e.order_id, e.assigned_at
FROM performance_events e
WHERE e.event_type = 'ASSIGNED'
  AND e.assigned_at < $1
  AND NOT EXISTS (
	SELECT 1 FROM performance_events r
	WHERE r.vendor_id = e.vendor_id AND r.order_id = e.order_id
	  AND r.event_type IN ('ACCEPTED','REJECTED','CANCELLED','LATE_RESPONSE')
  )`

// UnansweredAssignments finds ASSIGNED events older than the cutoff with
// no recorded response, so the sweep can convert them into LATE_RESPONSE
// penalties.
func (s *EventStore) UnansweredAssignments(ctx context.Context, before time.Time) ([]models.PerformanceEvent, error) {
	rows, err := s.db.QueryContext(ctx, unansweredQuery, before)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("unanswered_assignments", err)
	}
	defer rows.Close()

	var out []models.PerformanceEvent
	for rows.Next() {
		ev := models.PerformanceEvent{EventType: models.EventAssigned}
		if err := rows.Scan(&ev.VendorID, &ev.OrderID, &ev.AssignedAt); err != nil {
			return nil, errors.NewQueryExecutionFailedError("unanswered_assignments", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}
