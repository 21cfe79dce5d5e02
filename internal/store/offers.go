// Package store holds the Postgres-backed repositories for vendor offers,
// scores, performance events and routing decisions.
package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// OfferStore reads vendor_offers. The table is owned by the inventory
// service; the only write this core ever performs against it is the
// decrement inside the commit transaction.
type OfferStore struct {
	db *sql.DB
}

func NewOfferStore(db *sql.DB) *OfferStore {
	return &OfferStore{db: db}
}

const eligibleCandidatesQuery = `
SELECT o.vendor_id, o.unit_price, o.available_quantity, o.lead_time_days,
       s.overall_score, s.response_speed, s.acceptance_rate,
       s.price_competitiveness, s.delivery_success, s.cancellation_rate
FROM vendor_offers o
JOIN vendor_scores s ON s.vendor_id = o.vendor_id
WHERE o.product_id = $1
  AND o.is_active
  AND o.available_quantity >= $2
  AND s.overall_score >= $3
  AND o.vendor_id <> ALL($4)
ORDER BY s.overall_score DESC, o.unit_price ASC, o.vendor_id ASC
LIMIT $5`

// EligibleCandidates returns active offers that can cover the requested
// quantity, joined with the vendor's current score, already ordered by
// overall score, then unit price, then vendor id.
func (s *OfferStore) EligibleCandidates(ctx context.Context, productID string, quantity int, minScore float64, topN int, exclude []string) ([]models.RankedVendor, error) {
	if exclude == nil {
		exclude = []string{}
	}

	rows, err := s.db.QueryContext(ctx, eligibleCandidatesQuery,
		productID, quantity, minScore, pq.Array(exclude), topN)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("eligible_candidates", err)
	}
	defer rows.Close()

	var out []models.RankedVendor
	for rows.Next() {
		var c models.RankedVendor
		if err := rows.Scan(
			&c.VendorID, &c.UnitPrice, &c.AvailableQuantity, &c.LeadTimeDays,
			&c.OverallScore, &c.Components.ResponseSpeed, &c.Components.AcceptanceRate,
			&c.Components.PriceCompetitiveness, &c.Components.DeliverySuccess,
			&c.Components.CancellationRate,
		); err != nil {
			return nil, errors.NewQueryExecutionFailedError("eligible_candidates", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewQueryExecutionFailedError("eligible_candidates", err)
	}
	return out, nil
}
