package store

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"vendor_id", "unit_price", "available_quantity", "lead_time_days",
		"overall_score", "response_speed", "acceptance_rate",
		"price_competitiveness", "delivery_success", "cancellation_rate",
	})
}

func TestEligibleCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM vendor_offers o").
		WithArgs("prod-1", 2, 60.0, pq.Array([]string{}), 3).
		WillReturnRows(candidateRows().
			AddRow("vendor-a", 10.0, 25, 2, 92.0, 95.0, 90.0, 88.0, 94.0, 100.0).
			AddRow("vendor-b", 9.5, 8, 3, 85.0, 80.0, 85.0, 90.0, 85.0, 95.0))

	s := NewOfferStore(db)
	got, err := s.EligibleCandidates(context.Background(), "prod-1", 2, 60.0, 3, nil)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "vendor-a", got[0].VendorID)
	assert.Equal(t, 92.0, got[0].OverallScore)
	assert.Equal(t, 25, got[0].AvailableQuantity)
	assert.Equal(t, 95.0, got[0].Components.ResponseSpeed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEligibleCandidates_PassesExclusionList(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM vendor_offers o").
		WithArgs("prod-1", 2, 60.0, pq.Array([]string{"vendor-a"}), 3).
		WillReturnRows(candidateRows())

	s := NewOfferStore(db)
	got, err := s.EligibleCandidates(context.Background(), "prod-1", 2, 60.0, 3, []string{"vendor-a"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}
