package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

const scoreCacheKeyPrefix = "vendor:score:"

// ScoreStore persists the single live score row per vendor plus the
// append-only history, with a Redis read-through cache on the live row.
// The cache is invalidated on every recompute; a short TTL bounds
// staleness if an invalidation is lost.
type ScoreStore struct {
	db     *sql.DB
	cache  *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewScoreStore(db *sql.DB, cache *redis.Client, ttl time.Duration, log logger.Logger) *ScoreStore {
	return &ScoreStore{db: db, cache: cache, ttl: ttl, logger: log}
}

const getScoreQuery = `
SELECT vendor_id, response_speed, acceptance_rate, price_competitiveness,
       delivery_success, cancellation_rate, overall_score, updated_at
FROM vendor_scores WHERE vendor_id = $1`

// Get returns the vendor's current score, cache first.
func (s *ScoreStore) Get(ctx context.Context, vendorID string) (models.VendorScore, error) {
	if s.cache != nil {
		if val, err := s.cache.Get(ctx, scoreCacheKeyPrefix+vendorID).Result(); err == nil {
			var score models.VendorScore
			if err := json.Unmarshal([]byte(val), &score); err == nil {
				return score, nil
			}
		}
	}

	var score models.VendorScore
	err := s.db.QueryRowContext(ctx, getScoreQuery, vendorID).Scan(
		&score.VendorID, &score.Components.ResponseSpeed, &score.Components.AcceptanceRate,
		&score.Components.PriceCompetitiveness, &score.Components.DeliverySuccess,
		&score.Components.CancellationRate, &score.OverallScore, &score.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return models.VendorScore{}, errors.NewVendorScoreNotFoundError(vendorID)
	}
	if err != nil {
		return models.VendorScore{}, errors.NewQueryExecutionFailedError("get_vendor_score", err)
	}

	s.cacheSet(ctx, score)
	return score, nil
}

const upsertScoreQuery = `
INSERT INTO vendor_scores (vendor_id, response_speed, acceptance_rate,
	price_competitiveness, delivery_success, cancellation_rate, overall_score, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (vendor_id) DO UPDATE SET
	response_speed = EXCLUDED.response_speed,
	acceptance_rate = EXCLUDED.acceptance_rate,
	price_competitiveness = EXCLUDED.price_competitiveness,
	delivery_success = EXCLUDED.delivery_success,
	cancellation_rate = EXCLUDED.cancellation_rate,
	overall_score = EXCLUDED.overall_score,
	updated_at = EXCLUDED.updated_at`

// Upsert overwrites the vendor's live score row and drops the cache entry.
func (s *ScoreStore) Upsert(ctx context.Context, score models.VendorScore) error {
	_, err := s.db.ExecContext(ctx, upsertScoreQuery,
		score.VendorID, score.Components.ResponseSpeed, score.Components.AcceptanceRate,
		score.Components.PriceCompetitiveness, score.Components.DeliverySuccess,
		score.Components.CancellationRate, score.OverallScore, score.UpdatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}

	if s.cache != nil {
		if err := s.cache.Del(ctx, scoreCacheKeyPrefix+score.VendorID).Err(); err != nil {
			s.logger.Warn("score cache invalidation failed", map[string]interface{}{
				"vendorId": score.VendorID,
				"error":    err.Error(),
			})
		}
	}
	return nil
}

const appendHistoryQuery = `
INSERT INTO vendor_score_history (id, vendor_id, trigger_event, response_speed,
	acceptance_rate, price_competitiveness, delivery_success, cancellation_rate,
	overall_score, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

// AppendHistory writes one immutable history snapshot.
func (s *ScoreStore) AppendHistory(ctx context.Context, e models.ScoreHistoryEntry) error {
	_, err := s.db.ExecContext(ctx, appendHistoryQuery,
		e.ID, e.VendorID, e.TriggerEvent, e.Components.ResponseSpeed,
		e.Components.AcceptanceRate, e.Components.PriceCompetitiveness,
		e.Components.DeliverySuccess, e.Components.CancellationRate,
		e.OverallScore, e.CreatedAt,
	)
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

// ListVendorIDs enumerates every vendor with a score row, for the sweep.
func (s *ScoreStore) ListVendorIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT vendor_id FROM vendor_scores ORDER BY vendor_id`)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list_vendor_ids", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewQueryExecutionFailedError("list_vendor_ids", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const ensureDefaultQuery = `
INSERT INTO vendor_scores (vendor_id, response_speed, acceptance_rate,
	price_competitiveness, delivery_success, cancellation_rate, overall_score, updated_at)
VALUES ($1, 50, 50, 50, 50, 50, 50, $2)
ON CONFLICT (vendor_id) DO NOTHING`

// EnsureDefault creates the onboarding midpoint score row if the vendor
// has none yet.
func (s *ScoreStore) EnsureDefault(ctx context.Context, vendorID string) error {
	_, err := s.db.ExecContext(ctx, ensureDefaultQuery, vendorID, time.Now().UTC())
	if err != nil {
		return errors.NewDatabaseInsertFailedError(err)
	}
	return nil
}

func (s *ScoreStore) cacheSet(ctx context.Context, score models.VendorScore) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, scoreCacheKeyPrefix+score.VendorID, data, s.ttl).Err(); err != nil {
		s.logger.Warn("score cache write failed", map[string]interface{}{
			"vendorId": score.VendorID,
			"error":    err.Error(),
		})
	}
}
