// Package routing contains the vendor ranking, order splitting and atomic
// commit engines plus the pipeline that composes them.
package routing

import (
	"context"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/logger"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// CandidateSource supplies eligible offers joined with current scores,
// pre-sorted by the deterministic ranking order.
type CandidateSource interface {
	EligibleCandidates(ctx context.Context, productID string, quantity int, minScore float64, topN int, exclude []string) ([]models.RankedVendor, error)
}

// RankOptions tunes one ranking call. Zero values fall back to the
// configured defaults.
type RankOptions struct {
	MinOverallScore float64
	TopN            int
	Exclude         []string
}

// Ranker is the vendor ranking engine: for one product line it returns
// the top candidates by overall score, ties broken by lowest unit price
// then lowest vendor id so repeated calls over the same data return the
// same order.
type Ranker struct {
	offers   CandidateSource
	minScore float64
	topN     int
	logger   logger.Logger
}

type RankerConfig struct {
	MinOverallScore float64
	TopN            int
}

func NewRanker(offers CandidateSource, cfg RankerConfig, log logger.Logger) *Ranker {
	return &Ranker{
		offers:   offers,
		minScore: cfg.MinOverallScore,
		topN:     cfg.TopN,
		logger:   log,
	}
}

// RankVendors returns the ranked candidate list for one product line, or
// NoEligibleVendorError when no active vendor covers the quantity at the
// score floor. The caller decides whether to relax constraints or surface
// a stockout.
func (r *Ranker) RankVendors(ctx context.Context, productID string, quantity int, opts RankOptions) ([]models.RankedVendor, error) {
	minScore := opts.MinOverallScore
	if minScore == 0 {
		minScore = r.minScore
	}
	topN := opts.TopN
	if topN == 0 {
		topN = r.topN
	}

	candidates, err := r.offers.EligibleCandidates(ctx, productID, quantity, minScore, topN, opts.Exclude)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errors.NewNoEligibleVendorError(productID, quantity, minScore)
	}

	r.logger.Debug("vendors ranked", map[string]interface{}{
		"productId":  productID,
		"quantity":   quantity,
		"candidates": len(candidates),
		"chosen":     candidates[0].VendorID,
	})
	return candidates, nil
}
