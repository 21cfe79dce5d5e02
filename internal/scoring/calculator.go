// Package scoring computes vendor reputation scores from performance
// events aggregated over a rolling window.
package scoring

import (
	"fmt"
	"math"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/common/errors"
	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// WeightTolerance is the allowed floating point slack when checking that
// component weights sum to 1.0.
const WeightTolerance = 1e-6

// Window holds the per-vendor aggregates over the rolling window that the
// calculator scores from. Counts come straight from performance_events;
// the store is responsible for restricting them to the window.
type Window struct {
	Assigned      int
	Accepted      int
	Rejected      int
	Delivered     int
	Cancelled     int
	LateResponses int

	// Response timing across ACCEPTED, REJECTED and LATE_RESPONSE events
	// that carry a respondedAt.
	ResponseCount        int
	TotalResponseMinutes float64

	Quotes []Quote
}

// Quote is one price quote the vendor gave for a product in the window.
type Quote struct {
	ProductID string
	Price     float64
}

// PriceRange is the observed min/max quoted price for one product across
// all vendors in the window.
type PriceRange struct {
	Min float64
	Max float64
}

// MarketPrices maps productId to the price range quoted for it.
type MarketPrices map[string]PriceRange

// Strategy turns window aggregates into the five component scores.
// The rule-based implementation below is the only one today; alternate
// strategies plug in without touching callers.
type Strategy interface {
	Components(w Window, market MarketPrices) models.ComponentScores
}

// RuleBased is the deterministic banded-formula scoring strategy.
type RuleBased struct{}

func NewRuleBased() RuleBased { return RuleBased{} }

// Components computes all five component scores. Components with no data
// in the window default to the neutral midpoint of 50, except the
// cancellation component: a vendor with no assignments has cancelled
// nothing and scores 100.
func (RuleBased) Components(w Window, market MarketPrices) models.ComponentScores {
	return models.ComponentScores{
		ResponseSpeed:        responseSpeedScore(w),
		AcceptanceRate:       acceptanceScore(w),
		PriceCompetitiveness: priceScore(w, market),
		DeliverySuccess:      deliveryScore(w),
		CancellationRate:     cancellationScore(w),
	}
}

// responseSpeedScore: 100 up to an average of 10 minutes, linear down to
// 60 at 30 minutes, then a 1.5/min slope floored at 0.
func responseSpeedScore(w Window) float64 {
	if w.ResponseCount == 0 {
		return 50
	}
	avg := w.TotalResponseMinutes / float64(w.ResponseCount)
	switch {
	case avg <= 10:
		return 100
	case avg <= 30:
		return clamp(100 - (avg-10)*2)
	default:
		return clamp(60 - (avg-30)*1.5)
	}
}

// acceptanceScore bands accepted/assigned: >=90% is a perfect score, the
// 50-90% range maps linearly onto 50-100, below 50% the rate passes
// through unchanged.
func acceptanceScore(w Window) float64 {
	if w.Assigned == 0 {
		return 50
	}
	rate := float64(w.Accepted) / float64(w.Assigned) * 100
	switch {
	case rate >= 90:
		return 100
	case rate >= 50:
		return clamp(50 + (rate-50)*1.25)
	default:
		return clamp(rate)
	}
}

// priceScore normalizes each quote against the market min/max for that
// product and averages across quotes. A product everyone quotes at the
// same price scores 100 for all of them.
func priceScore(w Window, market MarketPrices) float64 {
	if len(w.Quotes) == 0 {
		return 50
	}
	var sum float64
	var n int
	for _, q := range w.Quotes {
		r, ok := market[q.ProductID]
		if !ok {
			continue
		}
		if r.Max <= r.Min {
			sum += 100
		} else {
			sum += clamp((r.Max - q.Price) / (r.Max - r.Min) * 100)
		}
		n++
	}
	if n == 0 {
		return 50
	}
	return sum / float64(n)
}

// deliveryScore bands delivered/(delivered+cancelled): >=95% is perfect,
// 50-95% maps linearly onto 50-100.
func deliveryScore(w Window) float64 {
	outcomes := w.Delivered + w.Cancelled
	if outcomes == 0 {
		return 50
	}
	rate := float64(w.Delivered) / float64(outcomes) * 100
	switch {
	case rate >= 95:
		return 100
	case rate >= 50:
		return clamp(50 + (rate-50)*(50.0/45.0))
	default:
		return clamp(rate)
	}
}

// cancellationScore inverts cancelled/assigned: <=2% keeps a perfect
// score, 2-10% decays linearly to 50, beyond 10% it keeps falling toward 0.
func cancellationScore(w Window) float64 {
	if w.Assigned == 0 {
		return 100
	}
	rate := float64(w.Cancelled) / float64(w.Assigned) * 100
	switch {
	case rate <= 2:
		return 100
	case rate <= 10:
		return clamp(100 - (rate-2)*6.25)
	default:
		return clamp(50 - (rate-10)*(50.0/90.0))
	}
}

// Overall combines component scores with the given weights. Callers must
// pass weights that already passed ValidateWeights.
func Overall(c models.ComponentScores, w models.Weights) float64 {
	return c.ResponseSpeed*w.ResponseSpeed +
		c.AcceptanceRate*w.AcceptanceRate +
		c.PriceCompetitiveness*w.Price +
		c.DeliverySuccess*w.DeliverySuccess +
		c.CancellationRate*w.CancellationRate
}

// ValidateWeights rejects weight sets whose components fall outside [0,1]
// or do not sum to 1.0 within tolerance. Weights are never coerced.
func ValidateWeights(w models.Weights) error {
	for name, v := range map[string]float64{
		"responseSpeed":    w.ResponseSpeed,
		"acceptanceRate":   w.AcceptanceRate,
		"price":            w.Price,
		"deliverySuccess":  w.DeliverySuccess,
		"cancellationRate": w.CancellationRate,
	} {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return errors.NewInvalidWeightsError(fmt.Sprintf("weight %s out of range: %v", name, v))
		}
	}
	sum := w.ResponseSpeed + w.AcceptanceRate + w.Price + w.DeliverySuccess + w.CancellationRate
	if math.Abs(sum-1.0) > WeightTolerance {
		return errors.NewInvalidWeightsError(fmt.Sprintf("weights sum to %v, expected 1.0", sum))
	}
	return nil
}

// DefaultComponents is the midpoint score set a vendor starts with on
// onboarding, before any performance events exist.
func DefaultComponents() models.ComponentScores {
	return models.ComponentScores{
		ResponseSpeed:        50,
		AcceptanceRate:       50,
		PriceCompetitiveness: 50,
		DeliverySuccess:      50,
		CancellationRate:     50,
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
