package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

func TestResponseSpeedScore(t *testing.T) {
	tests := []struct {
		name     string
		count    int
		total    float64
		expected float64
	}{
		{"no responses defaults to midpoint", 0, 0, 50},
		{"fast vendor", 4, 20, 100},          // avg 5 min
		{"boundary at ten minutes", 1, 10, 100},
		{"twenty minutes", 1, 20, 80},        // 100 - 10*2
		{"boundary at thirty minutes", 1, 30, 60},
		{"forty minutes", 1, 40, 45},         // 60 - 10*1.5
		{"floor at zero", 1, 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window{ResponseCount: tt.count, TotalResponseMinutes: tt.total}
			assert.InDelta(t, tt.expected, responseSpeedScore(w), 1e-9)
		})
	}
}

func TestAcceptanceScore(t *testing.T) {
	tests := []struct {
		name     string
		assigned int
		accepted int
		expected float64
	}{
		{"no assignments defaults to midpoint", 0, 0, 50},
		{"nine of ten lands in the top band", 10, 9, 100},
		{"perfect record", 10, 10, 100},
		{"six of ten", 10, 6, 62.5},
		{"seventy five percent", 20, 15, 81.25},
		{"boundary at fifty percent", 10, 5, 50},
		{"below fifty percent passes through", 10, 3, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window{Assigned: tt.assigned, Accepted: tt.accepted}
			assert.InDelta(t, tt.expected, acceptanceScore(w), 1e-9)
		})
	}
}

func TestPriceScore(t *testing.T) {
	market := MarketPrices{"prod-1": {Min: 100, Max: 120}}

	cheap := Window{Quotes: []Quote{{ProductID: "prod-1", Price: 100}}}
	expensive := Window{Quotes: []Quote{{ProductID: "prod-1", Price: 120}}}

	assert.InDelta(t, 100.0, priceScore(cheap, market), 1e-9)
	assert.InDelta(t, 0.0, priceScore(expensive, market), 1e-9)
}

func TestPriceScore_AllPricesEqual(t *testing.T) {
	market := MarketPrices{"prod-1": {Min: 50, Max: 50}}
	w := Window{Quotes: []Quote{{ProductID: "prod-1", Price: 50}}}
	assert.InDelta(t, 100.0, priceScore(w, market), 1e-9)
}

func TestPriceScore_NoQuotes(t *testing.T) {
	assert.InDelta(t, 50.0, priceScore(Window{}, MarketPrices{}), 1e-9)
}

func TestPriceScore_AveragesAcrossQuotes(t *testing.T) {
	market := MarketPrices{
		"prod-1": {Min: 100, Max: 120},
		"prod-2": {Min: 10, Max: 20},
	}
	w := Window{Quotes: []Quote{
		{ProductID: "prod-1", Price: 100}, // 100
		{ProductID: "prod-2", Price: 15},  // 50
	}}
	assert.InDelta(t, 75.0, priceScore(w, market), 1e-9)
}

func TestDeliveryScore(t *testing.T) {
	tests := []struct {
		name      string
		delivered int
		cancelled int
		expected  float64
	}{
		{"no outcomes defaults to midpoint", 0, 0, 50},
		{"ninety five percent is perfect", 19, 1, 100},
		{"all delivered", 10, 0, 100},
		{"eighty percent", 8, 2, 50 + 30*(50.0/45.0)},
		{"half and half", 5, 5, 50},
		{"below half passes through", 4, 6, 40},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window{Delivered: tt.delivered, Cancelled: tt.cancelled}
			assert.InDelta(t, tt.expected, deliveryScore(w), 1e-9)
		})
	}
}

func TestCancellationScore(t *testing.T) {
	tests := []struct {
		name      string
		assigned  int
		cancelled int
		expected  float64
	}{
		{"no assignments means nothing cancelled", 0, 0, 100},
		{"two percent keeps perfect score", 100, 2, 100},
		{"six percent", 100, 6, 75},
		{"ten percent hits the band floor", 100, 10, 50},
		{"twenty percent", 100, 20, 50 - 10*(50.0/90.0)},
		{"total cancellation floors at zero", 10, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Window{Assigned: tt.assigned, Cancelled: tt.cancelled}
			assert.InDelta(t, tt.expected, cancellationScore(w), 1e-9)
		})
	}
}

func TestOverall(t *testing.T) {
	c := models.ComponentScores{
		ResponseSpeed:        100,
		AcceptanceRate:       80,
		PriceCompetitiveness: 60,
		DeliverySuccess:      90,
		CancellationRate:     100,
	}
	w := DefaultWeights()

	expected := 100*0.20 + 80*0.20 + 60*0.20 + 90*0.25 + 100*0.15
	assert.InDelta(t, expected, Overall(c, w), 1e-9)
}

func TestComponents_Deterministic(t *testing.T) {
	strategy := NewRuleBased()
	w := Window{
		Assigned: 10, Accepted: 7, Rejected: 2, Delivered: 6, Cancelled: 1,
		ResponseCount: 9, TotalResponseMinutes: 135,
		Quotes: []Quote{{ProductID: "prod-1", Price: 110}},
	}
	market := MarketPrices{"prod-1": {Min: 100, Max: 120}}

	first := strategy.Components(w, market)
	second := strategy.Components(w, market)
	assert.Equal(t, first, second)

	weights := DefaultWeights()
	assert.Equal(t, Overall(first, weights), Overall(second, weights))
}

func TestComponents_EmptyWindowDefaults(t *testing.T) {
	c := NewRuleBased().Components(Window{}, MarketPrices{})

	assert.Equal(t, 50.0, c.ResponseSpeed)
	assert.Equal(t, 50.0, c.AcceptanceRate)
	assert.Equal(t, 50.0, c.PriceCompetitiveness)
	assert.Equal(t, 50.0, c.DeliverySuccess)
	assert.Equal(t, 100.0, c.CancellationRate)
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(DefaultWeights()))

	// Within tolerance of 1.0 passes.
	nearlyOne := models.Weights{
		ResponseSpeed:    0.2,
		AcceptanceRate:   0.2,
		Price:            0.2,
		DeliverySuccess:  0.25,
		CancellationRate: 0.15 + 5e-7,
	}
	assert.NoError(t, ValidateWeights(nearlyOne))

	bad := models.Weights{
		ResponseSpeed:    0.5,
		AcceptanceRate:   0.5,
		Price:            0.5,
		DeliverySuccess:  0.5,
		CancellationRate: 0.5,
	}
	assert.Error(t, ValidateWeights(bad))

	negative := DefaultWeights()
	negative.Price = -0.2
	negative.ResponseSpeed = 0.6
	assert.Error(t, ValidateWeights(negative))
}
