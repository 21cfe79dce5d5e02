package scoring

import (
	"sync"

	"github.com/newbihanigroup-creator/khaacho-sub002/internal/models"
)

// WeightsProvider holds the live scoring weights behind a lock so the
// update-scoring-weights worker can swap them while routing runs read
// them. Every read returns a copy; callers snapshot the weights they used
// into the routing decision.
type WeightsProvider struct {
	mu sync.RWMutex
	w  models.Weights
}

// DefaultWeights is the tuned production split. Delivery outcome carries
// the most weight, cancellations the least.
func DefaultWeights() models.Weights {
	return models.Weights{
		ResponseSpeed:    0.20,
		AcceptanceRate:   0.20,
		Price:            0.20,
		DeliverySuccess:  0.25,
		CancellationRate: 0.15,
	}
}

// NewWeightsProvider validates the initial weights and returns a provider.
func NewWeightsProvider(w models.Weights) (*WeightsProvider, error) {
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}
	return &WeightsProvider{w: w}, nil
}

// Current returns the weights in force.
func (p *WeightsProvider) Current() models.Weights {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.w
}

// Update swaps in a new weight set. Invalid weights are rejected and the
// current set is left untouched.
func (p *WeightsProvider) Update(w models.Weights) error {
	if err := ValidateWeights(w); err != nil {
		return err
	}
	p.mu.Lock()
	p.w = w
	p.mu.Unlock()
	return nil
}
