// internal/workers/scoring/update-scoring-weights/models.go
package updatescoringweights

import "github.com/newbihanigroup-creator/khaacho-sub002/internal/models"

type Input struct {
	Weights models.Weights `json:"weights"`
}

type Output struct {
	Applied bool           `json:"applied"`
	Weights models.Weights `json:"weights"`
}
