// internal/workers/scoring/update-scoring-weights/config.go
package updatescoringweights

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
