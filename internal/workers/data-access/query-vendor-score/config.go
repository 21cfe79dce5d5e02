// internal/workers/data-access/query-vendor-score/config.go
package queryvendorscore

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
	}
}
