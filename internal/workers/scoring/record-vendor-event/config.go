// internal/workers/scoring/record-vendor-event/config.go
package recordvendorevent

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
	}
}
