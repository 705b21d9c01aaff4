// internal/workers/dream/interpret-brief/config.go
package interpretbrief

import "time"

type Config struct {
	Timeout time.Duration
}

// LoadConfig leaves room for the model's own retry budget inside the job timeout.
func LoadConfig() *Config {
	return &Config{
		Timeout: 60 * time.Second,
	}
}
