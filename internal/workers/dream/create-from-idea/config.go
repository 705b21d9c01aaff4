// internal/workers/dream/create-from-idea/config.go
package createfromidea

import "time"

type Config struct {
	Timeout       time.Duration
	UploadsBucket string
	AssetsBucket  string
	URLTTL        time.Duration
	// ModelID is recorded on new conversations.
	ModelID string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 180 * time.Second,
		URLTTL:  5 * time.Minute,
	}
}
