// internal/workers/dream/list-products/config.go
package listproducts

import "time"

type Config struct {
	Timeout      time.Duration
	AssetsBucket string
	URLTTL       time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 10 * time.Second,
		URLTTL:  5 * time.Minute,
	}
}
