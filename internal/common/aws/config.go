// internal/common/aws/config.go
package aws

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
)

// ClientOptions tunes the shared SDK configuration.
type ClientOptions struct {
	Region         string
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration
	MaxRetries     int
}

// LoadConfig builds one aws.Config that every service client in the process shares.
func LoadConfig(ctx context.Context, opts ClientOptions) (aws.Config, error) {
	httpClient := awshttp.NewBuildableClient()
	if opts.ConnectTimeout > 0 {
		httpClient = httpClient.WithDialerOptions(func(d *net.Dialer) {
			d.Timeout = opts.ConnectTimeout
		})
	}
	if opts.ReadTimeout > 0 {
		httpClient = httpClient.WithTimeout(opts.ConnectTimeout + opts.ReadTimeout)
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
		config.WithHTTPClient(httpClient),
	}
	if opts.MaxRetries > 0 {
		loadOpts = append(loadOpts, config.WithRetryMaxAttempts(opts.MaxRetries))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
