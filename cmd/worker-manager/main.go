// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	awsc "dreamforge-workers/internal/common/aws"
	"dreamforge-workers/internal/common/camunda"
	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/common/database"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/common/observability"
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/interpret"
	"dreamforge-workers/internal/dream/kinds"
	"dreamforge-workers/internal/dream/listing"
	"dreamforge-workers/internal/store"

	cfi "dreamforge-workers/internal/workers/dream/create-from-idea"
	ga "dreamforge-workers/internal/workers/dream/generate-assets"
	ib "dreamforge-workers/internal/workers/dream/interpret-brief"
	lp "dreamforge-workers/internal/workers/dream/list-products"
	pl "dreamforge-workers/internal/workers/dream/publish-listing"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log logger.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName), map[string]interface{}{
				"error":       err.Error(),
				"attempt":     i + 1,
				"maxRetries":  maxRetries,
				"nextRetryIn": delay.String(),
			})
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, map[string]interface{}{"error": err.Error()})
	os.Exit(1)
}

func main() {
	log := logger.NewStructured("info", "console")
	log.Info("Starting worker manager...", nil)

	cfg, err := config.Load()
	if err != nil {
		fatal(log, "config load failed", err)
	}
	log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).With(map[string]interface{}{
		"service": cfg.App.Name,
		"stage":   cfg.App.Stage,
	})

	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		log.Warn("otel metrics exporter unavailable", map[string]interface{}{"error": err.Error()})
	}
	defer obs.Shutdown()

	ctx := context.Background()

	// --- AWS clients ---
	awsCfg, err := awsc.LoadConfig(ctx, awsc.ClientOptions{
		Region:         cfg.AWS.Region,
		ConnectTimeout: config.GetDuration(cfg.Bedrock.ConnectTimeout),
		ReadTimeout:    config.GetDuration(cfg.Bedrock.ReadTimeout),
		MaxRetries:     cfg.Bedrock.ClientMaxRetries,
	})
	if err != nil {
		fatal(log, "aws config failed", err)
	}
	objects := awsc.NewS3Client(awsCfg)
	model := awsc.NewModelClient(awsCfg, awsc.ModelOptions{
		TextModelID:     cfg.Bedrock.TextModelID,
		TextFallbackIDs: cfg.Bedrock.TextFallbackIDs,
		Temperature:     cfg.Bedrock.Temperature,
		TopP:            cfg.Bedrock.TopP,
		MaxTokens:       cfg.Bedrock.MaxTokens,
	}, log)

	// --- Record store ---
	records, closeRecords := openRecordStore(ctx, cfg, awsCfg, log)
	defer closeRecords()

	// --- Brief interpretation, optionally cached in redis ---
	var briefer interpret.Briefer = interpret.New(model, interpret.Options{
		Attempts: cfg.Interpret.Attempts,
		Delay:    config.GetDuration(cfg.Interpret.DelayMS),
	}, log, obs)
	if cfg.Interpret.CacheTTL > 0 {
		rdb, err := database.NewRedis(cfg.Database.Redis)
		if err == nil {
			err = retryWithBackoff(func() error { return rdb.Ping(ctx) }, 5, time.Second, log, "Redis connection")
		}
		if err != nil {
			log.Warn("brief cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer rdb.Close()
			briefer = interpret.NewCached(briefer, rdb.Client, time.Duration(cfg.Interpret.CacheTTL)*time.Second, log)
			log.Info("Redis connected successfully", nil)
		}
	}

	// --- Assets and listings ---
	policy, err := kinds.ParsePolicy(cfg.Assets.DocumentPolicy)
	if err != nil {
		fatal(log, "invalid document policy", err)
	}
	generator := assets.NewGenerator(objects, model, assets.Options{
		Bucket:       cfg.AWS.Buckets.Assets,
		ImageModelID: cfg.Bedrock.ImageModelID,
		Provider:     cfg.Bedrock.ImageProvider,
		Policy:       policy,
		VideoEnabled: cfg.Assets.VideoEnabled,
	}, log, obs)

	listingOpts := listing.Options{
		DefaultPriceCents: cfg.Listing.DefaultPriceCents,
		Currency:          cfg.Listing.Currency,
		Stage:             cfg.App.Stage,
	}
	if cfg.Notifications.SNS.Enabled {
		listingOpts.Events = awsc.NewSNSClient(awsCfg)
		listingOpts.TopicARN = cfg.Notifications.SNS.TopicARN
	}
	if cfg.Notifications.SES.Enabled {
		listingOpts.Mail = awsc.NewSESClient(awsCfg)
		listingOpts.FromEmail = cfg.Notifications.SES.FromEmail
		listingOpts.ToEmail = cfg.Notifications.SES.ToEmail
	}
	publisher := listing.NewPublisher(records, listingOpts, log)

	// --- Init Zeebe Client with retry ---
	var zc *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zc, err = camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
		return err
	}, 10, 2*time.Second, log, "Zeebe client initialization")
	if err != nil {
		fatal(log, "zeebe client failed after retries", err)
	}
	log.Info("Zeebe client connected successfully", nil)

	// --- Register workers ---
	workers := camunda.NewWorkers(zc.GetClient(), log)
	urlTTL := time.Duration(cfg.AWS.PresignTTL) * time.Second

	if wcfg := config.GetWorkerConfig(cfg, ib.TaskType); wcfg.Enabled {
		handler := ib.NewHandler(
			&ib.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			briefer, obs, log,
		)
		workers.Start(ib.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, ga.TaskType); wcfg.Enabled {
		handler := ga.NewHandler(
			&ga.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			generator, obs, log,
		)
		workers.Start(ga.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, pl.TaskType); wcfg.Enabled {
		handler := pl.NewHandler(
			&pl.Config{Timeout: config.GetDuration(wcfg.Timeout)},
			publisher, obs, log,
		)
		workers.Start(pl.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, cfi.TaskType); wcfg.Enabled {
		handler := cfi.NewHandler(
			&cfi.Config{
				Timeout:       config.GetDuration(wcfg.Timeout),
				UploadsBucket: cfg.AWS.Buckets.Uploads,
				AssetsBucket:  cfg.AWS.Buckets.Assets,
				URLTTL:        urlTTL,
				ModelID:       cfg.Bedrock.TextModelID,
			},
			cfi.Dependencies{
				Briefer:       briefer,
				Generator:     generator,
				Publisher:     publisher,
				Conversations: records,
				Objects:       objects,
			},
			obs, log,
		)
		workers.Start(cfi.TaskType, wcfg, handler.Handle)
	}

	if wcfg := config.GetWorkerConfig(cfg, lp.TaskType); wcfg.Enabled {
		handler := lp.NewHandler(
			&lp.Config{
				Timeout:      config.GetDuration(wcfg.Timeout),
				AssetsBucket: cfg.AWS.Buckets.Assets,
				URLTTL:       urlTTL,
			},
			records, objects, obs, log,
		)
		workers.Start(lp.TaskType, wcfg, handler.Handle)
	}
	log.Info("Workers registered", map[string]interface{}{"count": workers.Count()})

	// --- Health & Metrics Server ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy")
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := zc.HealthCheck(ctx); err != nil {
			writeStatus(w, http.StatusServiceUnavailable, "unavailable")
			return
		}
		writeStatus(w, http.StatusOK, "ready")
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: cfg.App.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Health/Metrics server listening", map[string]interface{}{"addr": cfg.App.MetricsAddr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Health/Metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("Shutdown signal received, stopping workers...", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Error stopping health server", map[string]interface{}{"error": err.Error()})
	}
	if err := zc.Close(); err != nil {
		log.Error("Error closing Zeebe client", map[string]interface{}{"error": err.Error()})
	}

	log.Info("Worker manager stopped gracefully", nil)
}

// openRecordStore returns the configured record store and its closer.
func openRecordStore(ctx context.Context, cfg *config.Config, awsCfg aws.Config, log logger.Logger) (store.RecordStore, func()) {
	if cfg.Database.RecordStore != config.RecordStorePostgres {
		return store.NewDynamoStore(awsCfg, store.Tables{
			Products:      cfg.AWS.Tables.Products,
			Listings:      cfg.AWS.Tables.Listings,
			Conversations: cfg.AWS.Tables.Conversations,
			Messages:      cfg.AWS.Tables.Messages,
		}, log), func() {}
	}

	var pg *database.PostgresClient
	err := retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, log, "PostgreSQL connection")
	if err != nil {
		fatal(log, "postgres failed after retries", err)
	}
	log.Info("PostgreSQL connected successfully", nil)

	s := store.NewPostgresStore(pg.DB, log)
	if err := s.Migrate(ctx); err != nil {
		fatal(log, "postgres migration failed", err)
	}
	return s, func() { closeQuietly(pg, log) }
}

func closeQuietly(c io.Closer, log logger.Logger) {
	if err := c.Close(); err != nil {
		log.Warn("close failed", map[string]interface{}{"error": err.Error()})
	}
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	})
}
