package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	awsc "dreamforge-workers/internal/common/aws"
	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/dream/assets"
	"dreamforge-workers/internal/dream/kinds"

	"github.com/spf13/cobra"
)

var (
	generatePrompt   string
	generateUser     string
	generateOut      string
	generateNoImages bool
)

// generateCmd interprets a prompt and builds every asset it routes to
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Interpret a prompt and generate its assets",
	Long: `Interpret --prompt into a brief, then build and store its assets.

Assets go to the configured assets bucket, or below --out when it is set.
--no-images skips the image model and stores the SVG placeholder instead.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generatePrompt, "prompt", "p", "", "Idea or design prompt")
	generateCmd.Flags().StringVarP(&generateUser, "user", "u", "user_local", "Owner id used in storage keys")
	generateCmd.Flags().StringVarP(&generateOut, "out", "o", "", "Write assets below this directory instead of S3")
	generateCmd.Flags().BoolVar(&generateNoImages, "no-images", false, "Use placeholder images only")
	_ = generateCmd.MarkFlagRequired("prompt")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(cmd)
	defer cancel()

	log := newLogger()
	model, err := newModelClient(cmd, cfg, log)
	if err != nil {
		return err
	}
	policy, err := kinds.ParsePolicy(cfg.Assets.DocumentPolicy)
	if err != nil {
		return err
	}

	var objects assets.ObjectStore
	bucket := cfg.AWS.Buckets.Assets
	if generateOut != "" {
		objects = dirStore{root: generateOut}
		bucket = ""
	} else {
		awsCfg, err := awsc.LoadConfig(ctx, awsc.ClientOptions{Region: cfg.AWS.Region})
		if err != nil {
			return fmt.Errorf("aws config: %w", err)
		}
		objects = awsc.NewS3Client(awsCfg)
	}

	provider := cfg.Bedrock.ImageProvider
	if generateNoImages {
		provider = config.ProviderTextOnly
	}
	generator := assets.NewGenerator(objects, model, assets.Options{
		Bucket:       bucket,
		ImageModelID: cfg.Bedrock.ImageModelID,
		Provider:     provider,
		Policy:       policy,
		VideoEnabled: cfg.Assets.VideoEnabled,
	}, log, nil)

	b := newBriefer(model, cfg, log).Interpret(ctx, generatePrompt)
	out := generator.Generate(ctx, b.DesignPrompt, b, generateUser)
	return printJSON(cmd.OutOrStdout(), out)
}

// dirStore writes objects below root, one file per key. The bucket becomes a
// leading directory when set.
type dirStore struct {
	root string
}

func (d dirStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if strings.Contains(key, "..") {
		return fmt.Errorf("refusing key %q", key)
	}
	path := filepath.Join(d.root, bucket, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
