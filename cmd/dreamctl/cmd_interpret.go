package main

import (
	"fmt"
	"strings"

	awsc "dreamforge-workers/internal/common/aws"
	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/common/logger"
	"dreamforge-workers/internal/dream/interpret"

	"github.com/spf13/cobra"
)

// interpretCmd turns free text into a brief
var interpretCmd = &cobra.Command{
	Use:   "interpret <text>",
	Short: "Turn free text into a normalized brief",
	Long: `Ask the configured text model for a brief and print it after normalization.
Unsafe or unusable input prints a clarification brief instead of failing.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInterpret,
}

func runInterpret(cmd *cobra.Command, args []string) error {
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
	briefer := newBriefer(model, cfg, log)

	b := briefer.Interpret(ctx, strings.Join(args, " "))
	return printJSON(cmd.OutOrStdout(), b)
}

func newModelClient(cmd *cobra.Command, cfg *config.Config, log logger.Logger) (*awsc.ModelClient, error) {
	awsCfg, err := awsc.LoadConfig(cmd.Context(), awsc.ClientOptions{
		Region:         cfg.AWS.Region,
		ConnectTimeout: config.GetDuration(cfg.Bedrock.ConnectTimeout),
		ReadTimeout:    config.GetDuration(cfg.Bedrock.ReadTimeout),
		MaxRetries:     cfg.Bedrock.ClientMaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}
	return awsc.NewModelClient(awsCfg, awsc.ModelOptions{
		TextModelID:     cfg.Bedrock.TextModelID,
		TextFallbackIDs: cfg.Bedrock.TextFallbackIDs,
		Temperature:     cfg.Bedrock.Temperature,
		TopP:            cfg.Bedrock.TopP,
		MaxTokens:       cfg.Bedrock.MaxTokens,
	}, log), nil
}

func newBriefer(model interpret.JSONModel, cfg *config.Config, log logger.Logger) *interpret.Interpreter {
	return interpret.New(model, interpret.Options{
		Attempts: cfg.Interpret.Attempts,
		Delay:    config.GetDuration(cfg.Interpret.DelayMS),
	}, log, nil)
}
