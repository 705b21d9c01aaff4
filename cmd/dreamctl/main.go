// cmd/dreamctl/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"dreamforge-workers/internal/common/config"
	"dreamforge-workers/internal/common/logger"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
	timeout    time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dreamctl",
	Short: "Run the dream pipeline steps locally",
	Long: `dreamctl runs single steps of the dream-to-listing pipeline outside the
workflow engine, or submits a full pipeline instance to it.

Available subcommands:
  interpret - Turn free text into a normalized brief
  kinds     - Show the asset kinds a product type and intent route to
  generate  - Interpret a prompt and generate its assets
  submit    - Start a create-from-idea process instance`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 3*time.Minute, "Operation timeout")

	rootCmd.AddCommand(interpretCmd)
	rootCmd.AddCommand(kindsCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(submitCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFromFile(configPath)
	}
	return config.Load()
}

func newLogger() logger.Logger {
	return logger.NewStructured(logLevel, "console")
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
