package main

import (
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"dreamforge-workers/internal/common/camunda"

	"github.com/spf13/cobra"
)

var (
	submitProcessID string
	submitIdea      string
	submitUser      string
	submitTitle     string
	submitPrice     int
	submitFile      string
)

// submitCmd starts a pipeline instance on the workflow engine
var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Start a create-from-idea process instance",
	Long: `Start the latest version of --process with the idea as its variables.
An optional --file is sent inline and stored as the upload of the run.`,
	RunE: runSubmit,
}

func init() {
	submitCmd.Flags().StringVar(&submitProcessID, "process", "dream-create-from-idea", "BPMN process id")
	submitCmd.Flags().StringVarP(&submitIdea, "idea", "i", "", "Idea text")
	submitCmd.Flags().StringVarP(&submitUser, "user", "u", "", "User id")
	submitCmd.Flags().StringVar(&submitTitle, "title", "", "Conversation title")
	submitCmd.Flags().IntVar(&submitPrice, "price-cents", 0, "Listing price in cents (0 uses the default)")
	submitCmd.Flags().StringVarP(&submitFile, "file", "f", "", "File to attach as the upload")
	_ = submitCmd.MarkFlagRequired("idea")
}

func runSubmit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	vars, err := submitVariables(submitIdea, submitUser, submitTitle, submitPrice, submitFile)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	zc, err := camunda.NewClientWithConfig(camunda.ClientConfigFrom(cfg.Camunda))
	if err != nil {
		return err
	}
	defer zc.Close()

	key, err := zc.CreateInstance(ctx, submitProcessID, vars)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"processId":          submitProcessID,
		"processInstanceKey": key,
	})
}

// submitVariables builds the create-from-idea job variables.
func submitVariables(idea, user, title string, price int, file string) (map[string]interface{}, error) {
	vars := map[string]interface{}{"idea": idea}
	if user != "" {
		vars["userId"] = user
	}
	if title != "" {
		vars["conversationTitle"] = title
	}
	if price > 0 {
		vars["priceCents"] = price
	}
	if file == "" {
		return vars, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	vars["upload"] = map[string]interface{}{
		"fileName":    filepath.Base(file),
		"contentType": mime.TypeByExtension(filepath.Ext(file)),
		"data":        base64.StdEncoding.EncodeToString(data),
	}
	return vars, nil
}
