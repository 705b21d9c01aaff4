package main

import (
	"dreamforge-workers/internal/dream/kinds"

	"github.com/spf13/cobra"
)

var (
	kindsProductType string
	kindsIntent      string
	kindsPolicy      string
)

// kindsCmd prints the routing decision without touching any service
var kindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "Show the asset kinds a product type and intent route to",
	RunE:  runKinds,
}

func init() {
	kindsCmd.Flags().StringVar(&kindsProductType, "product-type", "", "Canonical product type, e.g. poster or book")
	kindsCmd.Flags().StringVar(&kindsIntent, "intent", "", "Brief intent")
	kindsCmd.Flags().StringVar(&kindsPolicy, "policy", string(kinds.PolicyTriple), "Document policy: triple or real_book")
}

func runKinds(cmd *cobra.Command, args []string) error {
	policy, err := kinds.ParsePolicy(kindsPolicy)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"product_type": kindsProductType,
		"intent":       kindsIntent,
		"policy":       policy,
		"kinds":        kinds.Strings(kinds.Decide(kindsProductType, kindsIntent, policy)),
	})
}
