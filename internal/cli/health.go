package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Show server health and document counts",
	Args:  cobra.NoArgs,
	RunE:  runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	info, err := apiClient().Health(cmd.Context())
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	cmd.Printf("Status:       %s\n", info.Status)
	cmd.Printf("Model loaded: %t\n", info.ModelLoaded)
	cmd.Printf("Documents:    %d total, %d processing, %d completed, %d failed\n",
		info.TotalDocuments, info.ProcessingDocuments, info.CompletedDocuments, info.FailedDocuments)
	return nil
}
