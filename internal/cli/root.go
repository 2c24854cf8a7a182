// Package cli implements the paperctl command tree. Every command is a
// thin wrapper over the client package against a running API server.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ezgisubasi/multimodal-research-agent/client"
)

var serverURL string

var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Upload and search research papers",
	Long: `paperctl talks to the research paper analysis API: upload PDFs,
track their processing, browse the library and run semantic search.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "API server base URL")
}

func apiClient() *client.Client {
	return client.New(serverURL)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
