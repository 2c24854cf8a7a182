package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchTopK int

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search paper pages by meaning",
	Long: `Runs semantic search over indexed paper pages. Results point at
the page of the PDF that best matches the query.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 5, "maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	results, err := apiClient().Search(cmd.Context(), args[0], searchTopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if results.TotalResults == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Printf("Results for %q:\n\n", results.Query)
	for i, hit := range results.Results {
		cmd.Printf("  [%d] %s page %d (%.3f)\n", i+1, hit.PaperID, hit.PageNumber, hit.Score)
		if hit.PDFPath != "" {
			cmd.Printf("      %s\n", hit.PDFPath)
		}
	}
	return nil
}
