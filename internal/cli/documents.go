package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "List uploaded documents",
	Args:  cobra.NoArgs,
	RunE:  runDocuments,
}

var statusCmd = &cobra.Command{
	Use:   "status [document-id]",
	Short: "Show processing status for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its index entries",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(documentsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
}

func runDocuments(cmd *cobra.Command, args []string) error {
	list, err := apiClient().Documents(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if list.TotalDocuments == 0 {
		cmd.Println("No documents uploaded yet.")
		return nil
	}

	for i := range list.Documents {
		doc := &list.Documents[i]
		cmd.Printf("  %s\n", doc.DocumentID)
		cmd.Printf("    File:    %s (%d bytes)\n", doc.Filename, doc.FileSize)
		cmd.Printf("    Status:  %s\n", doc.Status)
		if doc.Title != "" {
			cmd.Printf("    Title:   %s\n", doc.Title)
		}
		cmd.Printf("    Uploaded: %s\n", doc.UploadTime)
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", list.TotalDocuments)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	snap, err := apiClient().Status(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}

	cmd.Printf("Document: %s\n", snap.DocumentID)
	cmd.Printf("  Status: %s\n", snap.Status)
	if snap.Error != "" {
		cmd.Printf("  Error:  %s\n", snap.Error)
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	if err := apiClient().Delete(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
