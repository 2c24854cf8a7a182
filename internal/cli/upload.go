package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ezgisubasi/multimodal-research-agent/client"
)

var uploadNoWait bool

var uploadCmd = &cobra.Command{
	Use:   "upload [file.pdf]",
	Short: "Upload a PDF and wait for analysis",
	Long: `Uploads a PDF to the server and polls the status endpoint until
processing finishes. Pass --no-wait to return right after the upload.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadNoWait, "no-wait", false, "do not poll for completion")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	ctrl := client.NewController(apiClient())
	ctx := cmd.Context()

	documentID, err := ctrl.Submit(ctx, f, filepath.Base(path), info.Size())
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Printf("Uploaded %s\n", filepath.Base(path))
	cmd.Printf("Document ID: %s\n", documentID)

	if uploadNoWait {
		return nil
	}

	cmd.Println("Waiting for analysis...")

	snap, err := ctrl.Poll(ctx, documentID, func(s client.StatusSnapshot) {
		cmd.Printf("  %s (%.0f%%)\n", s.Status, s.Progress)
	})
	if err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	cmd.Println("Analysis complete.")
	if len(snap.Result) > 0 {
		pretty, err := json.MarshalIndent(json.RawMessage(snap.Result), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render result: %w", err)
		}
		cmd.Println(string(pretty))
	}
	return nil
}
