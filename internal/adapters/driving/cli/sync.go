package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/carcrm-cli/internal/core/domain"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronise local data with Google Drive",
	Long: `Reconciles the local customer and template collections with the
shared Drive folder. The remote collection is authoritative: records
that only exist locally are appended and pushed back, while local
edits to records the remote also has are replaced by the remote
version.

Use the subcommands for one-directional transfers:
  carcrm sync upload     # push the local collection verbatim
  carcrm sync download   # adopt the remote collection verbatim`,
	RunE: runSync,
}

var syncUploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Push the local customer collection to Drive",
	RunE:  runSyncUpload,
}

var syncDownloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Adopt the remote customer collection",
	RunE:  runSyncDownload,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current sync state",
	RunE:  runSyncStatus,
}

// Flag for sync: skip the template collections.
var syncCustomersOnly bool

func init() {
	syncCmd.Flags().BoolVar(
		&syncCustomersOnly, "customers-only", false, "Skip form and excel templates")

	syncCmd.AddCommand(syncUploadCmd)
	syncCmd.AddCommand(syncDownloadCmd)
	syncCmd.AddCommand(syncStatusCmd)
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncEngine == nil {
		return errors.New("sync engine not configured")
	}
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()

	cmd.Println("Synchronising customers...")
	local, err := customerStore.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local customers: %w", err)
	}

	merged, err := syncEngine.Sync(ctx, local, domain.SyncMerge)
	if err != nil {
		if errors.Is(err, domain.ErrSyncInProgress) {
			cmd.Println("A sync is already running, nothing to do.")
			return nil
		}
		return fmt.Errorf("sync failed: %w", err)
	}
	if err := customerStore.ReplaceAll(ctx, merged); err != nil {
		return fmt.Errorf("failed to adopt merged customers: %w", err)
	}
	cmd.Printf("Customers in sync: %d records.\n", len(merged))

	if syncCustomersOnly {
		return nil
	}
	if templateStore == nil {
		return errors.New("template store not configured")
	}

	cmd.Println("Synchronising templates...")
	forms, err := templateStore.ListForms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local form templates: %w", err)
	}
	mergedForms, err := syncEngine.SyncForms(ctx, forms)
	if err != nil {
		return fmt.Errorf("form template sync failed: %w", err)
	}
	if err := templateStore.ReplaceForms(ctx, mergedForms); err != nil {
		return fmt.Errorf("failed to adopt merged form templates: %w", err)
	}

	excel, err := templateStore.ListExcel(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local excel templates: %w", err)
	}
	mergedExcel, err := syncEngine.SyncExcel(ctx, excel)
	if err != nil {
		return fmt.Errorf("excel template sync failed: %w", err)
	}
	if err := templateStore.ReplaceExcel(ctx, mergedExcel); err != nil {
		return fmt.Errorf("failed to adopt merged excel templates: %w", err)
	}

	cmd.Printf("Templates in sync: %d forms, %d excel.\n", len(mergedForms), len(mergedExcel))
	return nil
}

func runSyncUpload(cmd *cobra.Command, _ []string) error {
	if syncEngine == nil {
		return errors.New("sync engine not configured")
	}
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()

	local, err := customerStore.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to load local customers: %w", err)
	}

	cmd.Printf("Uploading %d customers...\n", len(local))
	if err := syncEngine.Upload(ctx, local); err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	cmd.Println("Upload complete.")
	return nil
}

func runSyncDownload(cmd *cobra.Command, _ []string) error {
	if syncEngine == nil {
		return errors.New("sync engine not configured")
	}
	if customerStore == nil {
		return errors.New("customer store not configured")
	}

	ctx := context.Background()

	cmd.Println("Downloading customers...")
	remote, err := syncEngine.Download(ctx)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	if err := customerStore.ReplaceAll(ctx, remote); err != nil {
		return fmt.Errorf("failed to adopt remote customers: %w", err)
	}

	cmd.Printf("Downloaded %d customers.\n", len(remote))
	return nil
}

func runSyncStatus(cmd *cobra.Command, _ []string) error {
	if syncEngine == nil {
		return errors.New("sync engine not configured")
	}

	status := syncEngine.Status()

	cmd.Printf("State: %s\n", status.State)
	if status.InSync {
		cmd.Println("In sync: yes")
	} else {
		cmd.Println("In sync: no")
	}
	if !status.LastSyncTime.IsZero() {
		cmd.Printf("Last sync: %s\n", status.LastSyncTime.Format(time.RFC3339))
	}
	if status.LastError != "" {
		cmd.Printf("Last error: %s\n", status.LastError)
	}
	return nil
}
