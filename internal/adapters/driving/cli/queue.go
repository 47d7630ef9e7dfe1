package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect the pending write queue",
	Long: `Inspect and manage the queue of local changes awaiting push
to Drive.

Changes are pushed automatically in the background while signed in.
Use 'drain' to push due entries now and 'retry' to re-arm an entry
whose retries were exhausted.`,
	RunE: runQueueList,
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued writes",
	RunE:  runQueueList,
}

var queueDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Push due entries now",
	RunE:  runQueueDrain,
}

var queueRetryCmd = &cobra.Command{
	Use:   "retry [entry-id]",
	Short: "Re-arm a failed entry",
	Args:  cobra.ExactArgs(1),
	RunE:  runQueueRetry,
}

func init() {
	queueCmd.AddCommand(queueListCmd)
	queueCmd.AddCommand(queueDrainCmd)
	queueCmd.AddCommand(queueRetryCmd)
	rootCmd.AddCommand(queueCmd)
}

func runQueueList(cmd *cobra.Command, _ []string) error {
	if writeQueue == nil {
		return errors.New("write queue not configured")
	}

	entries, err := writeQueue.Entries(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list queue entries: %w", err)
	}

	if len(entries) == 0 {
		cmd.Println("Queue is empty.")
		return nil
	}

	cmd.Printf("Queued writes (%d):\n\n", len(entries))
	for i := range entries {
		e := &entries[i]
		cmd.Printf("  %s\n", e.ID)
		cmd.Printf("    %s %s %s\n", e.EntityType, e.Op, e.EntityID)
		cmd.Printf("    Status: %s\n", e.Status)
		if e.RetryCount > 0 {
			cmd.Printf("    Retries: %d\n", e.RetryCount)
		}
		if e.LastError != "" {
			cmd.Printf("    Last error: %s\n", e.LastError)
		}
		if !e.NextAttemptAt.IsZero() {
			cmd.Printf("    Next attempt: %s\n", e.NextAttemptAt.Format(time.RFC3339))
		}
		cmd.Println()
	}
	return nil
}

func runQueueDrain(cmd *cobra.Command, _ []string) error {
	if writeQueue == nil {
		return errors.New("write queue not configured")
	}

	cmd.Println("Draining queue...")
	if err := writeQueue.Drain(context.Background()); err != nil {
		return fmt.Errorf("drain failed: %w", err)
	}

	cmd.Println("Drain complete.")
	return nil
}

func runQueueRetry(cmd *cobra.Command, args []string) error {
	if writeQueue == nil {
		return errors.New("write queue not configured")
	}

	if err := writeQueue.Retry(context.Background(), args[0]); err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}

	cmd.Printf("Entry re-armed: %s\n", args[0])
	return nil
}
