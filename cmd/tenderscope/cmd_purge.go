package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge <tender-id>",
	Short: "Delete the stored stream and cache entries for one tender",
	Long: "Removes the persisted event stream and the cached OCR and document\n" +
		"files for a tender, so the next API request runs a fresh investigation\n" +
		"instead of replaying.",
	Args: cobra.ExactArgs(1),
	RunE: runPurge,
}

func runPurge(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	tenderID := args[0]
	deleted, err := a.events.DeleteTender(cmd.Context(), tenderID)
	if err != nil {
		return fmt.Errorf("purge %s: %w", tenderID, err)
	}
	a.cache.ClearTender(tenderID)

	fmt.Printf("purged tender %s: %d stored events removed, cache cleared\n", tenderID, deleted)
	return nil
}
