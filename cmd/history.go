package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the attendance history, newest first",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().String("name", "", "Show only the most recent entry for this name")
}

func runHistory(cmd *cobra.Command, args []string) error {
	name := mustGetString(cmd, "name")

	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	if name != "" {
		entry, err := a.service.EntryFor(ctx, name)
		if err != nil {
			return err
		}
		fmt.Printf("%-6d %-24s %s\n", entry.ID, entry.Name, entry.Timestamp.Local().Format("2006-01-02 15:04:05"))
		return nil
	}

	entries, err := a.service.History(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No attendance recorded.")
		return nil
	}

	fmt.Printf("%-6s %-24s %s\n", "ID", "NAME", "DATE")
	for _, e := range entries {
		fmt.Printf("%-6d %-24s %s\n", e.ID, e.Name, e.Timestamp.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("\nTotal: %d\n", len(entries))
	return nil
}
