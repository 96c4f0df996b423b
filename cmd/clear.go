package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the whole attendance history",
	Long: `Delete every attendance entry. Enrolled students are kept.

Example:
  rollcall clear --yes`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
}

func confirmAction(prompt string) bool {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func runClear(cmd *cobra.Command, args []string) error {
	skipConfirm := mustGetBool(cmd, "yes")

	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	entries, err := a.service.History(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("Attendance history is already empty.")
		return nil
	}

	if !skipConfirm && !confirmAction(fmt.Sprintf("Delete all %d attendance entries? [y/N]: ", len(entries))) {
		fmt.Println("Cancelled.")
		return nil
	}

	n, err := a.service.Clear(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Done! Deleted %d attendance entries\n", n)
	return nil
}
