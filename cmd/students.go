package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List enrolled students",
	Args:  cobra.NoArgs,
	RunE:  runStudents,
}

func init() {
	rootCmd.AddCommand(studentsCmd)
}

func runStudents(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	students, err := a.service.Students(ctx)
	if err != nil {
		return err
	}
	if len(students) == 0 {
		fmt.Println("No students enrolled.")
		return nil
	}

	fmt.Printf("%-6s %-24s %s\n", "ID", "NAME", "ENROLLED")
	for _, s := range students {
		fmt.Printf("%-6d %-24s %s\n", s.ID, s.Name, s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("\nTotal: %d\n", len(students))
	return nil
}
