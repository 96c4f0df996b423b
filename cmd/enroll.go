package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <name> <image>",
	Short: "Enroll a student from a face photo",
	Long: `Enroll a student under the given name using the first face found in the image.

Names must be unique; "Jiří Novák" and "jiri-novak" count as the same name.

Example:
  rollcall enroll "Jane Doe" ./photos/jane.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	name, path := args[0], args[1]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	identity, err := a.service.Enroll(ctx, name, data)
	if err != nil {
		return describeError(err)
	}

	fmt.Printf("Enrolled %s (id %d)\n", identity.Name, identity.ID)
	return nil
}
