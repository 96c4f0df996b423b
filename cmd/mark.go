package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/rollcall/internal/imaging"
)

var markCmd = &cobra.Command{
	Use:   "mark <image>",
	Short: "Record attendance for every face in a photo",
	Long: `Recognize every face in the image and record one attendance entry per face.
Faces that match nobody are recorded as "Unknown".

Example:
  rollcall mark ./class.jpg --annotated ./class-annotated.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runMark,
}

func init() {
	rootCmd.AddCommand(markCmd)

	markCmd.Flags().String("annotated", "", "Write the image with labeled face boxes to this JPEG file")
	markCmd.Flags().Int("quality", 90, "JPEG quality of the annotated image (1-100)")
}

func runMark(cmd *cobra.Command, args []string) error {
	annotatedPath := mustGetString(cmd, "annotated")
	quality := mustGetInt(cmd, "quality")

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.service.MarkAttendance(ctx, data)
	if err != nil {
		return describeError(err)
	}

	if len(result.Faces) == 0 {
		fmt.Println("No faces detected, nothing recorded.")
	} else {
		fmt.Printf("Recorded %d face(s):\n", len(result.Entries))
		for i, f := range result.Faces {
			if f.Identified {
				fmt.Printf("  %-24s similarity %.3f  box (%d,%d)-(%d,%d)\n",
					f.Label, f.Similarity, f.Region.X1, f.Region.Y1, f.Region.X2, f.Region.Y2)
			} else {
				fmt.Printf("  %-24s                   box (%d,%d)-(%d,%d)\n",
					f.Label, f.Region.X1, f.Region.Y1, f.Region.X2, f.Region.Y2)
			}
			if i < len(result.Entries) {
				fmt.Printf("    entry #%d at %s\n", result.Entries[i].ID, result.Entries[i].Timestamp.Local().Format("2006-01-02 15:04:05"))
			}
		}
	}

	if annotatedPath != "" && result.Annotated != nil {
		jpg, err := imaging.EncodeJPEG(result.Annotated, quality)
		if err != nil {
			return fmt.Errorf("failed to encode annotated image: %w", err)
		}
		if err := os.WriteFile(annotatedPath, jpg, 0o644); err != nil {
			return fmt.Errorf("failed to write annotated image: %w", err)
		}
		fmt.Printf("Annotated image written to %s\n", annotatedPath)
	}
	return nil
}
