package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/rollcall/internal/database"
)

var enrollDirCmd = &cobra.Command{
	Use:   "enroll-dir <dir>",
	Short: "Enroll every face photo in a directory",
	Long: `Enroll one student per image file in a directory. The file name without
its extension is the student name, so "Jane Doe.jpg" enrolls "Jane Doe".

Images without a face and names that are already enrolled are skipped and
reported at the end.

Example:
  rollcall enroll-dir ./class-photos --ext jpg,png`,
	Args: cobra.ExactArgs(1),
	RunE: runEnrollDir,
}

func init() {
	rootCmd.AddCommand(enrollDirCmd)

	enrollDirCmd.Flags().StringSlice("ext", []string{"jpg", "jpeg", "png"}, "Image file extensions to enroll")
}

// enrollFile is one image found in the directory.
type enrollFile struct {
	name string
	path string
}

// listEnrollFiles returns the images in dir with a matching extension, sorted by name.
func listEnrollFiles(dir string, exts []string) ([]enrollFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	allowed := make([]string, 0, len(exts))
	for _, e := range exts {
		allowed = append(allowed, "."+strings.TrimPrefix(strings.ToLower(strings.TrimSpace(e)), "."))
	}

	var files []enrollFile
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if !slices.Contains(allowed, strings.ToLower(ext)) {
			continue
		}
		name := strings.TrimSpace(strings.TrimSuffix(entry.Name(), ext))
		if name == "" {
			continue
		}
		files = append(files, enrollFile{name: name, path: filepath.Join(dir, entry.Name())})
	}
	return files, nil
}

func runEnrollDir(cmd *cobra.Command, args []string) error {
	files, err := listEnrollFiles(args[0], mustGetStringSlice(cmd, "ext"))
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No images found.")
		return nil
	}

	ctx := context.Background()
	a, err := newApp(ctx, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Enrolling students"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var enrolled int
	var skipped, failed []string
	for _, f := range files {
		err := enrollFromFile(ctx, a, f)
		switch {
		case err == nil:
			enrolled++
		case errors.Is(err, database.ErrDuplicateIdentity), errors.Is(err, database.ErrNoFaceDetected):
			skipped = append(skipped, fmt.Sprintf("%s: %v", f.name, describeError(err)))
		case errors.Is(err, database.ErrStorage):
			// the backend is unusable, stop instead of failing every remaining file
			bar.Finish()
			return fmt.Errorf("%s: %w", f.name, err)
		default:
			a.logger.Warn("Enrollment failed", zap.String("file", f.path), zap.Error(err))
			failed = append(failed, fmt.Sprintf("%s: %v", f.name, describeError(err)))
		}
		bar.Add(1)
	}
	bar.Finish()

	fmt.Printf("\nEnrolled: %d, skipped: %d, failed: %d\n", enrolled, len(skipped), len(failed))
	for _, s := range skipped {
		fmt.Printf("  skipped %s\n", s)
	}
	for _, f := range failed {
		fmt.Printf("  failed  %s\n", f)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d image(s) failed to enroll", len(failed))
	}
	return nil
}

func enrollFromFile(ctx context.Context, a *app, f enrollFile) error {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}
	_, err = a.service.Enroll(ctx, f.name, data)
	return err
}
