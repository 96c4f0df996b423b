package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rollcall",
	Short: "Face recognition attendance from the command line",
	Long: `Rollcall enrolls people from a face photo and records attendance by
recognizing every face in a group photo.

Faces are detected and embedded by an external inference server
(INFERENCE_URL); signatures, the roster and the attendance ledger are kept
in the configured storage backend (DATABASE_BACKEND).`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
