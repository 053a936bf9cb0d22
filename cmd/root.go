package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facescan",
	Short: "Live face detection and identity matching over a camera feed",
	Long: `facescan watches a camera feed, detects faces on a fixed interval and
matches each face against a reference profile of known people. Results are
drawn as boxes and labels over the live video in the browser.`,
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
