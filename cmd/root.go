package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "photo-dedup",
	Short: "A near-duplicate photo detection engine",
	Long: `Photo Dedup finds near-duplicate photos in a photo catalog using
perceptual hashing. It groups visually similar photos, picks the best copy
of each group, and lets you review, dismiss, or revert the results from the
CLI or over HTTP.`,
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
