package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/database/postgres"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect near-duplicate photos",
	Long: `Run duplicate detection for one user. Photos without a perceptual
hash get one computed from their thumbnail first, then all candidate photos
are compared and clustered into duplicate groups.

Sensitivity can be a named level (strict, normal, loose) or a numeric
Hamming threshold between 1 and 20.`,
	RunE: runDetect,
}

func init() {
	rootCmd.AddCommand(detectCmd)

	detectCmd.Flags().String("owner", "", "User whose photos to analyze (required)")
	detectCmd.Flags().String("sensitivity", "normal", "Detection sensitivity: strict, normal, loose, or 1-20")
	detectCmd.Flags().Bool("clear-existing", false, "Delete pending groups from previous runs first")
	detectCmd.MarkFlagRequired("owner")
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	owner := normalizeOwner(mustGetString(cmd, "owner"))
	sensitivity := mustGetString(cmd, "sensitivity")
	clearExisting := mustGetBool(cmd, "clear-existing")

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer pool.Close()

	threshold := cfg.Sensitivity.Threshold(sensitivity)
	fmt.Printf("Detecting duplicates for %s (threshold %d)\n", owner, threshold)

	detector := dedupe.NewDetector(
		postgres.NewPhotoStore(pool),
		postgres.NewGroupStore(pool),
		postgres.NewJobStore(pool),
		cfg.Thumbnails.Dir,
	)

	var bar *progressbar.ProgressBar
	result, err := detector.Run(context.Background(), owner, dedupe.Options{
		Threshold:     threshold,
		ClearExisting: clearExisting,
		Progress: func(current, total, duplicatesFound int) {
			if bar == nil {
				bar = progressbar.NewOptions(total,
					progressbar.OptionSetDescription("Comparing photos"),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("photos"),
					progressbar.OptionShowElapsedTimeOnFinish(),
					progressbar.OptionSetPredictTime(true),
					progressbar.OptionFullWidth(),
				)
			}
			bar.Set(current)
		},
	})
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}
	fmt.Println()

	fmt.Printf("Photos analyzed:   %d\n", result.PhotosAnalyzed)
	fmt.Printf("Hashes calculated: %d\n", result.HashesCalculated)
	fmt.Printf("Groups found:      %d\n", result.GroupsFound)
	if clearExisting {
		fmt.Printf("Groups cleared:    %d\n", result.ClearedGroups)
	}
	fmt.Printf("Job ID:            %s\n", result.JobID)

	return nil
}
