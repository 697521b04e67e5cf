package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/database/postgres"
	"github.com/kozaktomas/photo-dedup/internal/fingerprint"
)

var hashCmd = &cobra.Command{
	Use:   "hash",
	Short: "Backfill perceptual hashes",
	Long: `Compute perceptual hashes for photos that don't have one yet,
without running duplicate detection. Hashing runs concurrently since each
photo is independent; a detection run afterwards will find the hashes
already in place.`,
	RunE: runHash,
}

func init() {
	rootCmd.AddCommand(hashCmd)

	hashCmd.Flags().String("owner", "", "User whose photos to hash (required)")
	hashCmd.Flags().Int("concurrency", constants.DefaultHashConcurrency, "Number of photos to hash in parallel")
	hashCmd.MarkFlagRequired("owner")
}

func runHash(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	owner := normalizeOwner(mustGetString(cmd, "owner"))
	concurrency := mustGetInt(cmd, "concurrency")
	if concurrency < 1 {
		concurrency = 1
	}

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()
	photos := postgres.NewPhotoStore(pool)

	missing, err := photos.ListMissingHash(ctx, owner)
	if err != nil {
		return fmt.Errorf("listing photos without hash: %w", err)
	}
	if len(missing) == 0 {
		fmt.Println("All photos already have hashes!")
		return nil
	}

	fmt.Printf("Photos to hash: %d\n\n", len(missing))

	bar := progressbar.NewOptions(len(missing),
		progressbar.OptionSetDescription("Computing hashes"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("photos"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var mu sync.Mutex
	var hashed, skipped int

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for _, photo := range missing {
		photo := photo
		g.Go(func() error {
			defer bar.Add(1)

			if photo.ThumbnailPath == "" {
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			path := photo.ThumbnailPath
			if !filepath.IsAbs(path) && cfg.Thumbnails.Dir != "" {
				path = filepath.Join(cfg.Thumbnails.Dir, path)
			}

			hash, err := fingerprint.ComputeFile(path, constants.DefaultHashSize)
			if err != nil {
				// A broken thumbnail should not stop the batch.
				mu.Lock()
				skipped++
				mu.Unlock()
				return nil
			}

			if err := photos.UpdateHash(ctx, photo.ID, hash); err != nil {
				return fmt.Errorf("saving hash for %s: %w", photo.ID, err)
			}

			mu.Lock()
			hashed++
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	fmt.Println()

	fmt.Printf("Hashed:  %d\n", hashed)
	fmt.Printf("Skipped: %d\n", skipped)

	return nil
}
