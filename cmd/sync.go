package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/database/mariadb"
	"github.com/kozaktomas/photo-dedup/internal/database/postgres"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync photo metadata from the catalog",
	Long: `Copy photo metadata from the catalog's MariaDB database into the
local PostgreSQL store. Perceptual hashes, trash flags, and group membership
already present locally are preserved; only catalog-owned fields (dimensions,
thumbnail path, visibility) are refreshed.`,
	RunE: runSync,
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("owner", "", "User whose photos to sync (required)")
	syncCmd.MarkFlagRequired("owner")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	owner := normalizeOwner(mustGetString(cmd, "owner"))

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}
	if cfg.Catalog.DSN == "" {
		return errors.New("CATALOG_DATABASE_URL environment variable is required")
	}

	catalog, err := mariadb.Open(&cfg.Catalog)
	if err != nil {
		return fmt.Errorf("connecting to catalog: %w", err)
	}
	defer catalog.Close()

	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer pool.Close()

	ctx := context.Background()

	photos, err := catalog.ListPhotos(ctx, owner)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	if len(photos) == 0 {
		fmt.Println("No photos found in catalog.")
		return nil
	}

	store := postgres.NewPhotoStore(pool)
	synced, err := store.Upsert(ctx, photos)
	if err != nil {
		return fmt.Errorf("syncing photos: %w", err)
	}

	fmt.Printf("Synced %d photos for %s\n", synced, owner)
	return nil
}
