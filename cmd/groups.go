package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-dedup/internal/config"
	"github.com/kozaktomas/photo-dedup/internal/constants"
	"github.com/kozaktomas/photo-dedup/internal/database"
	"github.com/kozaktomas/photo-dedup/internal/database/postgres"
	"github.com/kozaktomas/photo-dedup/internal/dedupe"
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage duplicate groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List duplicate groups",
	RunE:  runGroupsList,
}

var groupsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show duplicate detection statistics",
	RunE:  runGroupsStats,
}

var groupsResolveCmd = &cobra.Command{
	Use:   "resolve [group-id] [keep-photo-id]",
	Short: "Keep one photo and mark the group reviewed",
	Args:  cobra.ExactArgs(2),
	RunE:  runGroupsResolve,
}

var groupsDismissCmd = &cobra.Command{
	Use:   "dismiss [group-id]",
	Short: "Dismiss a group as a false positive",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDismiss,
}

var groupsRevertCmd = &cobra.Command{
	Use:   "revert [group-id]",
	Short: "Undo a resolution and restore trashed photos",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsRevert,
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete [group-id]",
	Short: "Delete a group record without touching photos",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupsDelete,
}

func init() {
	rootCmd.AddCommand(groupsCmd)
	groupsCmd.AddCommand(groupsListCmd, groupsStatsCmd, groupsResolveCmd, groupsDismissCmd, groupsRevertCmd, groupsDeleteCmd)

	groupsCmd.PersistentFlags().String("owner", "", "User whose groups to manage (required)")
	groupsCmd.MarkPersistentFlagRequired("owner")

	groupsListCmd.Flags().String("status", "", "Filter by status: pending, reviewed, dismissed")
	groupsListCmd.Flags().Int("page", 1, "Page number")
	groupsListCmd.Flags().Int("page-size", constants.DefaultGroupPageSize, "Groups per page")

	groupsResolveCmd.Flags().Bool("trash-others", false, "Move the remaining photos to trash")
}

// openStores connects to PostgreSQL and returns the photo and group stores.
func openStores() (*postgres.Pool, *postgres.PhotoStore, *postgres.GroupStore, error) {
	cfg := config.Load()
	if cfg.Database.URL == "" {
		return nil, nil, nil, errors.New("DATABASE_URL environment variable is required")
	}
	pool, err := postgres.Initialize(&cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initializing database: %w", err)
	}
	return pool, postgres.NewPhotoStore(pool), postgres.NewGroupStore(pool), nil
}

func runGroupsList(cmd *cobra.Command, args []string) error {
	owner := normalizeOwner(mustGetString(cmd, "owner"))
	status := database.GroupStatus(mustGetString(cmd, "status"))
	page := mustGetInt(cmd, "page")
	pageSize := mustGetInt(cmd, "page-size")

	pool, _, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	listed, total, err := groups.List(context.Background(), owner, status, page, pageSize)
	if err != nil {
		return fmt.Errorf("listing groups: %w", err)
	}
	if len(listed) == 0 {
		fmt.Println("No duplicate groups found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tPHOTOS\tPREFERRED\tCREATED")
	for _, g := range listed {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			g.ID, g.Status, g.PhotoCount, g.PreferredPhotoID, g.CreatedAt.Format("2006-01-02 15:04"))
	}
	w.Flush()

	fmt.Printf("\nShowing %d of %d groups (page %d)\n", len(listed), total, page)
	return nil
}

func runGroupsStats(cmd *cobra.Command, args []string) error {
	owner := normalizeOwner(mustGetString(cmd, "owner"))

	pool, _, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	stats, err := groups.Stats(context.Background(), owner)
	if err != nil {
		return fmt.Errorf("loading stats: %w", err)
	}

	fmt.Printf("Total groups:     %d\n", stats.TotalGroups)
	fmt.Printf("Pending groups:   %d\n", stats.PendingGroups)
	fmt.Printf("Reviewed groups:  %d\n", stats.ReviewedGroups)
	fmt.Printf("Photos in groups: %d\n", stats.PhotosInGroups)
	fmt.Printf("Photos with hash: %d of %d\n", stats.PhotosWithHash, stats.TotalPhotos)
	return nil
}

func runGroupsResolve(cmd *cobra.Command, args []string) error {
	groupID, keepID := args[0], args[1]
	trashOthers := mustGetBool(cmd, "trash-others")

	pool, photos, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	resolver := dedupe.NewResolver(photos, groups)
	trashed, err := resolver.Resolve(context.Background(), groupID, keepID, trashOthers)
	if err != nil {
		return fmt.Errorf("resolving group: %w", err)
	}

	fmt.Printf("Group resolved, keeping %s", keepID)
	if trashOthers {
		fmt.Printf(" (%d photos moved to trash)", trashed)
	}
	fmt.Println()
	return nil
}

func runGroupsDismiss(cmd *cobra.Command, args []string) error {
	pool, photos, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	resolver := dedupe.NewResolver(photos, groups)
	unlinked, err := resolver.Dismiss(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("dismissing group: %w", err)
	}

	fmt.Printf("Group dismissed, %d photos unlinked\n", unlinked)
	return nil
}

func runGroupsRevert(cmd *cobra.Command, args []string) error {
	pool, photos, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	resolver := dedupe.NewResolver(photos, groups)
	restored, err := resolver.Revert(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("reverting group: %w", err)
	}

	fmt.Printf("Group reverted, %d photos restored from trash\n", restored)
	return nil
}

func runGroupsDelete(cmd *cobra.Command, args []string) error {
	pool, photos, groups, err := openStores()
	if err != nil {
		return err
	}
	defer pool.Close()

	resolver := dedupe.NewResolver(photos, groups)
	unlinked, err := resolver.Delete(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("deleting group: %w", err)
	}

	fmt.Printf("Group deleted, %d photos unlinked\n", unlinked)
	return nil
}
