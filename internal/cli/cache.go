package cli

import (
	"fmt"
	"time"

	"github.com/ppiankov/dhatu/internal/cache"
	"github.com/spf13/cobra"
)

// cacheCmd represents the cache command
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the fetched-document cache",
	Long: `URL inputs are cached on disk (cache.dir) so repeated analyses do not
refetch the same page. Only fetched documents are cached, never analyses.`,
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove expired and unreadable cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskCache()
		if err != nil {
			return err
		}

		removed, err := disk.Prune()
		if err != nil {
			return fmt.Errorf("prune cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d entries from %s\n", removed, disk.Dir())
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every cache entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		disk, err := diskCache()
		if err != nil {
			return err
		}

		if err := disk.Clear(); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s\n", disk.Dir())
		return nil
	},
}

func diskCache() (*cache.DiskCache, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	ttl := cfg.Cache.DiskTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return cache.NewDiskCache(cfg.Cache.Dir, ttl), nil
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cachePruneCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
