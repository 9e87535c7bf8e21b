package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"glhost/internal/cache"
	"glhost/internal/lock"
	"glhost/internal/resolve"
	"glhost/internal/storage"
)

func newCacheCmd(opts *rootOptions) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or remove the driver library cache",
	}

	var noCheck bool
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cache contents and whether it matches the host",
		Long: `Show the cached driver directories and their library counts.

Unless --no-check is given, the host is scanned the same way a run would
scan it and the cache is reported as up to date or stale.

Examples:
  glhost cache status
  glhost cache status -d /usr/lib/x86_64-linux-gnu
  glhost cache status --no-check`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheStatus(cmd, opts, !noCheck)
		},
	}
	statusCmd.Flags().BoolVar(&noCheck, "no-check", false, "do not scan the host")

	cleanCmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the cache and leftover staging directories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCacheClean(cmd, opts)
		},
	}

	cacheCmd.AddCommand(statusCmd, cleanCmd)
	return cacheCmd
}

func runCacheStatus(cmd *cobra.Command, opts *rootOptions, check bool) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	root := settings.CacheRoot(opts.cacheDir)

	var fresh *storage.CacheSnapshot
	if check {
		vendor, err := settings.Vendor()
		if err != nil {
			return err
		}
		sets := resolve.New(vendor.Rules).Scan(searchPaths(opts, settings))
		if len(sets) > 0 {
			snap := storage.NewSnapshot(sets)
			fresh = &snap
		}
	}

	var st *cache.Status
	err = lock.New(root).WithLock(func() error {
		st = cache.Inspect(root, fresh)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), st.Format(fresh != nil))
	return nil
}

func runCacheClean(cmd *cobra.Command, opts *rootOptions) error {
	settings, err := opts.loadSettings()
	if err != nil {
		return err
	}
	root := settings.CacheRoot(opts.cacheDir)

	var result *cache.CleanupResult
	err = lock.New(root).WithLock(func() error {
		result = cache.Clean(cmd.Context(), root)
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cache.FormatCleanupResult(result))
	if len(result.Errors) > 0 {
		return fmt.Errorf("cache clean incomplete: %w", result.Errors[0])
	}
	return nil
}
