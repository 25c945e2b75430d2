package cmd

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterbourgon/diskv"
	"github.com/spf13/cobra"
)

// cacheCmd creates the cache management command.
func (a *app) cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the HTTP response cache",
		Args:  cobra.NoArgs,
	}
	cmd.AddCommand(a.cacheClearCmd())
	cmd.AddCommand(a.cachePathCmd())
	return cmd
}

func (a *app) cacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear all cached HTTP responses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := a.cfg.CacheDir
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				a.console.CacheEmpty()
				return nil
			}

			// Only the files the HTTP cache wrote are removed; the directory and
			// anything else in it stay.
			d := diskv.New(diskv.Options{BasePath: dir})
			var keys []string
			for k := range d.Keys(nil) {
				if isCacheKey(k) && d.Has(k) {
					keys = append(keys, k)
				}
			}
			if len(keys) == 0 {
				a.console.CacheEmpty()
				return nil
			}
			for _, k := range keys {
				if err := d.Erase(k); err != nil {
					return fmt.Errorf("failed to clear cache entry %s in %s: %w", k, dir, err)
				}
			}
			a.logger.Debug("cache cleared", "dir", dir, "entries", len(keys))
			a.console.CacheCleared(len(keys), dir)
			return nil
		},
	}
}

func (a *app) cachePathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(a.cfg.CacheDir)
			if err != nil {
				return fmt.Errorf("failed to resolve cache dir: %w", err)
			}
			fmt.Fprintln(a.stdout, dir)
			return nil
		},
	}
}

// isCacheKey reports whether name is a diskcache file name, the hex md5 of a
// cache key.
func isCacheKey(name string) bool {
	if len(name) != hex.EncodedLen(16) || strings.ToLower(name) != name {
		return false
	}
	_, err := hex.DecodeString(name)
	return err == nil
}
