package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/revdeps/pkg/cache"
	"github.com/matzehuels/revdeps/pkg/config"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the local verdict cache",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml); defaults to $"+config.EnvConfig)

	cmd.AddCommand(c.cacheClearCommand(&configPath))
	cmd.AddCommand(c.cachePathCommand(&configPath))

	return cmd
}

// fileCacheDir returns the directory of the file cache backend.
func fileCacheDir(configPath string) (string, error) {
	cfg, err := config.Load(config.Path(configPath))
	if err != nil {
		return "", err
	}
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return dir, nil
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all cached verdicts",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			dir, err := fileCacheDir(*configPath)
			if err != nil {
				return err
			}

			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo(w, "Cache is empty")
				return nil
			}

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			defer fc.Close()

			count, err := fc.Clear()
			if err != nil {
				return err
			}
			printSuccess(w, "Cleared %d cached entries", count)
			printDetail(w, "Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := fileCacheDir(*configPath)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}
