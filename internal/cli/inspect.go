package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/revdeps/pkg/archive"
	"github.com/matzehuels/revdeps/pkg/config"
	"github.com/matzehuels/revdeps/pkg/integrations/nuget"
	"github.com/matzehuels/revdeps/pkg/scan"
)

// inspectCommand creates the inspect command, which checks a single package.
func (c *CLI) inspectCommand() *cobra.Command {
	var (
		configPath string
		target     string
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect <id> <version>",
		Short: "Check whether one package references the target library",
		Example: `  revdeps inspect dotnet-ef 8.0.0
  revdeps inspect Cake.Tool 4.0.0 --target Spectre.Console`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path(configPath))
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("target") {
				cfg.Target = target
			}
			if noCache {
				cfg.Cache.Backend = config.CacheNone
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return c.runInspect(cmd, cfg, nuget.SearchResult{ID: args[0], Version: args[1]})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (.toml, .yaml); defaults to $"+config.EnvConfig)
	cmd.Flags().StringVarP(&target, "target", "t", "", "library key prefix to look for (default System.CommandLine)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore cached verdicts")

	return cmd
}

func (c *CLI) runInspect(cmd *cobra.Command, cfg config.Config, item nuget.SearchResult) error {
	ctx := withLogger(cmd.Context(), c.Logger)
	c.installHooks()

	verdicts, err := newCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer verdicts.Close()

	reg := newRegistry(cfg)
	scanner := scan.NewScanner(reg.content, scan.ScannerOptions{
		Target:   cfg.Target,
		Suffix:   cfg.ManifestSuffix,
		Cache:    verdicts,
		CacheTTL: cfg.Cache.TTL,
		Archive: archive.Options{
			MemoryLimit: cfg.Archive.SpoolMemoryLimit,
			TempDir:     cfg.Archive.TempDir,
		},
		Logger: c.Logger,
	})

	prog := newProgress(c.Logger)
	spinner := newSpinner(ctx, cmd.ErrOrStderr(), "Inspecting "+item.ID+" "+item.Version+"...")
	spinner.Start()
	m, found, err := scanner.Inspect(ctx, item)
	spinner.Stop()
	if err != nil {
		return err
	}
	prog.done("Inspected "+item.ID+" "+item.Version, "cached", m.Cached)

	w := cmd.OutOrStdout()
	if !found {
		printInfo(w, "%s %s does not reference %s", item.ID, item.Version, cfg.Target)
		printVerdict(w, m.Cached)
		return nil
	}

	printSuccess(w, "%s uses %s", item.ID, cfg.Target)
	printKeyValue(w, "Version", m.Version)
	if m.Manifest != "" {
		printKeyValue(w, "Manifest", m.Manifest)
	}
	printKeyValue(w, "Libraries", strings.Join(m.Libraries, ", "))
	printVerdict(w, m.Cached)
	return nil
}
