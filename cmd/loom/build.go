package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"loom/internal/driver"
	"loom/internal/modcache"
	"loom/internal/observ"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] manifest...",
	Short: "Lower program manifests to IR modules",
	Long:  "Lower one or more TOML program manifests to IR modules, one .ll file per manifest.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().String("out-dir", "", "directory for emitted .ll files (default: next to each manifest)")
	buildCmd.Flags().Bool("no-cache", false, "skip the module cache")
	buildCmd.Flags().String("cache-dir", "", "module cache directory (default: user cache)")
}

func buildExecution(cmd *cobra.Command, args []string) error {
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return err
	}
	noCache, err := cmd.Flags().GetBool("no-cache")
	if err != nil {
		return err
	}
	cacheDir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	if err := configureColor(cmd); err != nil {
		return err
	}

	var cache *modcache.Cache
	if !noCache {
		if cacheDir != "" {
			cache, err = modcache.OpenAt(cacheDir)
		} else {
			cache, err = modcache.Open("loom")
		}
		if err != nil {
			return fmt.Errorf("open module cache: %w", err)
		}
	}

	timer := observ.NewTimer()
	lowerPhase := timer.Begin("lower")
	results, err := driver.BuildAll(cmd.Context(), args, cache)
	if err != nil {
		return err
	}
	hits := 0
	for _, r := range results {
		if r.CacheHit {
			hits++
		}
	}
	timer.End(lowerPhase, fmt.Sprintf("%d modules, %d cached", len(results), hits))

	writePhase := timer.Begin("write")
	for _, r := range results {
		path := outputPath(r, outDir)
		if err := os.WriteFile(path, []byte(r.IR), 0o644); err != nil {
			return err
		}
		if !quiet {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d functions)\n", buildTag(r), path, len(r.Functions))
		}
	}
	timer.End(writePhase, "")

	if showTimings {
		fmt.Fprint(cmd.OutOrStdout(), timer.Summary())
	}
	return nil
}

func outputPath(r *driver.Result, outDir string) string {
	name := r.Module + ".ll"
	if outDir != "" {
		return filepath.Join(outDir, name)
	}
	return filepath.Join(filepath.Dir(r.Path), name)
}

func buildTag(r *driver.Result) string {
	if r.CacheHit {
		return color.New(color.FgCyan).Sprint("cached")
	}
	return color.New(color.FgGreen).Sprint("built")
}

// configureColor applies the --color flag, falling back to terminal
// detection in auto mode.
func configureColor(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto":
		color.NoColor = !isTerminal(os.Stdout)
	default:
		return fmt.Errorf("unsupported color mode %q (must be auto, on or off)", mode)
	}
	return nil
}
