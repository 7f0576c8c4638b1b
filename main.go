package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/llehouerou/mbrate/internal/config"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &runOptions{}

	rootCmd := &cobra.Command{
		Use:   "mbrate <path>",
		Short: "Tag audio files with MusicBrainz community ratings",
		Long: `mbrate scans a directory (or a single file) for MP3, FLAC, Ogg, Opus and
MP4 audio, resolves each track's MusicBrainz recording, and writes the
community rating into the file's tags. When a recording carries no rating,
the release-group rating is written under a separate fallback namespace.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			applyConfig(cmd, opts, cfg)
			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			return run(args[0], opts)
		},
	}

	flags := rootCmd.Flags()
	flags.StringVar(&opts.userAgent, "ua", "", "User-Agent header for MusicBrainz requests")
	flags.BoolVar(&opts.writePopularity, "write-popm", false, "also write an ID3 POPM popularity frame")
	flags.BoolVar(&opts.searchFallback, "search-fallback", true, "search by artist/title when no MBID is embedded")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "report what would be written without touching any file")
	flags.BoolVar(&opts.removeExotic, "remove-exotic", false, "prune non-standard tags before writing")
	flags.StringVar(&opts.exoticMode, "exotic-mode", "conservative", "prune mode: conservative or strict")
	flags.StringVar(&opts.allowTXXX, "exotic-allow-txxx", "", "extra TXXX descriptions to keep, semicolon-separated")
	flags.StringVar(&opts.allowVorbis, "exotic-allow-vorbis", "", "extra Vorbis keys to keep, semicolon-separated")
	flags.StringVar(&opts.allowMP4, "exotic-allow-mp4", "", "extra MP4 atom keys to keep, semicolon-separated")
	flags.BoolVar(&opts.backupTags, "backup-tags", false, "snapshot each file's tags before mutating")
	flags.BoolVar(&opts.restoreTags, "restore-tags", false, "restore tags from snapshots instead of rating")
	flags.StringVar(&opts.backupDir, "backup-dir", "tag-backups", "directory for tag snapshots")
	flags.BoolVar(&opts.cacheEnabled, "cache", true, "use the persistent lookup cache")
	flags.StringVar(&opts.cachePath, "cache-db", "", "cache database path (default: XDG cache dir)")
	flags.IntVar(&opts.cacheTTLDays, "cache-ttl", 30, "cache entry lifetime in days, 0 = never expire")
	flags.StringVar(&opts.cacheMode, "cache-mode", "rw", "cache mode: rw, ro or refresh")
	flags.StringVar(&opts.reportPath, "report", "", "write an HTML report to this path")
	flags.StringVar(&opts.logPath, "log", "", "append per-file outcomes to this log file")

	return rootCmd
}

// applyConfig fills in defaults from the config file for flags the user did
// not set explicitly.
func applyConfig(cmd *cobra.Command, opts *runOptions, cfg *config.Config) {
	flags := cmd.Flags()
	set := func(name string) bool { return flags.Changed(name) }

	if !set("ua") && cfg.UserAgent != "" {
		opts.userAgent = cfg.UserAgent
	}
	if !set("write-popm") {
		opts.writePopularity = cfg.WritePopularity
	}
	if !set("search-fallback") {
		opts.searchFallback = cfg.SearchFallback
	}
	if !set("remove-exotic") {
		opts.removeExotic = cfg.RemoveExotic
	}
	if !set("exotic-mode") && cfg.ExoticMode != "" {
		opts.exoticMode = cfg.ExoticMode
	}
	if !set("exotic-allow-txxx") && cfg.AllowTXXX != "" {
		opts.allowTXXX = cfg.AllowTXXX
	}
	if !set("exotic-allow-vorbis") && cfg.AllowVorbis != "" {
		opts.allowVorbis = cfg.AllowVorbis
	}
	if !set("exotic-allow-mp4") && cfg.AllowMP4 != "" {
		opts.allowMP4 = cfg.AllowMP4
	}
	if !set("backup-dir") && cfg.BackupDir != "" {
		opts.backupDir = cfg.BackupDir
	}
	if !set("cache") {
		opts.cacheEnabled = cfg.Cache.Enabled
	}
	if !set("cache-db") && cfg.Cache.Path != "" {
		opts.cachePath = cfg.Cache.Path
	}
	if !set("cache-ttl") {
		opts.cacheTTLDays = cfg.Cache.TTLDays
	}
	if !set("cache-mode") && cfg.Cache.Mode != "" {
		opts.cacheMode = cfg.Cache.Mode
	}
	if !set("report") && cfg.ReportPath != "" {
		opts.reportPath = cfg.ReportPath
	}
	if !set("log") && cfg.LogPath != "" {
		opts.logPath = cfg.LogPath
	}
}
