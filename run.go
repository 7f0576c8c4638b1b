package main

import (
	"fmt"
	"os"
	"time"

	"github.com/llehouerou/mbrate/internal/errmsg"
	"github.com/llehouerou/mbrate/internal/mbcache"
	"github.com/llehouerou/mbrate/internal/musicbrainz"
	"github.com/llehouerou/mbrate/internal/pipeline"
	"github.com/llehouerou/mbrate/internal/report"
	"github.com/llehouerou/mbrate/internal/runlog"
	"github.com/llehouerou/mbrate/internal/scan"
	"github.com/llehouerou/mbrate/internal/tags"
)

type runOptions struct {
	userAgent       string
	writePopularity bool
	searchFallback  bool
	dryRun          bool
	removeExotic    bool
	exoticMode      string
	allowTXXX       string
	allowVorbis     string
	allowMP4        string
	backupTags      bool
	restoreTags     bool
	backupDir       string
	cacheEnabled    bool
	cachePath       string
	cacheTTLDays    int
	cacheMode       string
	reportPath      string
	logPath         string
}

func run(root string, opts *runOptions) error {
	// Restore never combines with mutation or simulation flags
	if opts.restoreTags {
		opts.removeExotic = false
		opts.writePopularity = false
		opts.dryRun = false
	}

	mode := tags.PruneMode(opts.exoticMode)
	if !mode.Valid() {
		return fmt.Errorf("invalid exotic mode %q", opts.exoticMode)
	}

	files, err := scan.Files(root)
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpScan, err))
	}
	if len(files) == 0 {
		fmt.Println("no audio files found")
		return nil
	}

	cache, err := openCache(opts)
	if err != nil {
		return fmt.Errorf("%s", errmsg.Format(errmsg.OpCacheOpen, err))
	}
	if cache != nil {
		defer cache.Close()
	}

	var logger *runlog.Logger
	if opts.logPath != "" {
		logger, err = runlog.Open(opts.logPath)
		if err != nil {
			return fmt.Errorf("%s", errmsg.Format(errmsg.OpWriteLog, err))
		}
		defer logger.Close()
	}

	p := pipeline.New(
		tags.NewCodec(opts.backupDir),
		ratingCache(cache),
		musicbrainz.NewClient(opts.userAgent),
		pipeline.Options{
			DryRun:          opts.dryRun,
			Restore:         opts.restoreTags,
			BackupTags:      opts.backupTags,
			RemoveExotic:    opts.removeExotic,
			PruneMode:       mode,
			Allow:           tags.NewAllowSets(opts.allowTXXX, opts.allowVorbis, opts.allowMP4),
			SearchFallback:  opts.searchFallback,
			WritePopularity: opts.writePopularity,
		},
	)

	results := make([]*pipeline.Result, 0, len(files))
	for _, f := range files {
		res := p.Process(f.Path, f.Rel)
		results = append(results, res)

		fmt.Printf("%-10s %s\n", res.Status, res.File)
		if logger != nil {
			if lerr := logger.Log(string(res.Status), res.File, res.Message); lerr != nil {
				fmt.Fprintln(os.Stderr, errmsg.Format(errmsg.OpWriteLog, lerr))
				logger = nil
			}
		}
	}

	fmt.Println()
	fmt.Println(report.Summary(results))

	if opts.reportPath != "" {
		if err := report.WriteHTML(opts.reportPath, results, time.Now()); err != nil {
			return fmt.Errorf("%s", errmsg.Format(errmsg.OpWriteReport, err))
		}
		fmt.Printf("report written to %s\n", opts.reportPath)
	}

	return nil
}

func openCache(opts *runOptions) (*mbcache.Cache, error) {
	if !opts.cacheEnabled {
		return nil, nil //nolint:nilnil // disabled cache is a valid state
	}

	path := opts.cachePath
	if path == "" {
		var err error
		path, err = mbcache.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	ttl := time.Duration(opts.cacheTTLDays) * 24 * time.Hour
	return mbcache.Open(path, mbcache.Mode(opts.cacheMode), ttl)
}

// ratingCache keeps a disabled cache as a true nil interface for the
// pipeline's nil checks.
func ratingCache(c *mbcache.Cache) pipeline.RatingCache {
	if c == nil {
		return nil
	}
	return c
}
