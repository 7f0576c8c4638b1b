// Package pipeline resolves and writes a MusicBrainz rating for one audio
// file at a time, driving the tag codec, the persistent cache and the remote
// client through a fixed per-file state machine.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/llehouerou/mbrate/internal/errmsg"
	"github.com/llehouerou/mbrate/internal/musicbrainz"
	"github.com/llehouerou/mbrate/internal/tags"
)

// TagCodec is the tag-container surface the pipeline drives.
type TagCodec interface {
	ReadIdentity(path string) (*tags.Identity, error)
	Backup(path, rel string) (string, error)
	Restore(path, rel string) error
	ClassifyExotic(path string) ([]string, bool, error)
	PruneExotic(path string, mode tags.PruneMode, allow tags.AllowSets, dryRun bool) ([]string, error)
	WriteRating(path string, w tags.WriteRatingRequest) error
}

// RatingCache is the persistent lookup store. A nil cache disables caching.
type RatingCache interface {
	Rating(mbid string) (*musicbrainz.Rating, bool, error)
	SetRating(mbid string, rating *musicbrainz.Rating) error
	SearchMBID(artist, title string, durationMS int) (string, bool, error)
	SetSearchMBID(artist, title string, durationMS int, mbid string) error
}

// Resolver is the remote lookup surface.
type Resolver interface {
	RecordingRating(mbid string) (*musicbrainz.Rating, error)
	SearchRecording(artist, title string, durationMS int) (string, error)
	FirstReleaseForRecording(mbid string) (string, error)
	ReleaseGroupForRelease(mbid string) (string, error)
	ReleaseGroupRating(mbid string) (*musicbrainz.Rating, error)
}

// Status is a file's terminal processing state.
type Status string

const (
	StatusOK       Status = "ok"
	StatusOKDryRun Status = "ok(dry)"
	StatusNotFound Status = "not-found"
	StatusSkip     Status = "skip"
	StatusRestore  Status = "restore"
	StatusError    Status = "error"
)

// Result is the per-file outcome record.
type Result struct {
	File             string
	Status           Status
	MBID             string
	ReleaseGroupMBID string
	Fallback         bool
	Rating           *float64
	Votes            *int
	Artist           string
	Title            string
	DurationMS       int
	HasCover         bool
	ExoticTags       []string
	RemovedExotic    []string
	Backup           string
	Message          string
}

// Options control one run's behavior, shared across all files.
type Options struct {
	DryRun          bool
	Restore         bool
	BackupTags      bool
	RemoveExotic    bool
	PruneMode       tags.PruneMode
	Allow           tags.AllowSets
	SearchFallback  bool
	WritePopularity bool
}

// Pipeline processes files sequentially. It is not safe for concurrent use;
// the run model is strictly one file at a time.
type Pipeline struct {
	codec  TagCodec
	cache  RatingCache
	client Resolver
	opts   Options
}

func New(codec TagCodec, cache RatingCache, client Resolver, opts Options) *Pipeline {
	return &Pipeline{codec: codec, cache: cache, client: client, opts: opts}
}

// Process runs the state machine for one file. path is the absolute file
// location, rel its label relative to the scan root. Every file yields
// exactly one terminal result; faults never propagate to the caller.
func (p *Pipeline) Process(path, rel string) (res *Result) {
	res = &Result{File: rel, Status: StatusError}
	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusError
			res.Message = fmt.Sprintf("unexpected fault: %v", r)
		}
	}()

	if p.opts.Restore {
		p.restore(path, rel, res)
		return res
	}

	if exotic, hasCover, err := p.codec.ClassifyExotic(path); err == nil {
		res.ExoticTags = exotic
		res.HasCover = hasCover
	}

	if p.opts.BackupTags && !p.opts.DryRun {
		backup, err := p.codec.Backup(path, rel)
		if err != nil {
			res.Message = errmsg.Format(errmsg.OpBackupTags, err)
			return res
		}
		res.Backup = backup
	}

	if p.opts.RemoveExotic {
		removed, err := p.codec.PruneExotic(path, p.opts.PruneMode, p.opts.Allow, p.opts.DryRun)
		if err != nil {
			res.Message = errmsg.Format(errmsg.OpPruneTags, err)
			return res
		}
		res.RemovedExotic = removed
	}

	id, err := p.codec.ReadIdentity(path)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpReadIdentity, err)
		return res
	}
	res.Artist = id.Artist
	res.Title = id.Title
	res.DurationMS = id.DurationMS

	p.resolve(path, id, res)
	return res
}

// restore replays the file's tag snapshot, then re-classifies purely for
// reporting.
func (p *Pipeline) restore(path, rel string, res *Result) {
	err := p.codec.Restore(path, rel)
	switch {
	case err == nil:
		res.Status = StatusRestore
		res.Message = "tags restored from backup"
	case errors.Is(err, tags.ErrBackupMissing):
		res.Status = StatusRestore
		res.Message = errmsg.FormatWith(errmsg.OpRestoreTags, rel, err)
	default:
		res.Status = StatusError
		res.Message = errmsg.Format(errmsg.OpRestoreTags, err)
		return
	}

	if exotic, hasCover, cerr := p.codec.ClassifyExotic(path); cerr == nil {
		res.ExoticTags = exotic
		res.HasCover = hasCover
	}
}

// resolve establishes a recording identifier, fetches a rating for it and
// writes the result, falling back to the release-group rating when the
// recording itself is unrated.
func (p *Pipeline) resolve(path string, id *tags.Identity, res *Result) {
	mbid, attempted, err := p.resolveMBID(id)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpSearchRecording, err)
		return
	}
	if mbid == "" {
		if attempted {
			res.Status = StatusNotFound
			res.Message = "no matching recording found"
		} else {
			res.Status = StatusSkip
			res.Message = "no identifier and no searchable metadata"
		}
		return
	}
	res.MBID = mbid

	rating, err := p.recordingRating(mbid)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpLookupRating, err)
		return
	}

	if rating != nil && rating.Value != nil {
		p.writeRating(path, rating, tags.NamespacePrimary, res)
		return
	}

	p.resolveFallback(path, mbid, res)
}

// resolveMBID returns the recording identifier for the file. The second
// return reports whether an identification attempt was possible at all: a
// false value means the file carries no identifier and the search path is
// unavailable, which is a skip rather than a not-found.
func (p *Pipeline) resolveMBID(id *tags.Identity) (mbid string, attempted bool, err error) {
	if id.RecordingMBID != "" {
		return id.RecordingMBID, true, nil
	}

	if p.cache != nil {
		if cached, found, cerr := p.cache.SearchMBID(id.Artist, id.Title, id.DurationMS); cerr == nil && found {
			return cached, true, nil
		}
	}

	if !p.opts.SearchFallback || id.Artist == "" || id.Title == "" {
		return "", false, nil
	}

	mbid, err = p.client.SearchRecording(id.Artist, id.Title, id.DurationMS)
	if err != nil {
		return "", true, err
	}
	if mbid != "" && p.cache != nil {
		_ = p.cache.SetSearchMBID(id.Artist, id.Title, id.DurationMS, mbid)
	}
	return mbid, true, nil
}

// recordingRating consults the cache, then the remote service. A nil rating
// means the recording does not exist remotely; a rating with nil Value means
// it exists but is unrated. Both outcomes are cached.
func (p *Pipeline) recordingRating(mbid string) (*musicbrainz.Rating, error) {
	if p.cache != nil {
		if rating, found, err := p.cache.Rating(mbid); err == nil && found {
			return rating, nil
		}
	}

	rating, err := p.client.RecordingRating(mbid)
	if err != nil {
		return nil, err
	}
	if rating != nil && p.cache != nil {
		_ = p.cache.SetRating(mbid, rating)
	}
	return rating, nil
}

// resolveFallback walks recording -> first release -> release group and
// applies the group-level rating under the fallback namespace.
func (p *Pipeline) resolveFallback(path, mbid string, res *Result) {
	releaseID, err := p.client.FirstReleaseForRecording(mbid)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpResolveReleaseGroup, err)
		return
	}
	if releaseID == "" {
		res.Status = StatusNotFound
		res.Message = "no rating found"
		return
	}

	groupID, err := p.client.ReleaseGroupForRelease(releaseID)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpResolveReleaseGroup, err)
		return
	}
	if groupID == "" {
		res.Status = StatusNotFound
		res.Message = "no rating found"
		return
	}

	rating, err := p.groupRating(groupID)
	if err != nil {
		res.Message = errmsg.Format(errmsg.OpLookupGroupRating, err)
		return
	}
	if rating == nil || rating.Value == nil {
		res.Status = StatusNotFound
		res.Message = "no rating found"
		return
	}

	res.Fallback = true
	res.ReleaseGroupMBID = groupID
	p.writeRating(path, rating, tags.NamespaceFallback, res)
}

func (p *Pipeline) groupRating(mbid string) (*musicbrainz.Rating, error) {
	if p.cache != nil {
		if rating, found, err := p.cache.Rating(mbid); err == nil && found {
			return rating, nil
		}
	}

	rating, err := p.client.ReleaseGroupRating(mbid)
	if err != nil {
		return nil, err
	}
	if rating != nil && p.cache != nil {
		_ = p.cache.SetRating(mbid, rating)
	}
	return rating, nil
}

// writeRating records the resolved rating on the result and, outside
// dry-run, writes it into the file under the given namespace.
func (p *Pipeline) writeRating(path string, rating *musicbrainz.Rating, ns tags.RatingNamespace, res *Result) {
	res.Rating = rating.Value
	res.Votes = rating.Votes

	source := "rating"
	if ns == tags.NamespaceFallback {
		source = "release-group rating"
	}

	if p.opts.DryRun {
		res.Status = StatusOKDryRun
		res.Message = fmt.Sprintf("would write %s %.1f", source, *rating.Value)
		return
	}

	err := p.codec.WriteRating(path, tags.WriteRatingRequest{
		Value:           *rating.Value,
		Votes:           rating.Votes,
		Namespace:       ns,
		WritePopularity: p.opts.WritePopularity,
	})
	if err != nil {
		res.Status = StatusError
		res.Message = errmsg.Format(errmsg.OpWriteRating, err)
		return
	}

	res.Status = StatusOK
	res.Message = fmt.Sprintf("wrote %s %.1f", source, *rating.Value)
}
