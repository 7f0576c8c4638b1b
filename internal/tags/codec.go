package tags

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Codec performs tag container operations for any supported format,
// dispatching on the file's detected format. The zero value is not usable;
// construct with NewCodec.
type Codec struct {
	backupDir string
}

// NewCodec creates a codec whose snapshots live under backupDir.
func NewCodec(backupDir string) *Codec {
	return &Codec{backupDir: backupDir}
}

// ErrUnsupported is wrapped into errors for files outside the supported
// extension set.
var ErrUnsupported = errors.New("unsupported audio format")

func formatError(path string) error {
	return fmt.Errorf("%w: %s", ErrUnsupported, strings.ToLower(filepath.Ext(path)))
}

// ReadIdentity extracts the file's resolution identity: embedded recording
// MBID (validated against the 36-character pattern), canonical artist/title
// fields and the container-reported duration. A header-less or unreadable
// tag container yields an identity with only path, format and duration set.
func (c *Codec) ReadIdentity(path string) (*Identity, error) {
	id := &Identity{
		Path:       path,
		Format:     DetectFormat(path),
		DurationMS: readDurationMS(path),
	}

	var err error
	switch id.Format {
	case FormatID3:
		err = readMP3Identity(path, id)
	case FormatVorbis:
		if isFLAC(path) {
			err = readFLACIdentity(path, id)
		} else {
			err = readOggIdentity(path, id)
		}
	case FormatMP4:
		err = readM4AIdentity(path, id)
	default:
		return nil, formatError(path)
	}
	if err != nil {
		return nil, err
	}
	return id, nil
}

// Backup snapshots the file's full tag container to the backup directory,
// keyed by the normalized relative path, and returns the snapshot file.
// The source file is never mutated.
func (c *Codec) Backup(path, rel string) (string, error) {
	var (
		snap *Snapshot
		err  error
	)
	switch DetectFormat(path) {
	case FormatID3:
		snap, err = snapshotMP3(path, rel)
	case FormatVorbis:
		if isFLAC(path) {
			snap, err = snapshotFLAC(path, rel)
		} else {
			snap, err = snapshotTaglib(path, rel, FormatVorbis)
		}
	case FormatMP4:
		snap, err = snapshotTaglib(path, rel, FormatMP4)
	default:
		return "", formatError(path)
	}
	if err != nil {
		return "", err
	}
	return writeSnapshot(c.backupDir, rel, snap)
}

// Restore clears the file's tag container and replays the previously backed
// up snapshot verbatim. Returns ErrBackupMissing when no snapshot exists for
// the file's normalized relative path.
func (c *Codec) Restore(path, rel string) error {
	snap, err := LoadSnapshot(c.backupDir, rel)
	if err != nil {
		return err
	}

	switch snap.Format {
	case FormatID3.String():
		return restoreMP3(path, snap)
	case FormatVorbis.String():
		if isFLAC(path) {
			return restoreFLAC(path, snap)
		}
		return restoreTaglib(path, snap)
	case FormatMP4.String():
		return restoreTaglib(path, snap)
	}
	return fmt.Errorf("unknown snapshot format %q", snap.Format)
}

// ClassifyExotic evaluates every tag key against the per-format standard
// rule set and returns the keys failing classification, plus whether the
// file carries embedded cover art.
func (c *Codec) ClassifyExotic(path string) ([]string, bool, error) {
	switch DetectFormat(path) {
	case FormatID3:
		return classifyMP3(path)
	case FormatVorbis:
		if isFLAC(path) {
			return classifyFLAC(path)
		}
		return classifyOgg(path)
	case FormatMP4:
		return classifyM4A(path)
	}
	return nil, false, formatError(path)
}

// PruneExotic removes every tag classified exotic and not present in the
// caller-supplied allow sets, returning the removed keys. Keys that fail to
// be removed are omitted from the result rather than aborting the operation.
// With dryRun set, the file is left untouched and the returned keys are
// those a real prune would remove.
func (c *Codec) PruneExotic(path string, mode PruneMode, allow AllowSets, dryRun bool) ([]string, error) {
	switch DetectFormat(path) {
	case FormatID3:
		return pruneMP3(path, mode, allow, dryRun)
	case FormatVorbis:
		if isFLAC(path) {
			return pruneFLAC(path, allow, dryRun)
		}
		return pruneOgg(path, allow, dryRun)
	case FormatMP4:
		return pruneM4A(path, allow, dryRun)
	}
	return nil, formatError(path)
}

// WriteRating writes the rating (and optional vote count) under the
// requested namespace's format-specific canonical keys.
func (c *Codec) WriteRating(path string, w WriteRatingRequest) error {
	switch DetectFormat(path) {
	case FormatID3:
		return writeMP3Rating(path, w)
	case FormatVorbis:
		if isFLAC(path) {
			return writeFLACRating(path, w)
		}
		return writeTaglibRating(path, w)
	case FormatMP4:
		return writeTaglibRating(path, w)
	}
	return formatError(path)
}

func isFLAC(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ExtFLAC)
}
