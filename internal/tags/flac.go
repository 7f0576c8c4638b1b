package tags

import (
	"fmt"
	"strings"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
)

// flacComment is one KEY=value pair from a Vorbis comment block, in block
// order.
type flacComment struct {
	key   string
	value string
}

// parseFLACComments reads the Vorbis comment block of a parsed FLAC file.
// A missing or unparsable block yields an empty list.
func parseFLACComments(f *flac.File) []flacComment {
	var comments []flacComment
	for _, meta := range f.Meta {
		if meta.Type != flac.VorbisComment {
			continue
		}
		cmts, err := flacvorbis.ParseFromMetaDataBlock(*meta)
		if err != nil {
			return nil
		}
		for _, raw := range cmts.Comments {
			if idx := strings.Index(raw, "="); idx > 0 {
				comments = append(comments, flacComment{key: raw[:idx], value: raw[idx+1:]})
			}
		}
		break
	}
	return comments
}

// flacCommentValue returns the first value for any of the given keys,
// compared case-insensitively.
func flacCommentValue(comments []flacComment, keys ...string) string {
	for _, key := range keys {
		for _, c := range comments {
			if strings.EqualFold(c.key, key) && c.value != "" {
				return c.value
			}
		}
	}
	return ""
}

// readFLACIdentity extracts identity fields from Vorbis comments.
func readFLACIdentity(path string, id *Identity) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil // unreadable container: no tags yet
	}
	comments := parseFLACComments(f)

	id.RecordingMBID = firstValid(
		flacCommentValue(comments, "MUSICBRAINZ_TRACKID"),
		flacCommentValue(comments, "MUSICBRAINZ_RECORDINGID"),
		flacCommentValue(comments, "MB_TRACKID"),
	)
	id.Artist = flacCommentValue(comments, "ARTIST", "ALBUMARTIST")
	id.Title = flacCommentValue(comments, "TITLE")
	return nil
}

// snapshotFLAC copies every comment key verbatim, plus the picture blocks
// under the reserved sentinel key.
func snapshotFLAC(path, rel string) (*Snapshot, error) {
	snap := &Snapshot{Path: rel, Format: FormatVorbis.String()}

	f, err := flac.ParseFile(path)
	if err != nil {
		return snap, nil
	}

	values := make(map[string][]string)
	var order []string
	for _, c := range parseFLACComments(f) {
		if _, seen := values[c.key]; !seen {
			order = append(order, c.key)
		}
		values[c.key] = append(values[c.key], c.value)
	}
	for _, key := range order {
		snap.Tags = append(snap.Tags, SnapshotEntry{Key: key, Values: values[key]})
	}

	if pictures := flacPictures(f); len(pictures) > 0 {
		snap.Tags = append(snap.Tags, SnapshotEntry{Key: picturesKey, Pictures: pictures})
	}
	return snap, nil
}

func flacPictures(f *flac.File) []Picture {
	var pictures []Picture
	for _, meta := range f.Meta {
		if meta.Type != flac.Picture {
			continue
		}
		pic, err := flacpicture.ParseFromMetaDataBlock(*meta)
		if err != nil {
			continue
		}
		pictures = append(pictures, Picture{
			MIME:        pic.MIME,
			Description: pic.Description,
			Kind:        int(pic.PictureType),
			Data:        pic.ImageData,
		})
	}
	return pictures
}

// restoreFLAC drops the existing comment and picture blocks and replays
// every snapshot entry. Entries that fail to encode are skipped.
func restoreFLAC(path string, snap *Snapshot) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	kept := f.Meta[:0]
	for _, meta := range f.Meta {
		if meta.Type != flac.VorbisComment && meta.Type != flac.Picture {
			kept = append(kept, meta)
		}
	}
	f.Meta = kept

	cmts := flacvorbis.New()
	for _, entry := range snap.Tags {
		if entry.Key == picturesKey {
			continue
		}
		values := entry.Values
		if len(values) == 0 && entry.Text != "" {
			values = []string{entry.Text}
		}
		for _, v := range values {
			_ = cmts.Add(entry.Key, v) //nolint:errcheck // per-key failure must not abort restore
		}
	}
	cmtBlock := cmts.Marshal()
	f.Meta = append(f.Meta, &cmtBlock)

	for _, entry := range snap.Tags {
		if entry.Key != picturesKey {
			continue
		}
		for _, pic := range entry.Pictures {
			block, err := flacpicture.NewFromImageData(
				flacpicture.PictureType(pic.Kind), pic.Description, pic.Data, pic.MIME)
			if err != nil {
				continue
			}
			picBlock := block.Marshal()
			f.Meta = append(f.Meta, &picBlock)
		}
	}

	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// classifyFLAC returns comment keys outside the standard Vorbis set (first
// occurrence order) and whether a picture block is present.
func classifyFLAC(path string) ([]string, bool, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, false, nil
	}

	var exotic []string
	seen := make(map[string]bool)
	for _, c := range parseFLACComments(f) {
		if seen[c.key] || isStandardVorbisKey(c.key) {
			continue
		}
		seen[c.key] = true
		exotic = append(exotic, c.key)
	}
	return exotic, len(flacPictures(f)) > 0, nil
}

// pruneFLAC removes exotic comments not covered by the caller's allow set.
func pruneFLAC(path string, allow AllowSets, dryRun bool) ([]string, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, nil
	}

	var removed []string
	removedSet := make(map[string]bool)
	cmts := flacvorbis.New()
	for _, c := range parseFLACComments(f) {
		if isStandardVorbisKey(c.key) || allow.Vorbis[c.key] {
			if err := cmts.Add(c.key, c.value); err != nil {
				continue
			}
			continue
		}
		if !removedSet[c.key] {
			removedSet[c.key] = true
			removed = append(removed, c.key)
		}
	}

	if dryRun || len(removed) == 0 {
		return removed, nil
	}

	if err := replaceFLACComments(f, cmts); err != nil {
		return nil, err
	}
	if err := f.Save(path); err != nil {
		return nil, fmt.Errorf("save flac: %w", err)
	}
	return removed, nil
}

// writeFLACRating replaces the namespace's rating keys and keeps everything
// else untouched.
func writeFLACRating(path string, w WriteRatingRequest) error {
	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("parse flac: %w", err)
	}

	keys := w.Namespace.keys()
	replaced := map[string]bool{keys.rating: true, keys.mbRating: true, keys.mbVotes: true}

	cmts := flacvorbis.New()
	for _, c := range parseFLACComments(f) {
		if replaced[strings.ToUpper(c.key)] {
			continue
		}
		if err := cmts.Add(c.key, c.value); err != nil {
			continue
		}
	}
	if err := cmts.Add(keys.rating, w.ratingString()); err != nil {
		return fmt.Errorf("add rating: %w", err)
	}
	if err := cmts.Add(keys.mbRating, w.ratingString()); err != nil {
		return fmt.Errorf("add rating: %w", err)
	}
	if votes := w.votesString(); votes != "" {
		if err := cmts.Add(keys.mbVotes, votes); err != nil {
			return fmt.Errorf("add votes: %w", err)
		}
	}

	if err := replaceFLACComments(f, cmts); err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("save flac: %w", err)
	}
	return nil
}

// replaceFLACComments swaps the file's Vorbis comment block for cmts,
// appending a new block when none exists.
func replaceFLACComments(f *flac.File, cmts *flacvorbis.MetaDataBlockVorbisComment) error {
	block := cmts.Marshal()
	for i, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			f.Meta[i] = &block
			return nil
		}
	}
	f.Meta = append(f.Meta, &block)
	return nil
}
