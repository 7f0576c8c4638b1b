package tags

import (
	"fmt"

	"go.senan.xyz/taglib"
)

// Ogg Vorbis and Opus files carry the same comment namespace as FLAC but in
// an Ogg container; TagLib handles both.

// readOggIdentity extracts identity fields from Vorbis comments.
func readOggIdentity(path string, id *Identity) error {
	tags := readTaglibTags(path)

	id.RecordingMBID = firstValid(
		taglibValue(tags, "MUSICBRAINZ_TRACKID"),
		taglibValue(tags, "MUSICBRAINZ_RECORDINGID"),
		taglibValue(tags, "MB_TRACKID"),
	)
	id.Artist = taglibValue(tags, "ARTIST", "ALBUMARTIST")
	id.Title = taglibValue(tags, "TITLE")
	return nil
}

// classifyOgg returns comment keys outside the standard Vorbis set and
// whether embedded cover art is present.
func classifyOgg(path string) ([]string, bool, error) {
	tags := readTaglibTags(path)

	var exotic []string
	for _, key := range sortedKeys(tags) {
		if !isStandardVorbisKey(key) {
			exotic = append(exotic, key)
		}
	}
	return exotic, probeEmbeddedPicture(path) != nil, nil
}

// pruneOgg removes exotic comments not covered by the caller's allow set.
func pruneOgg(path string, allow AllowSets, dryRun bool) ([]string, error) {
	tags := readTaglibTags(path)
	if len(tags) == 0 {
		return nil, nil
	}

	var removed []string
	desired := make(map[string][]string, len(tags))
	for _, key := range sortedKeys(tags) {
		if isStandardVorbisKey(key) || allow.Vorbis[key] {
			desired[key] = tags[key]
			continue
		}
		removed = append(removed, key)
	}
	if dryRun || len(removed) == 0 {
		return removed, nil
	}

	if err := taglib.WriteTags(path, desired, taglib.Clear); err != nil {
		return nil, fmt.Errorf("write tags: %w", err)
	}
	return removed, nil
}
