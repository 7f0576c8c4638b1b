package tags

import (
	"fmt"
	"strings"

	"go.senan.xyz/taglib"
)

// MP4 atoms are read and written through TagLib, which normalizes the
// canonical atoms (©nam, ©ART, ...) to plain key names and exposes freeform
// ----:com.apple.iTunes atoms under their descriptor.

// readM4AIdentity extracts identity fields from MP4 atoms. The recording
// identifier is taken from the first freeform atom whose key mentions both
// MusicBrainz and track, case-insensitively.
func readM4AIdentity(path string, id *Identity) error {
	tags := readTaglibTags(path)

	for _, key := range sortedKeys(tags) {
		lower := strings.ToLower(key)
		if !strings.Contains(lower, "musicbrainz") || !strings.Contains(lower, "track") {
			continue
		}
		if mbid := firstValid(taglibValue(tags, key)); mbid != "" {
			id.RecordingMBID = mbid
			break
		}
	}
	id.Artist = taglibValue(tags, "ARTIST", "ALBUMARTIST")
	id.Title = taglibValue(tags, "TITLE")
	return nil
}

// classifyM4A returns atom keys outside the standard MP4 set, except
// freeform atoms carrying a recognized provenance keyword, and whether a
// cover atom is present.
func classifyM4A(path string) ([]string, bool, error) {
	tags := readTaglibTags(path)

	var exotic []string
	for _, key := range sortedKeys(tags) {
		if standardMP4Keys[key] || hasMP4Keyword(key) {
			continue
		}
		exotic = append(exotic, key)
	}
	return exotic, probeEmbeddedPicture(path) != nil, nil
}

// pruneM4A removes exotic atoms not covered by the caller's allow set.
// Atoms carrying recognized keywords are preserved in both conservative and
// strict modes; unlike the ID3 and Vorbis paths, strict mode is not
// materially stricter here. Inherited policy, replicated as-is.
func pruneM4A(path string, allow AllowSets, dryRun bool) ([]string, error) {
	tags := readTaglibTags(path)
	if len(tags) == 0 {
		return nil, nil
	}

	var removed []string
	desired := make(map[string][]string, len(tags))
	for _, key := range sortedKeys(tags) {
		if standardMP4Keys[key] || allow.MP4[key] || hasMP4Keyword(key) {
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
