package tags

import (
	"fmt"
	"os"
	"sort"

	"github.com/dhowden/tag"
	"go.senan.xyz/taglib"
)

// Ogg/Opus and MP4 containers go through TagLib, which exposes every tag
// (including MP4 freeform atoms) as a string-list map. FLAC keeps its native
// go-flac path so picture blocks survive snapshots bit-exactly.

// readTaglibTags reads all tags for a file. An unreadable container is
// reported as an empty map: the file has no tags yet.
func readTaglibTags(path string) map[string][]string {
	tags, err := taglib.ReadTags(path)
	if err != nil {
		return map[string][]string{}
	}
	return tags
}

// sortedKeys returns map keys in deterministic order.
func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// taglibValue returns the first non-empty value for any of the given keys.
func taglibValue(m map[string][]string, keys ...string) string {
	for _, key := range keys {
		if values, ok := m[key]; ok && len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return ""
}

// probeEmbeddedPicture reads the embedded cover art of a file, if any.
func probeEmbeddedPicture(path string) *Picture {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil
	}
	pic := m.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil
	}
	return &Picture{
		MIME:        pic.MIMEType,
		Description: pic.Description,
		Kind:        3, // front cover
		Data:        pic.Data,
	}
}

// snapshotTaglib copies every tag key verbatim, plus the embedded picture
// under the reserved sentinel key.
func snapshotTaglib(path, rel string, format Format) (*Snapshot, error) {
	snap := &Snapshot{Path: rel, Format: format.String()}

	tags := readTaglibTags(path)
	for _, key := range sortedKeys(tags) {
		snap.Tags = append(snap.Tags, SnapshotEntry{Key: key, Values: tags[key]})
	}
	if pic := probeEmbeddedPicture(path); pic != nil {
		snap.Tags = append(snap.Tags, SnapshotEntry{Key: picturesKey, Pictures: []Picture{*pic}})
	}
	return snap, nil
}

// restoreTaglib clears the container and replays the snapshot.
func restoreTaglib(path string, snap *Snapshot) error {
	desired := make(map[string][]string, len(snap.Tags))
	for _, entry := range snap.Tags {
		if entry.Key == picturesKey {
			continue
		}
		values := entry.Values
		if len(values) == 0 && entry.Text != "" {
			values = []string{entry.Text}
		}
		desired[entry.Key] = values
	}
	if err := taglib.WriteTags(path, desired, taglib.Clear); err != nil {
		return fmt.Errorf("write tags: %w", err)
	}

	for _, entry := range snap.Tags {
		if entry.Key != picturesKey || len(entry.Pictures) == 0 {
			continue
		}
		// Best effort, like the tag clear: a failed picture re-add does not
		// fail the restore.
		_ = taglib.WriteImage(path, entry.Pictures[0].Data) //nolint:errcheck
	}
	return nil
}

// writeTaglibRating writes the namespace's rating keys, leaving every other
// tag untouched.
func writeTaglibRating(path string, w WriteRatingRequest) error {
	keys := w.Namespace.keys()
	desired := map[string][]string{
		keys.rating:   {w.ratingString()},
		keys.mbRating: {w.ratingString()},
	}
	if votes := w.votesString(); votes != "" {
		desired[keys.mbVotes] = []string{votes}
	}
	if err := taglib.WriteTags(path, desired, 0); err != nil {
		return fmt.Errorf("write rating: %w", err)
	}
	return nil
}
