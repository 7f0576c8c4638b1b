package tags

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrBackupMissing is returned by Restore when no snapshot exists for the
// file's normalized relative path.
var ErrBackupMissing = errors.New("no tag backup found")

// snapshotExt is the extension of serialized snapshot files.
const snapshotExt = ".json"

// Snapshot is a full, ordered copy of a file's tag container, sufficient to
// restore it verbatim. One snapshot per file, created on backup and consumed
// on restore; immutable in between.
type Snapshot struct {
	Path   string          `json:"path"`   // relative path of the source file
	Format string          `json:"format"` // MP3, VORBIS or MP4
	Tags   []SnapshotEntry `json:"tags"`
}

// SnapshotEntry is one tag in a snapshot. Exactly one of Text, Values or
// Pictures is meaningful, depending on the tag's shape in the container.
type SnapshotEntry struct {
	Key      string    `json:"key"`
	Text     string    `json:"text,omitempty"`
	Values   []string  `json:"values,omitempty"`
	Pictures []Picture `json:"pictures,omitempty"`
}

// Picture is an embedded image record carried by a snapshot.
type Picture struct {
	MIME        string `json:"mime,omitempty"`
	Description string `json:"description,omitempty"`
	Kind        int    `json:"kind"`
	Data        []byte `json:"data"`
}

// picturesKey is the reserved sentinel key holding out-of-band picture lists
// for containers whose pictures live outside the comment namespace.
const picturesKey = "__PICTURES__"

// BackupPath derives the snapshot file location for a source file's relative
// path: path separators are replaced with a literal double underscore.
// Sibling directories differing only by a separator-adjacent underscore can
// collide; this naming is inherited behavior and kept as-is.
func BackupPath(backupDir, rel string) string {
	name := strings.ReplaceAll(rel, string(os.PathSeparator), "__")
	return filepath.Join(backupDir, name+snapshotExt)
}

// writeSnapshot persists a snapshot under the backup directory and returns
// the file it was written to.
func writeSnapshot(backupDir, rel string, snap *Snapshot) (string, error) {
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}
	out := BackupPath(backupDir, rel)
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return out, nil
}

// LoadSnapshot reads a previously written snapshot for the given relative
// path. Returns ErrBackupMissing when none exists.
func LoadSnapshot(backupDir, rel string) (*Snapshot, error) {
	data, err := os.ReadFile(BackupPath(backupDir, rel))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrBackupMissing
		}
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}
