// Package tags provides uniform tag container operations for music files:
// identity extraction, full-tag snapshot and restore, exotic tag
// classification and pruning, and rating writes. It consolidates the three
// incompatible tag families (ID3, Vorbis comments, MP4 atoms) behind one
// codec, dispatching on the file's detected format.
package tags

import (
	"path/filepath"
	"regexp"
	"strings"

	"go.senan.xyz/taglib"
)

// File extensions supported by the tags package.
const (
	ExtMP3  = ".mp3"
	ExtFLAC = ".flac"
	ExtOGG  = ".ogg"
	ExtOPUS = ".opus"
	ExtM4A  = ".m4a"
	ExtMP4  = ".mp4"
	ExtALAC = ".alac"
)

// Format identifies the tag container family of a file.
type Format int

const (
	FormatUnknown Format = iota
	FormatID3            // MP3 with ID3v2 frames
	FormatVorbis         // FLAC, Ogg Vorbis, Opus comments
	FormatMP4            // M4A/MP4 ilst atoms
)

// String returns the serialized name used in snapshot files.
func (f Format) String() string {
	switch f {
	case FormatID3:
		return "MP3"
	case FormatVorbis:
		return "VORBIS"
	case FormatMP4:
		return "MP4"
	}
	return "UNKNOWN"
}

// DetectFormat determines the tag format from the file extension.
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtMP3:
		return FormatID3
	case ExtFLAC, ExtOGG, ExtOPUS:
		return FormatVorbis
	case ExtM4A, ExtMP4, ExtALAC:
		return FormatMP4
	}
	return FormatUnknown
}

// IsAudioFile returns true if the path has a supported audio file extension.
func IsAudioFile(path string) bool {
	return DetectFormat(path) != FormatUnknown
}

// Identity is the per-file metadata used to resolve a rating: an embedded
// MusicBrainz recording ID when present, otherwise the artist/title/duration
// triple used as a search fingerprint.
type Identity struct {
	Path          string
	Format        Format
	RecordingMBID string // empty when absent or malformed
	Artist        string
	Title         string
	DurationMS    int // 0 when the container reports no length
}

// mbidPattern validates a 36-character MusicBrainz identifier
// (hexadecimal with hyphens). Anything else is treated as absent.
var mbidPattern = regexp.MustCompile(`^[0-9a-fA-F-]{36}$`)

// ValidMBID reports whether s looks like a MusicBrainz identifier.
func ValidMBID(s string) bool {
	return mbidPattern.MatchString(s)
}

// readDurationMS reads the container-reported stream length in milliseconds.
// Returns 0 when the container exposes no length or cannot be probed.
func readDurationMS(path string) int {
	props, err := taglib.ReadProperties(path)
	if err != nil {
		return 0
	}
	return int(props.Length.Milliseconds())
}

// firstValid returns the first candidate matching the MBID pattern.
func firstValid(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if ValidMBID(c) {
			return c
		}
	}
	return ""
}
