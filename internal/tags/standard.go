package tags

import "strings"

// Built-in standard tag sets. A key outside the standard set for its format
// (and outside any caller-supplied allow set) is classified exotic.

// standardID3Frames are ID3v2 frame IDs considered standard and never pruned.
var standardID3Frames = map[string]bool{
	"TIT2": true, "TALB": true, "TPE1": true, "TPE2": true, "TPE3": true,
	"TPE4": true, "TCON": true, "TDRC": true, "TRCK": true, "TPOS": true,
	"TCOM": true, "TEXT": true, "TBPM": true, "TSOA": true, "TSOP": true,
	"TSOT": true, "TSO2": true, "TSRC": true, "TKEY": true, "TENC": true,
	"COMM": true, "USLT": true, "APIC": true, "PCNT": true, "POPM": true,
	"PRIV": true, "UFID": true, "WXXX": true, "TXXX": true,
}

// allowedTXXXDescriptions are TXXX descriptions kept in strict prune mode.
var allowedTXXXDescriptions = map[string]bool{
	"RATING":                       true,
	"MUSICBRAINZ_RATING":           true,
	"MUSICBRAINZ_RATING_VOTES":     true,
	"MusicBrainz Track Id":         true,
	"MusicBrainz Recording Id":     true,
	"MusicBrainz Release Id":       true,
	"MusicBrainz Release Group Id": true,
	"MusicBrainz Album Id":         true,
	"MusicBrainz Artist Id":        true,
	"MusicBrainz Album Artist Id":  true,
	"Acoustid Id":                  true,
	"Acoustid Fingerprint":         true,
	"ReplayGain":                   true,
	"REPLAYGAIN_TRACK_GAIN":        true,
	"REPLAYGAIN_ALBUM_GAIN":        true,
	"REPLAYGAIN_TRACK_PEAK":        true,
	"REPLAYGAIN_ALBUM_PEAK":        true,
}

// standardVorbisKeys are Vorbis comment keys considered standard (uppercase).
var standardVorbisKeys = map[string]bool{
	"ARTIST": true, "ALBUM": true, "TITLE": true, "ALBUMARTIST": true,
	"TRACKNUMBER": true, "TRACKTOTAL": true, "DISCNUMBER": true,
	"DISCTOTAL": true, "GENRE": true, "DATE": true, "ORIGINALDATE": true,
	"ORIGINALYEAR": true, "COMMENT": true, "LYRICS": true, "BARCODE": true,
	"CATALOGNUMBER": true, "ISRC": true, "SCRIPT": true, "LANGUAGE": true,
	"ENCODER": true,
	"RATING":  true, "MUSICBRAINZ_RATING": true, "MUSICBRAINZ_RATING_VOTES": true,
}

// allowedVorbisPrefixes mark provenance namespaces that are always standard.
var allowedVorbisPrefixes = []string{"MUSICBRAINZ_", "ACOUSTID", "REPLAYGAIN"}

// standardMP4Keys are the canonical MP4 atoms, under the normalized names the
// taglib adapter reports them as (©nam becomes TITLE and so on).
var standardMP4Keys = map[string]bool{
	"TITLE": true, "ARTIST": true, "ALBUM": true, "ALBUMARTIST": true,
	"DATE": true, "GENRE": true, "TRACKNUMBER": true, "DISCNUMBER": true,
	"COMPILATION": true, "BPM": true, "ENCODER": true,
}

// allowedMP4Keywords mark freeform atom namespaces preserved during pruning.
var allowedMP4Keywords = []string{"musicbrainz", "acoustid", "rating", "replaygain"}

// AllowSets extends the built-in standard sets with caller-supplied keys.
// Entries extend, never replace, the built-in rules.
type AllowSets struct {
	TXXX   map[string]bool // ID3 TXXX descriptions, strict mode only
	Vorbis map[string]bool // Vorbis comment keys, exact match
	MP4    map[string]bool // MP4 atom keys, exact match
}

// NewAllowSets builds an AllowSets from semicolon-separated flag values.
func NewAllowSets(txxx, vorbis, mp4 string) AllowSets {
	return AllowSets{
		TXXX:   splitAllowList(txxx),
		Vorbis: splitAllowList(vorbis),
		MP4:    splitAllowList(mp4),
	}
}

func splitAllowList(s string) map[string]bool {
	out := make(map[string]bool)
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out[part] = true
		}
	}
	return out
}

// isStandardVorbisKey reports whether a Vorbis comment key is standard.
func isStandardVorbisKey(key string) bool {
	upper := strings.ToUpper(key)
	if standardVorbisKeys[upper] {
		return true
	}
	for _, prefix := range allowedVorbisPrefixes {
		if strings.HasPrefix(upper, prefix) {
			return true
		}
	}
	return false
}

// hasMP4Keyword reports whether an MP4 atom key carries a recognized
// provenance keyword (MusicBrainz, Acoustid, rating, ReplayGain).
func hasMP4Keyword(key string) bool {
	lower := strings.ToLower(key)
	for _, kw := range allowedMP4Keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// PruneMode selects how aggressively exotic tags are removed.
type PruneMode string

const (
	PruneConservative PruneMode = "conservative"
	PruneStrict       PruneMode = "strict"
)

// Valid reports whether the mode is one of the supported prune modes.
func (m PruneMode) Valid() bool {
	return m == PruneConservative || m == PruneStrict
}
