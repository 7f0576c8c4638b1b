package tags

import (
	"fmt"
	"strconv"
)

// RatingNamespace selects the tag keys a rating is written under.
// Recording-level ratings use the primary namespace, release-group fallback
// ratings use a distinct key set so the two provenances never overwrite each
// other.
type RatingNamespace int

const (
	NamespacePrimary RatingNamespace = iota
	NamespaceFallback
)

// ratingKeys are the canonical key names for one namespace. The same names
// are used as Vorbis comment keys, TXXX descriptions and MP4 freeform atoms.
type ratingKeys struct {
	rating   string
	mbRating string
	mbVotes  string
}

func (n RatingNamespace) keys() ratingKeys {
	if n == NamespaceFallback {
		return ratingKeys{
			rating:   "RATING_RG",
			mbRating: "MUSICBRAINZ_RG_RATING",
			mbVotes:  "MUSICBRAINZ_RG_RATING_VOTES",
		}
	}
	return ratingKeys{
		rating:   "RATING",
		mbRating: "MUSICBRAINZ_RATING",
		mbVotes:  "MUSICBRAINZ_RATING_VOTES",
	}
}

// WriteRatingRequest describes one rating write.
type WriteRatingRequest struct {
	Value           float64
	Votes           *int
	Namespace       RatingNamespace
	WritePopularity bool // ID3 primary namespace only: also write a POPM frame
}

func (w WriteRatingRequest) ratingString() string {
	return fmt.Sprintf("%.1f", w.Value)
}

func (w WriteRatingRequest) votesString() string {
	if w.Votes == nil {
		return ""
	}
	return strconv.Itoa(*w.Votes)
}
