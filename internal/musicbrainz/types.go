package musicbrainz

// Rating is a community rating on a recording or release group. Value is nil
// when the entity exists but nobody has rated it yet.
type Rating struct {
	Value *float64
	Votes *int
}

type ratingPayload struct {
	Value      *float64 `json:"value"`
	VotesCount *int     `json:"votes-count"`
}

func (p *ratingPayload) toRating() *Rating {
	if p == nil {
		return &Rating{}
	}
	return &Rating{Value: p.Value, Votes: p.VotesCount}
}

type recordingRatingResponse struct {
	Rating *ratingPayload `json:"rating"`
}

type recordingSearchResponse struct {
	Recordings []searchRecording `json:"recordings"`
}

type searchRecording struct {
	ID     string `json:"id"`
	Score  int    `json:"score"`
	Length int    `json:"length"`
}

type recordingReleasesResponse struct {
	Releases []struct {
		ID string `json:"id"`
	} `json:"releases"`
}

type releaseGroupResponse struct {
	ReleaseGroup *struct {
		ID string `json:"id"`
	} `json:"release-group"`
}

type releaseGroupRatingResponse struct {
	Rating *ratingPayload `json:"rating"`
}
