package musicbrainz

import (
	"fmt"
	"net/url"
	"sort"
)

// Tolerance when re-ranking search candidates by track length.
const durationTolerance = 2000

// RecordingRating fetches the community rating for a recording. It returns
// nil when the recording does not exist; a Rating with a nil Value means the
// recording exists but carries no rating.
func (c *Client) RecordingRating(mbid string) (*Rating, error) {
	if cached, ok := c.recordingRatings[mbid]; ok {
		return cached, nil
	}

	var payload recordingRatingResponse
	params := url.Values{"inc": {"ratings"}}
	found, err := c.get("/recording/"+mbid, params, &payload)
	if err != nil {
		return nil, fmt.Errorf("recording rating %s: %w", mbid, err)
	}

	var rating *Rating
	if found {
		rating = payload.Rating.toRating()
	}
	c.recordingRatings[mbid] = rating
	return rating, nil
}

// SearchRecording looks up a recording MBID by artist and title, returning
// the best-scoring candidate. When durationMS is positive, candidates whose
// reported length lies within 2 seconds of it are preferred over pure score
// order. Returns "" when nothing matches.
func (c *Client) SearchRecording(artist, title string, durationMS int) (string, error) {
	key := fmt.Sprintf("%s\x00%s\x00%d", artist, title, durationMS)
	if cached, ok := c.searchResults[key]; ok {
		return cached, nil
	}

	query := fmt.Sprintf("recording:%q AND artist:%q", title, artist)
	params := url.Values{
		"query": {query},
		"limit": {"5"},
	}

	var payload recordingSearchResponse
	found, err := c.get("/recording", params, &payload)
	if err != nil {
		return "", fmt.Errorf("search recording %q / %q: %w", artist, title, err)
	}

	var mbid string
	if found && len(payload.Recordings) > 0 {
		mbid = pickRecording(payload.Recordings, durationMS)
	}
	c.searchResults[key] = mbid
	return mbid, nil
}

// pickRecording orders candidates by descending search score, then, when a
// length is known, promotes the candidate whose reported length is closest
// to it, provided that distance is within durationTolerance. The score
// leader wins otherwise.
func pickRecording(candidates []searchRecording, durationMS int) string {
	sorted := make([]searchRecording, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	if durationMS > 0 {
		closest := ""
		closestDiff := 0
		for _, cand := range sorted {
			if cand.Length == 0 {
				continue
			}
			diff := cand.Length - durationMS
			if diff < 0 {
				diff = -diff
			}
			if closest == "" || diff < closestDiff {
				closest = cand.ID
				closestDiff = diff
			}
		}
		if closest != "" && closestDiff <= durationTolerance {
			return closest
		}
	}
	return sorted[0].ID
}

// FirstReleaseForRecording returns the MBID of the first release the
// recording appears on, or "" when the recording has no releases or does
// not exist.
func (c *Client) FirstReleaseForRecording(mbid string) (string, error) {
	if cached, ok := c.releaseByRecording[mbid]; ok {
		return cached, nil
	}

	var payload recordingReleasesResponse
	params := url.Values{"inc": {"releases"}}
	found, err := c.get("/recording/"+mbid, params, &payload)
	if err != nil {
		return "", fmt.Errorf("releases for recording %s: %w", mbid, err)
	}

	var releaseID string
	if found && len(payload.Releases) > 0 {
		releaseID = payload.Releases[0].ID
	}
	c.releaseByRecording[mbid] = releaseID
	return releaseID, nil
}

// ReleaseGroupForRelease returns the MBID of the release group a release
// belongs to, or "" when the release does not exist.
func (c *Client) ReleaseGroupForRelease(mbid string) (string, error) {
	if cached, ok := c.releaseGroupByRelease[mbid]; ok {
		return cached, nil
	}

	var payload releaseGroupResponse
	params := url.Values{"inc": {"release-groups"}}
	found, err := c.get("/release/"+mbid, params, &payload)
	if err != nil {
		return "", fmt.Errorf("release group for release %s: %w", mbid, err)
	}

	var groupID string
	if found && payload.ReleaseGroup != nil {
		groupID = payload.ReleaseGroup.ID
	}
	c.releaseGroupByRelease[mbid] = groupID
	return groupID, nil
}

// ReleaseGroupRating fetches the community rating for a release group. It
// returns nil when the release group does not exist.
func (c *Client) ReleaseGroupRating(mbid string) (*Rating, error) {
	if cached, ok := c.releaseGroupRatings[mbid]; ok {
		return cached, nil
	}

	var payload releaseGroupRatingResponse
	params := url.Values{"inc": {"ratings"}}
	found, err := c.get("/release-group/"+mbid, params, &payload)
	if err != nil {
		return nil, fmt.Errorf("release group rating %s: %w", mbid, err)
	}

	var rating *Rating
	if found {
		rating = payload.Rating.toRating()
	}
	c.releaseGroupRatings[mbid] = rating
	return rating, nil
}
