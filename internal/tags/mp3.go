package tags

import (
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// popularimeterEmail is the reserved owner identifier of the POPM frame this
// tool writes; pre-existing frames with the same identifier are replaced.
const popularimeterEmail = "musicbrainz@mb-rating"

// mp3RecordingIDDescriptions are the TXXX descriptions an embedded recording
// identifier may live under, compared trimmed and lowercased.
var mp3RecordingIDDescriptions = map[string]bool{
	"musicbrainz track id":     true,
	"musicbrainz_trackid":      true,
	"musicbrainz recording id": true,
}

// openID3 opens the ID3v2 container for a file. A header-less or unreadable
// container is reported as (nil, nil): the file simply has no tags yet.
func openID3(path string) (*id3v2.Tag, error) {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, nil //nolint:nilnil // absent container is a valid state
	}
	return id3tag, nil
}

// readMP3Identity extracts identity fields from ID3v2 frames.
func readMP3Identity(path string, id *Identity) error {
	id3tag, err := openID3(path)
	if err != nil || id3tag == nil {
		return err
	}
	defer id3tag.Close()

	for _, frame := range id3tag.GetFrames("TXXX") {
		txxx, ok := frame.(id3v2.UserDefinedTextFrame)
		if !ok {
			continue
		}
		desc := strings.ToLower(strings.TrimSpace(txxx.Description))
		if mp3RecordingIDDescriptions[desc] {
			if mbid := firstValid(txxx.Value); mbid != "" {
				id.RecordingMBID = mbid
				break
			}
		}
	}

	id.Artist = getID3TextFrame(id3tag, "TPE1")
	id.Title = getID3TextFrame(id3tag, "TIT2")
	return nil
}

// snapshotMP3 enumerates every ID3v2 frame into a snapshot. Picture frames
// become binary records, TXXX frames are namespaced by description, other
// frames keep their text payload (or a lossy string rendering of the body).
func snapshotMP3(path, rel string) (*Snapshot, error) {
	snap := &Snapshot{Path: rel, Format: FormatID3.String()}

	id3tag, err := openID3(path)
	if err != nil || id3tag == nil {
		return snap, err
	}
	defer id3tag.Close()

	for _, frameID := range sortedFrameIDs(id3tag) {
		for _, frame := range id3tag.GetFrames(frameID) {
			snap.Tags = append(snap.Tags, snapshotID3Frame(frameID, frame))
		}
	}
	return snap, nil
}

func snapshotID3Frame(frameID string, frame id3v2.Framer) SnapshotEntry {
	switch f := frame.(type) {
	case id3v2.PictureFrame:
		return SnapshotEntry{Key: frameID, Pictures: []Picture{{
			MIME:        f.MimeType,
			Description: f.Description,
			Kind:        int(f.PictureType),
			Data:        f.Picture,
		}}}
	case id3v2.UserDefinedTextFrame:
		return SnapshotEntry{Key: "TXXX:" + f.Description, Text: f.Value}
	case id3v2.TextFrame:
		return SnapshotEntry{Key: frameID, Text: f.Text}
	case id3v2.CommentFrame:
		return SnapshotEntry{Key: frameID, Values: []string{f.Language, f.Description, f.Text}}
	case id3v2.UFIDFrame:
		return SnapshotEntry{Key: frameID, Values: []string{f.OwnerIdentifier, string(f.Identifier)}}
	case id3v2.UnknownFrame:
		return SnapshotEntry{Key: frameID, Text: strings.ToValidUTF8(string(f.Body), "�")}
	default:
		return SnapshotEntry{Key: frameID, Text: fmt.Sprintf("%v", frame)}
	}
}

// restoreMP3 clears the ID3v2 container and replays the snapshot. Pictures,
// TXXX, text frames, COMM and UFID are rehydrated as real frames; other
// frame kinds were captured as lossy text renderings and cannot be replayed,
// so they are skipped rather than failing the whole restore.
func restoreMP3(path string, snap *Snapshot) error {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3: %w", err)
	}
	defer id3tag.Close()

	id3tag.SetVersion(4)
	id3tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	id3tag.DeleteAllFrames()

	for _, entry := range snap.Tags {
		switch {
		case len(entry.Pictures) > 0:
			for _, pic := range entry.Pictures {
				id3tag.AddAttachedPicture(id3v2.PictureFrame{
					Encoding:    id3v2.EncodingUTF8,
					MimeType:    pic.MIME,
					PictureType: byte(pic.Kind),
					Description: pic.Description,
					Picture:     pic.Data,
				})
			}
		case strings.HasPrefix(entry.Key, "TXXX:"):
			id3tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
				Encoding:    id3v2.EncodingUTF8,
				Description: strings.TrimPrefix(entry.Key, "TXXX:"),
				Value:       entry.Text,
			})
		case entry.Key == "COMM":
			id3tag.AddCommentFrame(commentFromEntry(entry))
		case entry.Key == "UFID" && len(entry.Values) == 2:
			id3tag.AddFrame("UFID", id3v2.UFIDFrame{
				OwnerIdentifier: entry.Values[0],
				Identifier:      []byte(entry.Values[1]),
			})
		case len(entry.Key) == 4 && entry.Key[0] == 'T' && entry.Text != "":
			id3tag.AddTextFrame(entry.Key, id3v2.EncodingUTF8, entry.Text)
		}
	}

	if err := id3tag.Save(); err != nil {
		return fmt.Errorf("save id3: %w", err)
	}
	return nil
}

// commentFromEntry rebuilds a COMM frame from its snapshot entry. Entries
// from older snapshots carry only the comment text.
func commentFromEntry(entry SnapshotEntry) id3v2.CommentFrame {
	cf := id3v2.CommentFrame{Encoding: id3v2.EncodingUTF8, Language: "eng"}
	if len(entry.Values) == 3 {
		cf.Language, cf.Description, cf.Text = entry.Values[0], entry.Values[1], entry.Values[2]
	} else {
		cf.Text = entry.Text
	}
	return cf
}

// classifyMP3 returns frame IDs outside the standard ID3 set and whether an
// attached picture is present.
func classifyMP3(path string) ([]string, bool, error) {
	id3tag, err := openID3(path)
	if err != nil || id3tag == nil {
		return nil, false, err
	}
	defer id3tag.Close()

	var exotic []string
	for _, frameID := range sortedFrameIDs(id3tag) {
		if standardID3Frames[frameID] {
			continue
		}
		for range id3tag.GetFrames(frameID) {
			exotic = append(exotic, frameID)
		}
	}
	return exotic, len(id3tag.GetFrames("APIC")) > 0, nil
}

// pruneMP3 removes non-standard frames. TXXX frames survive conservative
// mode entirely; strict mode filters them against the built-in description
// allow-list plus caller overrides.
func pruneMP3(path string, mode PruneMode, allow AllowSets, dryRun bool) ([]string, error) {
	id3tag, err := openID3(path)
	if err != nil || id3tag == nil {
		return nil, err
	}
	defer id3tag.Close()

	var removed []string
	var dropIDs []string
	for _, frameID := range sortedFrameIDs(id3tag) {
		if standardID3Frames[frameID] || frameID == "TXXX" {
			continue
		}
		dropIDs = append(dropIDs, frameID)
		removed = append(removed, frameID)
	}

	var keepTXXX []id3v2.UserDefinedTextFrame
	if mode == PruneStrict {
		for _, frame := range id3tag.GetFrames("TXXX") {
			txxx, ok := frame.(id3v2.UserDefinedTextFrame)
			if !ok {
				continue
			}
			if allowedTXXXDescriptions[txxx.Description] || allow.TXXX[txxx.Description] {
				keepTXXX = append(keepTXXX, txxx)
			} else {
				removed = append(removed, "TXXX:"+txxx.Description)
			}
		}
	}

	if dryRun || len(removed) == 0 {
		return removed, nil
	}

	for _, frameID := range dropIDs {
		id3tag.DeleteFrames(frameID)
	}
	if mode == PruneStrict {
		id3tag.DeleteFrames("TXXX")
		for _, txxx := range keepTXXX {
			id3tag.AddUserDefinedTextFrame(txxx)
		}
	}

	if err := id3tag.Save(); err != nil {
		return nil, fmt.Errorf("save id3: %w", err)
	}
	return removed, nil
}

// writeMP3Rating writes rating TXXX frames and optionally a POPM popularity
// frame. Primary-namespace writes replace any previous rating frames;
// fallback-namespace writes accumulate (inherited behavior, kept as-is).
func writeMP3Rating(path string, w WriteRatingRequest) error {
	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open id3: %w", err)
	}
	defer id3tag.Close()

	keys := w.Namespace.keys()

	if w.Namespace == NamespacePrimary {
		cleared := map[string]bool{
			strings.ToLower(keys.rating):   true,
			strings.ToLower(keys.mbRating): true,
			strings.ToLower(keys.mbVotes):  true,
		}
		var keep []id3v2.UserDefinedTextFrame
		for _, frame := range id3tag.GetFrames("TXXX") {
			txxx, ok := frame.(id3v2.UserDefinedTextFrame)
			if !ok {
				continue
			}
			if !cleared[strings.ToLower(txxx.Description)] {
				keep = append(keep, txxx)
			}
		}
		id3tag.DeleteFrames("TXXX")
		for _, txxx := range keep {
			id3tag.AddUserDefinedTextFrame(txxx)
		}
	}

	addTXXX(id3tag, keys.rating, w.ratingString())
	addTXXX(id3tag, keys.mbRating, w.ratingString())
	if votes := w.votesString(); votes != "" {
		addTXXX(id3tag, keys.mbVotes, votes)
	}

	if w.WritePopularity && w.Namespace == NamespacePrimary {
		var keep []id3v2.Framer
		for _, frame := range id3tag.GetFrames("POPM") {
			popm, ok := frame.(id3v2.PopularimeterFrame)
			if ok && popm.Email == popularimeterEmail {
				continue
			}
			keep = append(keep, frame)
		}
		id3tag.DeleteFrames("POPM")
		for _, frame := range keep {
			id3tag.AddFrame("POPM", frame)
		}
		id3tag.AddFrame("POPM", id3v2.PopularimeterFrame{
			Email:   popularimeterEmail,
			Rating:  scalePopularity(w.Value),
			Counter: big.NewInt(0),
		})
	}

	if err := id3tag.Save(); err != nil {
		return fmt.Errorf("save id3: %w", err)
	}
	return nil
}

// scalePopularity maps a 0-5 rating onto the 0-255 POPM range.
func scalePopularity(value float64) uint8 {
	scaled := int(value/5.0*255.0 + 0.5)
	if scaled < 0 {
		scaled = 0
	}
	if scaled > 255 {
		scaled = 255
	}
	return uint8(scaled)
}

func addTXXX(id3tag *id3v2.Tag, description, value string) {
	id3tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

func getID3TextFrame(id3tag *id3v2.Tag, frameID string) string {
	frames := id3tag.GetFrames(frameID)
	if len(frames) == 0 {
		return ""
	}
	if tf, ok := frames[0].(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}

// sortedFrameIDs returns the tag's frame IDs in deterministic order.
func sortedFrameIDs(id3tag *id3v2.Tag) []string {
	all := id3tag.AllFrames()
	ids := make([]string, 0, len(all))
	for id := range all {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
