package tags

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2/v2"
)

const testMBID = "a1b2c3d4-1111-2222-3333-444455556666"

// createMinimalMP3 creates a minimal valid MP3 file for testing.
// Returns MP3 frame header + padding (417 bytes total for 128kbps frame).
func createMinimalMP3(t *testing.T, path string) {
	t.Helper()
	// MP3 frame header (MPEG1 Layer3, 128kbps, 44100Hz, stereo) + padding
	mp3Frame := make([]byte, 417)
	mp3Frame[0] = 0xff
	mp3Frame[1] = 0xfb
	mp3Frame[2] = 0x90
	mp3Frame[3] = 0x00

	if err := os.WriteFile(path, mp3Frame, 0o600); err != nil {
		t.Fatalf("failed to create test MP3: %v", err)
	}
}

// tagMP3 applies mutations to the file's ID3v2 container and saves.
func tagMP3(t *testing.T, path string, mutate func(tag *id3v2.Tag)) {
	t.Helper()

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("failed to open MP3 for tagging: %v", err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	mutate(tag)
	if err := tag.Save(); err != nil {
		t.Fatalf("failed to save ID3 tags: %v", err)
	}
}

// txxxValues returns all TXXX values for a description.
func txxxValues(t *testing.T, path, description string) []string {
	t.Helper()

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("failed to open MP3: %v", err)
	}
	defer tag.Close()

	var values []string
	for _, frame := range tag.GetFrames("TXXX") {
		if txxx, ok := frame.(id3v2.UserDefinedTextFrame); ok && txxx.Description == description {
			values = append(values, txxx.Value)
		}
	}
	return values
}

func newTestMP3(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.mp3")
	createMinimalMP3(t, path)
	return path
}

func TestReadMP3Identity(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.SetArtist("Test Artist")
		tag.SetTitle("Test Title")
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MusicBrainz Track Id",
			Value:       testMBID,
		})
	})

	id := &Identity{}
	if err := readMP3Identity(path, id); err != nil {
		t.Fatalf("readMP3Identity failed: %v", err)
	}

	if id.RecordingMBID != testMBID {
		t.Errorf("RecordingMBID = %q, want %q", id.RecordingMBID, testMBID)
	}
	if id.Artist != "Test Artist" {
		t.Errorf("Artist = %q", id.Artist)
	}
	if id.Title != "Test Title" {
		t.Errorf("Title = %q", id.Title)
	}
}

func TestReadMP3Identity_AlternateDescriptionSpelling(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MUSICBRAINZ_TRACKID",
			Value:       testMBID,
		})
	})

	id := &Identity{}
	if err := readMP3Identity(path, id); err != nil {
		t.Fatalf("readMP3Identity failed: %v", err)
	}
	if id.RecordingMBID != testMBID {
		t.Errorf("RecordingMBID = %q, want %q", id.RecordingMBID, testMBID)
	}
}

func TestReadMP3Identity_MalformedMBIDIgnored(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MusicBrainz Track Id",
			Value:       "not-an-mbid",
		})
	})

	id := &Identity{}
	if err := readMP3Identity(path, id); err != nil {
		t.Fatalf("readMP3Identity failed: %v", err)
	}
	if id.RecordingMBID != "" {
		t.Errorf("RecordingMBID = %q, want empty", id.RecordingMBID)
	}
}

func TestReadMP3Identity_NoTags(t *testing.T) {
	path := newTestMP3(t)

	id := &Identity{}
	if err := readMP3Identity(path, id); err != nil {
		t.Fatalf("readMP3Identity failed: %v", err)
	}
	if id.RecordingMBID != "" || id.Artist != "" || id.Title != "" {
		t.Errorf("identity = %+v, want empty fields", id)
	}
}

func TestClassifyMP3(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.SetTitle("Title")
		tag.AddTextFrame("TMOO", id3v2.EncodingUTF8, "Chill") // non-standard
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Picture:     []byte{0xff, 0xd8},
		})
	})

	exotic, hasCover, err := classifyMP3(path)
	if err != nil {
		t.Fatalf("classifyMP3 failed: %v", err)
	}
	if len(exotic) != 1 || exotic[0] != "TMOO" {
		t.Errorf("exotic = %v, want [TMOO]", exotic)
	}
	if !hasCover {
		t.Error("hasCover = false, want true")
	}
}

func TestPruneMP3_ConservativeKeepsTXXX(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddTextFrame("TMOO", id3v2.EncodingUTF8, "Chill")
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MY_CUSTOM",
			Value:       "x",
		})
	})

	removed, err := pruneMP3(path, PruneConservative, AllowSets{}, false)
	if err != nil {
		t.Fatalf("pruneMP3 failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "TMOO" {
		t.Errorf("removed = %v, want [TMOO]", removed)
	}

	if got := txxxValues(t, path, "MY_CUSTOM"); len(got) != 1 {
		t.Errorf("MY_CUSTOM values = %v, want survivor", got)
	}
}

func TestPruneMP3_StrictFiltersTXXX(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MY_CUSTOM",
			Value:       "x",
		})
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "ALLOWED_EXTRA",
			Value:       "y",
		})
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MusicBrainz Track Id",
			Value:       testMBID,
		})
	})

	allow := AllowSets{TXXX: map[string]bool{"ALLOWED_EXTRA": true}}
	removed, err := pruneMP3(path, PruneStrict, allow, false)
	if err != nil {
		t.Fatalf("pruneMP3 failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "TXXX:MY_CUSTOM" {
		t.Errorf("removed = %v, want [TXXX:MY_CUSTOM]", removed)
	}

	if got := txxxValues(t, path, "ALLOWED_EXTRA"); len(got) != 1 {
		t.Error("caller-allowed TXXX was pruned")
	}
	if got := txxxValues(t, path, "MusicBrainz Track Id"); len(got) != 1 {
		t.Error("built-in allowed TXXX was pruned")
	}
	if got := txxxValues(t, path, "MY_CUSTOM"); len(got) != 0 {
		t.Error("exotic TXXX survived strict prune")
	}
}

func TestPruneMP3_DryRunLeavesFileUntouched(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddTextFrame("TMOO", id3v2.EncodingUTF8, "Chill")
	})
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	removed, err := pruneMP3(path, PruneConservative, AllowSets{}, true)
	if err != nil {
		t.Fatalf("pruneMP3 failed: %v", err)
	}
	if len(removed) != 1 || removed[0] != "TMOO" {
		t.Errorf("removed = %v, want [TMOO]", removed)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("dry-run prune mutated the file")
	}
}

func TestPruneMP3_Idempotent(t *testing.T) {
	path := newTestMP3(t)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.AddTextFrame("TMOO", id3v2.EncodingUTF8, "Chill")
	})

	if _, err := pruneMP3(path, PruneConservative, AllowSets{}, false); err != nil {
		t.Fatalf("first prune failed: %v", err)
	}
	removed, err := pruneMP3(path, PruneConservative, AllowSets{}, false)
	if err != nil {
		t.Fatalf("second prune failed: %v", err)
	}
	if len(removed) != 0 {
		t.Errorf("second prune removed %v, want nothing", removed)
	}
}

func TestWriteMP3Rating_Primary(t *testing.T) {
	path := newTestMP3(t)
	votes := 113

	err := writeMP3Rating(path, WriteRatingRequest{
		Value:     4.2,
		Votes:     &votes,
		Namespace: NamespacePrimary,
	})
	if err != nil {
		t.Fatalf("writeMP3Rating failed: %v", err)
	}

	if got := txxxValues(t, path, "RATING"); len(got) != 1 || got[0] != "4.2" {
		t.Errorf("RATING = %v, want [4.2]", got)
	}
	if got := txxxValues(t, path, "MUSICBRAINZ_RATING"); len(got) != 1 || got[0] != "4.2" {
		t.Errorf("MUSICBRAINZ_RATING = %v", got)
	}
	if got := txxxValues(t, path, "MUSICBRAINZ_RATING_VOTES"); len(got) != 1 || got[0] != "113" {
		t.Errorf("MUSICBRAINZ_RATING_VOTES = %v", got)
	}
}

func TestWriteMP3Rating_PrimaryOverwriteIsIdempotent(t *testing.T) {
	path := newTestMP3(t)

	for _, value := range []float64{3.0, 4.2} {
		if err := writeMP3Rating(path, WriteRatingRequest{
			Value:     value,
			Namespace: NamespacePrimary,
		}); err != nil {
			t.Fatalf("writeMP3Rating failed: %v", err)
		}
	}

	got := txxxValues(t, path, "RATING")
	if len(got) != 1 || got[0] != "4.2" {
		t.Errorf("RATING = %v, want single 4.2 after overwrite", got)
	}
}

func TestWriteMP3Rating_Fallback(t *testing.T) {
	path := newTestMP3(t)

	err := writeMP3Rating(path, WriteRatingRequest{
		Value:     3.8,
		Namespace: NamespaceFallback,
	})
	if err != nil {
		t.Fatalf("writeMP3Rating failed: %v", err)
	}

	if got := txxxValues(t, path, "RATING_RG"); len(got) != 1 || got[0] != "3.8" {
		t.Errorf("RATING_RG = %v, want [3.8]", got)
	}
	if got := txxxValues(t, path, "RATING"); len(got) != 0 {
		t.Errorf("RATING = %v, fallback write reached primary keys", got)
	}
}

func TestWriteMP3Rating_Popularimeter(t *testing.T) {
	path := newTestMP3(t)

	err := writeMP3Rating(path, WriteRatingRequest{
		Value:           4.2,
		Namespace:       NamespacePrimary,
		WritePopularity: true,
	})
	if err != nil {
		t.Fatalf("writeMP3Rating failed: %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer tag.Close()

	frames := tag.GetFrames("POPM")
	if len(frames) != 1 {
		t.Fatalf("POPM frames = %d, want 1", len(frames))
	}
	popm, ok := frames[0].(id3v2.PopularimeterFrame)
	if !ok {
		t.Fatalf("unexpected frame type %T", frames[0])
	}
	if popm.Email != popularimeterEmail {
		t.Errorf("Email = %q, want %q", popm.Email, popularimeterEmail)
	}
	if popm.Rating != 214 {
		t.Errorf("Rating = %d, want 214", popm.Rating)
	}
}

func TestScalePopularity(t *testing.T) {
	tests := []struct {
		value float64
		want  uint8
	}{
		{0, 0},
		{2.5, 128},
		{4.2, 214},
		{5, 255},
		{6, 255}, // clamped
	}
	for _, tt := range tests {
		if got := scalePopularity(tt.value); got != tt.want {
			t.Errorf("scalePopularity(%v) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestMP3BackupRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	createMinimalMP3(t, path)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.SetArtist("Artist")
		tag.SetTitle("Title")
		tag.AddTextFrame("TMOO", id3v2.EncodingUTF8, "Chill")
		tag.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
			Encoding:    id3v2.EncodingUTF8,
			Description: "MY_CUSTOM",
			Value:       "x",
		})
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Picture:     []byte{0xff, 0xd8, 0xff},
		})
	})

	codec := NewCodec(filepath.Join(dir, "backups"))
	if _, err := codec.Backup(path, "track.mp3"); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}

	exoticBefore, coverBefore, err := codec.ClassifyExotic(path)
	if err != nil {
		t.Fatalf("ClassifyExotic failed: %v", err)
	}

	// Mutate: prune exotics and overwrite the rating
	if _, err := codec.PruneExotic(path, PruneStrict, AllowSets{}, false); err != nil {
		t.Fatalf("PruneExotic failed: %v", err)
	}
	if err := codec.WriteRating(path, WriteRatingRequest{Value: 1.0, Namespace: NamespacePrimary}); err != nil {
		t.Fatalf("WriteRating failed: %v", err)
	}

	if err := codec.Restore(path, "track.mp3"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	exoticAfter, coverAfter, err := codec.ClassifyExotic(path)
	if err != nil {
		t.Fatalf("ClassifyExotic failed: %v", err)
	}

	if strings.Join(exoticBefore, ",") != strings.Join(exoticAfter, ",") {
		t.Errorf("exotic tags changed: before %v, after %v", exoticBefore, exoticAfter)
	}
	if coverBefore != coverAfter {
		t.Errorf("cover presence changed: before %v, after %v", coverBefore, coverAfter)
	}
	if got := txxxValues(t, path, "MY_CUSTOM"); len(got) != 1 || got[0] != "x" {
		t.Errorf("MY_CUSTOM = %v, want restored [x]", got)
	}
	if got := txxxValues(t, path, "RATING"); len(got) != 0 {
		t.Errorf("RATING = %v, want gone after restore", got)
	}
}

func TestMP3Restore_RebuildsCommentAndUFIDFrames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	createMinimalMP3(t, path)
	tagMP3(t, path, func(tag *id3v2.Tag) {
		tag.SetTitle("Title")
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding:    id3v2.EncodingUTF8,
			Language:    "eng",
			Description: "note",
			Text:        "ripped from vinyl",
		})
		tag.AddFrame("UFID", id3v2.UFIDFrame{
			OwnerIdentifier: "http://musicbrainz.org",
			Identifier:      []byte(testMBID),
		})
	})

	codec := NewCodec(filepath.Join(dir, "backups"))
	if _, err := codec.Backup(path, "track.mp3"); err != nil {
		t.Fatalf("Backup failed: %v", err)
	}
	if err := codec.WriteRating(path, WriteRatingRequest{Value: 4.2, Namespace: NamespacePrimary}); err != nil {
		t.Fatalf("WriteRating failed: %v", err)
	}
	if err := codec.Restore(path, "track.mp3"); err != nil {
		t.Fatalf("Restore failed: %v", err)
	}

	id3tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("open id3: %v", err)
	}
	defer id3tag.Close()

	comments := id3tag.GetFrames("COMM")
	if len(comments) != 1 {
		t.Fatalf("COMM frames = %d, want 1", len(comments))
	}
	cf, ok := comments[0].(id3v2.CommentFrame)
	if !ok {
		t.Fatalf("COMM frame = %T, want CommentFrame", comments[0])
	}
	if cf.Language != "eng" || cf.Description != "note" || cf.Text != "ripped from vinyl" {
		t.Errorf("COMM = %q/%q/%q, want eng/note/ripped from vinyl", cf.Language, cf.Description, cf.Text)
	}

	ufids := id3tag.GetFrames("UFID")
	if len(ufids) != 1 {
		t.Fatalf("UFID frames = %d, want 1", len(ufids))
	}
	uf, ok := ufids[0].(id3v2.UFIDFrame)
	if !ok {
		t.Fatalf("UFID frame = %T, want UFIDFrame", ufids[0])
	}
	if uf.OwnerIdentifier != "http://musicbrainz.org" || string(uf.Identifier) != testMBID {
		t.Errorf("UFID = %q/%q, want musicbrainz owner and %s", uf.OwnerIdentifier, uf.Identifier, testMBID)
	}
}

func TestCodecRestore_MissingBackup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.mp3")
	createMinimalMP3(t, path)

	codec := NewCodec(filepath.Join(dir, "backups"))
	if err := codec.Restore(path, "track.mp3"); err != ErrBackupMissing {
		t.Errorf("err = %v, want ErrBackupMissing", err)
	}
}

func TestCodecUnsupportedFormat(t *testing.T) {
	codec := NewCodec(t.TempDir())

	if _, err := codec.ReadIdentity("file.wav"); err == nil {
		t.Error("expected error for unsupported format")
	}
}
