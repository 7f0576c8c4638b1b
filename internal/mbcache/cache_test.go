package mbcache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/llehouerou/mbrate/internal/musicbrainz"
)

// openTestCache creates a cache backed by a file in a temp dir.
func openTestCache(t *testing.T, mode Mode, ttl time.Duration) *Cache {
	t.Helper()

	path := filepath.Join(t.TempDir(), "mbcache.db")
	c, err := Open(path, mode, ttl)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestKey(t *testing.T) {
	tests := []struct {
		name       string
		artist     string
		title      string
		durationMS int
		want       string
	}{
		{"basic", "Artist", "Title", 200000, "artist|title|200"},
		{"trims and lowercases", "  The Band ", " Song Name ", 181499, "the band|song name|181"},
		{"rounds half up", "A", "B", 181500, "a|b|182"},
		{"zero duration", "A", "B", 0, "a|b|0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Key(tt.artist, tt.title, tt.durationMS); got != tt.want {
				t.Errorf("Key() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCache_RatingMiss(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	rating, found, err := c.Rating("unknown-mbid")
	if err != nil {
		t.Fatalf("Rating failed: %v", err)
	}
	if found {
		t.Error("expected miss on empty cache")
	}
	if rating != nil {
		t.Errorf("rating = %+v, want nil", rating)
	}
}

func TestCache_SetAndGetRating(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	want := &musicbrainz.Rating{Value: floatPtr(4.5), Votes: intPtr(12)}
	if err := c.SetRating("mbid-1", want); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}

	got, found, err := c.Rating("mbid-1")
	if err != nil {
		t.Fatalf("Rating failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit after SetRating")
	}
	if got.Value == nil || *got.Value != 4.5 {
		t.Errorf("Value = %v, want 4.5", got.Value)
	}
	if got.Votes == nil || *got.Votes != 12 {
		t.Errorf("Votes = %v, want 12", got.Votes)
	}
}

func TestCache_SetRatingNil(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	// A nil rating records that the entity carries no rating
	if err := c.SetRating("mbid-unrated", nil); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}

	got, found, err := c.Rating("mbid-unrated")
	if err != nil {
		t.Fatalf("Rating failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit for stored nil rating")
	}
	if got.Value != nil {
		t.Errorf("Value = %v, want nil", *got.Value)
	}
}

func TestCache_SetRatingUpsert(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	if err := c.SetRating("mbid-2", &musicbrainz.Rating{Value: floatPtr(2.0), Votes: intPtr(1)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	if err := c.SetRating("mbid-2", &musicbrainz.Rating{Value: floatPtr(3.5), Votes: intPtr(6)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}

	got, found, err := c.Rating("mbid-2")
	if err != nil {
		t.Fatalf("Rating failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if *got.Value != 3.5 || *got.Votes != 6 {
		t.Errorf("got %v/%v, want 3.5/6", *got.Value, *got.Votes)
	}
}

func TestCache_SearchMap(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	if err := c.SetSearchMBID("Artist", "Title", 200000, "found-mbid"); err != nil {
		t.Fatalf("SetSearchMBID failed: %v", err)
	}

	// Key normalization means a differently-cased query still hits
	mbid, found, err := c.SearchMBID("  ARTIST ", "title", 200000)
	if err != nil {
		t.Fatalf("SearchMBID failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit")
	}
	if mbid != "found-mbid" {
		t.Errorf("mbid = %q, want %q", mbid, "found-mbid")
	}
}

func TestCache_SearchMapNegative(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, DefaultTTL)

	if err := c.SetSearchMBID("Nobody", "Nothing", 0, ""); err != nil {
		t.Fatalf("SetSearchMBID failed: %v", err)
	}

	mbid, found, err := c.SearchMBID("Nobody", "Nothing", 0)
	if err != nil {
		t.Fatalf("SearchMBID failed: %v", err)
	}
	if !found {
		t.Fatal("expected hit for stored no-match answer")
	}
	if mbid != "" {
		t.Errorf("mbid = %q, want empty", mbid)
	}
}

func TestCache_TTLExpiry(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, time.Hour)

	base := time.Now()
	c.now = func() time.Time { return base }

	if err := c.SetRating("mbid-ttl", &musicbrainz.Rating{Value: floatPtr(4.0)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}

	// Still fresh just inside the TTL
	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	if _, found, err := c.Rating("mbid-ttl"); err != nil || !found {
		t.Fatalf("expected hit inside TTL, found=%v err=%v", found, err)
	}

	// Expired past the TTL
	c.now = func() time.Time { return base.Add(2 * time.Hour) }
	if _, found, err := c.Rating("mbid-ttl"); err != nil || found {
		t.Fatalf("expected miss past TTL, found=%v err=%v", found, err)
	}
}

func TestCache_ZeroTTLNeverExpires(t *testing.T) {
	c := openTestCache(t, ModeReadWrite, 0)

	base := time.Now()
	c.now = func() time.Time { return base }

	if err := c.SetRating("mbid-forever", &musicbrainz.Rating{Value: floatPtr(1.0)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}

	c.now = func() time.Time { return base.Add(10 * 365 * 24 * time.Hour) }
	if _, found, err := c.Rating("mbid-forever"); err != nil || !found {
		t.Fatalf("expected hit with zero TTL, found=%v err=%v", found, err)
	}
}

func TestCache_ReadOnlyServesStaleEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbcache.db")

	rw, err := Open(path, ModeReadWrite, time.Hour)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	base := time.Now()
	rw.now = func() time.Time { return base }
	if err := rw.SetRating("mbid-stale", &musicbrainz.Rating{Value: floatPtr(3.0)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	rw.Close()

	ro, err := Open(path, ModeReadOnly, time.Hour)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer ro.Close()
	ro.now = func() time.Time { return base.Add(time.Hour + time.Second) }

	rating, found, err := ro.Rating("mbid-stale")
	if err != nil || !found {
		t.Fatalf("expected stale hit in read-only mode, found=%v err=%v", found, err)
	}
	if rating.Value == nil || *rating.Value != 3.0 {
		t.Errorf("rating = %+v, want value 3.0", rating)
	}
}

func TestCache_ReadOnlyDiscardsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbcache.db")

	ro, err := Open(path, ModeReadOnly, DefaultTTL)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := ro.SetRating("mbid-ro", &musicbrainz.Rating{Value: floatPtr(5.0)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	if err := ro.SetSearchMBID("A", "B", 0, "x"); err != nil {
		t.Fatalf("SetSearchMBID failed: %v", err)
	}
	ro.Close()

	rw, err := Open(path, ModeReadWrite, DefaultTTL)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rw.Close()

	if _, found, _ := rw.Rating("mbid-ro"); found {
		t.Error("read-only cache stored a rating")
	}
	if _, found, _ := rw.SearchMBID("A", "B", 0); found {
		t.Error("read-only cache stored a search result")
	}
}

func TestCache_RefreshReportsMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbcache.db")

	rw, err := Open(path, ModeReadWrite, DefaultTTL)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := rw.SetRating("mbid-refresh", &musicbrainz.Rating{Value: floatPtr(2.5)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	rw.Close()

	refresh, err := Open(path, ModeRefresh, DefaultTTL)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	// Reads miss even though a fresh row exists
	if _, found, _ := refresh.Rating("mbid-refresh"); found {
		t.Error("refresh mode served a cached rating")
	}

	// Writes replace the stored answer
	if err := refresh.SetRating("mbid-refresh", &musicbrainz.Rating{Value: floatPtr(4.9)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	refresh.Close()

	rw2, err := Open(path, ModeReadWrite, DefaultTTL)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rw2.Close()

	got, found, err := rw2.Rating("mbid-refresh")
	if err != nil || !found {
		t.Fatalf("expected hit, found=%v err=%v", found, err)
	}
	if *got.Value != 4.9 {
		t.Errorf("Value = %v, want 4.9", *got.Value)
	}
}

func TestCache_PurgeExpiredAtOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mbcache.db")

	c, err := Open(path, ModeReadWrite, time.Hour)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	old := time.Now().Add(-2 * time.Hour)
	c.now = func() time.Time { return old }
	if err := c.SetRating("mbid-old", &musicbrainz.Rating{Value: floatPtr(1.0)}); err != nil {
		t.Fatalf("SetRating failed: %v", err)
	}
	c.Close()

	c2, err := Open(path, ModeReadWrite, time.Hour)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer c2.Close()

	var count int
	if err := c2.db.QueryRow(`SELECT COUNT(*) FROM ratings`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("ratings rows = %d, want 0 after purge", count)
	}
}

func TestMode_Valid(t *testing.T) {
	for _, m := range []Mode{ModeReadWrite, ModeReadOnly, ModeRefresh} {
		if !m.Valid() {
			t.Errorf("Mode(%q).Valid() = false, want true", m)
		}
	}
	if Mode("rwx").Valid() {
		t.Error(`Mode("rwx").Valid() = true, want false`)
	}
}
