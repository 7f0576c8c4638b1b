// Package mbcache persists MusicBrainz lookup results in a local SQLite
// database so repeated runs over the same library avoid re-querying the API.
package mbcache

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/llehouerou/mbrate/internal/db"
	"github.com/llehouerou/mbrate/internal/musicbrainz"
)

const (
	appName    = "mbrate"
	dbFileName = "mbcache.db"

	// DefaultTTL is how long a cached answer stays fresh.
	DefaultTTL = 30 * 24 * time.Hour
)

// Mode controls how the cache participates in a run.
type Mode string

const (
	// ModeReadWrite serves fresh entries and stores new answers.
	ModeReadWrite Mode = "rw"
	// ModeReadOnly serves entries regardless of age and never writes.
	ModeReadOnly Mode = "ro"
	// ModeRefresh reports every lookup as a miss and overwrites stored
	// entries with the fresh answers.
	ModeRefresh Mode = "refresh"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeReadWrite, ModeReadOnly, ModeRefresh:
		return true
	}
	return false
}

func (m Mode) readable() bool { return m != ModeRefresh }
func (m Mode) writable() bool { return m != ModeReadOnly }

// Cache is a TTL-bounded store for rating and search lookups. Both recording
// and release-group ratings share the ratings table; MBIDs never collide
// across entity types.
type Cache struct {
	db   *sql.DB
	mode Mode
	ttl  time.Duration

	now func() time.Time
}

// Open opens or creates the cache database at path. A ttl of zero or less
// means entries never expire. Expired rows are purged at open time when the
// mode allows writing.
func Open(path string, mode Mode, ttl time.Duration) (*Cache, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("invalid cache mode %q", mode)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := sqlDB.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		sqlDB.Close()
		return nil, err
	}

	if err := initSchema(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	c := &Cache{
		db:   sqlDB,
		mode: mode,
		ttl:  ttl,
		now:  time.Now,
	}

	if mode.writable() {
		if err := c.purgeExpired(); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	return c, nil
}

// DefaultPath returns the XDG cache location for the database.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join(appName, dbFileName))
}

func (c *Cache) Close() error {
	return c.db.Close()
}

// Key derives the search-cache key from track metadata. Case and surrounding
// whitespace do not affect the key, and duration is bucketed to whole
// seconds so container-level length jitter still hits.
func Key(artist, title string, durationMS int) string {
	secs := int(math.Round(float64(durationMS) / 1000))
	return fmt.Sprintf("%s|%s|%d",
		strings.ToLower(strings.TrimSpace(artist)),
		strings.ToLower(strings.TrimSpace(title)),
		secs)
}

// Rating returns the cached rating for an MBID. The second return reports
// whether a fresh entry was found; a hit with a nil-Value rating means the
// entity is known to carry no rating.
func (c *Cache) Rating(mbid string) (*musicbrainz.Rating, bool, error) {
	if !c.mode.readable() {
		return nil, false, nil
	}

	var rating sql.NullFloat64
	var votes sql.NullInt64
	var fetchedAt int64

	err := c.db.QueryRow(`
		SELECT rating, votes, fetched_at FROM ratings WHERE mbid = ?
	`, mbid).Scan(&rating, &votes, &fetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if c.expired(fetchedAt) {
		return nil, false, nil
	}

	return &musicbrainz.Rating{
		Value: db.NullFloat64ToPtr(rating),
		Votes: nullInt64ToIntPtr(votes),
	}, true, nil
}

func nullInt64ToIntPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

// SetRating stores a rating answer. A nil rating is stored as a row with
// NULL columns so a rating-less entity is remembered too.
func (c *Cache) SetRating(mbid string, rating *musicbrainz.Rating) error {
	if !c.mode.writable() {
		return nil
	}

	var value sql.NullFloat64
	var votes sql.NullInt64
	if rating != nil {
		if rating.Value != nil {
			value = sql.NullFloat64{Float64: *rating.Value, Valid: true}
		}
		if rating.Votes != nil {
			votes = sql.NullInt64{Int64: int64(*rating.Votes), Valid: true}
		}
	}

	_, err := c.db.Exec(`
		INSERT INTO ratings (mbid, rating, votes, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(mbid) DO UPDATE SET
			rating = excluded.rating,
			votes = excluded.votes,
			fetched_at = excluded.fetched_at
	`, mbid, value, votes, c.now().Unix())
	return err
}

// SearchMBID returns the cached search result for a metadata key. An empty
// MBID with found=true means the search is known to have no match.
func (c *Cache) SearchMBID(artist, title string, durationMS int) (string, bool, error) {
	if !c.mode.readable() {
		return "", false, nil
	}

	var mbid string
	var fetchedAt int64

	err := c.db.QueryRow(`
		SELECT mbid, fetched_at FROM search_map WHERE qkey = ?
	`, Key(artist, title, durationMS)).Scan(&mbid, &fetchedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if c.expired(fetchedAt) {
		return "", false, nil
	}

	return mbid, true, nil
}

// SetSearchMBID stores a search answer, including the empty no-match answer.
func (c *Cache) SetSearchMBID(artist, title string, durationMS int, mbid string) error {
	if !c.mode.writable() {
		return nil
	}

	_, err := c.db.Exec(`
		INSERT INTO search_map (qkey, mbid, fetched_at)
		VALUES (?, ?, ?)
		ON CONFLICT(qkey) DO UPDATE SET
			mbid = excluded.mbid,
			fetched_at = excluded.fetched_at
	`, Key(artist, title, durationMS), mbid, c.now().Unix())
	return err
}

// expired applies the TTL to a row's fetch time. Read-only mode serves
// stale entries: with writes disabled a re-fetch could never land anyway.
func (c *Cache) expired(fetchedAt int64) bool {
	if c.ttl <= 0 || c.mode == ModeReadOnly {
		return false
	}
	return c.now().Sub(time.Unix(fetchedAt, 0)) > c.ttl
}

// purgeExpired drops rows past the TTL so the database does not grow
// without bound.
func (c *Cache) purgeExpired() error {
	if c.ttl <= 0 {
		return nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()

	return db.WithTx(c.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM ratings WHERE fetched_at < ?`, cutoff); err != nil {
			return err
		}
		_, err := tx.Exec(`DELETE FROM search_map WHERE fetched_at < ?`, cutoff)
		return err
	})
}
