package mbcache

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS ratings (
			mbid TEXT PRIMARY KEY,
			rating REAL,
			votes INTEGER,
			fetched_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS search_map (
			qkey TEXT PRIMARY KEY,
			mbid TEXT NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_ratings_fetched_at ON ratings(fetched_at);
		CREATE INDEX IF NOT EXISTS idx_search_map_fetched_at ON search_map(fetched_at);
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	return err
}
