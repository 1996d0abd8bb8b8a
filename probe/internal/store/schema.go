package store

// Schema creates the saved-selector and run-history tables.
const Schema = `
CREATE TABLE IF NOT EXISTS selectors (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL UNIQUE,
	selector   TEXT NOT NULL,
	source     TEXT NOT NULL DEFAULT '',
	mode       TEXT NOT NULL DEFAULT 'all',
	stealth    TEXT NOT NULL DEFAULT 'auto',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	selector_id TEXT REFERENCES selectors(id) ON DELETE SET NULL,
	selector    TEXT NOT NULL,
	source      TEXT NOT NULL,
	match_count INTEGER NOT NULL DEFAULT 0,
	result_hash TEXT NOT NULL DEFAULT '',
	changed     INTEGER NOT NULL DEFAULT 0,
	elapsed_ms  INTEGER NOT NULL DEFAULT 0,
	error       TEXT NOT NULL DEFAULT '',
	created_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_target ON runs(selector, source, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_selector_id ON runs(selector_id, created_at);
`
