package db

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plan_runs (
	id           UUID PRIMARY KEY,
	project      TEXT NOT NULL,
	plate_id     TEXT NOT NULL,
	technique    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_plan_runs_created_at ON plan_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS artifacts (
	id           UUID PRIMARY KEY,
	run_id       UUID NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
	step         TEXT NOT NULL,
	category     TEXT,
	content      JSONB,
	text_content TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (run_id, step)
);
`

// SQLite stores timestamps as fixed-width RFC 3339 text.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS plan_runs (
	id           TEXT PRIMARY KEY,
	project      TEXT NOT NULL,
	plate_id     TEXT NOT NULL,
	technique    TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'running',
	created_at   TEXT NOT NULL,
	completed_at TEXT
);

CREATE INDEX IF NOT EXISTS idx_plan_runs_created_at ON plan_runs (created_at DESC);

CREATE TABLE IF NOT EXISTS artifacts (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL REFERENCES plan_runs(id) ON DELETE CASCADE,
	step         TEXT NOT NULL,
	category     TEXT,
	content      BLOB,
	text_content TEXT,
	created_at   TEXT NOT NULL,
	UNIQUE (run_id, step)
);
`
