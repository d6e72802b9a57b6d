package archive

const schemaVersion = 1

const schemaV1 = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	requirement  TEXT NOT NULL,
	stop_reason  TEXT NOT NULL DEFAULT '',
	rounds       INTEGER NOT NULL DEFAULT 0,
	succeeded    INTEGER NOT NULL DEFAULT 0,
	failure      TEXT NOT NULL DEFAULT '',
	report_id    TEXT NOT NULL DEFAULT '',
	score        TEXT NOT NULL DEFAULT '',
	degraded     TEXT NOT NULL DEFAULT '[]',
	started_at   TEXT NOT NULL,
	finished_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS entries (
	id             TEXT PRIMARY KEY,
	session_id     TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	section        TEXT NOT NULL,
	iteration      INTEGER NOT NULL,
	content        TEXT NOT NULL,
	producer_role  TEXT NOT NULL,
	status         TEXT NOT NULL,
	reason         TEXT NOT NULL DEFAULT '',
	created_at_ms  INTEGER NOT NULL,
	seq            INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id, seq);
CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);
`
