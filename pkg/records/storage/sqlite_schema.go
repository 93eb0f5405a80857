package storage

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the records table. Timestamps are stored as Unix
// nanoseconds and durations as microseconds so both drivers read them back
// the same way.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    id TEXT PRIMARY KEY,
    source TEXT NOT NULL,

    schema_version TEXT NOT NULL,
    schema_rev TEXT,

    status TEXT NOT NULL,
    name TEXT,
    result TEXT,
    error TEXT,

    input_hash TEXT NOT NULL,
    input_lines INTEGER NOT NULL DEFAULT 0,

    parsed_at INTEGER NOT NULL,
    duration_us INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_records_parsed_at ON records(parsed_at);
CREATE INDEX IF NOT EXISTS idx_records_status ON records(status);
CREATE INDEX IF NOT EXISTS idx_records_source ON records(source);
CREATE INDEX IF NOT EXISTS idx_records_input_hash ON records(input_hash);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`

// InsertSchemaVersion records the schema version once.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at) VALUES (?, ?)
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion returns the newest applied schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version;`

const insertRecord = `
INSERT INTO records (
    id, source, schema_version, schema_rev,
    status, name, result, error,
    input_hash, input_lines, parsed_at, duration_us
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`

const selectColumns = `id, source, schema_version, schema_rev, status, name, result, error,
    input_hash, input_lines, parsed_at, duration_us`
