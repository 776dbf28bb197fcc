package db

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA foreign_keys = ON;
PRAGMA temp_store = MEMORY;

-- Runs: one row per mutating CLI command
CREATE TABLE IF NOT EXISTS runs (
    run_id INTEGER PRIMARY KEY AUTOINCREMENT,
    command TEXT NOT NULL,
    args TEXT NOT NULL,              -- JSON array of the command arguments
    status TEXT NOT NULL,            -- running, succeeded, failed
    error_code TEXT,                 -- error taxonomy code when failed
    error_message TEXT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at);

-- Offsets derived from anchors during a run
CREATE TABLE IF NOT EXISTS offsets (
    offset_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    reference TEXT NOT NULL,
    document TEXT NOT NULL,
    page INTEGER NOT NULL,
    dx REAL NOT NULL,
    dy REAL NOT NULL,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_offsets_run ON offsets(run_id);

-- Markup transfers performed during a run
CREATE TABLE IF NOT EXISTS transfers (
    transfer_id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL,
    source TEXT NOT NULL,
    source_page INTEGER NOT NULL,
    target TEXT NOT NULL,
    target_page INTEGER NOT NULL,
    selected INTEGER NOT NULL DEFAULT 0,
    positioned INTEGER NOT NULL DEFAULT 0,
    relabelled INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (run_id) REFERENCES runs(run_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_transfers_run ON transfers(run_id);
`
