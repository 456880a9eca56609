package state

const schema = `
CREATE TABLE IF NOT EXISTS installs (
    name          TEXT PRIMARY KEY,
    port          INTEGER NOT NULL,
    install_dir   TEXT NOT NULL,
    root_dir      TEXT NOT NULL,
    archive       TEXT NOT NULL,
    version       TEXT,
    run_id        TEXT NOT NULL,
    status        TEXT NOT NULL,
    registered    INTEGER NOT NULL,
    env_path      INTEGER NOT NULL,
    installed_at  INTEGER NOT NULL,
    updated_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS installs_port ON installs (port);

CREATE TABLE IF NOT EXISTS history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    service     TEXT NOT NULL,
    action      TEXT NOT NULL,
    run_id      TEXT,
    timestamp   INTEGER NOT NULL,
    detail      TEXT
);
`
