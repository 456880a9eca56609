package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a queried install does not exist.
var ErrNotFound = errors.New("install not found")

// Install is one engine instance created by the installer.
type Install struct {
	Name        string // derived service name
	Port        int
	InstallDir  string
	RootDir     string
	Archive     string
	Version     string // engine version parsed from the archive, if known
	RunID       string
	Status      string // succeeded or partial
	Registered  bool   // a service was registered
	EnvPath     bool   // the bin directory was added to the machine PATH
	InstalledAt time.Time
	UpdatedAt   time.Time
}

// HistoryEntry represents an action recorded in the history table.
type HistoryEntry struct {
	ID        int64
	Service   string
	Action    string
	RunID     string
	Timestamp time.Time
	Detail    map[string]string
}

// Store wraps a SQLite database holding the install ledger.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path with WAL mode.
// Use ":memory:" for in-memory databases in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening state db %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// SQLite handles one writer at a time
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveInstall inserts an install, replacing any earlier install of the same
// service name. InstalledAt of the earlier row is kept. Zero times are set to
// the current time.
func (s *Store) SaveInstall(ctx context.Context, in *Install) error {
	if in.InstalledAt.IsZero() {
		in.InstalledAt = time.Now()
	}
	if in.UpdatedAt.IsZero() {
		in.UpdatedAt = in.InstalledAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO installs (name, port, install_dir, root_dir, archive, version, run_id, status, registered, env_path, installed_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   port=excluded.port, install_dir=excluded.install_dir, root_dir=excluded.root_dir,
		   archive=excluded.archive, version=excluded.version, run_id=excluded.run_id,
		   status=excluded.status, registered=excluded.registered, env_path=excluded.env_path,
		   updated_at=excluded.updated_at`,
		in.Name, in.Port, in.InstallDir, in.RootDir, in.Archive, nullString(in.Version),
		in.RunID, in.Status, in.Registered, in.EnvPath,
		in.InstalledAt.Unix(), in.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("saving install %s: %w", in.Name, err)
	}
	return nil
}

const installColumns = `name, port, install_dir, root_dir, archive, version, run_id, status, registered, env_path, installed_at, updated_at`

// GetInstall retrieves an install by service name, case-insensitively.
func (s *Store) GetInstall(ctx context.Context, name string) (*Install, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+installColumns+` FROM installs WHERE name = ? COLLATE NOCASE`, name)

	in, err := scanInstall(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting install %s: %w", name, err)
	}
	return in, nil
}

// ListInstalls returns all installs ordered by port.
func (s *Store) ListInstalls(ctx context.Context) ([]*Install, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+installColumns+` FROM installs ORDER BY port, name`)
	if err != nil {
		return nil, fmt.Errorf("listing installs: %w", err)
	}
	defer rows.Close()

	var installs []*Install
	for rows.Next() {
		in, err := scanInstall(rows)
		if err != nil {
			return nil, err
		}
		installs = append(installs, in)
	}
	return installs, rows.Err()
}

// DeleteInstall removes an install by service name.
func (s *Store) DeleteInstall(ctx context.Context, name string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM installs WHERE name = ? COLLATE NOCASE`, name)
	if err != nil {
		return fmt.Errorf("deleting install %s: %w", name, err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UsedPorts returns all ports recorded for installs.
func (s *Store) UsedPorts(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT port FROM installs ORDER BY port`)
	if err != nil {
		return nil, fmt.Errorf("querying used ports: %w", err)
	}
	defer rows.Close()

	var ports []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}

// PortOwner returns the name of the install using the given port, or empty string if free.
func (s *Store) PortOwner(ctx context.Context, port int) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM installs WHERE port=? ORDER BY name LIMIT 1`, port).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying port owner for %d: %w", port, err)
	}
	return name, nil
}

// AppendHistory records an action in the history table. A zero Timestamp is
// set to the current time.
func (s *Store) AppendHistory(ctx context.Context, entry *HistoryEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	detail, err := marshalJSON(entry.Detail)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO history (service, action, run_id, timestamp, detail) VALUES (?, ?, ?, ?, ?)`,
		entry.Service, entry.Action, nullString(entry.RunID),
		entry.Timestamp.Unix(), detail,
	)
	if err != nil {
		return fmt.Errorf("appending history: %w", err)
	}
	return nil
}

// ListHistory returns history entries for a service, newest first. An empty
// service returns the history of every service.
func (s *Store) ListHistory(ctx context.Context, service string) ([]*HistoryEntry, error) {
	query := `SELECT id, service, action, run_id, timestamp, detail FROM history`
	var args []any
	if service != "" {
		query += ` WHERE service = ? COLLATE NOCASE`
		args = append(args, service)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing history for %q: %w", service, err)
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var runID sql.NullString
		var detail sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &e.Service, &e.Action, &runID, &ts, &detail); err != nil {
			return nil, err
		}
		e.RunID = runID.String
		e.Timestamp = time.Unix(ts, 0)
		if detail.Valid && detail.String != "" {
			if err := json.Unmarshal([]byte(detail.String), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling history detail: %w", err)
			}
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInstall(row scanner) (*Install, error) {
	var in Install
	var version sql.NullString
	var installedAt, updatedAt int64

	err := row.Scan(
		&in.Name, &in.Port, &in.InstallDir, &in.RootDir, &in.Archive, &version,
		&in.RunID, &in.Status, &in.Registered, &in.EnvPath,
		&installedAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	in.Version = version.String
	in.InstalledAt = time.Unix(installedAt, 0)
	in.UpdatedAt = time.Unix(updatedAt, 0)
	return &in, nil
}

func marshalJSON(m map[string]string) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshaling JSON: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
