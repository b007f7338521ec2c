package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// Database handles SQLite persistence for statistics and the request log.
type Database struct {
	db     *sql.DB
	mu     sync.RWMutex
	logger *slog.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS stats (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    start_time TIMESTAMP NOT NULL,
    total_requests INTEGER NOT NULL DEFAULT 0,
    forwarded_requests INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ip_counts (
    ip TEXT PRIMARY KEY CHECK(length(ip) <= 45 AND length(ip) > 0),
    count INTEGER NOT NULL DEFAULT 1 CHECK(count > 0),
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_ip_count ON ip_counts(count DESC);

CREATE TABLE IF NOT EXISTS host_counts (
    host TEXT PRIMARY KEY CHECK(length(host) <= 255 AND length(host) > 0),
    count INTEGER NOT NULL DEFAULT 1 CHECK(count > 0),
    first_seen TIMESTAMP NOT NULL,
    last_seen TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_host_count ON host_counts(count DESC);

CREATE TABLE IF NOT EXISTS request_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    ip TEXT NOT NULL CHECK(length(ip) <= 45 AND length(ip) > 0),
    host TEXT CHECK(length(host) <= 255),
    proto TEXT CHECK(length(proto) <= 32),
    hops INTEGER NOT NULL DEFAULT 0,
    forwarded TEXT CHECK(length(forwarded) <= 8192),
    path TEXT CHECK(length(path) <= 2048),
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_request_timestamp ON request_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_request_ip ON request_log(ip);
`

// NewDatabase opens the SQLite database at dbPath and creates the schema.
//
// Parameters:
//   - dbPath: path to the SQLite database file
//   - logger: structured logger instance
//
// Returns a new Database instance or an error if initialization fails.
func NewDatabase(dbPath string, logger *slog.Logger) (*Database, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	_, err = db.Exec(`
		INSERT OR IGNORE INTO stats (id, start_time, total_requests, forwarded_requests)
		VALUES (1, ?, 0, 0)
	`, time.Now())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize stats: %w", err)
	}

	logger.Debug("Database initialized", "path", dbPath)

	return &Database{
		db:     db,
		logger: logger,
	}, nil
}

// Column limits matching the CHECK constraints of the schema.
const (
	maxIPLength        = 45
	maxHostLength      = 255
	maxProtoLength     = 32
	maxForwardedLength = 8192
	maxPathLength      = 2048
)

// truncate cuts s to at most n bytes without splitting a multi-byte rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// RecordRequest stores one request and updates the aggregate counters in a
// single transaction. Oversized values are truncated to fit the schema.
func (d *Database) RecordRequest(ctx context.Context, req RequestInfo) error {
	if req.IP == "" {
		req.IP = "unknown"
	}
	req.IP = truncate(req.IP, maxIPLength)
	req.Host = truncate(req.Host, maxHostLength)
	req.Proto = truncate(req.Proto, maxProtoLength)
	req.Forwarded = truncate(req.Forwarded, maxForwardedLength)
	req.Path = truncate(req.Path, maxPathLength)

	d.mu.Lock()
	defer d.mu.Unlock()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO request_log (ip, host, proto, hops, forwarded, path, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, req.IP, req.Host, req.Proto, req.Hops, req.Forwarded, req.Path, req.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to insert request log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO ip_counts (ip, count, first_seen, last_seen)
		VALUES (?, 1, ?, ?)
		ON CONFLICT(ip) DO UPDATE SET
			count = count + 1,
			last_seen = excluded.last_seen
	`, req.IP, req.Timestamp, req.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to update IP count: %w", err)
	}

	if req.Host != "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO host_counts (host, count, first_seen, last_seen)
			VALUES (?, 1, ?, ?)
			ON CONFLICT(host) DO UPDATE SET
				count = count + 1,
				last_seen = excluded.last_seen
		`, req.Host, req.Timestamp, req.Timestamp)
		if err != nil {
			return fmt.Errorf("failed to update host count: %w", err)
		}
	}

	forwardedInc := 0
	if req.Hops > 0 {
		forwardedInc = 1
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE stats
		SET total_requests = total_requests + 1,
		    forwarded_requests = forwarded_requests + ?,
		    updated_at = ?
		WHERE id = 1
	`, forwardedInc, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update totals: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetSummary returns the aggregate counters.
func (d *Database) GetSummary(ctx context.Context) (Summary, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var summary Summary
	var startTime time.Time
	err := d.db.QueryRowContext(ctx, `
		SELECT start_time, total_requests, forwarded_requests,
		       (SELECT COUNT(*) FROM ip_counts),
		       (SELECT COUNT(*) FROM host_counts)
		FROM stats
		WHERE id = 1
	`).Scan(&startTime, &summary.TotalRequests, &summary.ForwardedRequests, &summary.UniqueIPs, &summary.UniqueHosts)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to query stats: %w", err)
	}
	summary.Uptime = time.Since(startTime)
	return summary, nil
}

// GetRecentRequests retrieves the most recent requests, newest first.
func (d *Database) GetRecentRequests(ctx context.Context, limit int) ([]RequestInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, `
		SELECT ip, host, proto, hops, forwarded, path, timestamp
		FROM request_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent requests: %w", err)
	}
	defer rows.Close()

	var requests []RequestInfo
	for rows.Next() {
		var req RequestInfo
		var host, proto, fwd, path sql.NullString
		if err := rows.Scan(&req.IP, &host, &proto, &req.Hops, &fwd, &path, &req.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan request: %w", err)
		}
		req.Host, req.Proto, req.Forwarded, req.Path = host.String, proto.String, fwd.String, path.String
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// GetTopIPs retrieves the client IPs with the most requests.
func (d *Database) GetTopIPs(ctx context.Context, limit int) ([]CountEntry, error) {
	return d.topCounts(ctx, `SELECT ip, count FROM ip_counts ORDER BY count DESC, ip LIMIT ?`, limit)
}

// GetTopHosts retrieves the original hosts with the most requests.
func (d *Database) GetTopHosts(ctx context.Context, limit int) ([]CountEntry, error) {
	return d.topCounts(ctx, `SELECT host, count FROM host_counts ORDER BY count DESC, host LIMIT ?`, limit)
}

func (d *Database) topCounts(ctx context.Context, query string, limit int) ([]CountEntry, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	rows, err := d.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query counts: %w", err)
	}
	defer rows.Close()

	var result []CountEntry
	for rows.Next() {
		var entry CountEntry
		if err := rows.Scan(&entry.Label, &entry.Count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		result = append(result, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return result, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
