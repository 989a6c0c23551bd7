package controlplane

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"       // sqlite3 driver for single-node deployments
	_ "github.com/rqlite/gorqlite/stdlib" // rqlite driver
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/statehead/pkg/errors"
	"github.com/DeBrosOfficial/statehead/pkg/logging"
	"github.com/DeBrosOfficial/statehead/pkg/state"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS cluster_nodes (
		node_id        TEXT PRIMARY KEY,
		node_ip        TEXT NOT NULL,
		hostname       TEXT NOT NULL DEFAULT '',
		primary_port   INTEGER NOT NULL DEFAULT 0,
		sidecar_port   INTEGER NOT NULL DEFAULT 0,
		state          TEXT NOT NULL DEFAULT 'ALIVE',
		last_heartbeat INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS cluster_records (
		kind TEXT NOT NULL,
		id   TEXT NOT NULL,
		body TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	)`,
}

// SQL is a control plane backed by a database/sql handle: rqlite in a real
// cluster, sqlite3 for a single node.
type SQL struct {
	db     *sql.DB
	source string
	logger *logging.ColoredLogger
}

// OpenRQLite connects to an rqlite cluster and bootstraps the schema.
func OpenRQLite(ctx context.Context, dsn string, logger *logging.ColoredLogger) (*SQL, error) {
	db, err := sql.Open("rqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open rqlite sql db: %w", err)
	}

	// Configure connection pool with proper timeouts and limits
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	return open(ctx, db, "rqlite "+dsn, logger)
}

// OpenSQLite opens (or creates) a local sqlite3 database file.
func OpenSQLite(ctx context.Context, path string, logger *logging.ColoredLogger) (*SQL, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return open(ctx, db, "sqlite "+path, logger)
}

func open(ctx context.Context, db *sql.DB, source string, logger *logging.ColoredLogger) (*SQL, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &SQL{db: db, source: source, logger: logger}
	if err := s.bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	logger.ComponentInfo(logging.ComponentControlPlane, "Control plane ready", zap.String("source", source))
	return s, nil
}

func (s *SQL) bootstrap(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return s.unavailable(fmt.Errorf("bootstrap schema: %w", err))
		}
	}
	return nil
}

func (s *SQL) unavailable(err error) error {
	if errors.IsCancelled(err) {
		return err
	}
	return errors.NewDataSourceUnavailableError(s.source, "", err)
}

// ListNodes returns every node row, sorted by id.
func (s *SQL) ListNodes(ctx context.Context) ([]state.NodeRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT node_id, node_ip, hostname, primary_port, sidecar_port, state, last_heartbeat
		   FROM cluster_nodes ORDER BY node_id`)
	if err != nil {
		return nil, s.unavailable(err)
	}
	defer rows.Close()

	var out []state.NodeRecord
	for rows.Next() {
		var (
			n  state.NodeRecord
			id string
			hb int64
		)
		if err := rows.Scan(&id, &n.NodeIP, &n.Hostname, &n.PrimaryPort, &n.SidecarPort, &n.State, &hb); err != nil {
			return nil, s.unavailable(fmt.Errorf("scan node row: %w", err))
		}
		n.NodeID = state.NodeID(id)
		if hb > 0 {
			n.LastHeartbeat = time.Unix(hb, 0)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable(err)
	}
	return out, nil
}

// ListRecords returns every record of a kind, sorted by id.
func (s *SQL) ListRecords(ctx context.Context, kind state.Kind) ([]state.Record, error) {
	if err := checkKind(kind, false); err != nil {
		return nil, err
	}
	if kind == state.KindNodes {
		nodes, err := s.ListNodes(ctx)
		if err != nil {
			return nil, err
		}
		return nodeRecords(nodes), nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, body FROM cluster_records WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, s.unavailable(err)
	}
	defer rows.Close()

	var out []state.Record
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, s.unavailable(fmt.Errorf("scan %s row: %w", kind, err))
		}
		var rec state.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			s.logger.ComponentWarn(logging.ComponentControlPlane, "Skipping malformed record",
				zap.String("kind", string(kind)),
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, s.unavailable(err)
	}
	return out, nil
}

// GetRecord returns one record or a NotFoundError.
func (s *SQL) GetRecord(ctx context.Context, kind state.Kind, id string) (state.Record, error) {
	if err := checkKind(kind, false); err != nil {
		return nil, err
	}
	if kind == state.KindNodes {
		nodes, err := s.ListNodes(ctx)
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			if string(n.NodeID) == id {
				return n.Record(), nil
			}
		}
		return nil, errors.NewNotFoundError("node", id)
	}

	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM cluster_records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(string(kind), id)
	}
	if err != nil {
		return nil, s.unavailable(err)
	}
	var rec state.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, errors.Wrapf(err, "decode %s %s", kind, id)
	}
	return rec, nil
}

// UpsertNode inserts or replaces a node row.
func (s *SQL) UpsertNode(ctx context.Context, n state.NodeRecord) error {
	if n.NodeID == "" {
		return errors.NewValidationError("node_id", "must not be empty", nil)
	}
	st := n.State
	if st == "" {
		st = state.NodeAlive
	}
	var hb int64
	if !n.LastHeartbeat.IsZero() {
		hb = n.LastHeartbeat.Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cluster_nodes
		   (node_id, node_ip, hostname, primary_port, sidecar_port, state, last_heartbeat)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		string(n.NodeID), n.NodeIP, n.Hostname, n.PrimaryPort, n.SidecarPort, st, hb)
	if err != nil {
		return s.unavailable(err)
	}
	return nil
}

// PutRecord inserts or replaces a record.
func (s *SQL) PutRecord(ctx context.Context, kind state.Kind, rec state.Record) error {
	if err := checkKind(kind, true); err != nil {
		return err
	}
	id, err := recordID(kind, rec)
	if err != nil {
		return err
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(err, "encode %s %s", kind, id)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cluster_records (kind, id, body) VALUES (?, ?, ?)`,
		string(kind), id, string(body)); err != nil {
		return s.unavailable(err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}
