package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"graphy/internal/graph"
)

// ServicesCollection prefixes service keys in edge records.
const ServicesCollection = "Services"

// ErrGraphNotFound is returned when no snapshot matches a lookup.
var ErrGraphNotFound = errors.New("graph not found")

// snapshotNamespace scopes the deterministic snapshot ids.
var snapshotNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("graphy/graphs"))

// EdgeRecord is one persisted edge in the external edge-list format: endpoints are
// "collection/key" identifiers and Links holds the weight.
type EdgeRecord struct {
	From  string `json:"_from"`
	To    string `json:"_to"`
	Links *int64 `json:"links,omitempty"`
}

// GraphInfo describes a stored snapshot.
type GraphInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Start int64  `json:"start"`
	End   int64  `json:"end"`
	Edges int    `json:"edges"`
}

// SnapshotID returns the deterministic id of a snapshot within a collection.
func SnapshotID(collection, name string) string {
	return uuid.NewSHA1(snapshotNamespace, []byte(collection+"/"+name)).String()
}

// InsertGraph stores the edges of the [start, end) snapshot in collection, replacing any snapshot
// already stored for the same window.
func (db *DB) InsertGraph(ctx context.Context, collection string, start, end int64, edges []graph.Edge) error {
	name := graph.SnapshotName(start, end)
	id := SnapshotID(collection, name)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO graphs (id, collection, name, start_ts, end_ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, name) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`,
		id, collection, name, start, end); err != nil {
		return fmt.Errorf("failed to upsert graph %s: %w", name, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM graph_edges WHERE graph_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear edges of graph %s: %w", name, err)
	}

	for i, e := range edges {
		for _, svc := range []string{e.From, e.To} {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO services (name) VALUES (?)`, svc); err != nil {
				return fmt.Errorf("failed to insert service %s: %w", svc, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO graph_edges (graph_id, position, from_service, to_service, links)
			VALUES (?, ?, ?, ?, ?)`,
			id, i, e.From, e.To, e.Weight); err != nil {
			return fmt.Errorf("failed to insert edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit graph %s: %w", name, err)
	}
	return nil
}

// GetGraphEdges returns the edges of a stored snapshot in insertion order.
func (db *DB) GetGraphEdges(ctx context.Context, collection, name string) ([]EdgeRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT e.from_service, e.to_service, e.links
		FROM graph_edges e
		JOIN graphs g ON g.id = e.graph_id
		WHERE g.collection = ? AND g.name = ?
		ORDER BY e.position`,
		collection, name)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges of graph %s: %w", name, err)
	}
	defer rows.Close()

	records := make([]EdgeRecord, 0)
	for rows.Next() {
		var from, to string
		var links int64
		if err := rows.Scan(&from, &to, &links); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		records = append(records, EdgeRecord{
			From:  ServicesCollection + "/" + from,
			To:    ServicesCollection + "/" + to,
			Links: &links,
		})
	}
	return records, rows.Err()
}

// LatestGraph returns the stored snapshot of collection with the greatest end not after before.
func (db *DB) LatestGraph(ctx context.Context, collection string, before int64) (*GraphInfo, error) {
	row := db.QueryRowContext(ctx, `
		SELECT g.id, g.name, g.start_ts, g.end_ts,
			(SELECT COUNT(*) FROM graph_edges e WHERE e.graph_id = g.id)
		FROM graphs g
		WHERE g.collection = ? AND g.end_ts <= ?
		ORDER BY g.end_ts DESC, g.start_ts DESC
		LIMIT 1`,
		collection, before)

	var info GraphInfo
	if err := row.Scan(&info.ID, &info.Name, &info.Start, &info.End, &info.Edges); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGraphNotFound
		}
		return nil, fmt.Errorf("failed to query latest graph: %w", err)
	}
	return &info, nil
}

// ListGraphs returns the snapshots of a collection ordered by window.
func (db *DB) ListGraphs(ctx context.Context, collection string) ([]GraphInfo, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT g.id, g.name, g.start_ts, g.end_ts,
			(SELECT COUNT(*) FROM graph_edges e WHERE e.graph_id = g.id)
		FROM graphs g
		WHERE g.collection = ?
		ORDER BY g.start_ts, g.end_ts`,
		collection)
	if err != nil {
		return nil, fmt.Errorf("failed to list graphs: %w", err)
	}
	defer rows.Close()

	graphs := make([]GraphInfo, 0)
	for rows.Next() {
		var info GraphInfo
		if err := rows.Scan(&info.ID, &info.Name, &info.Start, &info.End, &info.Edges); err != nil {
			return nil, fmt.Errorf("failed to scan graph: %w", err)
		}
		graphs = append(graphs, info)
	}
	return graphs, rows.Err()
}

// Services returns every service name seen in a stored edge.
func (db *DB) Services(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM services ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan service: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
