// Package snapshot provides optional sqlite-backed persistence of a
// session's thought tree, grounded on internal/storage/sqlite.go's
// write-through-cache-in-front-of-sqlite shape. It is off by default
// (see internal/config's Snapshot.Enabled); a host that enables it
// gets crash-recoverable {nodes, edges, cursor} state per session.
package snapshot

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"unified-thinking/internal/types"
)

// Store persists thought-tree snapshots to a sqlite database.
type Store struct {
	db *sql.DB

	stmtDeleteNodes  *sql.Stmt
	stmtDeleteEdges  *sql.Stmt
	stmtInsertNode   *sql.Stmt
	stmtInsertEdge   *sql.Stmt
	stmtUpsertCursor *sql.Stmt
	stmtSelectNodes  *sql.Stmt
	stmtSelectCursor *sql.Stmt
}

// Open creates or opens a sqlite database at path and ensures the
// snapshot schema exists.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("snapshot: database path cannot be empty")
	}

	dsn := path + "?_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: ping database: %w", err)
	}
	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: initialize schema: %w", err)
	}

	s := &Store{db: db}
	if err := s.prepareStatements(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot: prepare statements: %w", err)
	}
	return s, nil
}

func initializeSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS snapshot_nodes (
			session_id     TEXT NOT NULL,
			node_id        TEXT NOT NULL,
			parent_id      TEXT NOT NULL,
			thought_number INTEGER NOT NULL,
			text           TEXT NOT NULL,
			visit_count    INTEGER NOT NULL,
			total_value    REAL NOT NULL,
			PRIMARY KEY (session_id, node_id)
		);
		CREATE TABLE IF NOT EXISTS snapshot_edges (
			session_id    TEXT NOT NULL,
			from_node_id  TEXT NOT NULL,
			to_node_id    TEXT NOT NULL,
			PRIMARY KEY (session_id, from_node_id, to_node_id)
		);
		CREATE TABLE IF NOT EXISTS snapshot_cursor (
			session_id TEXT PRIMARY KEY,
			node_id    TEXT NOT NULL
		);
	`)
	return err
}

func (s *Store) prepareStatements() error {
	var err error
	if s.stmtDeleteNodes, err = s.db.Prepare(`DELETE FROM snapshot_nodes WHERE session_id = ?`); err != nil {
		return err
	}
	if s.stmtDeleteEdges, err = s.db.Prepare(`DELETE FROM snapshot_edges WHERE session_id = ?`); err != nil {
		return err
	}
	if s.stmtInsertNode, err = s.db.Prepare(`
		INSERT INTO snapshot_nodes (session_id, node_id, parent_id, thought_number, text, visit_count, total_value)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`); err != nil {
		return err
	}
	if s.stmtInsertEdge, err = s.db.Prepare(`
		INSERT INTO snapshot_edges (session_id, from_node_id, to_node_id) VALUES (?, ?, ?)
	`); err != nil {
		return err
	}
	if s.stmtUpsertCursor, err = s.db.Prepare(`
		INSERT INTO snapshot_cursor (session_id, node_id) VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET node_id = excluded.node_id
	`); err != nil {
		return err
	}
	if s.stmtSelectNodes, err = s.db.Prepare(`
		SELECT node_id, parent_id, thought_number, text, visit_count, total_value
		FROM snapshot_nodes WHERE session_id = ?
	`); err != nil {
		return err
	}
	if s.stmtSelectCursor, err = s.db.Prepare(`
		SELECT node_id FROM snapshot_cursor WHERE session_id = ?
	`); err != nil {
		return err
	}
	return nil
}

// Save persists nodes and the cursor for sessionID, replacing any
// prior snapshot for that session in a single transaction.
func (s *Store) Save(sessionID string, nodes []*types.Node, cursorID string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("snapshot: begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Stmt(s.stmtDeleteNodes).Exec(sessionID); err != nil {
		return fmt.Errorf("snapshot: clear nodes: %w", err)
	}
	if _, err := tx.Stmt(s.stmtDeleteEdges).Exec(sessionID); err != nil {
		return fmt.Errorf("snapshot: clear edges: %w", err)
	}

	for _, n := range nodes {
		if _, err := tx.Stmt(s.stmtInsertNode).Exec(
			sessionID, n.ID, n.ParentID, n.ThoughtNumber, n.Text, n.VisitCount, n.TotalValue,
		); err != nil {
			return fmt.Errorf("snapshot: insert node %s: %w", n.ID, err)
		}
		for _, childID := range n.Children {
			if _, err := tx.Stmt(s.stmtInsertEdge).Exec(sessionID, n.ID, childID); err != nil {
				return fmt.Errorf("snapshot: insert edge %s->%s: %w", n.ID, childID, err)
			}
		}
	}

	if cursorID != "" {
		if _, err := tx.Stmt(s.stmtUpsertCursor).Exec(sessionID, cursorID); err != nil {
			return fmt.Errorf("snapshot: upsert cursor: %w", err)
		}
	}

	return tx.Commit()
}

// Snapshot is a loaded {nodes, cursor} pair for one session.
type Snapshot struct {
	Nodes    []*types.Node
	CursorID string
}

// Load reads back the snapshot for sessionID. A session with no
// persisted snapshot returns a nil Snapshot and no error.
func (s *Store) Load(sessionID string) (*Snapshot, error) {
	rows, err := s.stmtSelectNodes.Query(sessionID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: select nodes: %w", err)
	}
	defer rows.Close()

	byID := map[string]*types.Node{}
	var order []*types.Node
	for rows.Next() {
		n := &types.Node{}
		if err := rows.Scan(&n.ID, &n.ParentID, &n.ThoughtNumber, &n.Text, &n.VisitCount, &n.TotalValue); err != nil {
			return nil, fmt.Errorf("snapshot: scan node: %w", err)
		}
		byID[n.ID] = n
		order = append(order, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: iterate nodes: %w", err)
	}
	if len(order) == 0 {
		return nil, nil
	}

	edgeRows, err := s.db.Query(`SELECT from_node_id, to_node_id FROM snapshot_edges WHERE session_id = ?`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("snapshot: select edges: %w", err)
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var from, to string
		if err := edgeRows.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("snapshot: scan edge: %w", err)
		}
		if n, ok := byID[from]; ok {
			n.Children = append(n.Children, to)
		}
	}
	if err := edgeRows.Err(); err != nil {
		return nil, fmt.Errorf("snapshot: iterate edges: %w", err)
	}

	var cursorID string
	if err := s.stmtSelectCursor.QueryRow(sessionID).Scan(&cursorID); err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("snapshot: select cursor: %w", err)
	}

	return &Snapshot{Nodes: order, CursorID: cursorID}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
