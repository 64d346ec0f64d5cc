package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/dastanaron/dial/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepository implements BookmarkStore using SQLite
type SQLiteRepository struct {
	db     *sql.DB
	events *notifier

	mu          sync.Mutex
	dataVersion int64
}

// NewSQLiteRepository creates a new SQLite repository
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	if err := seedRoots(db); err != nil {
		db.Close()
		return nil, err
	}

	r := &SQLiteRepository{db: db, events: newNotifier()}
	if r.dataVersion, err = readDataVersion(context.Background(), db); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}

func readDataVersion(ctx context.Context, db *sql.DB) (int64, error) {
	var v int64
	err := db.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&v)
	return v, err
}

// CheckExternalChanges reports whether another connection, usually another
// process, committed since the last check. A change is announced to
// subscribers the way the end of a bulk import is.
func (r *SQLiteRepository) CheckExternalChanges(ctx context.Context) (bool, error) {
	v, err := readDataVersion(ctx, r.db)
	if err != nil {
		return false, fmt.Errorf("failed to read data version: %w", err)
	}
	r.mu.Lock()
	changed := v != r.dataVersion
	r.dataVersion = v
	r.mu.Unlock()

	if changed {
		r.events.emit(models.Event{Kind: models.EventImportEnded})
	}
	return changed, nil
}

func initSchema(db *sql.DB) error {
	createTables := `
	CREATE TABLE IF NOT EXISTS nodes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		parent_id INTEGER,
		title TEXT NOT NULL DEFAULT '',
		url TEXT NOT NULL DEFAULT '',
		position INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY(parent_id) REFERENCES nodes(id)
	);

	CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id, position);
	`
	if _, err := db.Exec(createTables); err != nil {
		return err
	}

	// Migration: add date_added column if it doesn't exist
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('nodes') WHERE name = 'date_added'
	`).Scan(&count)
	if err != nil {
		return err
	}
	if count == 0 {
		if _, err := db.Exec(`ALTER TABLE nodes ADD COLUMN date_added INTEGER`); err != nil {
			return err
		}
	}
	return nil
}

// seedRoots creates the two permanent top-level folders of an empty store.
func seedRoots(db *sql.DB) error {
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO nodes(id, parent_id, title, url, position, date_added) VALUES
			(1, NULL, 'Bookmarks Bar', '', 0, ?),
			(2, NULL, 'Other Bookmarks', '', 1, ?)
	`, now, now)
	return err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Subscribe registers fn for change notifications
func (r *SQLiteRepository) Subscribe(fn func(models.Event)) func() {
	return r.events.subscribe(fn)
}

// BeginImport announces the start of a bulk import
func (r *SQLiteRepository) BeginImport() {
	r.events.emit(models.Event{Kind: models.EventImportBegan})
}

// EndImport announces the end of a bulk import
func (r *SQLiteRepository) EndImport() {
	r.events.emit(models.Event{Kind: models.EventImportEnded})
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

const nodeColumns = `id, parent_id, title, url, position, date_added`

func scanNode(s scanner) (models.TreeNode, error) {
	var (
		n         models.TreeNode
		id        int64
		parentID  sql.NullInt64
		dateAdded sql.NullInt64
	)
	if err := s.Scan(&id, &parentID, &n.Title, &n.URL, &n.Index, &dateAdded); err != nil {
		return n, err
	}
	n.ID = formatID(id)
	if parentID.Valid {
		n.ParentID = formatID(parentID.Int64)
	}
	if dateAdded.Valid {
		n.DateAdded = time.UnixMilli(dateAdded.Int64)
	}
	return n, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return n, nil
}

func getNode(ctx context.Context, q querier, id string) (models.TreeNode, error) {
	nid, err := parseID(id)
	if err != nil {
		return models.TreeNode{}, err
	}
	n, err := scanNode(q.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, nid))
	if err == sql.ErrNoRows {
		return models.TreeNode{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n, err
}

func listChildren(ctx context.Context, q querier, parent any) ([]models.TreeNode, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id IS ? ORDER BY position, id`, parent)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	children := make([]models.TreeNode, 0)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, n)
	}
	return children, rows.Err()
}

func countChildren(ctx context.Context, q querier, parent any, except int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM nodes WHERE parent_id IS ? AND id <> ?`, parent, except).Scan(&count)
	return count, err
}

func clampIndex(index *int, count int) int {
	if index == nil || *index > count {
		return count
	}
	if *index < 0 {
		return 0
	}
	return *index
}

// GetChildren returns the direct children of id, ordered by position
func (r *SQLiteRepository) GetChildren(ctx context.Context, id string) ([]models.TreeNode, error) {
	if id == models.RootID {
		return listChildren(ctx, r.db, nil)
	}
	n, err := getNode(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	if !n.IsFolder() {
		return make([]models.TreeNode, 0), nil
	}
	nid, _ := parseID(id)
	return listChildren(ctx, r.db, nid)
}

// Get returns a single node without children
func (r *SQLiteRepository) Get(ctx context.Context, id string) (models.TreeNode, error) {
	if id == models.RootID {
		return models.TreeNode{ID: models.RootID}, nil
	}
	return getNode(ctx, r.db, id)
}

// GetTree returns the whole tree under the invisible super-root
func (r *SQLiteRepository) GetTree(ctx context.Context) (models.TreeNode, error) {
	byParent, err := r.loadAll(ctx)
	if err != nil {
		return models.TreeNode{}, err
	}
	root := models.TreeNode{ID: models.RootID}
	root.Children = assemble(byParent, "")
	return root, nil
}

// GetSubTree returns id with all of its descendants
func (r *SQLiteRepository) GetSubTree(ctx context.Context, id string) (models.TreeNode, error) {
	if id == models.RootID {
		return r.GetTree(ctx)
	}
	n, err := getNode(ctx, r.db, id)
	if err != nil {
		return models.TreeNode{}, err
	}
	if !n.IsFolder() {
		return n, nil
	}
	byParent, err := r.loadAll(ctx)
	if err != nil {
		return models.TreeNode{}, err
	}
	n.Children = assemble(byParent, n.ID)
	return n, nil
}

func (r *SQLiteRepository) loadAll(ctx context.Context) (map[string][]models.TreeNode, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes ORDER BY parent_id, position, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byParent := make(map[string][]models.TreeNode)
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		byParent[n.ParentID] = append(byParent[n.ParentID], n)
	}
	return byParent, rows.Err()
}

// assemble builds the children of parentID; folders always get a non-nil
// child slice so callers can tell "loaded, empty" from "not loaded".
func assemble(byParent map[string][]models.TreeNode, parentID string) []models.TreeNode {
	children := make([]models.TreeNode, 0, len(byParent[parentID]))
	for _, child := range byParent[parentID] {
		if child.IsFolder() {
			child.Children = assemble(byParent, child.ID)
		}
		children = append(children, child)
	}
	return children
}

// Create inserts a bookmark or folder under an existing folder
func (r *SQLiteRepository) Create(ctx context.Context, d models.CreateDetails) (models.TreeNode, error) {
	if d.ParentID == "" || d.ParentID == models.RootID {
		return models.TreeNode{}, ErrPermission
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TreeNode{}, err
	}
	defer tx.Rollback()

	parent, err := getNode(ctx, tx, d.ParentID)
	if err != nil {
		return models.TreeNode{}, err
	}
	if !parent.IsFolder() {
		return models.TreeNode{}, ErrNotFolder
	}
	pid, _ := parseID(parent.ID)

	count, err := countChildren(ctx, tx, pid, 0)
	if err != nil {
		return models.TreeNode{}, err
	}
	index := clampIndex(d.Index, count)

	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET position = position + 1 WHERE parent_id = ? AND position >= ?`,
		pid, index); err != nil {
		return models.TreeNode{}, err
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO nodes(parent_id, title, url, position, date_added) VALUES (?, ?, ?, ?, ?)`,
		pid, d.Title, d.URL, index, time.Now().UnixMilli())
	if err != nil {
		return models.TreeNode{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.TreeNode{}, err
	}
	created, err := getNode(ctx, tx, formatID(id))
	if err != nil {
		return models.TreeNode{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.TreeNode{}, err
	}

	r.events.emit(models.Event{Kind: models.EventCreated, ID: created.ID, Node: created})
	return created, nil
}

// Update changes the title or URL of a node
func (r *SQLiteRepository) Update(ctx context.Context, id string, c models.Changes) (models.TreeNode, error) {
	n, err := getNode(ctx, r.db, id)
	if err != nil {
		return models.TreeNode{}, err
	}
	if n.ParentID == "" {
		return models.TreeNode{}, ErrPermission
	}
	if c.URL != nil && n.IsFolder() {
		return models.TreeNode{}, ErrNotBookmark
	}
	if c.Title != nil {
		n.Title = *c.Title
	}
	if c.URL != nil {
		if *c.URL == "" {
			return models.TreeNode{}, ErrNotBookmark
		}
		n.URL = *c.URL
	}
	nid, _ := parseID(id)
	if _, err := r.db.ExecContext(ctx,
		`UPDATE nodes SET title = ?, url = ? WHERE id = ?`, n.Title, n.URL, nid); err != nil {
		return models.TreeNode{}, err
	}

	r.events.emit(models.Event{Kind: models.EventChanged, ID: id, Changes: c})
	return n, nil
}

// Move relocates a node; see BookmarkWriter.Move for index semantics
func (r *SQLiteRepository) Move(ctx context.Context, id string, dest models.Destination) (models.TreeNode, error) {
	if dest.ParentID == "" || dest.ParentID == models.RootID {
		return models.TreeNode{}, ErrPermission
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.TreeNode{}, err
	}
	defer tx.Rollback()

	n, err := getNode(ctx, tx, id)
	if err != nil {
		return models.TreeNode{}, err
	}
	if n.ParentID == "" {
		return models.TreeNode{}, ErrPermission
	}
	parent, err := getNode(ctx, tx, dest.ParentID)
	if err != nil {
		return models.TreeNode{}, err
	}
	if !parent.IsFolder() {
		return models.TreeNode{}, ErrNotFolder
	}
	if n.IsFolder() {
		if err := checkNotDescendant(ctx, tx, n.ID, parent); err != nil {
			return models.TreeNode{}, err
		}
	}

	nid, _ := parseID(n.ID)
	oldPID, _ := parseID(n.ParentID)
	newPID, _ := parseID(parent.ID)

	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET position = position - 1 WHERE parent_id = ? AND position > ? AND id <> ?`,
		oldPID, n.Index, nid); err != nil {
		return models.TreeNode{}, err
	}
	count, err := countChildren(ctx, tx, newPID, nid)
	if err != nil {
		return models.TreeNode{}, err
	}
	index := clampIndex(dest.Index, count)
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET position = position + 1 WHERE parent_id = ? AND position >= ? AND id <> ?`,
		newPID, index, nid); err != nil {
		return models.TreeNode{}, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET parent_id = ?, position = ? WHERE id = ?`, newPID, index, nid); err != nil {
		return models.TreeNode{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.TreeNode{}, err
	}

	info := models.MoveInfo{
		ParentID:    parent.ID,
		OldParentID: n.ParentID,
		Index:       index,
		OldIndex:    n.Index,
	}
	n.ParentID = parent.ID
	n.Index = index
	r.events.emit(models.Event{Kind: models.EventMoved, ID: n.ID, Move: info})
	return n, nil
}

// checkNotDescendant walks up from dest and fails if it meets folderID.
func checkNotDescendant(ctx context.Context, q querier, folderID string, dest models.TreeNode) error {
	current := dest
	for {
		if current.ID == folderID {
			return ErrInvalidMove
		}
		if current.ParentID == "" {
			return nil
		}
		next, err := getNode(ctx, q, current.ParentID)
		if err != nil {
			return err
		}
		current = next
	}
}

// Remove deletes a bookmark or an empty folder
func (r *SQLiteRepository) Remove(ctx context.Context, id string) error {
	return r.remove(ctx, id, false)
}

// RemoveTree deletes a node and everything below it
func (r *SQLiteRepository) RemoveTree(ctx context.Context, id string) error {
	return r.remove(ctx, id, true)
}

func (r *SQLiteRepository) remove(ctx context.Context, id string, recursive bool) error {
	var snapshot models.TreeNode
	n, err := getNode(ctx, r.db, id)
	if err != nil {
		return err
	}
	if n.ParentID == "" {
		return ErrPermission
	}
	snapshot = n
	if n.IsFolder() {
		if snapshot, err = r.GetSubTree(ctx, id); err != nil {
			return err
		}
		if len(snapshot.Children) > 0 && !recursive {
			return ErrFolderNotEmpty
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := subtreeIDs(snapshot)
	for _, sid := range ids {
		nid, _ := parseID(sid)
		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, nid); err != nil {
			return err
		}
	}
	pid, _ := parseID(n.ParentID)
	if _, err := tx.ExecContext(ctx,
		`UPDATE nodes SET position = position - 1 WHERE parent_id = ? AND position > ?`,
		pid, n.Index); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	r.events.emit(models.Event{
		Kind:   models.EventRemoved,
		ID:     id,
		Remove: models.RemoveInfo{ParentID: n.ParentID, Index: n.Index, Node: snapshot},
	})
	return nil
}

// subtreeIDs lists a snapshot's ids, deepest first.
func subtreeIDs(root models.TreeNode) []string {
	var order []string
	queue := []models.TreeNode{root}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n.ID)
		queue = append(queue, n.Children...)
	}
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}

// IsNotFound reports whether err means a node id is unknown to the store
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
