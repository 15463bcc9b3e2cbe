package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/parser"
)

// ResourceRow represents a row in the resources table.
type ResourceRow struct {
	Path      string
	Kind      string
	Type      string
	Name      string
	Library   string
	Checksum  string
	UpdatedAt time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path string
	Kind string
	Name string
}

// Search returns up to limit name hits across every kind.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	hits, _, err := db.SearchKind(query, "", limit, 0)
	return hits, err
}

// User is a resource holding a reference to another one.
type User struct {
	Path string
	Kind string
	Name string
	Slot string
}

// UpsertResource inserts or replaces a resource, its FTS entry, and its
// outgoing references within a transaction.
func (db *DB) UpsertResource(r ResourceRow, refs []parser.Reference) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO resources (path, kind, type, name, library, checksum, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			kind       = excluded.kind,
			type       = excluded.type,
			name       = excluded.name,
			library    = excluded.library,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, r.Path, r.Kind, r.Type, r.Name, r.Library, r.Checksum, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert resource: %w", err)
	}

	if err := ftsUpsert(tx, r.Path, r.Name, r.Kind, r.Type); err != nil {
		return err
	}

	if _, err := tx.Exec(`DELETE FROM refs WHERE source_path = ?`, r.Path); err != nil {
		return fmt.Errorf("index: clear refs: %w", err)
	}
	if len(refs) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO refs (source_path, target_kind, target_name, slot) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare ref insert: %w", err)
		}
		defer stmt.Close()
		for _, ref := range refs {
			if _, err := stmt.Exec(r.Path, string(ref.Target.Kind), ref.Target.Name, ref.Slot); err != nil {
				return fmt.Errorf("index: insert ref: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteResource removes a resource, its FTS entry, and outgoing references.
func (db *DB) DeleteResource(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := ftsDelete(tx, path); err != nil {
		return err
	}
	_, _ = tx.Exec(`DELETE FROM refs WHERE source_path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM resources WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a resource, or empty string if not found.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM resources WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// GetResource returns one indexed resource.
func (db *DB) GetResource(path string) (*ResourceRow, error) {
	var r ResourceRow
	err := db.conn.QueryRow(`
		SELECT path, kind, type, name, library, checksum, updated_at
		FROM resources WHERE path = ?
	`, path).Scan(&r.Path, &r.Kind, &r.Type, &r.Name, &r.Library, &r.Checksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get resource: %w", err)
	}
	return &r, nil
}

// FindByName returns the indexed resource of a kind with the given name.
func (db *DB) FindByName(kind, name string) (*ResourceRow, error) {
	var r ResourceRow
	err := db.conn.QueryRow(`
		SELECT path, kind, type, name, library, checksum, updated_at
		FROM resources WHERE kind = ? AND name = ?
	`, kind, name).Scan(&r.Path, &r.Kind, &r.Type, &r.Name, &r.Library, &r.Checksum, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: find resource: %w", err)
	}
	return &r, nil
}

// ListResources returns resources ordered by kind and name. An empty kind
// lists every kind. The second result is the total count before paging.
func (db *DB) ListResources(kind string, limit, offset int) ([]ResourceRow, int, error) {
	if limit <= 0 {
		limit = 100
	}

	var total int
	if err := db.conn.QueryRow(`
		SELECT count(*) FROM resources WHERE (? = '' OR kind = ?)
	`, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count resources: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, kind, type, name, library, checksum, updated_at
		FROM resources
		WHERE (? = '' OR kind = ?)
		ORDER BY kind, name
		LIMIT ? OFFSET ?
	`, kind, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list resources: %w", err)
	}
	defer rows.Close()

	var out []ResourceRow
	for rows.Next() {
		var r ResourceRow
		if err := rows.Scan(&r.Path, &r.Kind, &r.Type, &r.Name, &r.Library, &r.Checksum, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Users returns the resources referencing (kind, name), ordered by kind and name.
func (db *DB) Users(kind, name string) ([]User, error) {
	rows, err := db.conn.Query(`
		SELECT r.path, r.kind, r.name, f.slot
		FROM refs f
		JOIN resources r ON r.path = f.source_path
		WHERE f.target_kind = ? AND f.target_name = ?
		ORDER BY r.kind, r.name, f.slot
	`, kind, name)
	if err != nil {
		return nil, fmt.Errorf("index: users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Path, &u.Kind, &u.Name, &u.Slot); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// AllPaths returns every indexed resource path.
func (db *DB) AllPaths() (map[string]struct{}, error) {
	rows, err := db.conn.Query(`SELECT path FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("index: all paths: %w", err)
	}
	defer rows.Close()
	out := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out[p] = struct{}{}
	}
	return out, rows.Err()
}

// AllChecksums returns path -> checksum for every indexed resource.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM resources`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
