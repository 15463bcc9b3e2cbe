//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS resources_fts USING fts5(
			path UNINDEXED,
			kind UNINDEXED,
			name,
			type,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path, name, kind, typ string) error {
	_, _ = tx.Exec(`DELETE FROM resources_fts WHERE path = ?`, path)
	_, err := tx.Exec(`INSERT INTO resources_fts (path, kind, name, type) VALUES (?, ?, ?, ?)`,
		path, kind, name, typ)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) error {
	if _, err := tx.Exec(`DELETE FROM resources_fts WHERE path = ?`, path); err != nil {
		return fmt.Errorf("index: delete fts: %w", err)
	}
	return nil
}

// SearchKind performs an FTS5 name search ordered by rank. An empty kind
// matches every kind. total counts every hit regardless of limit and offset.
func (db *DB) SearchKind(query, kind string, limit, offset int) ([]SearchResult, int, error) {
	if limit <= 0 {
		limit = 20
	}
	const where = `resources_fts MATCH ? AND (? = '' OR kind = ?)`

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM resources_fts WHERE `+where, query, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: search count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, kind, name
		FROM resources_fts
		WHERE `+where+`
		ORDER BY rank
		LIMIT ? OFFSET ?
	`, query, kind, kind, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Path, &r.Kind, &r.Name); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
