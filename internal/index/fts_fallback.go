//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; name search uses LIKE on the resources table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error {
	// Names are already stored in the resources table; nothing extra to do.
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) error { return nil }

// SearchKind performs a LIKE-based name search (fallback when FTS5 is not
// compiled in). An empty kind matches every kind. total counts every hit
// regardless of limit and offset.
func (db *DB) SearchKind(query, kind string, limit, offset int) ([]SearchResult, int, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	const where = `(name LIKE ? OR type LIKE ?) AND (? = '' OR kind = ?)`

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM resources WHERE `+where, like, like, kind, kind).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: search count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT path, kind, name
		FROM resources
		WHERE `+where+`
		ORDER BY kind, name
		LIMIT ? OFFSET ?
	`, like, like, kind, kind, limit, offset)
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
