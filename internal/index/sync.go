package index

import (
	"log/slog"
	"time"

	"github.com/starford/dupegraph/internal/checksum"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteResource(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// Apply resyncs the given written and deleted paths after the vault was
// changed in place, without walking the whole vault.
func Apply(db *DB, store storage.Provider, written, deleted []string, logger *slog.Logger) {
	for _, p := range written {
		data, err := store.Read(p)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if err := IndexFile(db, p, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
	for _, p := range deleted {
		if err := db.DeleteResource(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
		}
	}
}

// IndexFile parses data and upserts it into the DB.
func IndexFile(db *DB, path string, data []byte) error {
	res, err := parser.Parse(path, data)
	if err != nil {
		return err
	}
	r := res.Resource
	row := ResourceRow{
		Path:      path,
		Kind:      string(r.Kind),
		Type:      r.Type,
		Name:      r.Name,
		Library:   r.Library,
		Checksum:  checksum.Sum(data),
		UpdatedAt: time.Now(),
	}
	return db.UpsertResource(row, res.Refs)
}
