package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/index"
	"github.com/starford/dupegraph/internal/storage"
)

// Workspace bundles the vault storage, its index and the finder service
// built on top of them.
type Workspace struct {
	Store   storage.Provider
	DB      *index.DB
	Service *finder.Service
}

// OpenWorkspace prepares the vault directory, opens and syncs the index and
// builds the finder service. opts are applied after the logger option.
func OpenWorkspace(cfg *Config, logger *slog.Logger, opts ...finder.Option) (*Workspace, error) {
	if err := os.MkdirAll(cfg.Vault.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	if err := index.Sync(db, store, logger); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	}

	svc := finder.NewService(store, db, append([]finder.Option{finder.WithLogger(logger)}, opts...)...)
	return &Workspace{Store: store, DB: db, Service: svc}, nil
}

// Close releases the index.
func (w *Workspace) Close() error {
	return w.DB.Close()
}
