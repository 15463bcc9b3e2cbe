package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dupegraph/internal/checksum"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
)

// Change operations reported by the watcher.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// Change is one resource change picked up by the watcher.
type Change struct {
	Op   string
	Path string
	Kind models.Kind
	Name string
}

// EventCallback is called after a watcher-driven index change.
type EventCallback func(Change)

// reconcileDelay debounces the pass that follows a rename.
const reconcileDelay = 200 * time.Millisecond

type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with resource files until ctx is cancelled.
//
// Events whose file content already matches the index are dropped: the
// finder indexes its own commits through Apply, so merges and imports do not
// come back as external changes. created and updated are decided from the
// index rather than the fsnotify op, since atomic writes always surface as
// a create.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, vaultRoot); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, root: vaultRoot, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", vaultRoot))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(fw, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					w.indexDir(ev.Name)
					continue
				}
			}

			rel, ok := w.relative(ev.Name)
			if !ok {
				continue
			}

			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				w.upsert(rel)
			case ev.Op&fsnotify.Remove != 0:
				w.remove(rel)
			case ev.Op&fsnotify.Rename != 0:
				// Rename fires on the old path only; the new path arrives
				// as a Create when it stays inside the vault.
				w.remove(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// relative maps an absolute path to a vault path when it names a resource
// file inside a kind directory.
func (w *watcher) relative(abs string) (string, bool) {
	if !parser.IsResourceFile(filepath.Base(abs)) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if _, _, err := parser.SplitPath(rel); err != nil {
		return "", false
	}
	return rel, true
}

func (w *watcher) upsert(rel string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	prev, _ := w.db.GetChecksum(rel)
	if prev == checksum.Sum(data) {
		w.logger.Debug("watcher: unchanged", slog.String("path", rel))
		return
	}
	if err := IndexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	op := OpUpdated
	if prev == "" {
		op = OpCreated
	}
	w.emit(op, rel)
}

func (w *watcher) remove(rel string) {
	if prev, _ := w.db.GetChecksum(rel); prev == "" {
		return
	}
	if err := w.db.DeleteResource(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.emit(OpDeleted, rel)
}

func (w *watcher) emit(op, rel string) {
	w.logger.Debug("watcher: "+op, slog.String("path", rel))
	if w.cb == nil {
		return
	}
	kind, name, _ := parser.SplitPath(rel)
	w.cb(Change{Op: op, Path: rel, Kind: kind, Name: name})
}

// reconcile drops index rows whose files are gone and indexes files the
// index does not know about or holds an older checksum for.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.upsert(p)
		}
	}
}

// indexDir indexes the resource files found in a newly created directory.
func (w *watcher) indexDir(dir string) {
	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.relative(p); ok {
			w.upsert(rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
