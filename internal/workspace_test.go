package internal

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/testutil"
)

func TestOpenWorkspace_SyncsVault(t *testing.T) {
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.SQLite.Path = filepath.Join(dir, "index.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ws, err := OpenWorkspace(cfg, logger)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	testutil.WriteResources(t, ws.Store,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
	)
	if err := ws.Close(); err != nil {
		t.Fatal(err)
	}

	ws, err = OpenWorkspace(cfg, logger, finder.WithReporter(finder.WriterReporter{W: io.Discard}))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ws.Close()

	items, total, err := ws.Service.ListResources(context.Background(), models.KindNodeTree, "", 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 2 || len(items) != 2 {
		t.Fatalf("indexed %d resources, want 2", total)
	}

	rs, err := ws.Service.FindSimilar(context.Background(), models.KindNodeTree, cfg.Similar)
	if err != nil {
		t.Fatal(err)
	}
	if rs.Empty() || len(rs.Duplicates) != 1 {
		t.Errorf("duplicates = %+v", rs.Duplicates)
	}
}
