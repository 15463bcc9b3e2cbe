package index

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "dupegraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func row(path, kind, name, cs string) ResourceRow {
	return ResourceRow{Path: path, Kind: kind, Name: name, Checksum: cs, UpdatedAt: time.Now()}
}

func ref(kind models.Kind, name, slot string) parser.Reference {
	return parser.Reference{Target: models.ResourceRef{Kind: kind, Name: name}, Slot: slot}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM resources`).Scan(&count); err != nil {
		t.Fatalf("resources table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM refs`).Scan(&count); err != nil {
		t.Fatalf("refs table missing: %v", err)
	}
}

func TestUpsertAndGetChecksum(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertResource(row("materials/Wood.yaml", "MATERIAL", "Wood", "abc123"), nil); err != nil {
		t.Fatalf("UpsertResource: %v", err)
	}
	cs, err := db.GetChecksum("materials/Wood.yaml")
	if err != nil {
		t.Fatalf("GetChecksum: %v", err)
	}
	if cs != "abc123" {
		t.Errorf("checksum = %q, want %q", cs, "abc123")
	}

	r, err := db.GetResource("materials/Wood.yaml")
	if err != nil {
		t.Fatalf("GetResource: %v", err)
	}
	if r.Kind != "MATERIAL" || r.Name != "Wood" {
		t.Errorf("row = %+v", r)
	}
}

func TestFindByName(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("lights/Key.yml", "LIGHT", "Key", "1"), nil)

	r, err := db.FindByName("LIGHT", "Key")
	if err != nil {
		t.Fatalf("FindByName: %v", err)
	}
	if r.Path != "lights/Key.yml" {
		t.Errorf("path = %q", r.Path)
	}
	if _, err := db.FindByName("MATERIAL", "Key"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetResource_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetResource("materials/none.yaml")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUsers(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("materials/A.yaml", "MATERIAL", "A", "1"), []parser.Reference{ref(models.KindNodeTree, "Mix", "node:Group/node_tree")})
	_ = db.UpsertResource(row("materials/B.yaml", "MATERIAL", "B", "2"), []parser.Reference{ref(models.KindNodeTree, "Mix", "node:Group/node_tree")})
	_ = db.UpsertResource(row("materials/C.yaml", "MATERIAL", "C", "3"), []parser.Reference{ref(models.KindNodeTree, "Other", "node:Group/node_tree")})

	users, err := db.Users("NODETREE", "Mix")
	if err != nil {
		t.Fatalf("Users: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(users))
	}
	if users[0].Name != "A" || users[1].Name != "B" {
		t.Errorf("users = %+v", users)
	}
}

func TestDeleteResource(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("materials/del.yaml", "MATERIAL", "del", "x"), []parser.Reference{ref(models.KindImage, "tex", "node:Image/image")})

	if err := db.DeleteResource("materials/del.yaml"); err != nil {
		t.Fatalf("DeleteResource: %v", err)
	}
	cs, _ := db.GetChecksum("materials/del.yaml")
	if cs != "" {
		t.Errorf("deleted resource still has checksum %q", cs)
	}
	users, _ := db.Users("IMAGE", "tex")
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}
}

func TestUpsertUpdatesExisting(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("meshes/Cube.yaml", "MESH", "Cube", "1"), []parser.Reference{ref(models.KindMaterial, "Old", "material[0]")})
	_ = db.UpsertResource(row("meshes/Cube.yaml", "MESH", "Cube", "2"), []parser.Reference{ref(models.KindMaterial, "New", "material[0]")})

	cs, _ := db.GetChecksum("meshes/Cube.yaml")
	if cs != "2" {
		t.Errorf("checksum = %q, want %q", cs, "2")
	}
	if users, _ := db.Users("MATERIAL", "Old"); len(users) != 0 {
		t.Error("old reference should be removed on upsert")
	}
	if users, _ := db.Users("MATERIAL", "New"); len(users) != 1 {
		t.Error("new reference should exist")
	}
}

func TestGetChecksum_NotFound(t *testing.T) {
	db := testDB(t)
	cs, err := db.GetChecksum("nonexistent.yaml")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cs != "" {
		t.Errorf("expected empty checksum, got %q", cs)
	}
}

func TestListResources(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("materials/B.yaml", "MATERIAL", "B", "1"), nil)
	_ = db.UpsertResource(row("materials/A.yaml", "MATERIAL", "A", "2"), nil)
	_ = db.UpsertResource(row("images/tex.yaml", "IMAGE", "tex", "3"), nil)

	rows, total, err := db.ListResources("MATERIAL", 1, 0)
	if err != nil {
		t.Fatalf("ListResources: %v", err)
	}
	if total != 2 || len(rows) != 1 || rows[0].Name != "A" {
		t.Errorf("rows = %+v, total = %d", rows, total)
	}

	_, total, _ = db.ListResources("", 10, 0)
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
}

func TestSearch_Basic(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("node_groups/Marble.yaml", "NODETREE", "Marble", "1"), nil)
	_ = db.UpsertResource(row("node_groups/Wood.yaml", "NODETREE", "Wood", "2"), nil)

	results, err := db.Search("Marble", 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(results) != 1 || results[0].Path != "node_groups/Marble.yaml" {
		t.Errorf("search results = %+v, want 1 hit for Marble", results)
	}
}

func TestSync(t *testing.T) {
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	db := testDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	_ = store.Write("materials/Wood.yaml", []byte("name: Wood\nkind: MATERIAL\nrefs:\n  - slot: texture\n    target: {kind: IMAGE, name: grain}\n"))
	_ = store.Write("materials/bad.yaml", []byte("nodes: [unclosed"))
	_ = db.UpsertResource(row("materials/Gone.yaml", "MATERIAL", "Gone", "old"), nil)

	if err := Sync(db, store, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if cs, _ := db.GetChecksum("materials/Wood.yaml"); cs == "" {
		t.Error("Wood should be indexed")
	}
	if cs, _ := db.GetChecksum("materials/Gone.yaml"); cs != "" {
		t.Error("Gone should be removed")
	}
	users, _ := db.Users("IMAGE", "grain")
	if len(users) != 1 || users[0].Slot != "texture" {
		t.Errorf("users = %+v", users)
	}

	_ = store.Delete("materials/Wood.yaml")
	Apply(db, store, nil, []string{"materials/Wood.yaml"}, logger)
	if cs, _ := db.GetChecksum("materials/Wood.yaml"); cs != "" {
		t.Error("Apply should drop deleted paths")
	}
}

func TestPing(t *testing.T) {
	db := testDB(t)
	if err := db.Ping(); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	db.Close()
	if err := db.Ping(); err == nil {
		t.Error("Ping after Close should fail")
	}
}
