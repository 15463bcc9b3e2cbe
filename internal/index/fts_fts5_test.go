//go:build sqlite_fts5

package index

import "testing"

func TestFTS5_TableExists(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM resources_fts`).Scan(&count); err != nil {
		t.Fatalf("resources_fts table missing: %v", err)
	}
}

func TestFTS5_DeleteRemovesFromFTS(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("materials/Vanishing.yaml", "MATERIAL", "Vanishing", "g"), nil)
	_ = db.DeleteResource("materials/Vanishing.yaml")

	results, _ := db.Search("Vanishing", 10)
	for _, r := range results {
		if r.Path == "materials/Vanishing.yaml" {
			t.Error("deleted resource still in FTS index")
		}
	}
}

func TestFTS5_UpsertReplacesName(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertResource(row("materials/evo.yaml", "MATERIAL", "original", "1"), nil)
	_ = db.UpsertResource(row("materials/evo.yaml", "MATERIAL", "replacement", "2"), nil)

	results, _ := db.Search("original", 10)
	if len(results) != 0 {
		t.Error("old FTS content should be gone")
	}
	results, _ = db.Search("replacement", 10)
	if len(results) != 1 || results[0].Name != "replacement" {
		t.Errorf("FTS not updated: %+v", results)
	}
}
