// Package testutil provides shared test helpers for setting up vaults,
// databases and resource fixtures.
package testutil

import (
	"os"
	"testing"

	"github.com/starford/dupegraph/internal/index"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
)

// TestDB creates a temporary SQLite database that is automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "dupegraph-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteResources stores resources under their canonical vault paths.
func WriteResources(t *testing.T, store storage.Provider, resources ...*models.Resource) {
	t.Helper()
	for _, res := range resources {
		data, err := parser.Marshal(res)
		if err != nil {
			t.Fatal(err)
		}
		if err := store.Write(parser.PathFor(res.Kind, res.Name), data); err != nil {
			t.Fatal(err)
		}
	}
}

// ReadResource loads a resource back from the vault.
func ReadResource(t *testing.T, store storage.Provider, kind models.Kind, name string) *models.Resource {
	t.Helper()
	path := parser.PathFor(kind, name)
	data, err := store.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	res, err := parser.Parse(path, data)
	if err != nil {
		t.Fatal(err)
	}
	return res.Resource
}

// MathTree builds a shader node group Value -> Math -> Group Output. The
// value feeds input A; B keeps its default b.
func MathTree(name, op string, value, b float64) *models.Resource {
	return &models.Resource{
		Name: name,
		Kind: models.KindNodeTree,
		Type: "SHADER",
		Interface: []models.InterfaceItem{
			{IDName: "NodeSocketFloat", Name: "Result", InOut: "OUTPUT"},
		},
		Nodes: []models.Node{
			{
				Name:    "Value",
				Type:    "ShaderNodeValue",
				Outputs: []models.Socket{{Name: "Value", Kind: "VALUE", Value: value}},
			},
			{
				Name: "Math",
				Type: "ShaderNodeMath",
				Inputs: []models.Socket{
					{Name: "A", Kind: "VALUE", IDName: "NodeSocketFloat", Value: 0.5},
					{Name: "B", Kind: "VALUE", IDName: "NodeSocketFloat", Value: b},
				},
				Outputs:    []models.Socket{{Name: "Value", Kind: "VALUE"}},
				Properties: []models.Property{{Name: "operation", Value: op}, {Name: "use_clamp", Value: false}},
			},
			{
				Name:   "Group Output",
				Type:   "NodeGroupOutput",
				Inputs: []models.Socket{{Name: "Result", Kind: "VALUE", IDName: "NodeSocketFloat"}},
			},
		},
		Links: []models.Link{
			{FromNode: "Value", FromSocket: 0, ToNode: "Math", ToSocket: 0},
			{FromNode: "Math", FromSocket: 0, ToNode: "Group Output", ToSocket: 0},
		},
	}
}

// Material builds a node-based material whose shader references the given
// node group.
func Material(name, group string) *models.Resource {
	return &models.Resource{
		Name:     name,
		Kind:     models.KindMaterial,
		UseNodes: true,
		Nodes: []models.Node{
			{
				Name:       "Group",
				Type:       "ShaderNodeGroup",
				Outputs:    []models.Socket{{Name: "Result", Kind: "VALUE"}},
				Properties: []models.Property{{Name: "node_tree", Ref: &models.ResourceRef{Kind: models.KindNodeTree, Name: group}}},
			},
			{
				Name: "Material Output",
				Type: "ShaderNodeOutputMaterial",
				Inputs: []models.Socket{
					{Name: "Surface", Kind: "SHADER", IDName: "NodeSocketShader"},
					{Name: "Displacement", Kind: "VECTOR", IDName: "NodeSocketVector", HideValue: true},
				},
				Properties: []models.Property{{Name: "target", Value: "ALL"}},
			},
		},
		Links: []models.Link{
			{FromNode: "Group", FromSocket: 0, ToNode: "Material Output", ToSocket: 1},
		},
	}
}

// Image builds an image resource loading path.
func Image(name, path string) *models.Resource {
	return &models.Resource{
		Name:  name,
		Kind:  models.KindImage,
		Image: &models.ImageData{Filepath: path, Source: "FILE", Colorspace: "sRGB", AlphaMode: "STRAIGHT"},
	}
}

// Mesh builds a unit quad mesh with the given material slots.
func Mesh(name string, materials ...string) *models.Resource {
	return &models.Resource{
		Name: name,
		Kind: models.KindMesh,
		Mesh: &models.MeshData{
			Vertices:  [][3]float64{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			Edges:     [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}},
			Faces:     [][]int{{0, 1, 2, 3}},
			Materials: materials,
		},
	}
}

// Object builds an object using a mesh.
func Object(name, mesh string) *models.Resource {
	return &models.Resource{
		Name: name,
		Kind: models.KindObject,
		Refs: []models.Slot{{Slot: "data", Target: models.ResourceRef{Kind: models.KindMesh, Name: mesh}}},
	}
}
