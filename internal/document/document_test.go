package document_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/document"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
	"github.com/starford/dupegraph/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLoad(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Blend", "ADD", 1, 0.5),
		testutil.Image("wood", "//textures/wood.png"),
	)
	require.NoError(t, store.Write("materials/broken.yaml", []byte("nodes: [unclosed")))

	doc, err := document.Load(store, discard)
	require.NoError(t, err)

	assert.Equal(t, []string{"Blend", "Mix"}, doc.Names(models.KindNodeTree))
	assert.Empty(t, doc.Names(models.KindMaterial))
	assert.NotEmpty(t, doc.Digest())

	img, ok := doc.LookupImage("wood")
	require.True(t, ok)
	assert.Equal(t, "//textures/wood.png", img.Filepath)
	_, ok = doc.LookupImage("missing")
	assert.False(t, ok)
}

func TestLoad_DigestTracksContent(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store, testutil.MathTree("Mix", "ADD", 1, 0.5))

	a, err := document.Load(store, discard)
	require.NoError(t, err)
	b, err := document.Load(store, discard)
	require.NoError(t, err)
	assert.Equal(t, a.Digest(), b.Digest())

	testutil.WriteResources(t, store, testutil.MathTree("Mix", "SUBTRACT", 1, 0.5))
	c, err := document.Load(store, discard)
	require.NoError(t, err)
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestRemapAndCommit(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
		testutil.Material("Wood", "Mix.001"),
		testutil.Material("Stone", "Mix"),
	)

	doc, err := document.Load(store, discard)
	require.NoError(t, err)

	require.NoError(t, doc.Remap(models.KindNodeTree, "Mix.001", "Mix"))
	require.NoError(t, doc.RemoveBatch(models.KindNodeTree, []string{"Mix.001"}))
	assert.True(t, doc.Dirty())
	assert.False(t, doc.Exists(models.KindNodeTree, "Mix.001"))

	ch, err := doc.Commit()
	require.NoError(t, err)
	assert.Equal(t, []string{parser.PathFor(models.KindMaterial, "Wood")}, ch.Written)
	assert.Equal(t, []string{parser.PathFor(models.KindNodeTree, "Mix.001")}, ch.Deleted)
	assert.False(t, doc.Dirty())

	wood := testutil.ReadResource(t, store, models.KindMaterial, "Wood")
	assert.Equal(t, "Mix", wood.Nodes[0].Properties[0].Ref.Name)

	ok, err := store.Exists(parser.PathFor(models.KindNodeTree, "Mix.001"))
	require.NoError(t, err)
	assert.False(t, ok)
}

type failingStore struct {
	storage.Provider
	failWrite string
}

func (f failingStore) Write(p string, content []byte) error {
	if p == f.failWrite {
		return errors.New("disk full")
	}
	return f.Provider.Write(p, content)
}

func TestCommit_RestoresOnFailure(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
		testutil.Material("Wood", "Mix.001"),
		testutil.Material("Zebra", "Mix.001"),
	)
	woodPath := parser.PathFor(models.KindMaterial, "Wood")
	before, err := store.Read(woodPath)
	require.NoError(t, err)

	doc, err := document.Load(failingStore{Provider: store, failWrite: parser.PathFor(models.KindMaterial, "Zebra")}, discard)
	require.NoError(t, err)
	require.NoError(t, doc.Remap(models.KindNodeTree, "Mix.001", "Mix"))
	require.NoError(t, doc.RemoveBatch(models.KindNodeTree, []string{"Mix.001"}))

	ch, err := doc.Commit()
	require.Error(t, err)
	assert.Empty(t, ch.Written)
	assert.True(t, doc.Dirty())

	after, err := store.Read(woodPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)
	ok, err := store.Exists(parser.PathFor(models.KindNodeTree, "Mix.001"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemap_SkipsLinkedUsers(t *testing.T) {
	_, store := testutil.TestVault(t)
	lib := testutil.Material("Library Wood", "Mix.001")
	lib.Library = "//assets.blend"
	testutil.WriteResources(t, store,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
		lib,
	)

	doc, err := document.Load(store, discard)
	require.NoError(t, err)
	require.NoError(t, doc.Remap(models.KindNodeTree, "Mix.001", "Mix"))
	assert.False(t, doc.Dirty())
	assert.True(t, doc.Linked(models.KindMaterial, "Library Wood"))
}

func TestRemap_MeshMaterialsAndObjectRefs(t *testing.T) {
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store,
		testutil.Material("Paint", "G"),
		testutil.Material("Paint.001", "G"),
		testutil.Mesh("Cube", "Paint.001", "Paint"),
		testutil.Mesh("Cube.001"),
		testutil.Object("Box", "Cube.001"),
	)

	doc, err := document.Load(store, discard)
	require.NoError(t, err)
	require.NoError(t, doc.Remap(models.KindMaterial, "Paint.001", "Paint"))
	require.NoError(t, doc.Remap(models.KindMesh, "Cube.001", "Cube"))

	assert.Equal(t, []string{"Paint", "Paint"}, doc.Get(models.KindMesh, "Cube").Mesh.Materials)
	assert.Equal(t, "Cube", doc.Get(models.KindObject, "Box").Refs[0].Target.Name)
}

func TestRemap_UnknownTarget(t *testing.T) {
	_, store := testutil.TestVault(t)
	doc, err := document.Load(store, discard)
	require.NoError(t, err)
	assert.ErrorIs(t, doc.Remap(models.KindMaterial, "a", "b"), apperr.ErrNotFound)
	assert.ErrorIs(t, doc.RemoveBatch(models.KindMaterial, []string{"a"}), apperr.ErrNotFound)
}

func TestIdenticalImages(t *testing.T) {
	_, store := testutil.TestVault(t)
	linked := testutil.Image("lib", "//tex/wood.png")
	linked.Library = "//lib.blend"
	testutil.WriteResources(t, store,
		testutil.Image("wood", "//tex/wood.png"),
		testutil.Image("wood.001", "//tex/./wood.png"),
		testutil.Image("stone", "//tex/stone.png"),
		linked,
	)
	doc, err := document.Load(store, discard)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"wood", "wood.001"}}, doc.IdenticalImages())
}

func TestIdenticalMeshes(t *testing.T) {
	_, store := testutil.TestVault(t)
	moved := testutil.Mesh("Moved")
	moved.Mesh.Vertices[0] = [3]float64{0, 0, 1}
	testutil.WriteResources(t, store,
		testutil.Mesh("Cube"),
		testutil.Mesh("Cube.001"),
		testutil.Mesh("Painted", "Red"),
		moved,
	)
	doc, err := document.Load(store, discard)
	require.NoError(t, err)
	assert.Equal(t, [][2]string{{"Cube", "Cube.001"}}, doc.IdenticalMeshes())
}

func TestSameMesh(t *testing.T) {
	a := testutil.Mesh("a").Mesh
	b := testutil.Mesh("b").Mesh
	assert.True(t, document.SameMesh(a, b))
	b.Faces[0] = []int{0, 1, 2}
	assert.False(t, document.SameMesh(a, b))
	assert.True(t, document.SameMesh(nil, nil))
	assert.False(t, document.SameMesh(a, nil))
}
