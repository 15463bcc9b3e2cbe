package finder_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/index"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
	"github.com/starford/dupegraph/internal/testutil"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	mu      sync.Mutex
	reports []string
	events  []string
}

func (r *recorder) Report(_, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, message)
}

func (r *recorder) notify(event string, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func newService(t *testing.T, resources ...*models.Resource) (*finder.Service, storage.Provider, *index.DB, *recorder) {
	t.Helper()
	_, store := testutil.TestVault(t)
	testutil.WriteResources(t, store, resources...)
	db := testutil.TestDB(t)
	require.NoError(t, index.Sync(db, store, discard))

	rec := &recorder{}
	svc := finder.NewService(store, db,
		finder.WithLogger(discard),
		finder.WithReporter(rec),
		finder.WithNotifier(rec.notify),
	)
	return svc, store, db, rec
}

func unlinked(res *models.Resource) *models.Resource {
	res.Links = nil
	return res
}

func TestFindSimilar_IdenticalWithoutLinks(t *testing.T) {
	svc, _, _, rec := newService(t,
		unlinked(testutil.MathTree("Mix", "ADD", 1, 0.5)),
		unlinked(testutil.MathTree("Mix.001", "ADD", 1, 0.5)),
	)
	st := finder.DefaultSettings()
	st.ExcludeUnused = false

	rs, err := svc.FindSimilar(context.Background(), models.KindNodeTree, st)
	require.NoError(t, err)
	require.Len(t, rs.Duplicates, 1)
	assert.Equal(t, []string{"Mix", "Mix.001"}, rs.Duplicates[0].Members)
	assert.Equal(t, 1.0, rs.Duplicates[0].Score)
	assert.Empty(t, rs.Scored)
	assert.NotEmpty(t, rs.RunID)
	assert.NotEmpty(t, rs.Snapshot)
	assert.Same(t, rs, svc.Results())
	assert.Equal(t, []string{finder.EventResultsUpdated}, rec.events)
}

func TestFindSimilar_MutedNodeIgnored(t *testing.T) {
	extra := testutil.MathTree("Mix.001", "ADD", 1, 0.5)
	extra.Nodes = append(extra.Nodes, models.Node{
		Name:    "Muted",
		Type:    "ShaderNodeValue",
		Mute:    true,
		Outputs: []models.Socket{{Name: "Value", Kind: "VALUE", Value: 3.0}},
	})
	extra.Links = append(extra.Links, models.Link{FromNode: "Muted", FromSocket: 0, ToNode: "Math", ToSocket: 1})

	svc, _, _, _ := newService(t, testutil.MathTree("Mix", "ADD", 1, 0.5), extra)

	rs, err := svc.FindSimilar(context.Background(), models.KindNodeTree, finder.DefaultSettings())
	require.NoError(t, err)
	require.Len(t, rs.Duplicates, 1)
	assert.Equal(t, []string{"Mix", "Mix.001"}, rs.Duplicates[0].Members)
}

func TestFindSimilar_ScoredPair(t *testing.T) {
	svc, _, _, _ := newService(t,
		testutil.MathTree("Add", "ADD", 1, 0.5),
		testutil.MathTree("Sub", "SUBTRACT", 1, 0.5),
	)

	rs, err := svc.FindSimilar(context.Background(), models.KindNodeTree, finder.DefaultSettings())
	require.NoError(t, err)
	assert.Empty(t, rs.Duplicates)
	require.Len(t, rs.Scored, 1)
	assert.Equal(t, []string{"Add", "Sub"}, rs.Scored[0].Members)
	assert.Greater(t, rs.Scored[0].Score, 0.8)
	assert.Less(t, rs.Scored[0].Score, 1.0)
}

func TestFindSimilar_SubtypesNotCompared(t *testing.T) {
	geo := testutil.MathTree("Geo", "ADD", 1, 0.5)
	geo.Type = "GEOMETRY"
	svc, _, _, rec := newService(t, testutil.MathTree("Mix", "ADD", 1, 0.5), geo)

	rs, err := svc.FindSimilar(context.Background(), models.KindNodeTree, finder.DefaultSettings())
	require.NoError(t, err)
	assert.True(t, rs.Empty())
	assert.Nil(t, svc.Results())
	assert.Equal(t, []string{"No similar node groups found"}, rec.reports)
	assert.Equal(t, []string{finder.EventResultsCleared}, rec.events)
}

func TestFindSimilar_NothingToCompare(t *testing.T) {
	svc, _, _, rec := newService(t, &models.Resource{Name: "Sun", Kind: models.KindLight, Type: "SUN"})

	rs, err := svc.FindSimilar(context.Background(), models.KindLight, finder.DefaultSettings())
	require.NoError(t, err)
	assert.True(t, rs.Empty())
	assert.Equal(t, []string{"No similar lights found"}, rec.reports)
}

func TestFindSimilar_RejectsInput(t *testing.T) {
	svc, _, _, _ := newService(t)
	ctx := context.Background()

	_, err := svc.FindSimilar(ctx, models.KindImage, finder.DefaultSettings())
	assert.ErrorIs(t, err, apperr.ErrInvalid)

	_, err = svc.FindSimilar(ctx, models.Kind("BOGUS"), finder.DefaultSettings())
	assert.ErrorIs(t, err, apperr.ErrUnknownKind)

	st := finder.DefaultSettings()
	st.SimilarityThreshold = 0.3
	_, err = svc.FindSimilar(ctx, models.KindNodeTree, st)
	assert.ErrorIs(t, err, apperr.ErrInvalid)
}

func TestMergeDuplicates(t *testing.T) {
	svc, store, db, rec := newService(t,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
		testutil.Material("Wood", "Mix.001"),
	)
	ctx := context.Background()

	n, err := svc.MergeDuplicates(ctx, models.KindNodeTree, finder.DefaultSettings())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.Exists(parser.PathFor(models.KindNodeTree, "Mix.001"))
	require.NoError(t, err)
	assert.False(t, ok)
	wood := testutil.ReadResource(t, store, models.KindMaterial, "Wood")
	assert.Equal(t, "Mix", wood.Nodes[0].Properties[0].Ref.Name)

	users, err := db.Users(string(models.KindNodeTree), "Mix")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Wood", users[0].Name)

	assert.Equal(t, []string{"Cleared 1 node group(s)", "No similar node groups found"}, rec.reports)
	assert.Contains(t, rec.events, finder.EventResourcesMerged)
	assert.Nil(t, svc.Results())
}

func TestMergeDuplicates_SkipsDeletedMember(t *testing.T) {
	svc, store, _, _ := newService(t,
		testutil.MathTree("A", "ADD", 1, 0.5),
		testutil.MathTree("A.001", "ADD", 1, 0.5),
		testutil.MathTree("B", "ADD", 1, 0.5),
	)
	ctx := context.Background()
	st := finder.DefaultSettings()

	rs, err := svc.FindSimilar(ctx, models.KindNodeTree, st)
	require.NoError(t, err)
	require.Len(t, rs.Duplicates, 1)
	assert.Equal(t, []string{"A", "A.001", "B"}, rs.Duplicates[0].Members)

	require.NoError(t, store.Delete(parser.PathFor(models.KindNodeTree, "A.001")))

	n, err := svc.MergeDuplicates(ctx, models.KindNodeTree, st)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, err := store.Exists(parser.PathFor(models.KindNodeTree, "A"))
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.Exists(parser.PathFor(models.KindNodeTree, "B"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMergeDuplicates_RederivesAfterEdit(t *testing.T) {
	svc, store, _, _ := newService(t,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
	)
	ctx := context.Background()
	st := finder.DefaultSettings()

	rs, err := svc.FindSimilar(ctx, models.KindNodeTree, st)
	require.NoError(t, err)
	require.Len(t, rs.Duplicates, 1)

	testutil.WriteResources(t, store, testutil.MathTree("Mix.001", "MULTIPLY", 7, 3))

	n, err := svc.MergeDuplicates(ctx, models.KindNodeTree, st)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	ok, err := store.Exists(parser.PathFor(models.KindNodeTree, "Mix.001"))
	require.NoError(t, err)
	assert.True(t, ok, "edited resource must survive the merge")
}

func TestClearResults(t *testing.T) {
	svc, _, _, rec := newService(t,
		testutil.MathTree("Mix", "ADD", 1, 0.5),
		testutil.MathTree("Mix.001", "ADD", 1, 0.5),
	)
	_, err := svc.FindSimilar(context.Background(), models.KindNodeTree, finder.DefaultSettings())
	require.NoError(t, err)
	require.NotNil(t, svc.Results())

	svc.ClearResults()
	assert.Nil(t, svc.Results())
	svc.ClearResults()
	assert.Equal(t, []string{finder.EventResultsUpdated, finder.EventResultsCleared}, rec.events)
}

func TestMergeImages(t *testing.T) {
	wood := testutil.Material("Wood", "Mix")
	wood.Nodes = append(wood.Nodes, models.Node{
		Name:       "Texture",
		Type:       "ShaderNodeTexImage",
		Outputs:    []models.Socket{{Name: "Color", Kind: "RGBA"}},
		Properties: []models.Property{{Name: "image", Image: &models.ImageRef{Image: "wood.001"}}},
	})
	svc, store, _, rec := newService(t,
		testutil.Image("wood", "//textures/wood.png"),
		testutil.Image("wood.001", "//textures/./wood.png"),
		testutil.Image("stone", "//textures/stone.png"),
		wood,
	)
	ctx := context.Background()

	n, err := svc.MergeImages(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got := testutil.ReadResource(t, store, models.KindMaterial, "Wood")
	assert.Equal(t, "wood", got.Nodes[2].Properties[0].Image.Image)

	n, err = svc.MergeImages(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []string{"1 image(s) cleared", "No duplicate images found"}, rec.reports)
}

func TestMergeMeshes(t *testing.T) {
	moved := testutil.Mesh("Cube.002")
	moved.Mesh.Vertices[0] = [3]float64{0, 0, 1}
	svc, store, _, rec := newService(t,
		testutil.Mesh("Cube"),
		testutil.Mesh("Cube.001"),
		moved,
		testutil.Object("Obj", "Cube.001"),
	)

	n, err := svc.MergeMeshes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	obj := testutil.ReadResource(t, store, models.KindObject, "Obj")
	assert.Equal(t, "Cube", obj.Refs[0].Target.Name)
	ok, err := store.Exists(parser.PathFor(models.KindMesh, "Cube.002"))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Cleared 1 mesh(s)"}, rec.reports)
}
