package document

import (
	"path/filepath"

	"github.com/starford/dupegraph/internal/models"
)

// SameMesh reports whether two meshes carry exactly the same vertices,
// edges, faces and material slots.
func SameMesh(a, b *models.MeshData) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Vertices) != len(b.Vertices) || len(a.Edges) != len(b.Edges) ||
		len(a.Faces) != len(b.Faces) || len(a.Materials) != len(b.Materials) {
		return false
	}
	for i := range a.Vertices {
		if a.Vertices[i] != b.Vertices[i] {
			return false
		}
	}
	for i := range a.Edges {
		if a.Edges[i] != b.Edges[i] {
			return false
		}
	}
	for i := range a.Faces {
		if len(a.Faces[i]) != len(b.Faces[i]) {
			return false
		}
		for j := range a.Faces[i] {
			if a.Faces[i][j] != b.Faces[i][j] {
				return false
			}
		}
	}
	for i := range a.Materials {
		if a.Materials[i] != b.Materials[i] {
			return false
		}
	}
	return true
}

// IdenticalImages pairs local images that load the same file. Each image is
// paired with the first image (in name order) using its path.
func (d *Document) IdenticalImages() [][2]string {
	first := make(map[string]string)
	var out [][2]string
	for _, res := range d.Collection(models.KindImage) {
		if res.Linked() || res.Image == nil || res.Image.Filepath == "" {
			continue
		}
		key := filepath.ToSlash(filepath.Clean(res.Image.Filepath))
		if owner, ok := first[key]; ok {
			out = append(out, [2]string{owner, res.Name})
			continue
		}
		first[key] = res.Name
	}
	return out
}

// IdenticalMeshes pairs local meshes with equal geometry. Each mesh is
// paired with the first equal mesh in name order.
func (d *Document) IdenticalMeshes() [][2]string {
	type shape struct{ v, e, f int }
	buckets := make(map[shape][]*models.Resource)
	var out [][2]string
	for _, res := range d.Collection(models.KindMesh) {
		if res.Linked() || res.Mesh == nil {
			continue
		}
		key := shape{len(res.Mesh.Vertices), len(res.Mesh.Edges), len(res.Mesh.Faces)}
		matched := false
		for _, prev := range buckets[key] {
			if SameMesh(prev.Mesh, res.Mesh) {
				out = append(out, [2]string{prev.Name, res.Name})
				matched = true
				break
			}
		}
		if !matched {
			buckets[key] = append(buckets[key], res)
		}
	}
	return out
}
