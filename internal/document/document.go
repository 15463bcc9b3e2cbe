// Package document holds an in-memory snapshot of the vault. The snapshot is
// the mutable document that merges operate on: references are remapped and
// resources removed in memory, and Commit persists the result.
package document

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/checksum"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
	"github.com/starford/dupegraph/internal/storage"
)

type entry struct {
	res   *models.Resource
	path  string
	dirty bool
}

// Document is a name-keyed view of every resource in the vault.
type Document struct {
	store   storage.Provider
	byKind  map[models.Kind]map[string]*entry
	removed []string
	digest  string
}

// Changes lists the vault paths touched by Commit.
type Changes struct {
	Written []string
	Deleted []string
}

// Load reads and parses every resource file. Files that fail to parse are
// logged and left out of the snapshot.
func Load(store storage.Provider, logger *slog.Logger) (*Document, error) {
	metas, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("document: list vault: %w", err)
	}

	doc := &Document{store: store, byKind: make(map[models.Kind]map[string]*entry)}
	sums := make(map[string]string, len(metas))
	for _, m := range metas {
		data, err := store.Read(m.Path)
		if err != nil {
			return nil, fmt.Errorf("document: read %s: %w", m.Path, err)
		}
		sums[m.Path] = checksum.Sum(data)

		parsed, err := parser.Parse(m.Path, data)
		if err != nil {
			logger.Warn("document: skip unparsable resource", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		res := parsed.Resource
		coll := doc.collection(res.Kind)
		if prev, ok := coll[res.Name]; ok {
			logger.Warn("document: duplicate resource name",
				slog.String("path", m.Path), slog.String("kept", prev.path))
			continue
		}
		coll[res.Name] = &entry{res: res, path: m.Path}
	}
	doc.digest = checksum.Snapshot(sums)
	return doc, nil
}

func (d *Document) collection(kind models.Kind) map[string]*entry {
	coll, ok := d.byKind[kind]
	if !ok {
		coll = make(map[string]*entry)
		d.byKind[kind] = coll
	}
	return coll
}

// Digest identifies the vault state the document was loaded from.
func (d *Document) Digest() string {
	return d.digest
}

// Names returns the resource names of a kind in sorted order.
func (d *Document) Names(kind models.Kind) []string {
	coll := d.byKind[kind]
	out := make([]string, 0, len(coll))
	for name := range coll {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Collection returns the resources of a kind in name order.
func (d *Document) Collection(kind models.Kind) []*models.Resource {
	names := d.Names(kind)
	out := make([]*models.Resource, len(names))
	for i, name := range names {
		out[i] = d.byKind[kind][name].res
	}
	return out
}

// Get returns a resource, or nil when it does not exist.
func (d *Document) Get(kind models.Kind, name string) *models.Resource {
	if e, ok := d.byKind[kind][name]; ok {
		return e.res
	}
	return nil
}

// Path returns the vault path of a resource.
func (d *Document) Path(kind models.Kind, name string) (string, bool) {
	e, ok := d.byKind[kind][name]
	if !ok {
		return "", false
	}
	return e.path, true
}

// Exists reports whether a resource is present.
func (d *Document) Exists(kind models.Kind, name string) bool {
	_, ok := d.byKind[kind][name]
	return ok
}

// Linked reports whether a resource is library-linked.
func (d *Document) Linked(kind models.Kind, name string) bool {
	res := d.Get(kind, name)
	return res != nil && res.Linked()
}

// LookupImage resolves image data for image node properties.
func (d *Document) LookupImage(name string) (*models.ImageData, bool) {
	res := d.Get(models.KindImage, name)
	if res == nil || res.Image == nil {
		return nil, false
	}
	return res.Image, true
}

// Remap redirects every reference to (kind, from) onto (kind, to). Linked
// resources are read-only and keep their references.
func (d *Document) Remap(kind models.Kind, from, to string) error {
	if !d.Exists(kind, to) {
		return fmt.Errorf("document: remap target %s %q: %w", kind, to, apperr.ErrNotFound)
	}
	for _, coll := range d.byKind {
		for _, e := range coll {
			if e.res.Linked() {
				continue
			}
			if remapResource(e.res, kind, from, to) {
				e.dirty = true
			}
		}
	}
	return nil
}

func remapResource(res *models.Resource, kind models.Kind, from, to string) bool {
	changed := false
	for ni := range res.Nodes {
		props := res.Nodes[ni].Properties
		for pi := range props {
			p := &props[pi]
			if p.Ref != nil && p.Ref.Kind == kind && p.Ref.Name == from {
				p.Ref.Name = to
				changed = true
			}
			if kind == models.KindImage && p.Image != nil && p.Image.Image == from {
				p.Image.Image = to
				changed = true
			}
		}
	}
	if kind == models.KindMaterial && res.Mesh != nil {
		for i, m := range res.Mesh.Materials {
			if m == from {
				res.Mesh.Materials[i] = to
				changed = true
			}
		}
	}
	for i := range res.Refs {
		t := &res.Refs[i].Target
		if t.Kind == kind && t.Name == from {
			t.Name = to
			changed = true
		}
	}
	return changed
}

// RemoveBatch removes resources of one kind. Every name must exist.
func (d *Document) RemoveBatch(kind models.Kind, names []string) error {
	coll := d.byKind[kind]
	for _, name := range names {
		if _, ok := coll[name]; !ok {
			return fmt.Errorf("document: remove %s %q: %w", kind, name, apperr.ErrNotFound)
		}
	}
	for _, name := range names {
		d.removed = append(d.removed, coll[name].path)
		delete(coll, name)
	}
	return nil
}

// Dirty reports whether Commit has anything to persist.
func (d *Document) Dirty() bool {
	if len(d.removed) > 0 {
		return true
	}
	for _, coll := range d.byKind {
		for _, e := range coll {
			if e.dirty {
				return true
			}
		}
	}
	return false
}

// Commit writes modified resources, then deletes removed ones. Every write
// is marshaled and every touched file read back before the vault changes;
// when a write or delete fails, the files already changed are restored and
// the document stays dirty.
func (d *Document) Commit() (Changes, error) {
	var pending []*entry
	for _, coll := range d.byKind {
		for _, e := range coll {
			if e.dirty {
				pending = append(pending, e)
			}
		}
	}
	sort.Slice(pending, func(i, j int) bool { return pending[i].path < pending[j].path })

	staged := make([][]byte, len(pending))
	for i, e := range pending {
		data, err := parser.Marshal(e.res)
		if err != nil {
			return Changes{}, fmt.Errorf("document: %w", err)
		}
		staged[i] = data
	}

	originals := make(map[string][]byte, len(pending)+len(d.removed))
	for _, p := range d.touched(pending) {
		data, err := d.store.Read(p)
		if err != nil {
			return Changes{}, fmt.Errorf("document: read %s: %w", p, err)
		}
		originals[p] = data
	}

	var ch Changes
	var done []string
	fail := func(err error) (Changes, error) {
		for i := len(done) - 1; i >= 0; i-- {
			p := done[i]
			if rbErr := d.store.Write(p, originals[p]); rbErr != nil {
				return Changes{}, fmt.Errorf("%w (restore %s: %v)", err, p, rbErr)
			}
		}
		return Changes{}, err
	}

	for i, e := range pending {
		if err := d.store.Write(e.path, staged[i]); err != nil {
			return fail(fmt.Errorf("document: write %s: %w", e.path, err))
		}
		done = append(done, e.path)
		ch.Written = append(ch.Written, e.path)
	}
	for _, p := range d.removed {
		if err := d.store.Delete(p); err != nil {
			return fail(fmt.Errorf("document: delete %s: %w", p, err))
		}
		done = append(done, p)
		ch.Deleted = append(ch.Deleted, p)
	}

	for _, e := range pending {
		e.dirty = false
	}
	d.removed = nil
	return ch, nil
}

func (d *Document) touched(pending []*entry) []string {
	paths := make([]string, 0, len(pending)+len(d.removed))
	for _, e := range pending {
		paths = append(paths, e.path)
	}
	return append(paths, d.removed...)
}
