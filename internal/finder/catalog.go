package finder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/starford/dupegraph/internal/apperr"
	"github.com/starford/dupegraph/internal/checksum"
	"github.com/starford/dupegraph/internal/index"
	"github.com/starford/dupegraph/internal/models"
	"github.com/starford/dupegraph/internal/parser"
)

// TextureDir is the vault directory holding imported image files.
const TextureDir = "textures"

// ResourceItem is a lightweight item in a list response.
type ResourceItem struct {
	Path      string    `json:"path"`
	Kind      string    `json:"kind"`
	Type      string    `json:"type,omitempty"`
	Name      string    `json:"name"`
	Library   string    `json:"library,omitempty"`
	Checksum  string    `json:"checksum,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// ResourceDetail is the full representation of a resource.
type ResourceDetail struct {
	Path     string           `json:"path"`
	Checksum string           `json:"checksum"`
	Content  string           `json:"content"`
	Resource *models.Resource `json:"resource"`
	Users    []index.User     `json:"users"`
}

// UserNode is one entry of a user tree: a resource and the resources that
// use it in turn.
type UserNode struct {
	Kind  models.Kind `json:"kind"`
	Name  string      `json:"name"`
	Slot  string      `json:"slot,omitempty"`
	Users []*UserNode `json:"users,omitempty"`
}

// ListResources returns paginated resources of a kind. A non-empty query
// filters by name through the index search.
func (s *Service) ListResources(_ context.Context, kind models.Kind, query string, limit, offset int) ([]ResourceItem, int, error) {
	if s.db == nil {
		return nil, 0, errors.New("finder: no index configured")
	}
	if kind != "" && !kind.Valid() {
		return nil, 0, fmt.Errorf("finder: %q: %w", kind, apperr.ErrUnknownKind)
	}

	if query != "" {
		hits, total, err := s.db.SearchKind(query, string(kind), limit, offset)
		if err != nil {
			return nil, 0, err
		}
		items := make([]ResourceItem, len(hits))
		for i, h := range hits {
			items[i] = ResourceItem{Path: h.Path, Kind: h.Kind, Name: h.Name}
		}
		return items, total, nil
	}

	rows, total, err := s.db.ListResources(string(kind), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ResourceItem, len(rows))
	for i, r := range rows {
		items[i] = ResourceItem{
			Path:      r.Path,
			Kind:      r.Kind,
			Type:      r.Type,
			Name:      r.Name,
			Library:   r.Library,
			Checksum:  r.Checksum,
			UpdatedAt: r.UpdatedAt,
		}
	}
	return items, total, nil
}

// GetResource reads a resource from the vault and enriches it with its
// direct users.
func (s *Service) GetResource(_ context.Context, kind models.Kind, name string) (*ResourceDetail, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("finder: %q: %w", kind, apperr.ErrUnknownKind)
	}
	p := parser.PathFor(kind, name)
	data, err := s.store.Read(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return s.buildDetail(p, data)
}

// Users returns the tree of resources using (kind, name), following users
// of users. A resource already on the current branch is listed but not
// expanded again.
func (s *Service) Users(_ context.Context, kind models.Kind, name string) (*UserNode, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("finder: %q: %w", kind, apperr.ErrUnknownKind)
	}
	if s.db == nil {
		return nil, errors.New("finder: no index configured")
	}
	if _, err := s.db.FindByName(string(kind), name); err != nil {
		return nil, err
	}
	root := &UserNode{Kind: kind, Name: name}
	if err := s.expandUsers(root, map[string]bool{userKey(kind, name): true}); err != nil {
		return nil, err
	}
	return root, nil
}

func (s *Service) expandUsers(n *UserNode, ancestors map[string]bool) error {
	users, err := s.db.Users(string(n.Kind), n.Name)
	if err != nil {
		return err
	}
	for _, u := range users {
		child := &UserNode{Kind: models.Kind(u.Kind), Name: u.Name, Slot: u.Slot}
		n.Users = append(n.Users, child)
		key := userKey(child.Kind, child.Name)
		if ancestors[key] {
			continue
		}
		ancestors[key] = true
		if err := s.expandUsers(child, ancestors); err != nil {
			return err
		}
		delete(ancestors, key)
	}
	return nil
}

func userKey(kind models.Kind, name string) string {
	return string(kind) + "/" + name
}

// ImportResource writes a new resource file and indexes it.
func (s *Service) ImportResource(_ context.Context, kind models.Kind, name string, content []byte) (*ResourceDetail, error) {
	p, err := checkImport(kind, name, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ok, _ := s.store.Exists(p); ok {
		return nil, apperr.ErrAlreadyExists
	}
	return s.writeResource(kind, name, p, content)
}

// ImportImage stores an image file under TextureDir and creates the IMAGE
// resource loading it. Nothing is written when either already exists.
func (s *Service) ImportImage(_ context.Context, name, filename string, data []byte) (*ResourceDetail, error) {
	if filename == "" || filename != path.Base(filename) || strings.HasPrefix(filename, ".") {
		return nil, fmt.Errorf("%w: invalid filename %q", apperr.ErrInvalid, filename)
	}
	if name == "" {
		name = strings.TrimSuffix(filename, path.Ext(filename))
	}

	file := TextureDir + "/" + filename
	content, err := parser.Marshal(&models.Resource{
		Name:  name,
		Kind:  models.KindImage,
		Image: &models.ImageData{Filepath: "//" + file, Source: "FILE"},
	})
	if err != nil {
		return nil, err
	}
	p, err := checkImport(models.KindImage, name, content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range []string{p, file} {
		if ok, _ := s.store.Exists(existing); ok {
			return nil, fmt.Errorf("finder: %s: %w", existing, apperr.ErrAlreadyExists)
		}
	}
	if err := s.store.Write(file, data); err != nil {
		return nil, err
	}
	detail, err := s.writeResource(models.KindImage, name, p, content)
	if err != nil {
		if rmErr := s.store.Delete(file); rmErr != nil {
			s.logger.Error("finder: remove texture after failed import",
				slog.String("path", file), slog.String("error", rmErr.Error()))
		}
		return nil, err
	}
	return detail, nil
}

func checkImport(kind models.Kind, name string, content []byte) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("finder: %q: %w", kind, apperr.ErrUnknownKind)
	}
	p := parser.PathFor(kind, name)
	if _, err := parser.Parse(p, content); err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}
	return p, nil
}

// writeResource persists and indexes a checked resource. The caller holds mu.
func (s *Service) writeResource(kind models.Kind, name, p string, content []byte) (*ResourceDetail, error) {
	if err := s.store.Write(p, content); err != nil {
		return nil, err
	}
	if s.db != nil {
		if err := index.IndexFile(s.db, p, content); err != nil {
			return nil, err
		}
	}
	s.logger.Info("finder: imported resource", "kind", string(kind), "name", name)
	return s.buildDetail(p, content)
}

func (s *Service) buildDetail(p string, data []byte) (*ResourceDetail, error) {
	res, err := parser.Parse(p, data)
	if err != nil {
		return nil, err
	}
	users := []index.User{}
	if s.db != nil {
		u, err := s.db.Users(string(res.Resource.Kind), res.Resource.Name)
		if err != nil {
			return nil, err
		}
		if u != nil {
			users = u
		}
	}
	return &ResourceDetail{
		Path:     p,
		Checksum: checksum.Sum(data),
		Content:  string(data),
		Resource: res.Resource,
		Users:    users,
	}, nil
}
