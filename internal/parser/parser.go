// Package parser reads and writes vault resource files and extracts the
// references a resource holds to other resources.
package parser

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/starford/dupegraph/internal/models"
)

// Ext is the file extension of resource files.
const Ext = ".yaml"

// Result holds the output of parsing a resource file.
type Result struct {
	Resource *models.Resource
	Refs     []Reference
}

// Reference is a directed use of another resource.
type Reference struct {
	Target models.ResourceRef
	Slot   string
}

// Parse decodes a resource file. Kind and name fall back to the ones encoded
// in the vault path when the file does not declare them.
func Parse(relPath string, data []byte) (*Result, error) {
	var res models.Resource
	if err := yaml.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parser: decode %s: %w", relPath, err)
	}

	kind, name, err := SplitPath(relPath)
	if err != nil {
		return nil, err
	}
	if res.Kind == "" {
		res.Kind = kind
	}
	if res.Name == "" {
		res.Name = name
	}
	if res.Kind != kind {
		return nil, fmt.Errorf("parser: %s: kind %s does not match directory %s", relPath, res.Kind, kind.Dir())
	}
	if res.Name != name {
		return nil, fmt.Errorf("parser: %s: name %q does not match file name %q", relPath, res.Name, name)
	}

	if err := Validate(&res); err != nil {
		return nil, fmt.Errorf("parser: %s: %w", relPath, err)
	}

	return &Result{Resource: &res, Refs: References(&res)}, nil
}

// Marshal encodes a resource in the vault file format.
func Marshal(res *models.Resource) ([]byte, error) {
	out, err := yaml.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("parser: encode %s: %w", res.Name, err)
	}
	return out, nil
}

// Validate checks the structural consistency of a resource.
func Validate(res *models.Resource) error {
	err := validation.ValidateStruct(res,
		validation.Field(&res.Name, validation.Required),
		validation.Field(&res.Kind, validation.Required, validation.By(func(v any) error {
			if k, _ := v.(models.Kind); !k.Valid() {
				return errors.New("unknown kind")
			}
			return nil
		})),
	)
	if err != nil {
		return err
	}

	seen := make(map[string]int, len(res.Nodes))
	for i, n := range res.Nodes {
		if n.Name == "" {
			return fmt.Errorf("node %d has no name", i)
		}
		if _, dup := seen[n.Name]; dup {
			return fmt.Errorf("duplicate node name %q", n.Name)
		}
		seen[n.Name] = i
	}
	for _, l := range res.Links {
		from, ok := seen[l.FromNode]
		if !ok {
			return fmt.Errorf("link from unknown node %q", l.FromNode)
		}
		to, ok := seen[l.ToNode]
		if !ok {
			return fmt.Errorf("link to unknown node %q", l.ToNode)
		}
		if l.FromSocket < 0 || l.FromSocket >= len(res.Nodes[from].Outputs) {
			return fmt.Errorf("link from %q uses missing output %d", l.FromNode, l.FromSocket)
		}
		if l.ToSocket < 0 || l.ToSocket >= len(res.Nodes[to].Inputs) {
			return fmt.Errorf("link to %q uses missing input %d", l.ToNode, l.ToSocket)
		}
	}
	return nil
}

// References returns every resource reference held by res, in file order.
func References(res *models.Resource) []Reference {
	var out []Reference
	for _, n := range res.Nodes {
		for _, p := range n.Properties {
			switch {
			case p.Ref != nil:
				out = append(out, Reference{Target: *p.Ref, Slot: "node:" + n.Name + "/" + p.Name})
			case p.Image != nil && p.Image.Image != "":
				out = append(out, Reference{
					Target: models.ResourceRef{Kind: models.KindImage, Name: p.Image.Image},
					Slot:   "node:" + n.Name + "/" + p.Name,
				})
			}
		}
	}
	if res.Mesh != nil {
		for i, m := range res.Mesh.Materials {
			if m == "" {
				continue
			}
			out = append(out, Reference{
				Target: models.ResourceRef{Kind: models.KindMaterial, Name: m},
				Slot:   fmt.Sprintf("material[%d]", i),
			})
		}
	}
	for _, s := range res.Refs {
		out = append(out, Reference{Target: s.Target, Slot: s.Slot})
	}
	return out
}

// PathFor returns the vault path of a resource.
func PathFor(kind models.Kind, name string) string {
	return kind.Dir() + "/" + url.PathEscape(name) + Ext
}

// SplitPath extracts kind and name from a vault path produced by PathFor.
func SplitPath(relPath string) (models.Kind, string, error) {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	dir, file := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	kind, ok := models.KindForDir(dir)
	if !ok {
		return "", "", fmt.Errorf("parser: %s is not inside a resource directory", relPath)
	}
	if !IsResourceFile(file) {
		return "", "", fmt.Errorf("parser: %s is not a resource file", relPath)
	}
	name, err := url.PathUnescape(strings.TrimSuffix(file, path.Ext(file)))
	if err != nil {
		return "", "", fmt.Errorf("parser: %s: %w", relPath, err)
	}
	return kind, name, nil
}

// IsResourceFile reports whether a file name has a resource extension.
func IsResourceFile(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	return (ext == ".yaml" || ext == ".yml") && !strings.HasPrefix(name, ".")
}
