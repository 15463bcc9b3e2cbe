package models

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Kind is the resource category. Names are unique within a kind.
type Kind string

// Resource kinds.
const (
	KindNodeTree Kind = "NODETREE"
	KindMaterial Kind = "MATERIAL"
	KindLight    Kind = "LIGHT"
	KindImage    Kind = "IMAGE"
	KindMesh     Kind = "MESH"
	KindObject   Kind = "OBJECT"
)

// Undefined is the id type of resources whose subtype is not recognised.
// Such resources are never compared.
const Undefined = "UNDEFINED"

type kindInfo struct {
	dir      string
	label    string
	subtypes []string
}

var kinds = map[Kind]kindInfo{
	KindNodeTree: {dir: "node_groups", label: "node groups", subtypes: []string{"SHADER", "GEOMETRY", "COMPOSITING", "TEXTURE"}},
	KindMaterial: {dir: "materials", label: "materials"},
	KindLight:    {dir: "lights", label: "lights", subtypes: []string{"POINT", "SUN", "SPOT", "AREA"}},
	KindImage:    {dir: "images", label: "images"},
	KindMesh:     {dir: "meshes", label: "meshes"},
	KindObject:   {dir: "objects", label: "objects"},
}

// SimilarKinds are the kinds that carry node graphs and can be scored.
var SimilarKinds = []Kind{KindNodeTree, KindMaterial, KindLight}

// AllKinds lists every kind in display order.
var AllKinds = []Kind{KindNodeTree, KindMaterial, KindLight, KindImage, KindMesh, KindObject}

var titleCaser = cases.Title(language.English)

// ParseKind accepts a kind in any letter case, or its vault directory name.
func ParseKind(s string) (Kind, error) {
	up := Kind(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := kinds[up]; ok {
		return up, nil
	}
	if k, ok := KindForDir(strings.ToLower(s)); ok {
		return k, nil
	}
	return "", fmt.Errorf("unknown resource kind %q", s)
}

// KindForDir maps a vault directory name back to its kind.
func KindForDir(dir string) (Kind, bool) {
	for k, info := range kinds {
		if info.dir == dir {
			return k, true
		}
	}
	return "", false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := kinds[k]
	return ok
}

// Dir is the vault directory holding resources of this kind.
func (k Kind) Dir() string {
	return kinds[k].dir
}

// Label is the lower-case plural label, e.g. "node groups".
func (k Kind) Label() string {
	if info, ok := kinds[k]; ok {
		return info.label
	}
	return strings.ToLower(string(k))
}

// Singular drops the trailing plural "s" of the label.
func (k Kind) Singular() string {
	return strings.TrimSuffix(k.Label(), "s")
}

// Title is the label in title case, e.g. "Node Groups".
func (k Kind) Title() string {
	return titleCaser.String(k.Label())
}

// Similar reports whether resources of this kind are compared structurally.
func (k Kind) Similar() bool {
	for _, s := range SimilarKinds {
		if s == k {
			return true
		}
	}
	return false
}

// IDType combines a subtype with the kind, e.g. SHADER_NODETREE. Unknown
// subtypes yield Undefined.
func (k Kind) IDType(subtype string) string {
	info, ok := kinds[k]
	if !ok {
		return Undefined
	}
	if subtype == "" {
		return string(k)
	}
	for _, s := range info.subtypes {
		if s == subtype {
			return subtype + "_" + string(k)
		}
	}
	return Undefined
}
