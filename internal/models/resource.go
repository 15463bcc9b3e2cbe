// Package models defines the domain types for dupegraph.
package models

import (
	"time"
)

// Resource is one named entry of the vault: a node graph container, a
// material or light that may carry a node graph, or a leaf resource such as
// an image or a mesh.
type Resource struct {
	Name      string          `yaml:"name" json:"name"`
	Kind      Kind            `yaml:"kind" json:"kind"`
	Type      string          `yaml:"type,omitempty" json:"type,omitempty"`
	Library   string          `yaml:"library,omitempty" json:"library,omitempty"`
	UseNodes  bool            `yaml:"use_nodes,omitempty" json:"use_nodes,omitempty"`
	Interface []InterfaceItem `yaml:"interface,omitempty" json:"interface,omitempty"`
	Nodes     []Node          `yaml:"nodes,omitempty" json:"nodes,omitempty"`
	Links     []Link          `yaml:"links,omitempty" json:"links,omitempty"`
	Image     *ImageData      `yaml:"image,omitempty" json:"image,omitempty"`
	Mesh      *MeshData       `yaml:"mesh,omitempty" json:"mesh,omitempty"`
	Refs      []Slot          `yaml:"refs,omitempty" json:"refs,omitempty"`
}

// IDType returns the comparison partition of the resource.
func (r *Resource) IDType() string {
	return r.Kind.IDType(r.Type)
}

// Linked reports whether the resource comes from an external library and
// is therefore read-only.
func (r *Resource) Linked() bool {
	return r.Library != ""
}

// HasGraph reports whether the resource takes part in node graph comparison.
func (r *Resource) HasGraph() bool {
	switch r.Kind {
	case KindNodeTree:
		return true
	case KindMaterial, KindLight:
		return r.UseNodes
	}
	return false
}

// Node returns the node with the given name, or nil.
func (r *Resource) Node(name string) *Node {
	for i := range r.Nodes {
		if r.Nodes[i].Name == name {
			return &r.Nodes[i]
		}
	}
	return nil
}

// InterfaceItem is an externally exposed socket (or panel) of a node tree.
type InterfaceItem struct {
	ItemType string `yaml:"item_type,omitempty" json:"item_type,omitempty"` // SOCKET or PANEL
	IDName   string `yaml:"idname" json:"idname"`
	Name     string `yaml:"name" json:"name"`
	InOut    string `yaml:"in_out,omitempty" json:"in_out,omitempty"`
}

// IsSocket reports whether the item is a socket; an empty item type means socket.
func (i InterfaceItem) IsSocket() bool {
	return i.ItemType == "" || i.ItemType == "SOCKET"
}

// Node is a single node of a graph.
type Node struct {
	Name       string     `yaml:"name" json:"name"`
	Type       string     `yaml:"type" json:"type"`
	Mute       bool       `yaml:"mute,omitempty" json:"mute,omitempty"`
	Inputs     []Socket   `yaml:"inputs,omitempty" json:"inputs,omitempty"`
	Outputs    []Socket   `yaml:"outputs,omitempty" json:"outputs,omitempty"`
	Properties []Property `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Socket kinds that never carry a serializable default value.
const (
	SocketShader   = "SHADER"
	SocketGeometry = "GEOMETRY"
)

// Socket is an input or output slot of a node.
type Socket struct {
	Name       string `yaml:"name" json:"name"`
	Kind       string `yaml:"kind,omitempty" json:"kind,omitempty"`
	IDName     string `yaml:"idname,omitempty" json:"idname,omitempty"`
	Value      any    `yaml:"value,omitempty" json:"value,omitempty"`
	HideValue  bool   `yaml:"hide_value,omitempty" json:"hide_value,omitempty"`
	MultiInput bool   `yaml:"multi_input,omitempty" json:"multi_input,omitempty"`
}

// Link connects an output socket of one node to an input socket of another.
// Valid defaults to true when omitted.
type Link struct {
	FromNode   string `yaml:"from_node" json:"from_node"`
	FromSocket int    `yaml:"from_socket" json:"from_socket"`
	ToNode     string `yaml:"to_node" json:"to_node"`
	ToSocket   int    `yaml:"to_socket" json:"to_socket"`
	Valid      *bool  `yaml:"valid,omitempty" json:"valid,omitempty"`
}

// IsValid reports whether the link is usable.
func (l Link) IsValid() bool {
	return l.Valid == nil || *l.Valid
}

// ImageData describes an image resource.
type ImageData struct {
	Filepath   string `yaml:"filepath" json:"filepath"`
	Source     string `yaml:"source,omitempty" json:"source,omitempty"`
	Colorspace string `yaml:"colorspace,omitempty" json:"colorspace,omitempty"`
	AlphaMode  string `yaml:"alpha_mode,omitempty" json:"alpha_mode,omitempty"`
}

// MeshData is the geometric payload of a mesh resource.
type MeshData struct {
	Vertices  [][3]float64 `yaml:"vertices,omitempty" json:"vertices,omitempty"`
	Edges     [][2]int     `yaml:"edges,omitempty" json:"edges,omitempty"`
	Faces     [][]int      `yaml:"faces,omitempty" json:"faces,omitempty"`
	Materials []string     `yaml:"materials,omitempty" json:"materials,omitempty"`
}

// Slot is a resource-level reference, e.g. an object pointing at its mesh.
type Slot struct {
	Slot   string      `yaml:"slot" json:"slot"`
	Target ResourceRef `yaml:"target" json:"target"`
}

// ResourceRef names another resource of the vault.
type ResourceRef struct {
	Kind Kind   `yaml:"kind" json:"kind"`
	Name string `yaml:"name" json:"name"`
}

// ResourceMetadata is a lightweight representation returned by list operations.
type ResourceMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
