package main

import (
	"bytes"
	"testing"

	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/group"
	"github.com/starford/dupegraph/internal/models"
)

func TestPrintGroups(t *testing.T) {
	var buf bytes.Buffer
	printGroups(&buf, "Duplicates", []group.Group{{Members: []string{"Mix", "Mix.001"}, Score: 1}})
	printGroups(&buf, "Similar", nil)

	want := "Duplicates:\n  100.0%  Mix, Mix.001\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestPrintUsers(t *testing.T) {
	tree := &finder.UserNode{
		Kind: models.KindNodeTree,
		Name: "Mix",
		Users: []*finder.UserNode{
			{Kind: models.KindMaterial, Name: "Wood", Slot: "node:Group/node_tree"},
		},
	}
	var buf bytes.Buffer
	printUsers(&buf, tree, 0)

	want := "NODETREE Mix\n  MATERIAL Wood (node:Group/node_tree)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}
