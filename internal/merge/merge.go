// Package merge redirects every reference of a duplicate group onto one
// surviving resource and removes the rest.
package merge

import (
	"fmt"

	"github.com/starford/dupegraph/internal/models"
)

// Host is the mutable document a merge operates on.
type Host interface {
	Exists(kind models.Kind, name string) bool
	Linked(kind models.Kind, name string) bool
	Remap(kind models.Kind, from, to string) error
	RemoveBatch(kind models.Kind, names []string) error
}

// Merge collapses each group onto its first live member. Members that no
// longer exist or are library-linked are skipped. It returns the number of
// removed resources.
func Merge(kind models.Kind, groups [][]string, host Host) (int, error) {
	var junk []string
	removed := make(map[string]bool)

	for _, members := range groups {
		var live []string
		for _, name := range members {
			if removed[name] || !host.Exists(kind, name) || host.Linked(kind, name) {
				continue
			}
			live = append(live, name)
		}
		if len(live) < 2 {
			continue
		}

		survivor := live[0]
		for _, name := range live[1:] {
			if err := host.Remap(kind, name, survivor); err != nil {
				return 0, fmt.Errorf("merge: remap %s onto %s: %w", name, survivor, err)
			}
			removed[name] = true
			junk = append(junk, name)
		}
	}

	if len(junk) == 0 {
		return 0, nil
	}
	if err := host.RemoveBatch(kind, junk); err != nil {
		return 0, fmt.Errorf("merge: remove %d %s: %w", len(junk), kind.Label(), err)
	}
	return len(junk), nil
}
