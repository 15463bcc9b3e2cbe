// Package group turns pairwise similarity scores into duplicate groups and
// scored near-duplicate groups.
package group

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/starford/dupegraph/internal/score"
)

// Group is a set of resource names that were found similar to each other.
type Group struct {
	Members []string
	Score   float64
}

// Percent is the score as a percentage floored to one decimal.
func (g Group) Percent() float64 {
	return math.Floor(g.Score*1000+1e-9) / 10
}

// MarshalJSON reports the floored percentage next to the raw score.
func (g Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Members []string `json:"members"`
		Score   float64  `json:"score"`
		Percent float64  `json:"percent"`
	}{g.Members, g.Score, g.Percent()})
}

// Resolve splits scores into exact duplicate groups (score 1) and scored
// groups. Scored candidates at or above the grouping threshold are merged
// into clusters when they connect more than two resources.
func Resolve(scores score.Scores, groupingThreshold float64) (duplicates, scored []Group) {
	candidates := candidatesOf(scores)

	threshold := math.Round(groupingThreshold*100) / 100
	edges := make(map[score.Pair]float64)
	for _, c := range candidates {
		if c.Score >= 1 || c.Score < threshold {
			continue
		}
		for i, a := range c.Members {
			for _, b := range c.Members[i+1:] {
				edges[score.NewPair(a, b)] = c.Score
			}
		}
	}
	clusters := clustersOf(edges)

	inCluster := make(map[string]bool)
	for _, cl := range clusters {
		for _, m := range cl.Members {
			inCluster[m] = true
		}
	}

	for _, c := range candidates {
		if c.Score >= 1 {
			duplicates = append(duplicates, c)
			continue
		}
		if sharesAny(c.Members, inCluster) {
			continue
		}
		scored = append(scored, c)
	}
	scored = append(scored, clusters...)

	sort.Slice(duplicates, func(i, j int) bool {
		return lessMembers(duplicates[i].Members, duplicates[j].Members)
	})
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return lessMembers(scored[i].Members, scored[j].Members)
	})
	return duplicates, scored
}

// candidatesOf builds one graph per distinct score and returns its maximal
// cliques, each sorted by name.
func candidatesOf(scores score.Scores) []Group {
	byScore := make(map[float64]adjacency)
	for p, s := range scores {
		adj, ok := byScore[s]
		if !ok {
			adj = adjacency{}
			byScore[s] = adj
		}
		adj.connect(p.A, p.B)
	}

	values := make([]float64, 0, len(byScore))
	for s := range byScore {
		values = append(values, s)
	}
	sort.Float64s(values)

	var out []Group
	for _, s := range values {
		for _, members := range byScore[s].cliques() {
			out = append(out, Group{Members: members, Score: s})
		}
	}
	return out
}

// clustersOf returns the connected components of more than two members,
// scored by the mean of their edge weights.
func clustersOf(edges map[score.Pair]float64) []Group {
	adj := adjacency{}
	for p := range edges {
		adj.connect(p.A, p.B)
	}

	var out []Group
	for _, comp := range adj.components() {
		if len(comp) <= 2 {
			continue
		}
		member := make(map[string]bool, len(comp))
		for _, m := range comp {
			member[m] = true
		}
		sum, n := 0.0, 0
		for p, w := range edges {
			if member[p.A] {
				sum += w
				n++
			}
		}
		out = append(out, Group{Members: comp, Score: sum / float64(n)})
	}
	return out
}

// Identical groups names connected by an identity relation. Each group is
// sorted by name and groups are ordered by their first member.
func Identical(pairs [][2]string) []Group {
	adj := adjacency{}
	for _, p := range pairs {
		if p[0] == p[1] {
			continue
		}
		adj.connect(p[0], p[1])
	}
	var out []Group
	for _, comp := range adj.components() {
		out = append(out, Group{Members: comp, Score: 1})
	}
	return out
}

func sharesAny(members []string, set map[string]bool) bool {
	for _, m := range members {
		if set[m] {
			return true
		}
	}
	return false
}

func lessMembers(a, b []string) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
