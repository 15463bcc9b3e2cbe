package group

import "sort"

// adjacency is an undirected graph over resource names.
type adjacency map[string]map[string]bool

func (g adjacency) connect(a, b string) {
	if g[a] == nil {
		g[a] = map[string]bool{}
	}
	if g[b] == nil {
		g[b] = map[string]bool{}
	}
	g[a][b] = true
	g[b][a] = true
}

func (g adjacency) vertices() []string {
	out := make([]string, 0, len(g))
	for v := range g {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// cliques returns every maximal clique (Bron-Kerbosch with pivoting). Each
// clique is sorted; cliques are returned in lexicographic order.
func (g adjacency) cliques() [][]string {
	var out [][]string

	var expand func(r []string, p, x map[string]bool)
	expand = func(r []string, p, x map[string]bool) {
		if len(p) == 0 && len(x) == 0 {
			clique := append([]string(nil), r...)
			sort.Strings(clique)
			out = append(out, clique)
			return
		}

		pivot, best := "", -1
		for _, u := range sortedSet(p, x) {
			n := 0
			for v := range p {
				if g[u][v] {
					n++
				}
			}
			if n > best {
				pivot, best = u, n
			}
		}

		for _, v := range sortedSet(p) {
			if g[pivot][v] {
				continue
			}
			next := make([]string, len(r), len(r)+1)
			copy(next, r)
			expand(append(next, v), intersect(p, g[v]), intersect(x, g[v]))
			delete(p, v)
			x[v] = true
		}
	}

	p := make(map[string]bool, len(g))
	for v := range g {
		p[v] = true
	}
	expand(nil, p, map[string]bool{})

	sort.Slice(out, func(i, j int) bool { return lessMembers(out[i], out[j]) })
	return out
}

// components returns the connected components, each sorted, ordered by
// their first member.
func (g adjacency) components() [][]string {
	seen := make(map[string]bool, len(g))
	var out [][]string
	for _, start := range g.vertices() {
		if seen[start] {
			continue
		}
		var comp []string
		stack := []string{start}
		seen[start] = true
		for len(stack) > 0 {
			v := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, v)
			for w := range g[v] {
				if !seen[w] {
					seen[w] = true
					stack = append(stack, w)
				}
			}
		}
		sort.Strings(comp)
		out = append(out, comp)
	}
	return out
}

func sortedSet(sets ...map[string]bool) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range sets {
		for v := range s {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

func intersect(set, with map[string]bool) map[string]bool {
	out := make(map[string]bool)
	for v := range set {
		if with[v] {
			out[v] = true
		}
	}
	return out
}
