package canon

import "github.com/starford/dupegraph/internal/models"

// socket addresses an input socket by node handle and input index.
type socket struct {
	node, input int
}

// graph is an index-based view of a resource's nodes and links. Nodes and
// links are addressed by their position in the resource.
type graph struct {
	res      *models.Resource
	nodeIdx  map[string]int
	from     []int // link -> source node handle
	to       []int // link -> target node handle
	incoming map[socket][]int
}

func newGraph(res *models.Resource) *graph {
	g := &graph{
		res:      res,
		nodeIdx:  make(map[string]int, len(res.Nodes)),
		from:     make([]int, len(res.Links)),
		to:       make([]int, len(res.Links)),
		incoming: make(map[socket][]int),
	}
	for i, n := range res.Nodes {
		g.nodeIdx[n.Name] = i
	}
	for li, l := range res.Links {
		f, okF := g.nodeIdx[l.FromNode]
		t, okT := g.nodeIdx[l.ToNode]
		if !okF || !okT {
			g.from[li], g.to[li] = -1, -1
			continue
		}
		g.from[li], g.to[li] = f, t
		s := socket{node: t, input: l.ToSocket}
		g.incoming[s] = append(g.incoming[s], li)
	}
	return g
}

// invalid marks the nodes excluded from fingerprinting.
func (g *graph) invalid(reg *Registry, opts Options) []bool {
	nodes := g.res.Nodes
	out := make([]bool, len(nodes))

	if opts.ExcludeOrganization {
		for i, n := range nodes {
			if reg.Organizational[n.Type] {
				out[i] = true
			}
		}
	}

	if !opts.ExcludeUnused {
		return out
	}

	preds := make([][]int, len(nodes))
	for li := range g.res.Links {
		if g.from[li] < 0 {
			continue
		}
		preds[g.to[li]] = append(preds[g.to[li]], g.from[li])
	}

	used := make([]bool, len(nodes))
	var stack []int
	for i, n := range nodes {
		if len(n.Outputs) == 0 && len(preds[i]) > 0 {
			used[i] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range preds[cur] {
			if !used[p] {
				used[p] = true
				stack = append(stack, p)
			}
		}
	}

	for i, n := range nodes {
		if !used[i] || n.Mute {
			out[i] = true
		}
	}
	return out
}

const (
	unresolved = -1
	inProgress = -2
	failed     = -3
)

// resolver walks links back through pass-through nodes. Each link is
// resolved at most once per canonicalization.
type resolver struct {
	g    *graph
	reg  *Registry
	memo []int
}

func newResolver(g *graph, reg *Registry) *resolver {
	memo := make([]int, len(g.res.Links))
	for i := range memo {
		memo[i] = unresolved
	}
	return &resolver{g: g, reg: reg, memo: memo}
}

// root returns the link whose source is the first non-pass-through node
// upstream of li, or li itself when the chain cannot be resolved.
func (r *resolver) root(li int) int {
	if got := r.walk(li); got >= 0 {
		return got
	}
	return li
}

func (r *resolver) walk(li int) int {
	switch m := r.memo[li]; {
	case m >= 0 || m == failed:
		return m
	case m == inProgress:
		return failed
	}

	src := r.g.from[li]
	if src < 0 {
		r.memo[li] = failed
		return failed
	}
	if !r.reg.PassThrough[r.g.res.Nodes[src].Type] {
		r.memo[li] = li
		return li
	}

	r.memo[li] = inProgress
	result := failed
	if up := r.g.incoming[socket{node: src, input: 0}]; len(up) > 0 && r.g.res.Links[up[0]].IsValid() {
		result = r.walk(up[0])
	}
	r.memo[li] = result
	return result
}
