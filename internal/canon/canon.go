// Package canon turns resources into per-node fingerprints: ordered,
// comparable signatures that ignore node names and layout.
package canon

import "github.com/starford/dupegraph/internal/models"

// Options are the run-scoped node filters.
type Options struct {
	ExcludeUnused       bool
	ExcludeOrganization bool
}

// ImageLookup resolves image resources referenced by image properties.
type ImageLookup interface {
	LookupImage(name string) (*models.ImageData, bool)
}

// ImageMap is an ImageLookup over a plain map.
type ImageMap map[string]*models.ImageData

// LookupImage implements ImageLookup.
func (m ImageMap) LookupImage(name string) (*models.ImageData, bool) {
	img, ok := m[name]
	return img, ok
}

// Canonicalizer builds fingerprints.
type Canonicalizer struct {
	reg    *Registry
	images ImageLookup
}

// New creates a Canonicalizer. images may be nil.
func New(reg *Registry, images ImageLookup) *Canonicalizer {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if images == nil {
		images = ImageMap(nil)
	}
	return &Canonicalizer{reg: reg, images: images}
}

// entry is a fingerprint field before link references are rendered.
type entry struct {
	lit    string
	link   bool
	target int
	out    int
}

// Canonicalize returns the fingerprints of res in node declaration order,
// followed by the interface fingerprint for node trees. ok is false when the
// resource does not take part in comparison at all.
func (c *Canonicalizer) Canonicalize(res *models.Resource, opts Options) (fps []*Fingerprint, ok bool) {
	if res.Linked() || !res.HasGraph() {
		return nil, false
	}

	g := newGraph(res)
	invalid := g.invalid(c.reg, opts)
	roots := newResolver(g, c.reg)

	// usable reports whether a link source can be referenced.
	usable := func(n int) bool {
		return n >= 0 && !invalid[n] && !res.Nodes[n].Mute
	}

	entries := make([][]entry, len(res.Nodes))
	for i := range res.Nodes {
		if invalid[i] {
			continue
		}
		node := &res.Nodes[i]
		es := []entry{{lit: quote(node.Type)}, {lit: Encode(node.Mute)}}

		for si, sock := range node.Inputs {
			links := g.incoming[socket{node: i, input: si}]
			if sock.MultiInput && len(links) > 0 {
				for _, li := range links {
					root := roots.root(li)
					if src := g.from[root]; usable(src) {
						es = append(es, entry{link: true, target: src, out: res.Links[root].FromSocket})
					}
				}
				continue
			}
			if len(links) > 0 {
				root := roots.root(links[len(links)-1])
				if src := g.from[root]; usable(src) {
					es = append(es, entry{link: true, target: src, out: res.Links[root].FromSocket})
					continue
				}
			}
			if sock.HideValue || sock.Kind == models.SocketShader || sock.Kind == models.SocketGeometry {
				es = append(es, entry{lit: tuple(quote(sock.IDName), quote(sock.Name))})
				continue
			}
			if sock.Value == nil {
				continue
			}
			es = append(es, entry{lit: Encode(sock.Value)})
		}

		if c.reg.PureValue[node.Type] && len(node.Outputs) > 0 {
			es = append(es, entry{lit: Encode(node.Outputs[0].Value)})
		}

		for pi := range node.Properties {
			prop := &node.Properties[pi]
			if c.reg.skipProperty(prop.Name) {
				continue
			}
			for _, f := range c.propertyFields(prop) {
				es = append(es, entry{lit: f})
			}
		}
		entries[i] = es
	}

	reduced := make([][]string, len(res.Nodes))
	for i, es := range entries {
		for _, e := range es {
			if !e.link {
				reduced[i] = append(reduced[i], e.lit)
			}
		}
	}

	fps = make([]*Fingerprint, 0, len(res.Nodes)+1)
	for i, es := range entries {
		if invalid[i] {
			continue
		}
		fields := make([]string, len(es))
		for k, e := range es {
			if e.link {
				fields[k] = linkField(e.out, reduced[e.target])
			} else {
				fields[k] = e.lit
			}
		}
		fps = append(fps, &Fingerprint{Node: res.Nodes[i].Name, Fields: fields})
	}

	if res.Kind == models.KindNodeTree {
		fields := []string{InterfaceTag}
		for _, it := range res.Interface {
			if it.IsSocket() {
				fields = append(fields, tuple(quote(it.IDName), quote(it.Name)))
			}
		}
		fps = append(fps, &Fingerprint{Node: InterfaceTag, Fields: fields})
	}

	return fps, true
}

func (c *Canonicalizer) propertyFields(p *models.Property) []string {
	switch p.Category() {
	case models.PropArray:
		return []string{Encode(p.Array)}

	case models.PropCurve:
		cm := p.Curve
		var points []string
		for _, cv := range cm.Curves {
			for _, pt := range cv.Points {
				points = append(points, tuple(floats(pt.Location[0], pt.Location[1]), quote(pt.HandleType)))
			}
		}
		return []string{
			floats(cm.BlackLevel...),
			floats(cm.WhiteLevel...),
			quote(cm.Extend),
			quote(cm.Tone),
			Encode(cm.UseClip),
			number(cm.ClipMaxX),
			number(cm.ClipMaxY),
			number(cm.ClipMinX),
			number(cm.ClipMinY),
			tuple(points...),
		}

	case models.PropGradient:
		ramp := p.Gradient
		out := []string{quote(ramp.ColorMode), quote(ramp.HueInterpolation), quote(ramp.Interpolation)}
		for _, el := range ramp.Elements {
			col := EvaluateRamp(ramp, el.Position)
			out = append(out, floats(col[:]...))
		}
		return out

	case models.PropImage:
		img, ok := c.images.LookupImage(p.Image.Image)
		if !ok {
			return []string{tuple(quote("image"), quote(p.Image.Image))}
		}
		out := []string{quote(img.Filepath), quote(img.Source), quote(img.Colorspace), quote(img.AlphaMode)}
		if img.Source == "SEQUENCE" || img.Source == "MOVIE" {
			var u models.ImageUser
			if p.Image.User != nil {
				u = *p.Image.User
			}
			out = append(out,
				number(float64(u.FrameDuration)),
				number(float64(u.FrameStart)),
				number(float64(u.FrameOffset)),
				Encode(u.UseCyclic),
				Encode(u.UseAutoRefresh),
			)
		}
		return out

	case models.PropRef:
		return []string{"id:" + string(p.Ref.Kind) + ":" + quote(p.Ref.Name)}
	}
	return []string{Encode(p.Value)}
}
