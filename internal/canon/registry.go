package canon

// Registry classifies node types and property names. It is built once and
// passed to the Canonicalizer; nothing reads it from global state.
type Registry struct {
	// Organizational node types carry no semantics (routers, frames).
	Organizational map[string]bool
	// PassThrough node types forward their first input unchanged.
	PassThrough map[string]bool
	// PureValue node types whose first output value is their whole payload.
	PureValue map[string]bool
	// Cosmetic property names never take part in comparison.
	Cosmetic map[string]bool
	// BaseProperties are declared by every node and say nothing about its type.
	BaseProperties map[string]bool
}

// DefaultRegistry returns the registry for the built-in node types.
func DefaultRegistry() *Registry {
	return &Registry{
		Organizational: set("NodeReroute", "NodeFrame"),
		PassThrough:    set("NodeReroute"),
		PureValue:      set("ShaderNodeValue", "ShaderNodeRGB", "ShaderNodeNormal"),
		Cosmetic:       set("color_mapping", "texture_mapping", "image_user", "lightmixer"),
		BaseProperties: set(
			"name", "label", "type", "location", "width", "height", "dimensions",
			"color", "use_custom_color", "select", "hide", "mute", "parent",
			"show_options", "show_preview", "show_texture", "inputs", "outputs",
			"internal_links", "bl_idname", "bl_label", "bl_description", "bl_icon",
			"bl_static_type", "bl_width_default", "bl_width_min", "bl_width_max",
			"bl_height_default", "bl_height_min", "bl_height_max",
		),
	}
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func (r *Registry) skipProperty(name string) bool {
	return r.Cosmetic[name] || r.BaseProperties[name]
}
