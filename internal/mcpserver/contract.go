package mcpserver

// ResourceFormatContract describes the vault resource file format that LLM
// consumers should follow when importing resources.
const ResourceFormatContract = `# dupegraph Resource Format Contract

Every resource is one YAML file at ` + "`" + `<kind dir>/<url-escaped name>.yaml` + "`" + `.

| Kind     | Directory     | Subtypes (` + "`" + `type` + "`" + `)                      |
|----------|---------------|----------------------------------------------|
| NODETREE | node_groups/  | SHADER, GEOMETRY, COMPOSITING, TEXTURE       |
| MATERIAL | materials/    | none                                         |
| LIGHT    | lights/       | POINT, SUN, SPOT, AREA                       |
| IMAGE    | images/       | none                                         |
| MESH     | meshes/       | none                                         |
| OBJECT   | objects/      | none                                         |

## Structure

` + "```" + `yaml
name: Wood Mix            # optional, defaults to the file name; must match it
kind: NODETREE            # optional, defaults to the directory; must match it
type: SHADER              # subtype; unknown subtypes are never compared
library: ""               # non-empty for resources linked from a library (read-only)
use_nodes: true           # materials and lights only take part when true
interface:                # node trees only
  - idname: NodeSocketFloat
    name: Result
    in_out: OUTPUT
nodes:
  - name: Value
    type: ShaderNodeValue
    outputs:
      - {name: Value, kind: VALUE, value: 1.0}
  - name: Math
    type: ShaderNodeMath
    inputs:
      - {name: A, kind: VALUE, idname: NodeSocketFloat, value: 0.5}
      - {name: B, kind: VALUE, idname: NodeSocketFloat, value: 0.5}
    outputs:
      - {name: Value, kind: VALUE}
    properties:
      - {name: operation, value: ADD}
  - name: Group Output
    type: NodeGroupOutput
    inputs:
      - {name: Result, kind: VALUE, idname: NodeSocketFloat}
links:
  - {from_node: Value, from_socket: 0, to_node: Math, to_socket: 0}
  - {from_node: Math, from_socket: 0, to_node: Group Output, to_socket: 0}
` + "```" + `

## Rules

1. **Node names are unique** within a resource. Links address sockets by index.
2. **Properties carry exactly one payload**: ` + "`" + `value` + "`" + `, ` + "`" + `array` + "`" + `, ` + "`" + `curve` + "`" + `,
   ` + "`" + `gradient` + "`" + `, ` + "`" + `image` + "`" + ` (` + "`" + `{name: <image resource>}` + "`" + `) or ` + "`" + `ref` + "`" + `
   (` + "`" + `{kind: NODETREE, name: <group>}` + "`" + `).
3. **Muted nodes** (` + "`" + `mute: true` + "`" + `) and nodes that never reach an output node are
   ignored when comparing with the default settings.
4. **Reroute and frame nodes** (` + "`" + `NodeReroute` + "`" + `, ` + "`" + `NodeFrame` + "`" + `) are organizational.
5. **Images** set ` + "`" + `image.filepath` + "`" + `; vault-relative paths start with ` + "`" + `//` + "`" + `.
   Upload image files with the ` + "`" + `import_image` + "`" + ` tool; they land in ` + "`" + `textures/` + "`" + `.
6. **Meshes** set ` + "`" + `mesh.vertices` + "`" + `, ` + "`" + `mesh.edges` + "`" + `, ` + "`" + `mesh.faces` + "`" + ` and
   ` + "`" + `mesh.materials` + "`" + ` (material names per slot).
7. **Objects** point at their data through ` + "`" + `refs` + "`" + `:
   ` + "`" + `[{slot: data, target: {kind: MESH, name: Cube}}]` + "`" + `.
8. **Encoding** is UTF-8; names may use any language, file names are URL-escaped.

## Merging

Merging redirects every reference to a duplicate onto the first member of its
group (in name order) and deletes the duplicate file. Library-linked resources
are never rewritten or removed.
`
