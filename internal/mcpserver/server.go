// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes dupegraph tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/models"
)

const resourceFormatURI = "dupegraph://resource-format"

// Server wraps the MCP server with dupegraph tools.
type Server struct {
	mcp      *server.MCPServer
	svc      *finder.Service
	defaults finder.Settings
}

// New creates a new MCP server with all dupegraph tools registered.
// defaults are the search settings used when a call does not override them.
func New(svc *finder.Service, defaults finder.Settings) *Server {
	s := &Server{svc: svc, defaults: defaults}

	s.mcp = server.NewMCPServer(
		"dupegraph",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	kindOpt := mcp.WithString("kind", mcp.Required(),
		mcp.Description("Resource kind: NODETREE, MATERIAL or LIGHT (directory names like node_groups also work)"))

	s.mcp.AddTool(mcp.NewTool("find_similar",
		mcp.WithDescription("Find exact duplicates and similar resources of a kind by comparing their node graphs. "+
			"Replaces the cached results."),
		kindOpt,
		mcp.WithNumber("similarity_threshold", mcp.Description("Minimum pairwise score to report (0.5 to 1)")),
		mcp.WithNumber("grouping_threshold", mcp.Description("Minimum score for chaining pairs into clusters (0.5 to 1)")),
		mcp.WithBoolean("exclude_unused", mcp.Description("Ignore muted nodes and nodes that never reach an output")),
		mcp.WithBoolean("exclude_organization", mcp.Description("Ignore reroute and frame nodes")),
	), s.findSimilar)

	s.mcp.AddTool(mcp.NewTool("get_results",
		mcp.WithDescription("Return the cached results of the last find_similar call."),
	), s.getResults)

	s.mcp.AddTool(mcp.NewTool("merge_duplicates",
		mcp.WithDescription("Merge every exact duplicate group of a kind onto its first member and delete the rest. "+
			"References to removed resources are redirected. Similar but non-identical resources are left alone."),
		kindOpt,
		mcp.WithNumber("similarity_threshold", mcp.Description("Minimum pairwise score to report (0.5 to 1)")),
		mcp.WithNumber("grouping_threshold", mcp.Description("Minimum score for chaining pairs into clusters (0.5 to 1)")),
		mcp.WithBoolean("exclude_unused", mcp.Description("Ignore muted nodes and nodes that never reach an output")),
		mcp.WithBoolean("exclude_organization", mcp.Description("Ignore reroute and frame nodes")),
	), s.mergeDuplicates)

	s.mcp.AddTool(mcp.NewTool("merge_images",
		mcp.WithDescription("Merge image resources that load the same file."),
	), s.mergeImages)

	s.mcp.AddTool(mcp.NewTool("merge_meshes",
		mcp.WithDescription("Merge mesh resources with identical geometry and material slots."),
	), s.mergeMeshes)

	s.mcp.AddTool(mcp.NewTool("clear_results",
		mcp.WithDescription("Drop the cached find_similar results."),
	), s.clearResults)

	s.mcp.AddTool(mcp.NewTool("list_resources",
		mcp.WithDescription("List resources, optionally of one kind or matching a name query."),
		mcp.WithString("kind", mcp.Description("Optional resource kind")),
		mcp.WithString("query", mcp.Description("Optional name search")),
	), s.listResources)

	s.mcp.AddTool(mcp.NewTool("read_resource",
		mcp.WithDescription("Read the YAML file of a resource."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Resource kind")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Resource name")),
	), s.readResource)

	s.mcp.AddTool(mcp.NewTool("get_users",
		mcp.WithDescription("Return the tree of resources that use a resource, directly or through other users."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Resource kind")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Resource name")),
	), s.getUsers)

	s.mcp.AddTool(mcp.NewTool("get_resource_contract",
		mcp.WithDescription("Returns the dupegraph resource file format contract. "+
			"Call this before importing resources to ensure correct structure."),
	), s.getResourceContract)

	s.mcp.AddTool(mcp.NewTool("import_resource",
		mcp.WithDescription("Import a new resource file. Content MUST follow the resource format contract "+
			"(get_resource_contract tool or the "+resourceFormatURI+" resource)."),
		mcp.WithString("kind", mcp.Required(), mcp.Description("Resource kind")),
		mcp.WithString("name", mcp.Description("Resource name; a random name is generated when empty")),
		mcp.WithString("content", mcp.Required(), mcp.Description("YAML content following the resource format contract")),
	), s.importResource)

	s.mcp.AddTool(mcp.NewTool("import_image",
		mcp.WithDescription("Download an image (http/https URL or base64 data URI) into textures/ "+
			"and create the IMAGE resource loading it."),
		mcp.WithString("url", mcp.Required(), mcp.Description("http(s) URL or data:image/...;base64,... URI")),
		mcp.WithString("name", mcp.Description("Image resource name; defaults to the file name without extension")),
		mcp.WithString("filename", mcp.Description("File name to store under textures/")),
	), s.importImage)

	s.mcp.AddResource(
		mcp.NewResource(resourceFormatURI, "Resource Format Contract",
			mcp.WithResourceDescription("Canonical YAML format that all vault resources must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readResourceFormat,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func kindArg(req mcp.CallToolRequest) (models.Kind, error) {
	raw, err := req.RequireString("kind")
	if err != nil {
		return "", err
	}
	return models.ParseKind(raw)
}

// settings applies per-call overrides to the configured defaults.
func (s *Server) settings(req mcp.CallToolRequest) finder.Settings {
	return finder.Settings{
		SimilarityThreshold: req.GetFloat("similarity_threshold", s.defaults.SimilarityThreshold),
		GroupingThreshold:   req.GetFloat("grouping_threshold", s.defaults.GroupingThreshold),
		ExcludeUnused:       req.GetBool("exclude_unused", s.defaults.ExcludeUnused),
		ExcludeOrganization: req.GetBool("exclude_organization", s.defaults.ExcludeOrganization),
	}
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) findSimilar(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rs, err := s.svc.FindSimilar(ctx, kind, s.settings(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if rs.Empty() {
		return mcp.NewToolResultText(fmt.Sprintf("No similar %s found", kind.Label())), nil
	}
	return jsonResult(rs), nil
}

func (s *Server) getResults(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rs := s.svc.Results()
	if rs == nil {
		return mcp.NewToolResultText("no cached results"), nil
	}
	return jsonResult(rs), nil
}

func (s *Server) mergeDuplicates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.svc.MergeDuplicates(ctx, kind, s.settings(req))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d %s(s)", n, kind.Singular())), nil
}

func (s *Server) mergeImages(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.MergeImages(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if n == 0 {
		return mcp.NewToolResultText("No duplicate images found"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%d image(s) cleared", n)), nil
}

func (s *Server) mergeMeshes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	n, err := s.svc.MergeMeshes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared %d mesh(s)", n)), nil
}

func (s *Server) clearResults(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.svc.ClearResults()
	return mcp.NewToolResultText("results cleared"), nil
}

func (s *Server) listResources(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var kind models.Kind
	if raw := req.GetString("kind", ""); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		kind = k
	}
	items, _, err := s.svc.ListResources(ctx, kind, req.GetString("query", ""), 500, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no resources found"), nil
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.Kind + "\t" + it.Name
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) readResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetResource(ctx, kind, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s %q: %v", kind, name, err)), nil
	}
	return mcp.NewToolResultText(detail.Content), nil
}

func (s *Server) getUsers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tree, err := s.svc.Users(ctx, kind, name)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%s %q: %v", kind, name, err)), nil
	}
	if len(tree.Users) == 0 {
		return mcp.NewToolResultText("no users found"), nil
	}
	return jsonResult(tree), nil
}

func (s *Server) importResource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := kindArg(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name := req.GetString("name", "")
	if name == "" {
		name = uuid.NewString()
	}
	detail, err := s.svc.ImportResource(ctx, kind, name, []byte(content))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("imported: %s", detail.Path)), nil
}

func (s *Server) getResourceContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ResourceFormatContract), nil
}

func (s *Server) readResourceFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      resourceFormatURI,
			MIMEType: "text/markdown",
			Text:     ResourceFormatContract,
		},
	}, nil
}
