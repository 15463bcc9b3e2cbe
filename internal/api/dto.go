package api

import (
	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/models"
)

// KindInfo describes one resource kind.
type KindInfo struct {
	Kind    models.Kind `json:"kind" example:"NODETREE" validate:"required"`
	Label   string      `json:"label" example:"node groups" validate:"required"`
	Title   string      `json:"title" example:"Node Groups" validate:"required"`
	Dir     string      `json:"dir" example:"node_groups" validate:"required"`
	Similar bool        `json:"similar" example:"true"`
}

// ImportResourceRequest is the request body for importing a resource file.
type ImportResourceRequest struct {
	Kind    string `json:"kind" example:"NODETREE" validate:"required"`
	Name    string `json:"name" example:"Mix" validate:"required"`
	Content string `json:"content" example:"name: Mix\nkind: NODETREE\n" validate:"required"`
}

// SimilarRequest overrides the configured search settings. Omitted fields
// keep their configured value.
type SimilarRequest = finder.Settings

// ResourceItem is a lightweight item in a list response (aliased from the domain layer).
type ResourceItem = finder.ResourceItem

// ResourceDetail is the full resource response type (aliased from the domain layer).
type ResourceDetail = finder.ResourceDetail

// ResultSet is the cached similarity result (aliased from the domain layer).
type ResultSet = finder.ResultSet

// ResourceListResponse wraps paginated resource listings.
type ResourceListResponse struct {
	Resources []ResourceItem `json:"resources" validate:"required"`
	Total     int            `json:"total" example:"42" validate:"required"`
}

// MergeResponse reports how many resources a merge removed.
type MergeResponse struct {
	Kind    models.Kind `json:"kind" example:"NODETREE" validate:"required"`
	Removed int         `json:"removed" example:"3"`
}

// ImageUploadResponse is returned after a successful image upload.
type ImageUploadResponse struct {
	Filename string          `json:"filename" example:"wood.png" validate:"required"`
	Size     int64           `json:"size" example:"12345" validate:"required"`
	URL      string          `json:"url" example:"/textures/wood.png" validate:"required"`
	Resource *ResourceDetail `json:"resource" validate:"required"`
}
