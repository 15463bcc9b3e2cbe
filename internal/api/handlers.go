package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dupegraph/internal/finder"
	"github.com/starford/dupegraph/internal/models"
)

// Handler holds API route handlers.
type Handler struct {
	svc      *finder.Service
	defaults finder.Settings
}

// NewHandler creates a new Handler. defaults are the search settings used
// when a request does not override them.
func NewHandler(svc *finder.Service, defaults finder.Settings) *Handler {
	return &Handler{svc: svc, defaults: defaults}
}

// kindParam parses the {kind} URL parameter, writing a 400 on failure.
func kindParam(w http.ResponseWriter, r *http.Request) (models.Kind, bool) {
	kind, err := models.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return "", false
	}
	return kind, true
}

// nameParam extracts the {name} URL parameter. Supports encoded names from
// clients that escape spaces and dots (e.g. Wood%20Floor).
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// settings decodes an optional settings override from the request body.
func (h *Handler) settings(w http.ResponseWriter, r *http.Request) (finder.Settings, bool) {
	st := h.defaults
	if r.Body == nil {
		return st, true
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&st); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return st, false
	}
	return st, true
}

// ListKinds handles GET /api/kinds.
//
//	@Summary		List resource kinds
//	@Tags			resources
//	@Produce		json
//	@Success		200	{array}	KindInfo
//	@Security		BearerAuth
//	@Router			/kinds [get]
func (h *Handler) ListKinds(w http.ResponseWriter, _ *http.Request) {
	out := make([]KindInfo, len(models.AllKinds))
	for i, k := range models.AllKinds {
		out[i] = KindInfo{Kind: k, Label: k.Label(), Title: k.Title(), Dir: k.Dir(), Similar: k.Similar()}
	}
	writeJSON(w, http.StatusOK, out)
}

// ListResources handles GET /api/resources.
//
//	@Summary		List resources with optional kind filter and name search
//	@Tags			resources
//	@Produce		json
//	@Param			kind	query		string	false	"Resource kind"
//	@Param			q		query		string	false	"Name search"
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Success		200		{object}	ResourceListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources [get]
func (h *Handler) ListResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	if limit <= 0 {
		limit = 100
	}

	var kind models.Kind
	if raw := q.Get("kind"); raw != "" {
		k, err := models.ParseKind(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		kind = k
	}

	items, total, err := h.svc.ListResources(r.Context(), kind, q.Get("q"), limit, offset)
	if err != nil {
		writeError(w, "list resources", err)
		return
	}
	if items == nil {
		items = []ResourceItem{}
	}
	writeJSON(w, http.StatusOK, ResourceListResponse{Resources: items, Total: total})
}

// GetResource handles GET /api/resources/{kind}/{name}.
//
//	@Summary		Get a single resource with its users
//	@Tags			resources
//	@Produce		json
//	@Param			kind	path		string	true	"Resource kind"
//	@Param			name	path		string	true	"Resource name"
//	@Success		200		{object}	ResourceDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources/{kind}/{name} [get]
func (h *Handler) GetResource(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.GetResource(r.Context(), kind, nameParam(r))
	if err != nil {
		writeError(w, "get resource", err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Users handles GET /api/resources/{kind}/{name}/users.
//
//	@Summary		Get the tree of resources using a resource
//	@Tags			resources
//	@Produce		json
//	@Param			kind	path		string	true	"Resource kind"
//	@Param			name	path		string	true	"Resource name"
//	@Success		200		{object}	finder.UserNode
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources/{kind}/{name}/users [get]
func (h *Handler) Users(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	tree, err := h.svc.Users(r.Context(), kind, nameParam(r))
	if err != nil {
		writeError(w, "users", err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

// ImportResource handles POST /api/resources.
//
//	@Summary		Import a new resource file
//	@Tags			resources
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportResourceRequest	true	"Resource to import"
//	@Success		201		{object}	ResourceDetail
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resources [post]
func (h *Handler) ImportResource(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ImportResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Kind == "" || req.Name == "" || req.Content == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("kind, name and content are required"))
		return
	}
	kind, err := models.ParseKind(req.Kind)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	detail, err := h.svc.ImportResource(r.Context(), kind, req.Name, []byte(req.Content))
	if err != nil {
		writeError(w, "import resource", err)
		return
	}
	writeJSON(w, http.StatusCreated, detail)
}

// FindSimilar handles POST /api/similar/{kind}.
//
//	@Summary		Find similar and duplicate resources of a kind
//	@Tags			similar
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string			true	"Resource kind"
//	@Param			body	body		SimilarRequest	false	"Settings override"
//	@Success		200		{object}	ResultSet
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/similar/{kind} [post]
func (h *Handler) FindSimilar(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	st, ok := h.settings(w, r)
	if !ok {
		return
	}
	rs, err := h.svc.FindSimilar(r.Context(), kind, st)
	if err != nil {
		writeError(w, "find similar", err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// Results handles GET /api/similar.
//
//	@Summary		Get the cached similarity results
//	@Tags			similar
//	@Produce		json
//	@Success		200	{object}	ResultSet
//	@Success		204	"No cached results"
//	@Security		BearerAuth
//	@Router			/similar [get]
func (h *Handler) Results(w http.ResponseWriter, _ *http.Request) {
	rs := h.svc.Results()
	if rs == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

// ClearResults handles DELETE /api/similar.
//
//	@Summary		Clear the cached similarity results
//	@Tags			similar
//	@Success		204	"Results cleared"
//	@Security		BearerAuth
//	@Router			/similar [delete]
func (h *Handler) ClearResults(w http.ResponseWriter, _ *http.Request) {
	h.svc.ClearResults()
	w.WriteHeader(http.StatusNoContent)
}

// MergeDuplicates handles POST /api/merge/{kind}.
//
//	@Summary		Merge exact duplicates of a kind
//	@Tags			merge
//	@Accept			json
//	@Produce		json
//	@Param			kind	path		string			true	"Resource kind"
//	@Param			body	body		SimilarRequest	false	"Settings override"
//	@Success		200		{object}	MergeResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/merge/{kind} [post]
func (h *Handler) MergeDuplicates(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	st, ok := h.settings(w, r)
	if !ok {
		return
	}
	n, err := h.svc.MergeDuplicates(r.Context(), kind, st)
	if err != nil {
		writeError(w, "merge duplicates", err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{Kind: kind, Removed: n})
}

// MergeImages handles POST /api/merge-images.
//
//	@Summary		Merge images loading the same file
//	@Tags			merge
//	@Produce		json
//	@Success		200	{object}	MergeResponse
//	@Security		BearerAuth
//	@Router			/merge-images [post]
func (h *Handler) MergeImages(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MergeImages(r.Context())
	if err != nil {
		writeError(w, "merge images", err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{Kind: models.KindImage, Removed: n})
}

// MergeMeshes handles POST /api/merge-meshes.
//
//	@Summary		Merge meshes with identical geometry
//	@Tags			merge
//	@Produce		json
//	@Success		200	{object}	MergeResponse
//	@Security		BearerAuth
//	@Router			/merge-meshes [post]
func (h *Handler) MergeMeshes(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MergeMeshes(r.Context())
	if err != nil {
		writeError(w, "merge meshes", err)
		return
	}
	writeJSON(w, http.StatusOK, MergeResponse{Kind: models.KindMesh, Removed: n})
}
