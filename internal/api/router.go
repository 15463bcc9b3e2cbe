package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dupegraph/internal/finder"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve the texture directory.
func NewRouter(svc *finder.Service, defaults finder.Settings, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc, defaults)
	th := NewTextureHandler(svc, vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/kinds", h.ListKinds)

	// Resources.
	r.Get("/resources", h.ListResources)
	r.Post("/resources", h.ImportResource)
	r.Get("/resources/{kind}/{name}", h.GetResource)
	r.Get("/resources/{kind}/{name}/users", h.Users)

	// Similarity results.
	r.Post("/similar/{kind}", h.FindSimilar)
	r.Get("/similar", h.Results)
	r.Delete("/similar", h.ClearResults)

	// Merges.
	r.Post("/merge/{kind}", h.MergeDuplicates)
	r.Post("/merge-images", h.MergeImages)
	r.Post("/merge-meshes", h.MergeMeshes)

	// Image upload (auth-protected).
	r.Post("/images", th.Upload)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
