package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/dupegraph/internal/finder"
)

const maxUploadBytes = 50 << 20 // 50 MB

// TextureHandler serves texture files and imports uploaded images.
type TextureHandler struct {
	svc       *finder.Service
	vaultRoot string
}

// NewTextureHandler creates a handler rooted at the vault directory.
func NewTextureHandler(svc *finder.Service, vaultRoot string) *TextureHandler {
	return &TextureHandler{svc: svc, vaultRoot: vaultRoot}
}

func (h *TextureHandler) texturePath() string {
	return filepath.Join(h.vaultRoot, finder.TextureDir)
}

// safeName validates that the filename is a plain name (no path separators,
// no traversal) and returns the absolute path under the texture dir.
func (h *TextureHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || strings.HasPrefix(cleaned, ".") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	abs := filepath.Join(h.texturePath(), cleaned)
	if !strings.HasPrefix(abs, h.texturePath()+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes texture directory")
	}
	return abs, nil
}

// ServeFile handles GET /textures/{filename}.
func (h *TextureHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.safeName(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/images (multipart/form-data, field "file", optional
// field "name" for the image resource).
func (h *TextureHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	if _, err := h.safeName(header.Filename); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to read file"))
		return
	}

	detail, err := h.svc.ImportImage(r.Context(), r.FormValue("name"), header.Filename, data)
	if err != nil {
		writeError(w, "import image", err)
		return
	}

	writeJSON(w, http.StatusCreated, ImageUploadResponse{
		Filename: header.Filename,
		Size:     int64(len(data)),
		URL:      "/" + finder.TextureDir + "/" + header.Filename,
		Resource: detail,
	})
}
