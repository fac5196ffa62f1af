package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/picrate/picrate/utils"
)

const imageCacheSeconds = 3600

// ImageServer creates a handler serving the images under annotation
// straight from the catalog root. Only supported raster files inside
// the root are reachable; anything else is rejected before the disk is
// touched.
func ImageServer(imagesRoot string) http.HandlerFunc {
	cleanRoot := filepath.Clean(imagesRoot)

	return func(w http.ResponseWriter, r *http.Request) {
		relativePath := chi.URLParam(r, "*")
		if relativePath == "" || strings.HasPrefix(relativePath, "/") || strings.Contains(relativePath, "..") {
			http.Error(w, "Invalid image path", http.StatusBadRequest)
			return
		}
		if !utils.IsRasterImage(relativePath) {
			http.Error(w, "Invalid image path", http.StatusBadRequest)
			return
		}

		requestedPath := filepath.Join(cleanRoot, filepath.FromSlash(relativePath))
		cleanedPath := filepath.Clean(requestedPath)

		if !strings.HasPrefix(cleanedPath, cleanRoot+string(os.PathSeparator)) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			log.Printf("attempted image access outside images folder: Request='%s', Resolved='%s', Root='%s'",
				r.URL.Path, cleanedPath, cleanRoot)
			return
		}

		if _, err := os.Stat(cleanedPath); os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			log.Printf("error stating image %s: %v", cleanedPath, err)
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", imageCacheSeconds))
		http.ServeFile(w, r, cleanedPath)
	}
}
