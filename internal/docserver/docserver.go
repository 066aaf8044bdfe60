// Package docserver serves a documentation Catalog over HTTP.
package docserver

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/example/luadoc-gen/internal/bundle"
)

// Config holds the options of the documentation server.
type Config struct {
	// BasePath under which the JSON documents are served. Defaults to "/docs".
	BasePath string
	// AssetsDir, when set, is served at "/assets/" so the front end can load
	// the bundles directly.
	AssetsDir string
}

// indexEntry is one line of the document listing.
type indexEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	File string `json:"file"`
}

// NewHandler returns a handler serving the documents of catalog. The catalog
// is the only source of documents.
func NewHandler(catalog *bundle.Catalog, cfg Config, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	base := "/" + strings.Trim(cfg.BasePath, "/")
	if base == "/" {
		base = "/docs"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"/{$}", func(w http.ResponseWriter, _ *http.Request) {
		entries := make([]indexEntry, 0, catalog.Len())
		for _, e := range catalog.Entries() {
			if _, ok := catalog.Lookup(e.ID); ok {
				entries = append(entries, indexEntry{ID: e.ID, Name: e.Name, File: e.File})
			}
		}
		writeJSON(w, http.StatusOK, entries, logger)
	})
	mux.HandleFunc("GET "+base+"/{doc}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := strings.CutSuffix(r.PathValue("doc"), ".json")
		if !ok {
			http.NotFound(w, r)
			return
		}
		doc, found := catalog.Lookup(id)
		if !found {
			if doc, found = catalog.ByName(id); !found {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown documentation id " + id}, logger)
				return
			}
		}
		writeJSON(w, http.StatusOK, doc, logger)
	})
	if cfg.AssetsDir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(cfg.AssetsDir))))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		logger.Warn("failed to write response", zap.Error(err))
	}
}
