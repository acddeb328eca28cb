package httpapi

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// handleOpenAPI serves the API descriptor from disk on every request, so the
// file can be replaced without a restart. Relative paths resolve against the
// current working directory.
func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	path := s.cfg.OpenAPIPath
	if path == "" {
		path = "openapi.json"
	}
	cwd, err := os.Getwd()
	if err == nil && !filepath.IsAbs(path) {
		path = filepath.Join(cwd, path)
	}
	log := s.requestLogger(r)
	log.Debug("serving openapi descriptor", zap.String("cwd", cwd), zap.String("path", path))

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("openapi descriptor not found", zap.String("path", path))
		http.Error(w, "openapi.json not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error("openapi descriptor unreadable", zap.String("path", path), zap.Error(err))
		http.Error(w, "openapi.json unreadable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
