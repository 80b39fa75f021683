package handlers

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"
)

// OpenAPIHandler serves the API description as YAML and as JSON
type OpenAPIHandler struct {
	path string

	once    sync.Once
	yamlDoc []byte
	jsonDoc []byte
	loadErr error
}

// NewOpenAPIHandler creates a handler for the document at openAPIPath.
// The file is read once, on first request.
func NewOpenAPIHandler(openAPIPath string) *OpenAPIHandler {
	absPath, err := filepath.Abs(filepath.Clean(openAPIPath))
	if err != nil {
		absPath = openAPIPath
	}
	return &OpenAPIHandler{path: absPath}
}

// RegisterRoutes registers OpenAPI routes
func (h *OpenAPIHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/openapi.yaml", h.ServeYAML).Methods("GET")
	r.HandleFunc("/api/v1/openapi.json", h.ServeJSON).Methods("GET")
}

func (h *OpenAPIHandler) load() {
	ext := strings.ToLower(filepath.Ext(h.path))
	if ext != ".yaml" && ext != ".yml" {
		h.loadErr = os.ErrPermission
		return
	}
	data, err := os.ReadFile(h.path)
	if err != nil {
		h.loadErr = err
		return
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		h.loadErr = err
		return
	}
	jsonDoc, err := json.Marshal(doc)
	if err != nil {
		h.loadErr = err
		return
	}
	h.yamlDoc, h.jsonDoc = data, jsonDoc
}

// ServeYAML serves the OpenAPI spec in YAML format
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/x-yaml", func() []byte { return h.yamlDoc })
}

// ServeJSON serves the OpenAPI spec in JSON format
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.serve(w, "application/json", func() []byte { return h.jsonDoc })
}

func (h *OpenAPIHandler) serve(w http.ResponseWriter, contentType string, body func() []byte) {
	h.once.Do(h.load)
	if h.loadErr != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "OpenAPI specification not found")
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(body())
}
