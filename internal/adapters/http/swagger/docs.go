// Package swagger serves the OpenAPI description of the prediction API.
package swagger

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/knadh/koanf/parsers/yaml"
)

// OpenAPI is the embedded document.
//
//go:embed openapi.yaml
var OpenAPI []byte

// Register mounts the docs on mux:
//
//	GET /api-docs      ReDoc page
//	GET /openapi.yaml  the document as written
//	GET /openapi.json  the same document converted to JSON
//
// It panics on a nil mux or if the embedded document is not valid YAML.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	asJSON, err := toJSON(OpenAPI)
	if err != nil {
		panic(err)
	}

	mux.HandleFunc("/api-docs", static("text/html; charset=utf-8", []byte(redocPage)))
	mux.HandleFunc("/openapi.yaml", static("application/yaml; charset=utf-8", OpenAPI))
	mux.HandleFunc("/openapi.json", static("application/json; charset=utf-8", asJSON))
}

func static(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}
}

func toJSON(doc []byte) ([]byte, error) {
	m, err := yaml.Parser().Unmarshal(doc)
	if err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	return json.Marshal(m)
}

const redocPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>farecast API</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
