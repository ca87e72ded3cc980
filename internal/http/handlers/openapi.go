package handlers

import (
	_ "embed"
	"fmt"
	"net/http"
)

const (
	docsTitle   = "Content Maker API Docs"
	openAPIPath = "/v1/openapi.json"
	redocScript = "https://cdn.jsdelivr.net/npm/redoc@2.2.0/bundles/redoc.standalone.js"
)

// openAPIDocument describes the job API: generate, status, download, job
// listing and the game routes.
//
//go:embed openapi.json
var openAPIDocument []byte

var docsPage = []byte(fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8" />
<title>%s</title>
<meta name="viewport" content="width=device-width, initial-scale=1" />
<style>body { margin: 0; } redoc { display: block; height: 100vh; }</style>
</head>
<body>
<redoc spec-url="%s"></redoc>
<script src="%s"></script>
</body>
</html>`, docsTitle, openAPIPath, redocScript))

// OpenAPIJSON serves the embedded OpenAPI document for the job API.
func (a *App) OpenAPIJSON(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

// OpenAPIDocs renders the document with Redoc.
func (a *App) OpenAPIDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(docsPage)
}
