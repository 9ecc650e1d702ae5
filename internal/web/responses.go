package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
)

// StatusResponse is the body of GET /status. Token detail fields are only
// present while authenticated. The status CLI command prints the same
// document so scripts can consume either surface.
type StatusResponse struct {
	Authenticated bool   `json:"authenticated"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
	Scope         string `json:"scope,omitempty"`
	DisplayName   string `json:"display_name,omitempty"`
}

// ResultResponse is the body of the POST endpoints.
type ResultResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
// Logs encoding failures internally using the provided context.
func writeJSON(ctx context.Context, w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	// Headers and status are written before encoding to avoid buffering.
	// If encoding fails, the client may receive a partial response.
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.ErrorContext(ctx, "failed to encode JSON response", "error", err)
	}
}

// writeJSONError writes a JSON error response with the given status code.
// Similar to http.Error but returns JSON instead of plain text.
func writeJSONError(ctx context.Context, w http.ResponseWriter, message string, status int) {
	writeJSON(ctx, w, ErrorResponse{Error: message}, status)
}

// pageTemplate keeps the browser-facing pages dependency-free. All %s slots
// are escaped before substitution.
const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>%s</title>
<style>
body { font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; background: #121212; color: #fff; display: flex; align-items: center; justify-content: center; min-height: 100vh; margin: 0; }
main { text-align: center; padding: 2rem; }
h1 { font-size: 1.5rem; margin-bottom: 0.5rem; }
p { color: #b3b3b3; }
</style>
</head>
<body>
<main>
<h1>%s</h1>
<p>%s</p>
</main>
</body>
</html>
`

// renderPage writes a small HTML result page for the browser half of the
// flow. title and detail are escaped; detail may echo provider input.
func renderPage(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	safeTitle := html.EscapeString(title)
	fmt.Fprintf(w, pageTemplate, safeTitle, safeTitle, html.EscapeString(detail))
}
