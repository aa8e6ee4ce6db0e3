package handlers

import "net/http"

// NewRouter mounts the API routes. Anything unmatched gets the JSON 404.
func NewRouter(game *GameHandler, health *HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()
	game.Register(mux)
	mux.Handle("GET /api/health", health)
	mux.HandleFunc("/", game.NotFound)
	return mux
}
