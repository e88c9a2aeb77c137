package handlers

import (
	"net/http"
)

// ListModels returns the provider models supporting content generation,
// preferred tiers first. An empty list means "no models available" (bad key,
// provider outage); it is still a 200 since listing itself did not fail here.
func (a *App) ListModels(w http.ResponseWriter, r *http.Request) {
	models := a.Models.ListModels(r.Context())
	if models == nil {
		models = []string{}
	}
	a.json(w, http.StatusOK, map[string]any{"models": models})
}
