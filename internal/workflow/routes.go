package workflow

import "github.com/go-chi/chi/v5"

// Mount enregistre les routes du module workflow.
func Mount(r chi.Router, handler *Handler) {
	handler.RegisterRoutes(r)
}
