package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetease/api/internal/access"
)

// ListPageAccess renvoie la matrice pages × rôles.
func (h *Handler) ListPageAccess(w http.ResponseWriter, r *http.Request) {
	pages, err := h.access.ListPagesWithAccess(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible de charger la matrice d'accès", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// UpdatePageAccess fixe la permission d'un rôle sur une page. L'écriture
// est idempotente : rejouer la même valeur ne crée pas de doublon.
func (h *Handler) UpdatePageAccess(w http.ResponseWriter, r *http.Request) {
	pageID, err := uuid.Parse(chi.URLParam(r, "pageID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identifiant de page invalide", nil)
		return
	}

	var payload struct {
		Role    string `json:"role"`
		Allowed bool   `json:"allowed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	entry, err := h.access.UpdatePageAccess(r.Context(), pageID, payload.Role, payload.Allowed)
	if err != nil {
		switch {
		case errors.Is(err, access.ErrInvalidRole):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, access.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "page introuvable", nil)
		default:
			WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible de mettre à jour l'accès", nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"access": entry})
}
