package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/budgetease/api/internal/category"
)

// ListCategories renvoie toutes les catégories, actives ou non.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible de lister les catégories", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

// CreateCategory ajoute une catégorie de besoins.
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	input, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}

	created, err := h.categories.Create(r.Context(), input)
	if err != nil {
		writeCategoryError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{"category": created})
}

// UpdateCategory modifie nom et description.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	input, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}

	updated, err := h.categories.Update(r.Context(), id, input)
	if err != nil {
		writeCategoryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"category": updated})
}

// ToggleCategory inverse le flag actif.
func (h *Handler) ToggleCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	toggled, err := h.categories.ToggleActive(r.Context(), id)
	if err != nil {
		writeCategoryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"category": toggled})
}

// DeleteCategory supprime définitivement une catégorie inutilisée.
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "categoryID"))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	if err := h.categories.Delete(r.Context(), id); err != nil {
		writeCategoryError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func decodeCategoryInput(w http.ResponseWriter, r *http.Request) (category.Input, bool) {
	var payload struct {
		Name        string  `json:"name"`
		Description *string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return category.Input{}, false
	}
	return category.Input{Name: payload.Name, Description: payload.Description}, true
}

func writeCategoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, category.ErrNotFound):
		WriteError(w, http.StatusNotFound, "NOT_FOUND", "catégorie introuvable", nil)
	case errors.Is(err, category.ErrNameUsed):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, category.ErrInUse):
		WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	default:
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	}
}
