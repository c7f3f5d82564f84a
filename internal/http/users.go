package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/service"
)

// ListUsers renvoie tous les comptes pour l'écran d'administration.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible de lister les comptes", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// UpsertUser crée ou met à jour un compte par email.
func (h *Handler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Role       string `json:"role"`
		Department string `json:"department"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	profile, err := h.users.Upsert(r.Context(), service.UpsertUserInput{
		Name:       payload.Name,
		Email:      payload.Email,
		Role:       payload.Role,
		Department: payload.Department,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRole), errors.Is(err, service.ErrInvalidDepartment):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, repo.ErrDuplicateEmail):
			WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// DeleteUsers supprime en masse les comptes listés dans le corps.
func (h *Handler) DeleteUsers(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	ids := make([]uuid.UUID, 0, len(payload.IDs))
	for _, raw := range payload.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", map[string]string{"id": raw})
			return
		}
		ids = append(ids, id)
	}

	deleted, err := h.users.Delete(r.Context(), ids)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible de supprimer les comptes", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}
