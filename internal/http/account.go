package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/service"
	"github.com/budgetease/api/internal/storage"
)

const imageUploadLimit = 5 << 20

// UpdateProfile modifie nom et email du compte courant.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject invalide", nil)
		return
	}

	var payload struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	profile, err := h.account.UpdateProfile(r.Context(), subject, payload.Name, payload.Email)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrDuplicateEmail):
			WriteError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
		case errors.Is(err, repo.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "compte introuvable", nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": profile})
}

// ChangePassword remplace le mot de passe du compte courant.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject invalide", nil)
		return
	}

	var payload struct {
		Current string `json:"current_password"`
		Next    string `json:"new_password"`
		Confirm string `json:"confirm_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	if err := h.account.ChangePassword(r.Context(), subject, payload.Current, payload.Next, payload.Confirm); err != nil {
		switch {
		case errors.Is(err, service.ErrWrongPassword):
			WriteError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
		case errors.Is(err, service.ErrPasswordMismatch):
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		case errors.Is(err, repo.ErrNotFound):
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "compte introuvable", nil)
		default:
			WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// UpdateImages téléverse avatar et/ou image de fond (multipart,
// champs "avatar" et "background", tous deux optionnels).
func (h *Handler) UpdateImages(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject invalide", nil)
		return
	}

	if err := r.ParseMultipartForm(imageUploadLimit * 2); err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "form invalide", nil)
		return
	}

	switch h.storage.(type) {
	case storage.NoopUploader, *storage.NoopUploader:
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "stockage indisponible", nil)
		return
	}

	avatar, err := optionalImage(r.MultipartForm, "avatar")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}
	background, err := optionalImage(r.MultipartForm, "background")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
		return
	}

	if avatar == nil && background == nil {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "aucun fichier fourni", nil)
		return
	}

	profile, err := h.account.UpdateImages(r.Context(), subject, avatar, background)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "NOT_FOUND", "compte introuvable", nil)
			return
		}
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "impossible d'envoyer les images", nil)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"user": profile})
}

func optionalImage(form *multipart.Form, field string) (*service.ImageUpload, error) {
	if form == nil {
		return nil, nil
	}
	files := form.File[field]
	if len(files) == 0 {
		return nil, nil
	}

	data, contentType, err := readMultipartFile(files[0], imageUploadLimit)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("%s : type %s non supporté", field, contentType)
	}

	return &service.ImageUpload{
		Filename:    files[0].Filename,
		ContentType: contentType,
		Body:        data,
	}, nil
}

func readMultipartFile(header *multipart.FileHeader, limit int64) ([]byte, string, error) {
	file, err := header.Open()
	if err != nil {
		return nil, "", fmt.Errorf("échec à l'ouverture du fichier : %w", err)
	}
	defer file.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(file, limit)); err != nil {
		return nil, "", fmt.Errorf("échec à la lecture du fichier : %w", err)
	}

	if int64(buf.Len()) >= limit {
		return nil, "", fmt.Errorf("le fichier dépasse %d octets", limit)
	}

	contentType := header.Header.Get("Content-Type")
	if strings.TrimSpace(contentType) == "" {
		contentType = http.DetectContentType(buf.Bytes())
	}

	return buf.Bytes(), contentType, nil
}
