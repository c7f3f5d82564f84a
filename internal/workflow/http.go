package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	httpmiddleware "github.com/budgetease/api/internal/http/middleware"
)

type ServiceProvider interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (Request, error)
	GetRequest(ctx context.Context, id, actorID uuid.UUID) (Request, error)
	ListUserRequests(ctx context.Context, userID uuid.UUID) ([]Request, error)
	ListDepartmentRequests(ctx context.Context, department string, actorID uuid.UUID) ([]Request, error)
	UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, newStatus string, actorID uuid.UUID) (Request, error)
	DeleteRequest(ctx context.Context, requestID, actorID uuid.UUID) error
	AddNeed(ctx context.Context, input NeedInput, actorID uuid.UUID) (Need, error)
	UpdateNeed(ctx context.Context, needID uuid.UUID, input NeedInput, actorID uuid.UUID) (Need, error)
	DeleteNeed(ctx context.Context, needID, actorID uuid.UUID) error
}

// Handler expose les endpoints REST du workflow de demandes.
type Handler struct {
	service ServiceProvider
}

func NewHandler(service ServiceProvider) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/requests", h.listMyRequests)
	r.Post("/requests", h.createRequest)
	r.Get("/requests/{requestID}", h.getRequest)
	r.Delete("/requests/{requestID}", h.deleteRequest)
	r.Post("/requests/{requestID}/status", h.updateStatus)
	r.Post("/requests/{requestID}/needs", h.addNeed)
	r.Put("/needs/{needID}", h.updateNeed)
	r.Delete("/needs/{needID}", h.deleteNeed)
	r.Get("/departments/{department}/requests", h.listDepartmentRequests)
}

type requestPayload struct {
	Title       string        `json:"title"`
	Description *string       `json:"description"`
	Department  string        `json:"department"`
	Needs       []needPayload `json:"needs"`
}

type needPayload struct {
	Title         string   `json:"title"`
	Description   *string  `json:"description"`
	CategoryID    string   `json:"category_id"`
	Quantity      int      `json:"quantity"`
	EstimatedCost *float64 `json:"estimated_cost"`
}

func (h *Handler) listMyRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	requests, err := h.service.ListUserRequests(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "impossible de charger les demandes", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func (h *Handler) createRequest(w http.ResponseWriter, r *http.Request) {
	userID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	var payload requestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	needs := make([]NeedInput, 0, len(payload.Needs))
	for _, n := range payload.Needs {
		input, ok := needPayloadToInput(w, n, uuid.Nil)
		if !ok {
			return
		}
		needs = append(needs, input)
	}

	request, err := h.service.CreateRequest(r.Context(), CreateRequestInput{
		Title:       payload.Title,
		Description: payload.Description,
		Department:  payload.Department,
		UserID:      userID,
		Needs:       needs,
	})
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"request": request})
}

func (h *Handler) getRequest(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	request, err := h.service.GetRequest(r.Context(), requestID, actorID)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"request": request})
}

func (h *Handler) deleteRequest(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	if err := h.service.DeleteRequest(r.Context(), requestID, actorID); err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return
	}

	request, err := h.service.UpdateRequestStatus(r.Context(), requestID, payload.Status, actorID)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"request": request})
}

func (h *Handler) addNeed(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	requestID, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	input, ok := decodeNeedPayload(w, r, requestID)
	if !ok {
		return
	}

	need, err := h.service.AddNeed(r.Context(), input, actorID)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"need": need})
}

func (h *Handler) updateNeed(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	needID, err := uuid.Parse(chi.URLParam(r, "needID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	input, ok := decodeNeedPayload(w, r, uuid.Nil)
	if !ok {
		return
	}

	need, err := h.service.UpdateNeed(r.Context(), needID, input, actorID)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"need": need})
}

func (h *Handler) deleteNeed(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	needID, err := uuid.Parse(chi.URLParam(r, "needID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "identifiant invalide", nil)
		return
	}

	if err := h.service.DeleteNeed(r.Context(), needID, actorID); err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listDepartmentRequests(w http.ResponseWriter, r *http.Request) {
	actorID, err := subjectAsUUID(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "AUTH", "identification invalide", nil)
		return
	}

	department := chi.URLParam(r, "department")

	requests, err := h.service.ListDepartmentRequests(r.Context(), department, actorID)
	if err != nil {
		h.writeWorkflowError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

func decodeNeedPayload(w http.ResponseWriter, r *http.Request, requestID uuid.UUID) (NeedInput, bool) {
	var payload needPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "JSON invalide", nil)
		return NeedInput{}, false
	}
	return needPayloadToInput(w, payload, requestID)
}

func needPayloadToInput(w http.ResponseWriter, payload needPayload, requestID uuid.UUID) (NeedInput, bool) {
	categoryID, err := uuid.Parse(payload.CategoryID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION", "catégorie invalide", nil)
		return NeedInput{}, false
	}

	return NeedInput{
		Title:         payload.Title,
		Description:   payload.Description,
		CategoryID:    categoryID,
		Quantity:      payload.Quantity,
		EstimatedCost: payload.EstimatedCost,
		RequestID:     requestID,
	}, true
}

// writeWorkflowError traduit les erreurs du service en réponses HTTP.
// Les échecs de validation restent des messages inline côté client, jamais
// des erreurs bloquantes.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTitleTooShort),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidCost),
		errors.Is(err, ErrInvalidStatus),
		errors.Is(err, ErrInvalidDepartment):
		writeError(w, http.StatusBadRequest, "VALIDATION", err.Error(), nil)
	case errors.Is(err, ErrDuplicateTitle):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error(), nil)
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrInvalidTransition):
		writeError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNeedNotFound), errors.Is(err, ErrActorNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "INTERNAL", "erreur interne", nil)
	}
}

func subjectAsUUID(r *http.Request) (uuid.UUID, error) {
	subject := httpmiddleware.GetSubject(r.Context())
	return uuid.Parse(subject)
}

type successEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

type errorEnvelope struct {
	Data  any        `json:"data"`
	Error *errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(successEnvelope{Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Data: nil,
		Error: &errorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}
