package workflow

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
)

// Store définit les opérations de persistance dont le service a besoin.
type Store interface {
	GetRequest(ctx context.Context, id uuid.UUID) (Request, error)
	CreateRequest(ctx context.Context, input CreateRequestInput) (Request, error)
	UpdateRequestStatus(ctx context.Context, id uuid.UUID, status string, stamps StatusStamps) (Request, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Request, error)
	ListByDepartment(ctx context.Context, department string) ([]Request, error)
	ListNeeds(ctx context.Context, requestID uuid.UUID) ([]Need, error)
	GetNeed(ctx context.Context, id uuid.UUID) (Need, error)
	SiblingTitleExists(ctx context.Context, requestID uuid.UUID, title string, exclude *uuid.UUID) (bool, error)
	CreateNeed(ctx context.Context, input NeedInput) (Need, error)
	UpdateNeed(ctx context.Context, id uuid.UUID, input NeedInput) (Need, error)
	DeleteNeed(ctx context.Context, id uuid.UUID) error
}

// UserDirectory résout les acteurs du workflow.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
}

// Service orchestre le cycle de vie des demandes et de leurs besoins.
// Toutes les règles d'autorisation sont appliquées ici, côté serveur :
// l'interface ne fait que refléter ces décisions, jamais les porter seule.
type Service struct {
	store Store
	users UserDirectory
	now   func() time.Time
}

// NewService crée une nouvelle instance.
func NewService(store Store, users UserDirectory) *Service {
	return &Service{store: store, users: users, now: time.Now}
}

// CreateRequest ouvre une demande à l'état DRAFT, besoins initiaux
// compris. Les titres des besoins du formulaire doivent être uniques
// entre eux (correspondance exacte, comme pour les besoins frères).
func (s *Service) CreateRequest(ctx context.Context, input CreateRequestInput) (Request, error) {
	input.Title = strings.TrimSpace(input.Title)
	if len([]rune(input.Title)) < 3 {
		return Request{}, ErrTitleTooShort
	}

	input.Department = repo.NormalizeDepartment(input.Department)
	if !repo.IsValidDepartment(input.Department) {
		return Request{}, ErrInvalidDepartment
	}

	seen := make(map[string]struct{}, len(input.Needs))
	for i := range input.Needs {
		if err := s.validateNeedInput(&input.Needs[i]); err != nil {
			return Request{}, err
		}
		if _, dup := seen[input.Needs[i].Title]; dup {
			return Request{}, ErrDuplicateTitle
		}
		seen[input.Needs[i].Title] = struct{}{}
	}

	return s.store.CreateRequest(ctx, input)
}

// GetRequest charge une demande avec ses besoins. Lecture réservée au
// propriétaire, à DIRECTOR/ADMIN et au chef du département concerné.
func (s *Service) GetRequest(ctx context.Context, id, actorID uuid.UUID) (Request, error) {
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Request{}, ErrActorNotFound
		}
		return Request{}, err
	}

	req, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return Request{}, err
	}

	if !canReadRequest(actor, req.UserID, req.Department) {
		return Request{}, ErrForbidden
	}

	needs, err := s.store.ListNeeds(ctx, id)
	if err != nil {
		return Request{}, err
	}
	req.Needs = needs
	return req, nil
}

// ListUserRequests retourne les demandes d'un utilisateur, besoins inclus.
func (s *Service) ListUserRequests(ctx context.Context, userID uuid.UUID) ([]Request, error) {
	return s.store.ListByUser(ctx, userID)
}

// ListDepartmentRequests retourne les demandes d'un département.
// Réservé à DIRECTOR/ADMIN et au chef du département lui-même : ce
// listing alimente les tableaux de bord transverses, pas les vues
// individuelles.
func (s *Service) ListDepartmentRequests(ctx context.Context, department string, actorID uuid.UUID) ([]Request, error) {
	department = repo.NormalizeDepartment(department)
	if !repo.IsValidDepartment(department) {
		return nil, ErrInvalidDepartment
	}

	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrActorNotFound
		}
		return nil, err
	}

	if !isDirectorOrAdmin(actor.Role) {
		if actor.Role != repo.RoleDepartmentHead || actor.Department != department {
			return nil, ErrForbidden
		}
	}

	return s.store.ListByDepartment(ctx, department)
}

func canReadRequest(actor repo.User, ownerID uuid.UUID, department string) bool {
	if actor.ID == ownerID || isDirectorOrAdmin(actor.Role) {
		return true
	}
	return actor.Role == repo.RoleDepartmentHead && actor.Department == department
}

// UpdateRequestStatus fait passer une demande au statut demandé, après
// vérification que l'arête existe dans la table de transitions et que le
// rôle de l'acteur y suffit. Les transitions VALIDATED et APPROVED posent
// leur horodatage avec le nom de l'acteur ; REJECTED trace le rejet sans
// effacer une éventuelle approbation antérieure.
func (s *Service) UpdateRequestStatus(ctx context.Context, requestID uuid.UUID, newStatus string, actorID uuid.UUID) (Request, error) {
	if !IsValidStatus(newStatus) {
		return Request{}, ErrInvalidStatus
	}

	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return Request{}, ErrActorNotFound
		}
		return Request{}, err
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return Request{}, err
	}

	minRole, edgeExists := transitionMinRole(req.Status, newStatus)
	if !edgeExists {
		return Request{}, ErrInvalidTransition
	}
	if roleRank[actor.Role] < roleRank[minRole] {
		return Request{}, ErrForbidden
	}

	var stamps StatusStamps
	now := s.now().UTC()
	switch newStatus {
	case StatusValidated:
		stamps.ValidatedAt = &now
		stamps.ValidatedBy = &actor.Name
	case StatusApproved:
		stamps.ApprovedAt = &now
		stamps.ApprovedBy = &actor.Name
	case StatusRejected:
		stamps.RejectedAt = &now
		stamps.RejectedBy = &actor.Name
	}

	return s.store.UpdateRequestStatus(ctx, requestID, newStatus, stamps)
}

// DeleteRequest supprime une demande. Le propriétaire peut supprimer tant
// que la demande n'est pas approuvée ; DIRECTOR et ADMIN peuvent toujours.
func (s *Service) DeleteRequest(ctx context.Context, requestID, actorID uuid.UUID) error {
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrActorNotFound
		}
		return err
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if !isDirectorOrAdmin(actor.Role) {
		if req.UserID != actor.ID || req.Status == StatusApproved {
			return ErrForbidden
		}
	}

	return s.store.DeleteRequest(ctx, requestID)
}

// AddNeed crée un besoin après contrôle du titre dupliqué parmi les
// besoins frères (correspondance exacte, sensible à la casse — aucune
// normalisation, à l'identique du comportement historique).
func (s *Service) AddNeed(ctx context.Context, input NeedInput, actorID uuid.UUID) (Need, error) {
	if err := s.validateNeedInput(&input); err != nil {
		return Need{}, err
	}

	if err := s.guardNeedMutation(ctx, input.RequestID, actorID); err != nil {
		return Need{}, err
	}

	exists, err := s.store.SiblingTitleExists(ctx, input.RequestID, input.Title, nil)
	if err != nil {
		return Need{}, err
	}
	if exists {
		return Need{}, ErrDuplicateTitle
	}

	return s.store.CreateNeed(ctx, input)
}

// UpdateNeed modifie un besoin, avec le même contrôle de titre en excluant
// le besoin lui-même.
func (s *Service) UpdateNeed(ctx context.Context, needID uuid.UUID, input NeedInput, actorID uuid.UUID) (Need, error) {
	if err := s.validateNeedInput(&input); err != nil {
		return Need{}, err
	}

	need, err := s.store.GetNeed(ctx, needID)
	if err != nil {
		return Need{}, err
	}

	if err := s.guardNeedMutation(ctx, need.RequestID, actorID); err != nil {
		return Need{}, err
	}

	exists, err := s.store.SiblingTitleExists(ctx, need.RequestID, input.Title, &needID)
	if err != nil {
		return Need{}, err
	}
	if exists {
		return Need{}, ErrDuplicateTitle
	}

	input.RequestID = need.RequestID
	return s.store.UpdateNeed(ctx, needID, input)
}

// DeleteNeed supprime un besoin, soumis au même garde-fou que les autres
// mutations de besoins.
func (s *Service) DeleteNeed(ctx context.Context, needID, actorID uuid.UUID) error {
	need, err := s.store.GetNeed(ctx, needID)
	if err != nil {
		return err
	}

	if err := s.guardNeedMutation(ctx, need.RequestID, actorID); err != nil {
		return err
	}

	return s.store.DeleteNeed(ctx, needID)
}

func (s *Service) validateNeedInput(input *NeedInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return ErrTitleTooShort
	}
	if input.Quantity < 1 {
		return ErrInvalidQuantity
	}
	if input.EstimatedCost != nil && *input.EstimatedCost < 0 {
		return ErrInvalidCost
	}
	return nil
}

// guardNeedMutation refuse la modification des besoins d'une demande déjà
// approuvée, sauf pour DIRECTOR et ADMIN.
func (s *Service) guardNeedMutation(ctx context.Context, requestID, actorID uuid.UUID) error {
	actor, err := s.users.GetUserByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrActorNotFound
		}
		return err
	}

	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if req.Status == StatusApproved && !isDirectorOrAdmin(actor.Role) {
		return ErrForbidden
	}
	return nil
}

func transitionMinRole(from, to string) (string, bool) {
	edges, ok := transitions[from]
	if !ok {
		return "", false
	}
	minRole, ok := edges[to]
	return minRole, ok
}

func isDirectorOrAdmin(role string) bool {
	return roleRank[role] >= roleRank[repo.RoleDirector]
}
