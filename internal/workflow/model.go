package workflow

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
)

var (
	ErrNotFound          = errors.New("demande introuvable")
	ErrNeedNotFound      = errors.New("besoin introuvable")
	ErrActorNotFound     = errors.New("utilisateur introuvable")
	ErrForbidden         = errors.New("action non autorisée")
	ErrInvalidTransition = errors.New("transition de statut non autorisée")
	ErrDuplicateTitle    = errors.New("un besoin avec ce titre existe déjà")
	ErrTitleTooShort     = errors.New("le titre doit contenir au moins 3 caractères")
	ErrInvalidQuantity   = errors.New("la quantité doit être supérieure ou égale à 1")
	ErrInvalidCost       = errors.New("le coût estimé ne peut pas être négatif")
	ErrInvalidDepartment = errors.New("département invalide")
	ErrInvalidStatus     = errors.New("statut invalide")
)

// Statuts du cycle de vie d'une demande.
const (
	StatusDraft     = "DRAFT"
	StatusSubmitted = "SUBMITTED"
	StatusValidated = "VALIDATED"
	StatusApproved  = "APPROVED"
	StatusRejected  = "REJECTED"
)

// Request représente une demande budgétaire et ses métadonnées de workflow.
// Les horodatages de validation/approbation sont posés au moment de la
// transition correspondante et jamais effacés ensuite : un rejet postérieur
// à une approbation conserve la trace historique de l'approbation.
type Request struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	UserID      uuid.UUID  `json:"user_id"`
	Department  string     `json:"department"`
	ValidatedAt *time.Time `json:"validated_at"`
	ValidatedBy *string    `json:"validated_by"`
	ApprovedAt  *time.Time `json:"approved_at"`
	ApprovedBy  *string    `json:"approved_by"`
	RejectedAt  *time.Time `json:"rejected_at"`
	RejectedBy  *string    `json:"rejected_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Needs       []Need     `json:"needs,omitempty"`
}

// Need représente une ligne de besoin rattachée à une demande.
type Need struct {
	ID            uuid.UUID `json:"id"`
	RequestID     uuid.UUID `json:"request_id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	CategoryID    uuid.UUID `json:"category_id"`
	CategoryName  string    `json:"category_name,omitempty"`
	Quantity      int       `json:"quantity"`
	EstimatedCost *float64  `json:"estimated_cost"`
	CreatedAt     time.Time `json:"created_at"`
}

// CreateRequestInput contient les champs de création d'une demande.
// Les besoins initiaux du formulaire sont insérés atomiquement avec la
// demande.
type CreateRequestInput struct {
	Title       string
	Description *string
	Department  string
	UserID      uuid.UUID
	Needs       []NeedInput
}

// NeedInput contient les champs de création ou de mise à jour d'un besoin.
type NeedInput struct {
	Title         string
	Description   *string
	CategoryID    uuid.UUID
	Quantity      int
	EstimatedCost *float64
	RequestID     uuid.UUID
}

// StatusStamps regroupe les horodatages posés lors d'une transition.
type StatusStamps struct {
	ValidatedAt *time.Time
	ValidatedBy *string
	ApprovedAt  *time.Time
	ApprovedBy  *string
	RejectedAt  *time.Time
	RejectedBy  *string
}

var roleRank = map[string]int{
	repo.RolePersonal:       0,
	repo.RoleDepartmentHead: 1,
	repo.RoleDirector:       2,
	repo.RoleAdmin:          3,
}

// transitions décrit les arêtes légales du workflow : pour chaque statut
// courant, les statuts atteignables et le rôle minimal exigé. Seul un
// DIRECTOR (ou ADMIN) pose ou retire le statut APPROVED ; un PERSONAL ne
// change jamais de statut (aucune arête n'est atteignable au rang 0).
var transitions = map[string]map[string]string{
	StatusDraft: {
		StatusSubmitted: repo.RoleDepartmentHead,
		StatusRejected:  repo.RoleDepartmentHead,
	},
	StatusSubmitted: {
		StatusValidated: repo.RoleDepartmentHead,
		StatusRejected:  repo.RoleDepartmentHead,
		StatusDraft:     repo.RoleDepartmentHead,
	},
	StatusValidated: {
		StatusApproved:  repo.RoleDirector,
		StatusRejected:  repo.RoleDepartmentHead,
		StatusSubmitted: repo.RoleDepartmentHead,
	},
	StatusApproved: {
		StatusValidated: repo.RoleDirector,
		StatusSubmitted: repo.RoleDirector,
		StatusRejected:  repo.RoleDirector,
		StatusDraft:     repo.RoleDirector,
	},
	StatusRejected: {
		StatusDraft: repo.RoleDepartmentHead,
	},
}

// IsValidStatus indique si le statut appartient à l'énumération.
func IsValidStatus(status string) bool {
	switch status {
	case StatusDraft, StatusSubmitted, StatusValidated, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// CanTransition indique si le rôle donné peut faire passer une demande
// du statut from au statut to.
func CanTransition(from, to, role string) bool {
	edges, ok := transitions[from]
	if !ok {
		return false
	}
	minRole, ok := edges[to]
	if !ok {
		return false
	}
	return roleRank[role] >= roleRank[minRole]
}

// ReachableStatuses liste les statuts atteignables depuis from pour un rôle.
func ReachableStatuses(from, role string) []string {
	var out []string
	for to := range transitions[from] {
		if CanTransition(from, to, role) {
			out = append(out, to)
		}
	}
	return out
}
