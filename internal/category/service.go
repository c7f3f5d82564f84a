package category

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Store définit les opérations de persistance dont le service a besoin.
type Store interface {
	List(ctx context.Context) ([]Category, error)
	GetByID(ctx context.Context, id uuid.UUID) (Category, error)
	Create(ctx context.Context, input Input) (Category, error)
	Update(ctx context.Context, id uuid.UUID, input Input) (Category, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (Category, error)
	CountNeeds(ctx context.Context, id uuid.UUID) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

var errNameRequired = errors.New("le nom de la catégorie est obligatoire")

// Service centralise les cas d'usage des catégories de besoins.
type Service struct {
	store Store
}

// NewService crée une nouvelle instance.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List retourne toutes les catégories.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.store.List(ctx)
}

// Get charge une catégorie.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Category, error) {
	return s.store.GetByID(ctx, id)
}

// Create ajoute une catégorie active.
func (s *Service) Create(ctx context.Context, input Input) (Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Category{}, errNameRequired
	}
	return s.store.Create(ctx, input)
}

// Update modifie nom et description.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input Input) (Category, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Category{}, errNameRequired
	}
	return s.store.Update(ctx, id, input)
}

// ToggleActive inverse le flag actif (désactivation douce).
func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (Category, error) {
	current, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Category{}, err
	}
	return s.store.SetActive(ctx, id, !current.IsActive)
}

// Delete supprime définitivement, refusé tant que des besoins la référencent.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	count, err := s.store.CountNeeds(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	return s.store.Delete(ctx, id)
}
