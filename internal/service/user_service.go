package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/util"
)

var (
	// ErrInvalidRole indique un rôle hors de la liste autorisée.
	ErrInvalidRole = errors.New("rôle invalide")
	// ErrInvalidDepartment indique un département inconnu.
	ErrInvalidDepartment = errors.New("département invalide")
)

// UserRepo définit l'accès aux données pour l'administration des comptes.
type UserRepo interface {
	ListUsers(ctx context.Context) ([]repo.User, error)
	UpsertUserByEmail(ctx context.Context, name, email, role, department string) (repo.User, error)
	DeleteUsers(ctx context.Context, ids []uuid.UUID) (int64, error)
}

// UpsertUserInput porte les champs d'une création ou mise à jour
// de compte par un administrateur.
type UpsertUserInput struct {
	Name       string
	Email      string
	Role       string
	Department string
}

// UserService expose les opérations d'administration des comptes.
type UserService struct {
	repo UserRepo
}

// NewUserService crée une nouvelle instance.
func NewUserService(r UserRepo) *UserService {
	return &UserService{repo: r}
}

// List renvoie tous les comptes, rôle et département inclus.
func (s *UserService) List(ctx context.Context) ([]Profile, error) {
	users, err := s.repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	profiles := make([]Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, toProfile(u))
	}
	return profiles, nil
}

// Upsert crée le compte s'il n'existe pas, sinon met à jour nom, rôle
// et département. L'email sert de clé : un compte créé ici n'a pas de
// mot de passe tant que l'utilisateur ne s'est pas inscrit lui-même.
func (s *UserService) Upsert(ctx context.Context, input UpsertUserInput) (Profile, error) {
	if err := util.RequireString(input.Name, "nom"); err != nil {
		return Profile{}, err
	}
	if err := util.ValidateEmail(input.Email); err != nil {
		return Profile{}, err
	}

	role := repo.NormalizeRole(input.Role)
	if role != "" && !repo.IsValidRole(role) {
		return Profile{}, ErrInvalidRole
	}

	department := repo.NormalizeDepartment(input.Department)
	if !repo.IsValidDepartment(department) {
		return Profile{}, ErrInvalidDepartment
	}

	user, err := s.repo.UpsertUserByEmail(ctx,
		strings.TrimSpace(input.Name),
		strings.ToLower(strings.TrimSpace(input.Email)),
		role, department)
	if err != nil {
		return Profile{}, err
	}

	return toProfile(user), nil
}

// Delete supprime les comptes dont les identifiants sont fournis et
// renvoie le nombre de lignes affectées.
func (s *UserService) Delete(ctx context.Context, ids []uuid.UUID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.repo.DeleteUsers(ctx, ids)
}
