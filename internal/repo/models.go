package repo

import (
	"time"

	"github.com/google/uuid"
)

// User représente un utilisateur de la plateforme.
// Role vide signifie qu'aucun rôle n'a encore été attribué.
type User struct {
	ID            uuid.UUID
	Name          string
	Email         string
	EmailVerified bool
	PasswordHash  string
	Role          string
	Department    string
	Image         *string
	Background    *string
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TokenRefresh modélise la table des refresh tokens.
type TokenRefresh struct {
	ID         uuid.UUID
	Subject    uuid.UUID
	TokenHash  string
	Expiration time.Time
	CreatedAt  time.Time
	Revoked    bool
}

// InsertRefreshTokenParams regroupe les champs d'insertion d'un refresh token.
type InsertRefreshTokenParams struct {
	ID         uuid.UUID
	Subject    uuid.UUID
	TokenHash  string
	Expiration time.Time
	CreatedAt  time.Time
}

// CreateUserParams regroupe les champs de création d'un utilisateur.
type CreateUserParams struct {
	ID           uuid.UUID
	Name         string
	Email        string
	PasswordHash string
	Role         string
	Department   string
}
