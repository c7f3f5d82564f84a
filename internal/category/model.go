package category

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("catégorie introuvable")
	ErrNameUsed = errors.New("une catégorie avec ce nom existe déjà")
	// ErrInUse bloque la suppression tant que des besoins référencent la catégorie.
	ErrInUse = errors.New("la catégorie est utilisée par des besoins")
)

// Category classe les besoins. Désactivable via le flag actif ;
// la suppression définitive est refusée tant qu'un besoin la référence.
type Category struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Input regroupe les champs de création/mise à jour.
type Input struct {
	Name        string
	Description *string
}
