package access

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("page introuvable")
	ErrInvalidRole = errors.New("rôle invalide")
)

// Page décrit une route applicative protégée. Le nom est l'identité
// immuable servant de clé d'upsert au seed.
type Page struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Label     string    `json:"label"`
	Route     *string   `json:"route"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PageAccess lie une page à un rôle avec un booléen d'autorisation.
// Au plus une ligne par couple (page, rôle).
type PageAccess struct {
	ID      uuid.UUID `json:"id"`
	PageID  uuid.UUID `json:"page_id"`
	Role    string    `json:"role"`
	Allowed bool      `json:"allowed"`
}

// PageWithAccess agrège une page et sa matrice d'accès.
type PageWithAccess struct {
	Page     Page         `json:"page"`
	Accesses []PageAccess `json:"accesses"`
}

// PageSeed décrit une page à provisionner avec ses accès par défaut.
type PageSeed struct {
	Name   string
	Label  string
	Route  string
	Access map[string]bool
}
