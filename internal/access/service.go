package access

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/budgetease/api/internal/repo"
)

// Store définit les opérations de persistance dont le service a besoin.
type Store interface {
	GetPageByRoute(ctx context.Context, route string) (Page, error)
	GetPageByName(ctx context.Context, name string) (Page, error)
	UpsertPage(ctx context.Context, name, label, route string) (Page, error)
	GetPageAccess(ctx context.Context, pageID uuid.UUID, role string) (PageAccess, error)
	UpsertPageAccess(ctx context.Context, pageID uuid.UUID, role string, allowed bool) (PageAccess, error)
	ListPagesWithAccess(ctx context.Context) ([]PageWithAccess, error)
}

// UserDirectory résout les utilisateurs et leur rôle.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
}

// Service applique la politique d'accès par page.
type Service struct {
	store Store
	users UserDirectory
}

// NewService crée une nouvelle instance.
func NewService(store Store, users UserDirectory) *Service {
	return &Service{store: store, users: users}
}

// CheckPageAccess indique si l'utilisateur peut consulter la route donnée.
//
// Politique, volontairement asymétrique :
//   - utilisateur inconnu ou sans rôle : refus ;
//   - route sans page enregistrée : autorisation (la page est considérée
//     comme non restreinte tant qu'elle n'est pas déclarée) ;
//   - page enregistrée : autorisé ssi un enregistrement d'accès existe
//     pour le rôle et vaut true ;
//   - toute erreur de stockage : refus, jamais propagée.
func (s *Service) CheckPageAccess(ctx context.Context, userID uuid.UUID, route string) bool {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil || user.Role == "" {
		return false
	}

	page, err := s.store.GetPageByRoute(ctx, route)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return true
		}
		log.Error().Err(err).Str("route", route).Msg("vérification d'accès impossible")
		return false
	}

	acc, err := s.store.GetPageAccess(ctx, page.ID, user.Role)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Error().Err(err).Str("route", route).Msg("vérification d'accès impossible")
		}
		return false
	}

	return acc.Allowed
}

// UpdatePageAccess crée ou modifie l'accès d'un couple (page, rôle).
func (s *Service) UpdatePageAccess(ctx context.Context, pageID uuid.UUID, role string, allowed bool) (PageAccess, error) {
	role = repo.NormalizeRole(role)
	if !repo.IsValidRole(role) {
		return PageAccess{}, ErrInvalidRole
	}
	return s.store.UpsertPageAccess(ctx, pageID, role, allowed)
}

// ListPagesWithAccess expose la matrice complète pour l'écran d'administration.
func (s *Service) ListPagesWithAccess(ctx context.Context) ([]PageWithAccess, error) {
	return s.store.ListPagesWithAccess(ctx)
}

// SeedPages provisionne les pages et leurs accès par défaut (clé : nom).
// Rejouable : chaque exécution réécrit les valeurs fournies ; les couples
// (page, rôle) absents du seed ne sont pas touchés.
func (s *Service) SeedPages(ctx context.Context, seeds []PageSeed) error {
	for _, seed := range seeds {
		page, err := s.store.UpsertPage(ctx, seed.Name, seed.Label, seed.Route)
		if err != nil {
			return err
		}
		for role, allowed := range seed.Access {
			role = repo.NormalizeRole(role)
			if !repo.IsValidRole(role) {
				return ErrInvalidRole
			}
			if _, err := s.store.UpsertPageAccess(ctx, page.ID, role, allowed); err != nil {
				return err
			}
		}
	}
	return nil
}

// VerifyNavRegistered contrôle qu'aucune route de navigation ne reste sans
// page déclarée. Le défaut fail-open rendrait sinon ces routes visibles de
// tous sans que personne ne l'ait décidé.
func (s *Service) VerifyNavRegistered(ctx context.Context, routes []string) ([]string, error) {
	var missing []string
	for _, route := range routes {
		_, err := s.store.GetPageByRoute(ctx, route)
		if errors.Is(err, ErrNotFound) {
			missing = append(missing, route)
			continue
		}
		if err != nil {
			return nil, err
		}
	}
	return missing, nil
}
