package access

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/repo"
)

type stubStore struct {
	pages      map[string]Page          // route → page
	access     map[string]PageAccess    // pageID+role → accès
	failRoutes map[string]error         // route → erreur simulée
	failAccess map[string]error         // pageID+role → erreur simulée
	upserts    []string                 // trace des upserts d'accès
}

func newStubStore() *stubStore {
	return &stubStore{
		pages:      map[string]Page{},
		access:     map[string]PageAccess{},
		failRoutes: map[string]error{},
		failAccess: map[string]error{},
	}
}

func accessKey(pageID uuid.UUID, role string) string {
	return pageID.String() + "|" + role
}

func (s *stubStore) GetPageByRoute(ctx context.Context, route string) (Page, error) {
	if err, ok := s.failRoutes[route]; ok {
		return Page{}, err
	}
	page, ok := s.pages[route]
	if !ok {
		return Page{}, ErrNotFound
	}
	return page, nil
}

func (s *stubStore) GetPageByName(ctx context.Context, name string) (Page, error) {
	for _, page := range s.pages {
		if page.Name == name {
			return page, nil
		}
	}
	return Page{}, ErrNotFound
}

func (s *stubStore) UpsertPage(ctx context.Context, name, label, route string) (Page, error) {
	if page, err := s.GetPageByName(ctx, name); err == nil {
		page.Label = label
		page.Route = &route
		s.pages[route] = page
		return page, nil
	}
	page := Page{ID: uuid.New(), Name: name, Label: label, Route: &route}
	s.pages[route] = page
	return page, nil
}

func (s *stubStore) GetPageAccess(ctx context.Context, pageID uuid.UUID, role string) (PageAccess, error) {
	key := accessKey(pageID, role)
	if err, ok := s.failAccess[key]; ok {
		return PageAccess{}, err
	}
	acc, ok := s.access[key]
	if !ok {
		return PageAccess{}, ErrNotFound
	}
	return acc, nil
}

func (s *stubStore) UpsertPageAccess(ctx context.Context, pageID uuid.UUID, role string, allowed bool) (PageAccess, error) {
	key := accessKey(pageID, role)
	s.upserts = append(s.upserts, key)
	acc, ok := s.access[key]
	if !ok {
		acc = PageAccess{ID: uuid.New(), PageID: pageID, Role: role}
	}
	acc.Allowed = allowed
	s.access[key] = acc
	return acc, nil
}

func (s *stubStore) ListPagesWithAccess(ctx context.Context) ([]PageWithAccess, error) {
	var out []PageWithAccess
	for _, page := range s.pages {
		out = append(out, PageWithAccess{Page: page})
	}
	return out, nil
}

type stubUsers struct {
	users map[uuid.UUID]repo.User
}

func (s *stubUsers) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	user, ok := s.users[id]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return user, nil
}

func seedUser(users *stubUsers, role string) uuid.UUID {
	id := uuid.New()
	users.users[id] = repo.User{ID: id, Name: "Test", Role: role, Active: true}
	return id
}

func TestCheckPageAccess(t *testing.T) {
	store := newStubStore()
	users := &stubUsers{users: map[uuid.UUID]repo.User{}}
	svc := NewService(store, users)

	dashboard, _ := store.UpsertPage(context.Background(), "dashboard", "Tableau de bord", "/dashboard")
	_, _ = store.UpsertPageAccess(context.Background(), dashboard.ID, repo.RoleDirector, true)
	_, _ = store.UpsertPageAccess(context.Background(), dashboard.ID, repo.RolePersonal, false)

	director := seedUser(users, repo.RoleDirector)
	personal := seedUser(users, repo.RolePersonal)
	noRole := seedUser(users, "")
	admin := seedUser(users, repo.RoleAdmin)

	tests := []struct {
		name   string
		userID uuid.UUID
		route  string
		want   bool
	}{
		{"rôle autorisé", director, "/dashboard", true},
		{"rôle explicitement refusé", personal, "/dashboard", false},
		{"rôle sans enregistrement", admin, "/dashboard", false},
		{"utilisateur sans rôle", noRole, "/dashboard", false},
		{"utilisateur inconnu", uuid.New(), "/dashboard", false},
		{"route non enregistrée", personal, "/inexistante", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := svc.CheckPageAccess(context.Background(), tc.userID, tc.route); got != tc.want {
				t.Fatalf("CheckPageAccess(%s) = %v, attendu %v", tc.route, got, tc.want)
			}
		})
	}
}

func TestCheckPageAccessFailsClosedOnStorageError(t *testing.T) {
	store := newStubStore()
	users := &stubUsers{users: map[uuid.UUID]repo.User{}}
	svc := NewService(store, users)

	director := seedUser(users, repo.RoleDirector)

	store.failRoutes["/dashboard"] = errors.New("connexion perdue")
	if svc.CheckPageAccess(context.Background(), director, "/dashboard") {
		t.Fatal("une erreur de stockage sur la page doit refuser l'accès")
	}

	delete(store.failRoutes, "/dashboard")
	page, _ := store.UpsertPage(context.Background(), "dashboard", "Tableau de bord", "/dashboard")
	store.failAccess[accessKey(page.ID, repo.RoleDirector)] = errors.New("connexion perdue")
	if svc.CheckPageAccess(context.Background(), director, "/dashboard") {
		t.Fatal("une erreur de stockage sur l'accès doit refuser l'accès")
	}
}

func TestCheckPageAccessRecognizesWrappedNotFound(t *testing.T) {
	store := newStubStore()
	users := &stubUsers{users: map[uuid.UUID]repo.User{}}
	svc := NewService(store, users)

	director := seedUser(users, repo.RoleDirector)

	// un ErrNotFound enveloppé par la couche repo reste un "page absente" :
	// la route non déclarée passe, elle n'est pas traitée comme une panne
	store.failRoutes["/inexistante"] = fmt.Errorf("pages: %w", ErrNotFound)
	if !svc.CheckPageAccess(context.Background(), director, "/inexistante") {
		t.Fatal("un ErrNotFound enveloppé doit rester assimilé à une page non déclarée")
	}
}

func TestUpdatePageAccessIdempotent(t *testing.T) {
	store := newStubStore()
	users := &stubUsers{users: map[uuid.UUID]repo.User{}}
	svc := NewService(store, users)

	page, _ := store.UpsertPage(context.Background(), "needs", "Gestion des besoins", "/needs")

	first, err := svc.UpdatePageAccess(context.Background(), page.ID, repo.RoleDirector, true)
	if err != nil {
		t.Fatalf("première écriture : %v", err)
	}
	second, err := svc.UpdatePageAccess(context.Background(), page.ID, repo.RoleDirector, true)
	if err != nil {
		t.Fatalf("rejeu : %v", err)
	}
	if first.ID != second.ID {
		t.Fatal("le rejeu ne doit pas créer de second enregistrement")
	}

	toggled, err := svc.UpdatePageAccess(context.Background(), page.ID, repo.RoleDirector, false)
	if err != nil {
		t.Fatalf("bascule : %v", err)
	}
	if toggled.Allowed {
		t.Fatal("la bascule doit écraser la valeur")
	}
}

func TestUpdatePageAccessRejectsUnknownRole(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, &stubUsers{users: map[uuid.UUID]repo.User{}})

	if _, err := svc.UpdatePageAccess(context.Background(), uuid.New(), "SUPERVISOR", true); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("attendu ErrInvalidRole, obtenu %v", err)
	}
}

func TestSeedPagesIsReplayable(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, &stubUsers{users: map[uuid.UUID]repo.User{}})

	seeds := DefaultPages()
	if err := svc.SeedPages(context.Background(), seeds); err != nil {
		t.Fatalf("premier seed : %v", err)
	}
	before := len(store.pages)
	if err := svc.SeedPages(context.Background(), seeds); err != nil {
		t.Fatalf("rejeu du seed : %v", err)
	}
	if len(store.pages) != before {
		t.Fatalf("le rejeu a créé des pages : %d → %d", before, len(store.pages))
	}
}

func TestVerifyNavRegistered(t *testing.T) {
	store := newStubStore()
	svc := NewService(store, &stubUsers{users: map[uuid.UUID]repo.User{}})

	_, _ = store.UpsertPage(context.Background(), "dashboard", "Tableau de bord", "/dashboard")

	missing, err := svc.VerifyNavRegistered(context.Background(), []string{"/dashboard", "/needs", "/settings/roles"})
	if err != nil {
		t.Fatalf("vérification : %v", err)
	}
	if len(missing) != 2 {
		t.Fatalf("attendu 2 routes manquantes, obtenu %v", missing)
	}
}
