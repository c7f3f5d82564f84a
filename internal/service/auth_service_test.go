package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/budgetease/api/internal/auth"
	"github.com/budgetease/api/internal/repo"
)

type stubAuthRepo struct {
	usersByEmail map[string]repo.User
	usersByID    map[uuid.UUID]repo.User
	tokens       map[string]repo.TokenRefresh
	revoked      []string
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{
		usersByEmail: map[string]repo.User{},
		usersByID:    map[uuid.UUID]repo.User{},
		tokens:       map[string]repo.TokenRefresh{},
	}
}

func (s *stubAuthRepo) addUser(user repo.User) {
	s.usersByEmail[user.Email] = user
	s.usersByID[user.ID] = user
}

func (s *stubAuthRepo) GetUserByEmail(ctx context.Context, email string) (repo.User, error) {
	user, ok := s.usersByEmail[email]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return user, nil
}

func (s *stubAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error) {
	user, ok := s.usersByID[id]
	if !ok {
		return repo.User{}, repo.ErrNotFound
	}
	return user, nil
}

func (s *stubAuthRepo) CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error) {
	if _, exists := s.usersByEmail[arg.Email]; exists {
		return repo.User{}, repo.ErrDuplicateEmail
	}
	user := repo.User{
		ID:           arg.ID,
		Name:         arg.Name,
		Email:        arg.Email,
		PasswordHash: arg.PasswordHash,
		Role:         arg.Role,
		Department:   arg.Department,
		Active:       true,
	}
	s.addUser(user)
	return user, nil
}

func (s *stubAuthRepo) InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error) {
	token := repo.TokenRefresh{
		ID:         arg.ID,
		Subject:    arg.Subject,
		TokenHash:  arg.TokenHash,
		Expiration: arg.Expiration,
		CreatedAt:  arg.CreatedAt,
	}
	s.tokens[arg.TokenHash] = token
	return token, nil
}

func (s *stubAuthRepo) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error) {
	token, ok := s.tokens[tokenHash]
	if !ok {
		return repo.TokenRefresh{}, repo.ErrNotFound
	}
	return token, nil
}

func (s *stubAuthRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	token, ok := s.tokens[tokenHash]
	if !ok {
		return nil
	}
	token.Revoked = true
	s.tokens[tokenHash] = token
	s.revoked = append(s.revoked, tokenHash)
	return nil
}

func (s *stubAuthRepo) InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error {
	for hash, token := range s.tokens {
		if token.Subject == subject && hash != keepHash {
			token.Revoked = true
			s.tokens[hash] = token
		}
	}
	return nil
}

// Le client ne se connecte jamais : les écritures Redis du service sont
// ignorées en cas d'échec, la source de vérité restant Postgres.
func unreachableRedis() *redis.Client {
	return redis.NewClient(&redis.Options{Addr: "localhost:0"})
}

func newAuthFixture(t *testing.T) (*AuthService, *stubAuthRepo) {
	t.Helper()
	repository := newStubAuthRepo()
	jwtManager := auth.NewJWTManager("secret-de-test", 15*time.Minute)
	svc := NewAuthService(repository, unreachableRedis(), jwtManager, nil, 24*time.Hour)
	return svc, repository
}

func addActiveUser(t *testing.T, repository *stubAuthRepo, email, password, role string) repo.User {
	t.Helper()
	hash, err := auth.Hash(password)
	if err != nil {
		t.Fatalf("hachage : %v", err)
	}
	user := repo.User{
		ID:           uuid.New(),
		Name:         "Alice Martin",
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Department:   repo.DepartmentNone,
		Active:       true,
	}
	repository.addUser(user)
	return user
}

func TestRegisterCreatesAccountWithoutRole(t *testing.T) {
	svc, repository := newAuthFixture(t)

	profile, err := svc.Register(context.Background(), "Alice Martin", "alice@exemple.fr", "motdepasse8", "203.0.113.7")
	if err != nil {
		t.Fatalf("inscription : %v", err)
	}
	if profile.Role != "" {
		t.Fatalf("rôle %q, attendu vide à l'inscription", profile.Role)
	}
	if profile.Department != repo.DepartmentNone {
		t.Fatalf("département %q, attendu %q", profile.Department, repo.DepartmentNone)
	}

	if _, err := svc.Register(context.Background(), "Alice Bis", "alice@exemple.fr", "motdepasse8", "203.0.113.7"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("email repris : attendu ErrEmailTaken, obtenu %v", err)
	}

	stored := repository.usersByEmail["alice@exemple.fr"]
	if stored.PasswordHash == "motdepasse8" || !strings.HasPrefix(stored.PasswordHash, "$argon2id$") {
		t.Fatal("mot de passe stocké sans hachage argon2id")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	if _, err := svc.Register(context.Background(), "", "alice@exemple.fr", "motdepasse8", ""); err == nil {
		t.Fatal("nom vide accepté")
	}
	if _, err := svc.Register(context.Background(), "Alice", "pas-un-email", "motdepasse8", ""); err == nil {
		t.Fatal("email invalide accepté")
	}
	if _, err := svc.Register(context.Background(), "Alice", "alice@exemple.fr", "court", ""); err == nil {
		t.Fatal("mot de passe trop court accepté")
	}
}

func TestLogin(t *testing.T) {
	svc, repository := newAuthFixture(t)
	addActiveUser(t, repository, "alice@exemple.fr", "motdepasse8", repo.RoleDirector)

	result, err := svc.Login(context.Background(), "alice@exemple.fr", "motdepasse8")
	if err != nil {
		t.Fatalf("connexion : %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("tokens manquants")
	}
	if result.Profile.Role != repo.RoleDirector {
		t.Fatalf("rôle %q", result.Profile.Role)
	}

	if _, err := svc.Login(context.Background(), "alice@exemple.fr", "mauvais-mdp"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("mauvais mot de passe : attendu ErrInvalidCredentials, obtenu %v", err)
	}
	if _, err := svc.Login(context.Background(), "inconnue@exemple.fr", "motdepasse8"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("email inconnu : attendu ErrInvalidCredentials, obtenu %v", err)
	}
}

func TestLoginDisabledAccount(t *testing.T) {
	svc, repository := newAuthFixture(t)
	user := addActiveUser(t, repository, "bruno@exemple.fr", "motdepasse8", repo.RolePersonal)
	user.Active = false
	repository.addUser(user)

	if _, err := svc.Login(context.Background(), "bruno@exemple.fr", "motdepasse8"); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("attendu ErrAccountDisabled, obtenu %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	svc, repository := newAuthFixture(t)
	addActiveUser(t, repository, "alice@exemple.fr", "motdepasse8", repo.RoleAdmin)

	first, err := svc.Login(context.Background(), "alice@exemple.fr", "motdepasse8")
	if err != nil {
		t.Fatalf("connexion : %v", err)
	}

	second, err := svc.Refresh(context.Background(), first.RefreshToken)
	if err != nil {
		t.Fatalf("rotation : %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatal("le refresh token n'a pas tourné")
	}

	// l'ancien token est révoqué : le rejouer échoue
	if _, err := svc.Refresh(context.Background(), first.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("rejeu : attendu ErrRefreshInvalid, obtenu %v", err)
	}
}

func TestRefreshRejectsUnknownAndExpired(t *testing.T) {
	svc, repository := newAuthFixture(t)
	user := addActiveUser(t, repository, "alice@exemple.fr", "motdepasse8", repo.RoleAdmin)

	if _, err := svc.Refresh(context.Background(), "token-inconnu"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("token inconnu : attendu ErrRefreshInvalid, obtenu %v", err)
	}

	raw, hashed, err := auth.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("génération : %v", err)
	}
	repository.tokens[hashed] = repo.TokenRefresh{
		ID:         uuid.New(),
		Subject:    user.ID,
		TokenHash:  hashed,
		Expiration: time.Now().Add(-time.Minute),
	}

	if _, err := svc.Refresh(context.Background(), raw); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("token expiré : attendu ErrRefreshInvalid, obtenu %v", err)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, repository := newAuthFixture(t)
	addActiveUser(t, repository, "alice@exemple.fr", "motdepasse8", repo.RolePersonal)

	result, err := svc.Login(context.Background(), "alice@exemple.fr", "motdepasse8")
	if err != nil {
		t.Fatalf("connexion : %v", err)
	}

	if err := svc.Logout(context.Background(), result.RefreshToken); err != nil {
		t.Fatalf("déconnexion : %v", err)
	}

	hash := auth.HashRefreshToken(result.RefreshToken)
	if !repository.tokens[hash].Revoked {
		t.Fatal("le token n'a pas été révoqué")
	}
}
