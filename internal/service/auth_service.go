package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/budgetease/api/internal/auth"
	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/signup"
	"github.com/budgetease/api/internal/util"
)

var (
	// ErrInvalidCredentials indique un couple email/mot de passe incorrect.
	ErrInvalidCredentials = errors.New("identifiants invalides")
	// ErrAccountDisabled indique un compte désactivé.
	ErrAccountDisabled = errors.New("compte désactivé")
	// ErrRefreshInvalid indique un refresh token inconnu, révoqué ou expiré.
	ErrRefreshInvalid = errors.New("session expirée")
	// ErrEmailTaken indique une inscription sur un email existant.
	ErrEmailTaken = errors.New("email déjà utilisé")
)

// SignupDeniedError porte la raison d'un refus d'inscription.
type SignupDeniedError struct {
	Reason string
}

func (e *SignupDeniedError) Error() string { return e.Reason }

// AuthRepo définit l'accès aux données nécessaire à l'authentification.
type AuthRepo interface {
	GetUserByEmail(ctx context.Context, email string) (repo.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	CreateUser(ctx context.Context, arg repo.CreateUserParams) (repo.User, error)
	InsertRefreshToken(ctx context.Context, arg repo.InsertRefreshTokenParams) (repo.TokenRefresh, error)
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (repo.TokenRefresh, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

// Profile est la projection publique d'un utilisateur.
type Profile struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Department string    `json:"department"`
	Image      *string   `json:"image"`
	Background *string   `json:"background"`
}

// LoginResult regroupe les artefacts d'une session ouverte.
type LoginResult struct {
	AccessToken   string
	RefreshToken  string
	RefreshExpiry time.Time
	Profile       Profile
}

// AuthService gère inscription, connexion et rotation de session.
type AuthService struct {
	repo       AuthRepo
	redis      *redis.Client
	jwt        *auth.JWTManager
	protector  *signup.Protector
	refreshTTL time.Duration
}

// NewAuthService crée une nouvelle instance.
func NewAuthService(r AuthRepo, redisClient *redis.Client, jwtManager *auth.JWTManager, protector *signup.Protector, refreshTTL time.Duration) *AuthService {
	return &AuthService{
		repo:       r,
		redis:      redisClient,
		jwt:        jwtManager,
		protector:  protector,
		refreshTTL: refreshTTL,
	}
}

// JWT expose le gestionnaire de tokens pour le middleware.
func (s *AuthService) JWT() *auth.JWTManager {
	return s.jwt
}

// Register inscrit un nouvel utilisateur après passage du filtre
// anti-abus. Le compte naît sans rôle : un administrateur doit en
// attribuer un avant que l'utilisateur n'accède aux pages restreintes.
func (s *AuthService) Register(ctx context.Context, name, email, password, ip string) (Profile, error) {
	if err := util.RequireString(name, "nom"); err != nil {
		return Profile{}, err
	}
	if err := util.ValidateEmail(email); err != nil {
		return Profile{}, err
	}
	if err := util.ValidatePassword(password); err != nil {
		return Profile{}, err
	}

	if s.protector != nil {
		if decision := s.protector.Check(ctx, ip, email); decision.Denied {
			return Profile{}, &SignupDeniedError{Reason: decision.Reason}
		}
	}

	hash, err := auth.Hash(password)
	if err != nil {
		return Profile{}, err
	}

	user, err := s.repo.CreateUser(ctx, repo.CreateUserParams{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         "",
		Department:   repo.DepartmentNone,
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return Profile{}, ErrEmailTaken
		}
		return Profile{}, err
	}

	return toProfile(user), nil
}

// Login authentifie par email et mot de passe.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := auth.Verify(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	if !user.Active {
		return nil, ErrAccountDisabled
	}

	return s.openSession(ctx, user)
}

// Refresh fait tourner le refresh token et renvoie une session neuve.
func (s *AuthService) Refresh(ctx context.Context, rawToken string) (*LoginResult, error) {
	hash := auth.HashRefreshToken(rawToken)

	stored, err := s.repo.GetRefreshTokenByHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrRefreshInvalid
		}
		return nil, err
	}
	if stored.Revoked || time.Now().After(stored.Expiration) {
		return nil, ErrRefreshInvalid
	}

	user, err := s.repo.GetUserByID(ctx, stored.Subject)
	if err != nil {
		return nil, ErrRefreshInvalid
	}
	if !user.Active {
		return nil, ErrAccountDisabled
	}

	if err := s.repo.RevokeRefreshToken(ctx, hash); err != nil {
		return nil, err
	}
	_ = s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err()

	return s.openSession(ctx, user)
}

// Logout révoque le refresh token courant.
func (s *AuthService) Logout(ctx context.Context, rawToken string) error {
	hash := auth.HashRefreshToken(rawToken)
	_ = s.redis.Del(ctx, auth.RefreshRedisKey(hash)).Err()
	return s.repo.RevokeRefreshToken(ctx, hash)
}

// GetMe renvoie le profil de l'utilisateur authentifié.
func (s *AuthService) GetMe(ctx context.Context, id uuid.UUID) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return toProfile(user), nil
}

func (s *AuthService) openSession(ctx context.Context, user repo.User) (*LoginResult, error) {
	accessToken, _, err := s.jwt.GenerateAccessToken(user.ID.String(), user.Role, user.Department)
	if err != nil {
		return nil, err
	}

	rawRefresh, hashedRefresh, err := auth.GenerateRefreshToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiry := now.Add(s.refreshTTL)

	if _, err := s.repo.InsertRefreshToken(ctx, repo.InsertRefreshTokenParams{
		ID:         uuid.New(),
		Subject:    user.ID,
		TokenHash:  hashedRefresh,
		Expiration: expiry,
		CreatedAt:  now,
	}); err != nil {
		return nil, err
	}

	// État dupliqué dans Redis pour les invalidations rapides ; la source
	// de vérité reste Postgres.
	_ = s.redis.Set(ctx, auth.RefreshRedisKey(hashedRefresh), user.ID.String(), s.refreshTTL).Err()

	return &LoginResult{
		AccessToken:   accessToken,
		RefreshToken:  rawRefresh,
		RefreshExpiry: expiry,
		Profile:       toProfile(user),
	}, nil
}

func toProfile(user repo.User) Profile {
	return Profile{
		ID:         user.ID,
		Name:       user.Name,
		Email:      strings.ToLower(user.Email),
		Role:       user.Role,
		Department: user.Department,
		Image:      user.Image,
		Background: user.Background,
	}
}
