package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/budgetease/api/internal/auth"
	"github.com/budgetease/api/internal/repo"
	"github.com/budgetease/api/internal/storage"
	"github.com/budgetease/api/internal/util"
)

var (
	// ErrWrongPassword indique un mot de passe actuel incorrect.
	ErrWrongPassword = errors.New("mot de passe actuel incorrect")
	// ErrPasswordMismatch indique une confirmation différente du nouveau
	// mot de passe.
	ErrPasswordMismatch = errors.New("les mots de passe ne correspondent pas")
)

// AccountRepo définit l'accès aux données pour la gestion du compte.
type AccountRepo interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (repo.User, error)
	UpdateUserProfile(ctx context.Context, id uuid.UUID, name, email string) error
	UpdateUserImages(ctx context.Context, id uuid.UUID, image, background *string) error
	UpdateUserPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	InvalidateOtherRefreshTokens(ctx context.Context, subject uuid.UUID, keepHash string) error
}

// ImageUpload porte un fichier reçu en multipart.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        []byte
}

// AccountService gère les opérations de l'utilisateur sur son propre
// compte : profil, mot de passe, images.
type AccountService struct {
	repo     AccountRepo
	uploader storage.Uploader
}

// NewAccountService crée une nouvelle instance.
func NewAccountService(r AccountRepo, uploader storage.Uploader) *AccountService {
	return &AccountService{repo: r, uploader: uploader}
}

// UpdateProfile modifie nom et email du compte.
func (s *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, name, email string) (Profile, error) {
	if err := util.RequireString(name, "nom"); err != nil {
		return Profile{}, err
	}
	if err := util.ValidateEmail(email); err != nil {
		return Profile{}, err
	}

	if err := s.repo.UpdateUserProfile(ctx, id, name, email); err != nil {
		return Profile{}, err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	return toProfile(user), nil
}

// ChangePassword remplace le mot de passe après vérification de
// l'actuel, puis invalide les autres sessions ouvertes.
func (s *AccountService) ChangePassword(ctx context.Context, id uuid.UUID, current, next, confirm string) error {
	if next != confirm {
		return ErrPasswordMismatch
	}
	if err := util.ValidatePassword(next); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return err
	}

	ok, err := auth.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrWrongPassword
	}

	hash, err := auth.Hash(next)
	if err != nil {
		return err
	}

	if err := s.repo.UpdateUserPassword(ctx, id, hash); err != nil {
		return err
	}

	// Les sessions ouvertes ailleurs sont révoquées ; celle en cours
	// survit jusqu'à l'expiration du token d'accès.
	return s.repo.InvalidateOtherRefreshTokens(ctx, id, "")
}

// UpdateImages téléverse avatar et/ou image de fond puis enregistre
// leurs URLs. Un champ nil laisse l'image correspondante inchangée.
func (s *AccountService) UpdateImages(ctx context.Context, id uuid.UUID, avatar, background *ImageUpload) (Profile, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	image := user.Image
	bg := user.Background

	if avatar != nil {
		result, err := s.uploader.Upload(ctx, storage.UploadInput{
			Key:          storage.AvatarKey(id, avatar.Filename),
			Body:         avatar.Body,
			ContentType:  avatar.ContentType,
			CacheControl: "public, max-age=86400",
		})
		if err != nil {
			return Profile{}, err
		}
		image = &result.URL
	}

	if background != nil {
		result, err := s.uploader.Upload(ctx, storage.UploadInput{
			Key:          storage.BackgroundKey(id, background.Filename),
			Body:         background.Body,
			ContentType:  background.ContentType,
			CacheControl: "public, max-age=86400",
		})
		if err != nil {
			return Profile{}, err
		}
		bg = &result.URL
	}

	if err := s.repo.UpdateUserImages(ctx, id, image, bg); err != nil {
		return Profile{}, err
	}

	user.Image = image
	user.Background = bg
	return toProfile(user), nil
}
