package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// UploadInput représente une opération d'upload simple.
type UploadInput struct {
	Key          string
	Body         []byte
	ContentType  string
	CacheControl string
}

// UploadResult décrit l'artefact persisté.
type UploadResult struct {
	URL  string
	ETag string
}

// Uploader définit le comportement minimal pour stocker des blobs
// (avatars et images de fond des comptes).
type Uploader interface {
	Upload(ctx context.Context, input UploadInput) (*UploadResult, error)
}

// AvatarKey construit la clé d'objet d'un avatar utilisateur. La clé est
// propre à l'utilisateur : un nouvel upload remplace l'ancien objet.
func AvatarKey(userID uuid.UUID, filename string) string {
	return profileKey("avatars", userID, filename)
}

// BackgroundKey construit la clé d'objet d'une image de fond.
func BackgroundKey(userID uuid.UUID, filename string) string {
	return profileKey("backgrounds", userID, filename)
}

func profileKey(prefix string, userID uuid.UUID, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".bin"
	}
	return fmt.Sprintf("%s/%s%s", prefix, userID, ext)
}
