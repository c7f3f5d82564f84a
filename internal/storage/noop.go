package storage

import (
	"context"
	"errors"
)

// NoopUploader signale qu'aucun backend de stockage n'est configuré.
type NoopUploader struct{}

// Upload retourne toujours une erreur, la fonctionnalité est indisponible.
func (NoopUploader) Upload(ctx context.Context, input UploadInput) (*UploadResult, error) {
	return nil, errors.New("storage: aucun uploader configuré")
}
