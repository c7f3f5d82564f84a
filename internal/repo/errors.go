package repo

import "errors"

var (
	// ErrNotFound est retourné quand aucun enregistrement n'est trouvé.
	ErrNotFound = errors.New("enregistrement introuvable")
	// ErrDuplicateEmail est retourné quand l'email est déjà utilisé.
	ErrDuplicateEmail = errors.New("email déjà utilisé")
)
