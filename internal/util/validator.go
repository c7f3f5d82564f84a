package util

import (
	"errors"
	"net/mail"
	"strings"
)

// ValidateEmail renvoie une erreur pour les emails invalides.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return errors.New("email requis")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.New("email invalide")
	}
	return nil
}

// ValidatePassword vérifie les exigences minimales du mot de passe.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("le mot de passe doit contenir au moins 8 caractères")
	}
	return nil
}

// RequireString garantit une chaîne non vide.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " requis")
	}
	return nil
}
