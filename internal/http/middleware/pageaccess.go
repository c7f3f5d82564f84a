package middleware

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// PageAccessChecker décide si un utilisateur peut consulter une page
// logique identifiée par sa route.
type PageAccessChecker interface {
	CheckPageAccess(ctx context.Context, userID uuid.UUID, route string) bool
}

// PageAccess protège un sous-arbre de routes par le contrôle d'accès
// aux pages. La route logique est fixée au montage : elle correspond à
// la page du front qui consomme ces endpoints, pas au chemin HTTP.
// Un refus renvoie 404, indistinguable d'une page inexistante.
func PageAccess(checker PageAccessChecker, route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := GetSubject(r.Context())
			userID, err := uuid.Parse(subject)
			if err != nil {
				writePageNotFound(w)
				return
			}

			if !checker.CheckPageAccess(r.Context(), userID, route) {
				writePageNotFound(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writePageNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    "NOT_FOUND",
			"message": "page introuvable",
		},
	})
}
