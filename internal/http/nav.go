package http

import (
	"net/http"

	"github.com/budgetease/api/internal/nav"
)

// Nav renvoie l'arbre de navigation filtré selon les droits de
// l'utilisateur. Un seul arbre existe côté serveur : le front reçoit
// exactement ce que l'utilisateur a le droit de voir.
func (h *Handler) Nav(w http.ResponseWriter, r *http.Request) {
	subject, err := h.subjectUUID(r)
	if err != nil {
		WriteError(w, http.StatusUnauthorized, "AUTH", "subject invalide", nil)
		return
	}

	ctx := r.Context()
	filtered := nav.Filter(nav.Tree(), func(route string) bool {
		return h.access.CheckPageAccess(ctx, subject, route)
	})

	WriteJSON(w, http.StatusOK, map[string]any{"nav": filtered})
}
