package access

import "github.com/budgetease/api/internal/repo"

// DefaultPages renvoie les pages de l'application et la matrice d'accès
// initiale. Un couple (page, rôle) absent ici reste sans enregistrement :
// le rôle est alors refusé tant qu'un administrateur n'a pas tranché.
func DefaultPages() []PageSeed {
	return []PageSeed{
		{
			Name:  "dashboard",
			Label: "Tableau de bord",
			Route: "/dashboard",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       true,
				repo.RoleDepartmentHead: false,
				repo.RolePersonal:       false,
			},
		},
		{
			Name:  "department",
			Label: "Départements",
			Route: "/dashboard/departments",
			Access: map[string]bool{
				repo.RoleAdmin:    true,
				repo.RoleDirector: true,
			},
		},
		{
			Name:  "needs",
			Label: "Gestion des besoins",
			Route: "/needs",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       true,
				repo.RoleDepartmentHead: true,
				repo.RolePersonal:       false,
			},
		},
		{
			Name:  "needs_new",
			Label: "Faire une demande",
			Route: "/needs_new",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       true,
				repo.RoleDepartmentHead: true,
				repo.RolePersonal:       true,
			},
		},
		{
			Name:  "needs_priorities",
			Label: "Gestion des priorités",
			Route: "/needs_priorities",
			Access: map[string]bool{
				repo.RoleAdmin:    true,
				repo.RoleDirector: true,
			},
		},
		{
			Name:  "users",
			Label: "Gestion des utilisateurs",
			Route: "/settings/users",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       false,
				repo.RoleDepartmentHead: false,
				repo.RolePersonal:       false,
			},
		},
		{
			Name:  "account",
			Label: "Compte",
			Route: "/settings/account",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       true,
				repo.RoleDepartmentHead: true,
				repo.RolePersonal:       true,
			},
		},
		{
			Name:  "categories",
			Label: "Gestion des catégories de besoins",
			Route: "/settings/categories",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       true,
				repo.RoleDepartmentHead: false,
				repo.RolePersonal:       false,
			},
		},
		{
			Name:  "roles",
			Label: "Gestion des rôles",
			Route: "/settings/roles",
			Access: map[string]bool{
				repo.RoleAdmin:          true,
				repo.RoleDirector:       false,
				repo.RoleDepartmentHead: false,
				repo.RolePersonal:       false,
			},
		},
	}
}
