// Package nav définit l'arbre de navigation de l'application en un seul
// exemplaire. Le même arbre alimente le seed des pages, le contrôle de
// cohérence au démarrage et le filtrage par rôle renvoyé au client.
package nav

// Item est une entrée de navigation. Route vide = simple groupe.
type Item struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Route string `json:"route,omitempty"`
	Items []Item `json:"items,omitempty"`
}

// Tree retourne l'arbre de navigation complet.
func Tree() []Item {
	return []Item{
		{
			Name:  "dashboard_group",
			Label: "Tableaux de bord",
			Items: []Item{
				{Name: "dashboard", Label: "Tableau de bord", Route: "/dashboard"},
				{Name: "department", Label: "Départements", Route: "/dashboard/departments"},
			},
		},
		{
			Name:  "needs_group",
			Label: "Besoins",
			Items: []Item{
				{Name: "needs", Label: "Gestion des besoins", Route: "/needs"},
				{Name: "needs_new", Label: "Faire une demande", Route: "/needs_new"},
				{Name: "needs_priorities", Label: "Gestion des priorités", Route: "/needs_priorities"},
			},
		},
		{
			Name:  "settings_group",
			Label: "Paramètres",
			Items: []Item{
				{Name: "users", Label: "Gestion des utilisateurs", Route: "/settings/users"},
				{Name: "account", Label: "Compte", Route: "/settings/account"},
				{Name: "categories", Label: "Gestion des catégories de besoins", Route: "/settings/categories"},
				{Name: "roles", Label: "Gestion des rôles", Route: "/settings/roles"},
			},
		},
	}
}

// Routes liste à plat toutes les routes navigables de l'arbre.
func Routes() []string {
	return collectRoutes(Tree())
}

func collectRoutes(items []Item) []string {
	var routes []string
	for _, item := range items {
		if item.Route != "" {
			routes = append(routes, item.Route)
		}
		routes = append(routes, collectRoutes(item.Items)...)
	}
	return routes
}

// Filter retourne une copie de l'arbre ne gardant que les entrées dont la
// route est autorisée. Un groupe sans enfant survivant disparaît. Fonction
// pure : l'arbre d'entrée n'est pas modifié.
func Filter(items []Item, allowed func(route string) bool) []Item {
	var out []Item
	for _, item := range items {
		children := Filter(item.Items, allowed)
		switch {
		case item.Route != "" && allowed(item.Route):
			filtered := item
			filtered.Items = children
			out = append(out, filtered)
		case item.Route == "" && len(children) > 0:
			filtered := item
			filtered.Items = children
			out = append(out, filtered)
		}
	}
	return out
}
