package repo

import "strings"

// Rôles applicatifs. Ensemble fermé, toute extension passe par une
// migration de schéma et une modification du code.
const (
	RolePersonal       = "PERSONAL"
	RoleDepartmentHead = "DEPARTMENT_HEAD"
	RoleDirector       = "DIRECTOR"
	RoleAdmin          = "ADMIN"
)

// Départements institutionnels. Ensemble fermé également.
const (
	DepartmentInformatique = "INFORMATIQUE"
	DepartmentCivil        = "CIVIL"
	DepartmentElectricite  = "ELECTRICITE"
	DepartmentMecanique    = "MECANIQUE"
	DepartmentGestion      = "GESTION"
	DepartmentNone         = "NO"
)

var validRoles = map[string]struct{}{
	RolePersonal:       {},
	RoleDepartmentHead: {},
	RoleDirector:       {},
	RoleAdmin:          {},
}

var validDepartments = map[string]struct{}{
	DepartmentInformatique: {},
	DepartmentCivil:        {},
	DepartmentElectricite:  {},
	DepartmentMecanique:    {},
	DepartmentGestion:      {},
	DepartmentNone:         {},
}

// NormalizeRole met le rôle en majuscules sans espaces superflus.
func NormalizeRole(role string) string {
	return strings.ToUpper(strings.TrimSpace(role))
}

// IsValidRole indique si le rôle appartient à l'ensemble supporté.
func IsValidRole(role string) bool {
	_, ok := validRoles[role]
	return ok
}

// NormalizeDepartment met le département en majuscules sans espaces superflus.
func NormalizeDepartment(department string) string {
	return strings.ToUpper(strings.TrimSpace(department))
}

// IsValidDepartment indique si le département appartient à l'ensemble supporté.
func IsValidDepartment(department string) bool {
	_, ok := validDepartments[department]
	return ok
}
