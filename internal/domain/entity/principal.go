package entity

// Roles de la API.
const (
	RoleAdmin     = "admin"
	RoleFranchise = "franchise"
)

// Principal actor autenticado que ejecuta una operación.
type Principal struct {
	UserID   string
	TenantID string // vacío para administradores de la franquiciadora
	Role     string
}

// IsAdmin indica si el actor es administrador.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }
