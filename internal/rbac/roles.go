package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner      = "owner"
	RoleManager    = "manager"
	RoleDJ         = "dj"
	RoleSecurity   = "security"
	RoleSuperAdmin = "super_admin"
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// IsOwner reports whether the caller may see owner-only alerts and
// reports. super_admin is platform staff and counts as an owner reader.
func IsOwner(role string) bool { return role == RoleOwner || role == RoleSuperAdmin }
