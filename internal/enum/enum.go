package enum

// ── User roles (CHECK constrained in DB) ──

const (
	UserRoleAdmin    = "admin"
	UserRoleKitchen  = "kitchen"
	UserRoleCourier  = "courier"
	UserRoleCustomer = "customer"
)

// IsValidRole reports whether role is one of the known user roles.
func IsValidRole(role string) bool {
	switch role {
	case UserRoleAdmin, UserRoleKitchen, UserRoleCourier, UserRoleCustomer:
		return true
	}
	return false
}

// ── Kitchen stock ──

// Category names (matched case-insensitively by substring) whose products
// the kitchen may record as consumed ingredients.
var ConsumableCategories = []string{"ICE", "CERVEJAS"}
