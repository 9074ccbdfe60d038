// Package access contains the pure authorization functions: role checks,
// the role-to-permission table, row-level ownership checks and the
// page-path classification. Every check is computed fresh from its inputs;
// nothing here touches the database or caches results.
package access

import (
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/models"
)

// Resource is a named capability gating an API action.
type Resource string

const (
	TransactionsRead   Resource = "transactions:read"
	TransactionsWrite  Resource = "transactions:write"
	TransactionsDelete Resource = "transactions:delete"
	UsersRead          Resource = "users:read"
	UsersWrite         Resource = "users:write"
	ReportsRead        Resource = "reports:read"
	AdminAccess        Resource = "admin:access"
)

// Typed denial values so callers can branch without matching error strings.
var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrForbidden        = errors.New("access denied")
)

// rolePermissions maps each role to the resources it may touch. Regular
// users can only read their own transactions; admins hold the full set.
var rolePermissions = map[models.Role][]Resource{
	models.RoleUser: {
		TransactionsRead,
	},
	models.RoleAdmin: {
		TransactionsRead,
		TransactionsWrite,
		TransactionsDelete,
		UsersRead,
		UsersWrite,
		ReportsRead,
		AdminAccess,
	},
}

// Page classification consumed by CanAccessPage. Admin pages match by
// prefix; everything unlisted defaults to requiring authentication.
var (
	publicPages = []string{"/", "/auth/signin", "/api-docs"}
	authPages   = []string{"/profile", "/transactions", "/dashboard"}
	adminPages  = []string{"/admin/users", "/admin/reports"}
)

// HasRole reports whether user holds exactly the given role. There is no
// inheritance between roles; an admin does not "have" the USER role.
func HasRole(user *models.User, role models.Role) bool {
	if user == nil || user.Role == "" {
		return false
	}
	return user.Role == role
}

// IsAdmin reports whether user holds the ADMIN role.
func IsAdmin(user *models.User) bool {
	return HasRole(user, models.RoleAdmin)
}

// IsAuthenticated reports whether user is a resolved account.
func IsAuthenticated(user *models.User) bool {
	return user != nil && user.ID != ""
}

// CanAccessResource reports whether user holds the given resource
// permission. Unauthenticated callers hold no permissions at all.
func CanAccessResource(user *models.User, resource Resource) bool {
	if !IsAuthenticated(user) {
		return false
	}
	for _, p := range rolePermissions[user.Role] {
		if p == resource {
			return true
		}
	}
	return false
}

// CanViewTransaction reports whether user may read a transaction owned by
// ownerID. Admins see everything; regular users only their own rows.
func CanViewTransaction(user *models.User, ownerID string) bool {
	if !IsAuthenticated(user) {
		return false
	}
	if IsAdmin(user) {
		return true
	}
	return user.ID == ownerID
}

// CanModifyTransaction reports whether user may create, update or delete a
// transaction owned by ownerID. Only admins may, ownership is irrelevant:
// regular users never modify transactions, not even their own.
func CanModifyTransaction(user *models.User, ownerID string) bool {
	if !IsAuthenticated(user) {
		return false
	}
	return IsAdmin(user)
}

// UserPermissions returns the full set of resources the user may access,
// or an empty slice when unauthenticated.
func UserPermissions(user *models.User) []Resource {
	if !IsAuthenticated(user) {
		return []Resource{}
	}
	perms := rolePermissions[user.Role]
	out := make([]Resource, len(perms))
	copy(out, perms)
	return out
}

// RequireAccess returns nil when user holds the resource permission,
// ErrNotAuthenticated when there is no user, and ErrForbidden (wrapped
// with the resource name) when the user is authenticated but lacks it.
func RequireAccess(user *models.User, resource Resource) error {
	if CanAccessResource(user, resource) {
		return nil
	}
	if !IsAuthenticated(user) {
		return ErrNotAuthenticated
	}
	return fmt.Errorf("%w: requires %s", ErrForbidden, resource)
}

// CanAccessPage reports whether user may open the given page path.
// Public pages always pass, the authenticated list requires a resolved
// user, admin paths match by prefix and require ADMIN, and any unlisted
// path falls back to requiring authentication.
func CanAccessPage(user *models.User, page string) bool {
	for _, p := range publicPages {
		if page == p {
			return true
		}
	}
	for _, p := range authPages {
		if page == p {
			return IsAuthenticated(user)
		}
	}
	for _, p := range adminPages {
		if strings.HasPrefix(page, p) {
			return IsAdmin(user)
		}
	}
	return IsAuthenticated(user)
}
