package library

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Role is the coarse privilege tier of an account.
type Role string

const (
	RoleUser       Role = "USER"
	RoleLibrarian  Role = "LIBRARIAN"
	RoleAdmin      Role = "ADMIN"
	RoleSuperAdmin Role = "SUPER_ADMIN"

	// RoleAll is the filter value that matches every role.
	RoleAll Role = "ALL"
)

// Roles lists the assignable roles from least to most privileged.
var Roles = []Role{RoleUser, RoleLibrarian, RoleAdmin, RoleSuperAdmin}

// ParseRole accepts any case and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsAdmin reports ADMIN or SUPER_ADMIN.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin || r == RoleSuperAdmin
}

// IsSuperAdmin reports SUPER_ADMIN.
func (r Role) IsSuperAdmin() bool {
	return r == RoleSuperAdmin
}

// IsLibrarian reports LIBRARIAN, ADMIN or SUPER_ADMIN.
func (r Role) IsLibrarian() bool {
	return r == RoleLibrarian || r == RoleAdmin || r == RoleSuperAdmin
}

// Label is the human readable form used in tables: SUPER_ADMIN reads
// "Super Admin". Roles this client does not know are labelled the same way.
func (r Role) Label() string {
	return cases.Title(language.English).String(strings.ReplaceAll(strings.ToLower(string(r)), "_", " "))
}

// View names a top-level screen of the client.
type View string

const (
	ViewDashboard View = "dashboard"
	ViewBooks     View = "books"
	ViewUsers     View = "users"
	ViewStats     View = "stats"
)

var viewRoles = []struct {
	view    View
	allowed []Role
}{
	{ViewDashboard, []Role{RoleUser, RoleLibrarian, RoleAdmin, RoleSuperAdmin}},
	{ViewBooks, []Role{RoleUser, RoleLibrarian, RoleAdmin, RoleSuperAdmin}},
	{ViewUsers, []Role{RoleAdmin, RoleSuperAdmin}},
	{ViewStats, []Role{RoleAdmin, RoleSuperAdmin}},
}

// ViewsFor returns the views offered to role, in menu order. The API still
// enforces authorization; this only decides what is shown.
func ViewsFor(r Role) []View {
	var views []View
	for _, vr := range viewRoles {
		for _, allowed := range vr.allowed {
			if allowed == r {
				views = append(views, vr.view)
				break
			}
		}
	}
	return views
}

// CanView reports whether v is in ViewsFor(r).
func CanView(r Role, v View) bool {
	for _, allowed := range ViewsFor(r) {
		if allowed == v {
			return true
		}
	}
	return false
}
