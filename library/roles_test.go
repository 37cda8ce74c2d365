package library

import "testing"

func TestRoleFlags(t *testing.T) {
	tests := []struct {
		role                              Role
		wantLibrarian, wantAdmin, wantSup bool
	}{
		{RoleUser, false, false, false},
		{RoleLibrarian, true, false, false},
		{RoleAdmin, true, true, false},
		{RoleSuperAdmin, true, true, true},
		{Role(""), false, false, false},
		{Role("admin"), false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			if got := tt.role.IsLibrarian(); got != tt.wantLibrarian {
				t.Errorf("IsLibrarian = %v, want %v", got, tt.wantLibrarian)
			}
			if got := tt.role.IsAdmin(); got != tt.wantAdmin {
				t.Errorf("IsAdmin = %v, want %v", got, tt.wantAdmin)
			}
			if got := tt.role.IsSuperAdmin(); got != tt.wantSup {
				t.Errorf("IsSuperAdmin = %v, want %v", got, tt.wantSup)
			}
		})
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole("  super_admin ")
	if err != nil {
		t.Fatalf("ParseRole: %v", err)
	}
	if r != RoleSuperAdmin {
		t.Fatalf("ParseRole = %q, want %q", r, RoleSuperAdmin)
	}
	if _, err := ParseRole("ALL"); err == nil {
		t.Fatalf("expected ALL to be rejected as an assignable role")
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Fatalf("expected unknown role error")
	}
}

func TestViewsFor(t *testing.T) {
	if got := ViewsFor(RoleUser); len(got) != 2 || got[0] != ViewDashboard || got[1] != ViewBooks {
		t.Fatalf("ViewsFor(USER) = %v", got)
	}
	if got := ViewsFor(RoleAdmin); len(got) != 4 {
		t.Fatalf("ViewsFor(ADMIN) = %v, want all four views", got)
	}
	if CanView(RoleLibrarian, ViewUsers) {
		t.Errorf("librarian should not see the users view")
	}
	if !CanView(RoleSuperAdmin, ViewStats) {
		t.Errorf("super admin should see the stats view")
	}
	if got := ViewsFor(""); len(got) != 0 {
		t.Errorf("ViewsFor(\"\") = %v, want none", got)
	}
}

func TestRoleLabel(t *testing.T) {
	tests := map[Role]string{
		RoleUser:       "User",
		RoleLibrarian:  "Librarian",
		RoleAdmin:      "Admin",
		RoleSuperAdmin: "Super Admin",
		Role("GUEST"):  "Guest",
		Role(""):       "",
	}
	for role, want := range tests {
		if got := role.Label(); got != want {
			t.Errorf("Role(%q).Label() = %q, want %q", role, got, want)
		}
	}
}
