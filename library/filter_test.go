package library

import "testing"

func TestFilterBooks(t *testing.T) {
	books := []Book{
		{ID: 1, Title: "Dune", Author: "Herbert", Year: 1965},
		{ID: 2, Title: "Emma", Author: "Austen", Year: 1815},
		{ID: 3, Title: "The Hobbit", Author: "Tolkien", Year: 1937},
	}

	tests := []struct {
		name    string
		term    string
		wantIDs []int64
	}{
		{name: "Author match ignores case", term: "HER", wantIDs: []int64{1}},
		{name: "Title match", term: "hob", wantIDs: []int64{3}},
		{name: "Matches both fields across books", term: "e", wantIDs: []int64{1, 2, 3}},
		{name: "Empty term keeps all", term: "", wantIDs: []int64{1, 2, 3}},
		{name: "No match", term: "zzz", wantIDs: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterBooks(books, tt.term)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("FilterBooks(%q) returned %d books, want %d", tt.term, len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: got book %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestFilterUsers(t *testing.T) {
	users := []User{
		{ID: 1, Username: "a", Email: "a@x.com", Role: RoleUser},
		{ID: 2, Username: "b", Email: "b@x.com", Role: RoleAdmin},
	}

	tests := []struct {
		name    string
		term    string
		role    Role
		wantIDs []int64
	}{
		{name: "Search and role both match", term: "b", role: RoleAdmin, wantIDs: []int64{2}},
		{name: "Search matches but role does not", term: "a", role: RoleAdmin, wantIDs: nil},
		{name: "ALL role keeps every role", term: "", role: RoleAll, wantIDs: []int64{1, 2}},
		{name: "Email match ignores case", term: "B@X", role: RoleAll, wantIDs: []int64{2}},
		{name: "Role only", term: "", role: RoleUser, wantIDs: []int64{1}},
		{name: "Shared domain matches both", term: "x.com", role: "", wantIDs: []int64{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterUsers(users, tt.term, tt.role)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("FilterUsers(%q, %q) returned %d users, want %d", tt.term, tt.role, len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("position %d: got user %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestPageItemsNeverNil(t *testing.T) {
	var p Page[Book]
	if p.Items() == nil {
		t.Fatalf("Items() on empty page returned nil")
	}
	if len(p.Items()) != 0 {
		t.Fatalf("Items() on empty page returned %d entries", len(p.Items()))
	}
}
