package library

import "strings"

// FilterBooks keeps books whose title or author contains term, ignoring case.
// An empty term keeps everything.
func FilterBooks(books []Book, term string) []Book {
	needle := strings.ToLower(term)
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if strings.Contains(strings.ToLower(b.Title), needle) ||
			strings.Contains(strings.ToLower(b.Author), needle) {
			out = append(out, b)
		}
	}
	return out
}

// FilterUsers keeps users whose username or email contains term (ignoring
// case) and whose role equals role. RoleAll or an empty role matches any role.
func FilterUsers(users []User, term string, role Role) []User {
	needle := strings.ToLower(term)
	out := make([]User, 0, len(users))
	for _, u := range users {
		matchesSearch := strings.Contains(strings.ToLower(u.Username), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle)
		matchesRole := role == RoleAll || role == "" || u.Role == role
		if matchesSearch && matchesRole {
			out = append(out, u)
		}
	}
	return out
}
