package library

import (
	"encoding/json"
	"math"
)

// Book is a catalog entry as served by the library API.
type Book struct {
	ID     int64  `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
}

// BookInput is the payload for creating or updating a book.
type BookInput struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Year   int    `json:"year"`
}

// User is an account record from the admin listing.
type User struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *Timestamp `json:"lastLogin,omitempty"`
}

// Profile is the signed-in user as returned by login/register. The raw
// response is kept so fields this client does not know about survive a reload.
type Profile struct {
	ID        int64      `json:"id,omitempty"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      Role       `json:"role"`
	Active    bool       `json:"active"`
	LastLogin *Timestamp `json:"lastLogin,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Stats holds the aggregate counters of /admin/stats.
type Stats struct {
	TotalUsers         int64 `json:"totalUsers"`
	ActiveUsers        int64 `json:"activeUsers"`
	TotalBooks         int64 `json:"totalBooks"`
	RegistrationsToday int64 `json:"registrationsToday"`
}

// ActivityPercent returns the active and inactive shares of TotalUsers,
// rounded to whole percent. Both are 0 when there are no users.
func (s Stats) ActivityPercent() (active, inactive int) {
	if s.TotalUsers <= 0 {
		return 0, 0
	}
	total := float64(s.TotalUsers)
	active = int(math.Round(float64(s.ActiveUsers) / total * 100))
	inactive = int(math.Round(float64(s.TotalUsers-s.ActiveUsers) / total * 100))
	return active, inactive
}

// Page is the envelope used by list endpoints. Only Content is required;
// the paging counters are informational.
type Page[T any] struct {
	Content       []T   `json:"content"`
	TotalElements int64 `json:"totalElements,omitempty"`
	TotalPages    int   `json:"totalPages,omitempty"`
	Number        int   `json:"number,omitempty"`
	Size          int   `json:"size,omitempty"`
}

// Items returns the page content, never nil.
func (p Page[T]) Items() []T {
	if p.Content == nil {
		return []T{}
	}
	return p.Content
}

// Credentials are sent to /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is sent to /auth/register.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is the login/register reply: the token plus the user fields.
type AuthResponse struct {
	Token string `json:"token"`
	Profile
}
