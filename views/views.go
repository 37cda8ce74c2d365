// Package views holds the screens of the client. Each view fetches its
// resource on activation, keeps the latest snapshot and re-fetches after a
// successful mutation. Failures are collapsed into a Notification; the
// underlying error only goes to the log.
package views

import (
	"context"

	"library-client/library"
	"library-client/session"
)

// Kind classifies a Notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is the user-facing outcome of a view action.
type Notification struct {
	Message string
	Kind    Kind
}

// Failed reports whether n describes a failure.
func (n Notification) Failed() bool { return n.Kind == KindError }

// IsZero reports whether there is nothing to show.
func (n Notification) IsZero() bool { return n.Message == "" }

func success(msg string) Notification { return Notification{Message: msg, Kind: KindSuccess} }
func failure(msg string) Notification { return Notification{Message: msg, Kind: KindError} }

const (
	MsgFetchBooksFailed = "Failed to fetch books"
	MsgSaveBookFailed   = "Failed to save book"
	MsgDeleteBookFailed = "Failed to delete book"
	MsgBookAdded        = "Book added successfully!"
	MsgBookUpdated      = "Book updated successfully!"
	MsgBookDeleted      = "Book deleted successfully!"
	MsgFetchUsersFailed = "Failed to fetch users"
	MsgRoleFailed       = "Failed to update user role"
	MsgStatusFailed     = "Failed to update user status"
	MsgRoleUpdated      = "User role updated successfully!"
	MsgUserActivated    = "User activated successfully!"
	MsgUserDeactivated  = "User deactivated successfully!"
	MsgAlreadyAdmin     = "User is already an admin"
	MsgUnknownUser      = "User not found"
	MsgStatsUnavailable = "Unable to load statistics"
	MsgNotPermitted     = "You do not have permission to do that"
)

// Identity is what views need to know about the signed-in user.
type Identity interface {
	Current() (session.Session, bool)
	Role() library.Role
}

// BookAPI is the slice of api.Client used by Books.
type BookAPI interface {
	ListBooks(ctx context.Context) (library.Page[library.Book], error)
	CreateBook(ctx context.Context, in library.BookInput) error
	UpdateBook(ctx context.Context, id int64, in library.BookInput) error
	DeleteBook(ctx context.Context, id int64) error
}

// UserAPI is the slice of api.Client used by Users.
type UserAPI interface {
	ListUsers(ctx context.Context) (library.Page[library.User], error)
	ChangeUserRole(ctx context.Context, id int64, role library.Role) error
	SetUserStatus(ctx context.Context, id int64, active bool) error
}

// StatsAPI is the slice of api.Client used by Stats and Dashboard.
type StatsAPI interface {
	Stats(ctx context.Context) (*library.Stats, error)
}
