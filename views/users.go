package views

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"library-client/library"
)

// Users is the admin user-management screen.
type Users struct {
	api UserAPI
	who Identity
	log *zap.Logger

	mu    sync.Mutex
	users []library.User
}

func NewUsers(c UserAPI, who Identity, log *zap.Logger) *Users {
	if log == nil {
		log = zap.NewNop()
	}
	return &Users{api: c, who: who, log: log, users: []library.User{}}
}

// CanChangeRole reports whether role changes should be offered.
func (u *Users) CanChangeRole() bool { return u.who.Role().IsSuperAdmin() }

// Load replaces the snapshot with a fresh listing.
func (u *Users) Load(ctx context.Context) Notification {
	page, err := u.api.ListUsers(ctx)
	if err != nil {
		u.log.Warn("fetch users", zap.Error(err))
		return failure(MsgFetchUsersFailed)
	}

	u.mu.Lock()
	u.users = page.Items()
	u.mu.Unlock()
	return Notification{}
}

// ChangeRole sets the role of user id.
func (u *Users) ChangeRole(ctx context.Context, id int64, role library.Role) Notification {
	if !u.CanChangeRole() {
		return failure(MsgNotPermitted)
	}
	if err := u.api.ChangeUserRole(ctx, id, role); err != nil {
		u.log.Warn("change role", zap.Int64("id", id), zap.String("role", string(role)), zap.Error(err))
		return failure(MsgRoleFailed)
	}

	u.reload(ctx)
	return success(MsgRoleUpdated)
}

// MakeAdmin promotes a non-admin user to ADMIN.
func (u *Users) MakeAdmin(ctx context.Context, id int64) Notification {
	if !u.CanChangeRole() {
		return failure(MsgNotPermitted)
	}
	user, ok := u.Find(id)
	if !ok {
		return failure(MsgUnknownUser)
	}
	if user.Role.IsAdmin() {
		return failure(MsgAlreadyAdmin)
	}
	return u.ChangeRole(ctx, id, library.RoleAdmin)
}

// SetStatus activates or deactivates user id.
func (u *Users) SetStatus(ctx context.Context, id int64, active bool) Notification {
	if !u.who.Role().IsAdmin() {
		return failure(MsgNotPermitted)
	}
	if err := u.api.SetUserStatus(ctx, id, active); err != nil {
		u.log.Warn("set status", zap.Int64("id", id), zap.Bool("active", active), zap.Error(err))
		return failure(MsgStatusFailed)
	}

	u.reload(ctx)
	if active {
		return success(MsgUserActivated)
	}
	return success(MsgUserDeactivated)
}

// Snapshot returns a copy of the last listing.
func (u *Users) Snapshot() []library.User {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]library.User(nil), u.users...)
}

// Find looks up id in the snapshot.
func (u *Users) Find(id int64) (library.User, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, usr := range u.users {
		if usr.ID == id {
			return usr, true
		}
	}
	return library.User{}, false
}

// Filtered applies the search term and role filter to the snapshot. role may
// be library.RoleAll.
func (u *Users) Filtered(term string, role library.Role) []library.User {
	return library.FilterUsers(u.Snapshot(), term, role)
}

func (u *Users) reload(ctx context.Context) {
	if n := u.Load(ctx); n.Failed() {
		u.log.Warn("refresh after mutation failed")
	}
}
