package views

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"library-client/library"
)

// ActionAccount is the quick action that opens account settings rather than
// a view.
const ActionAccount library.View = "account"

// QuickAction is a dashboard shortcut.
type QuickAction struct {
	Label  string
	Target library.View
}

// Dashboard is the landing screen.
type Dashboard struct {
	who   Identity
	stats *Stats
	log   *zap.Logger
}

func NewDashboard(who Identity, c StatsAPI, log *zap.Logger) *Dashboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dashboard{who: who, stats: NewStats(c, log), log: log}
}

// Load fetches stats for admins. A failure is only logged; the dashboard
// renders without them.
func (d *Dashboard) Load(ctx context.Context) {
	if !d.who.Role().IsAdmin() {
		return
	}
	if n := d.stats.Load(ctx); n.Failed() {
		d.log.Info("dashboard stats unavailable")
	}
}

// Welcome is the greeting line.
func (d *Dashboard) Welcome() string {
	s, ok := d.who.Current()
	if !ok {
		return "Welcome!"
	}
	return fmt.Sprintf("Welcome back, %s!", s.User.Username)
}

// Badge is the role label shown next to the greeting.
func (d *Dashboard) Badge() string { return d.who.Role().Label() }

// QuickActions are the shortcuts offered to the current role.
func (d *Dashboard) QuickActions() []QuickAction {
	actions := []QuickAction{{Label: "View All Books", Target: library.ViewBooks}}
	role := d.who.Role()
	if library.CanView(role, library.ViewUsers) {
		actions = append(actions, QuickAction{Label: "Manage Users", Target: library.ViewUsers})
	}
	if library.CanView(role, library.ViewStats) {
		actions = append(actions, QuickAction{Label: "View Statistics", Target: library.ViewStats})
	}
	return append(actions, QuickAction{Label: "Account Settings", Target: ActionAccount})
}

// Stats returns the admin counters when they were loaded.
func (d *Dashboard) Stats() (library.Stats, bool) { return d.stats.Snapshot() }

// Account returns the profile shown under account settings.
func (d *Dashboard) Account() (library.Profile, bool) {
	s, ok := d.who.Current()
	return s.User, ok
}
