package main

import (
	"fmt"
	"io"
	"strings"

	"library-client/library"
	"library-client/views"
)

func printNotification(w io.Writer, n views.Notification) {
	if n.IsZero() {
		return
	}
	if n.Failed() {
		fmt.Fprintf(w, "Error: %s\n", n.Message)
		return
	}
	fmt.Fprintln(w, n.Message)
}

func printBooks(w io.Writer, books []library.Book, total int64) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}

	fmt.Fprintf(w, "%-5s %-40s %-30s %-6s\n", "ID", "Title", "Author", "Year")
	fmt.Fprintln(w, strings.Repeat("-", 84))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-40s %-30s %-6s\n",
			b.ID,
			truncateString(b.Title, 40),
			truncateString(b.Author, 30),
			formatYear(b.Year))
	}
	if total > int64(len(books)) {
		fmt.Fprintf(w, "\nShowing %d of %d books\n", len(books), total)
	}
}

func printUsers(w io.Writer, users []library.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users found.")
		return
	}

	fmt.Fprintf(w, "%-5s %-20s %-30s %-12s %-9s %s\n", "ID", "Username", "Email", "Role", "Status", "Last Login")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, u := range users {
		status := "Active"
		if !u.Active {
			status = "Inactive"
		}
		fmt.Fprintf(w, "%-5d %-20s %-30s %-12s %-9s %s\n",
			u.ID,
			truncateString(u.Username, 20),
			truncateString(u.Email, 30),
			u.Role.Label(),
			status,
			formatTime(u.LastLogin))
	}
}

func printStats(w io.Writer, s library.Stats) {
	fmt.Fprintf(w, "%-22s %d\n", "Total users:", s.TotalUsers)
	fmt.Fprintf(w, "%-22s %d\n", "Active users:", s.ActiveUsers)
	fmt.Fprintf(w, "%-22s %d\n", "Total books:", s.TotalBooks)
	fmt.Fprintf(w, "%-22s %d\n", "Registrations today:", s.RegistrationsToday)

	active, inactive := s.ActivityPercent()
	fmt.Fprintln(w, "\nUser activity:")
	fmt.Fprintf(w, "  %-18s %s %3d%%\n", "Active users", activityBar(active), active)
	fmt.Fprintf(w, "  %-18s %s %3d%%\n", "Inactive users", activityBar(inactive), inactive)
}

// activityBar draws pct as a 20-cell bar.
func activityBar(pct int) string {
	const width = 20
	filled := min(max(pct*width/100, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func printDashboard(w io.Writer, d *views.Dashboard) {
	fmt.Fprintf(w, "%s  [%s]\n", d.Welcome(), d.Badge())
	fmt.Fprintln(w, "Here's what's happening in your library today.")

	if stats, ok := d.Stats(); ok {
		fmt.Fprintln(w)
		printStats(w, stats)
	}

	fmt.Fprintln(w, "\nQuick actions:")
	for _, a := range d.QuickActions() {
		fmt.Fprintf(w, "  • %-18s (%s)\n", a.Label, quickActionCommand(a.Target))
	}
}

func printAccount(w io.Writer, p library.Profile) {
	fmt.Fprintf(w, "%-10s %s\n", "Username:", p.Username)
	fmt.Fprintf(w, "%-10s %s\n", "Email:", p.Email)
	fmt.Fprintf(w, "%-10s %s\n", "Role:", p.Role.Label())
	if p.LastLogin != nil {
		fmt.Fprintf(w, "%-10s %s\n", "Last login:", formatTime(p.LastLogin))
	}
}

func quickActionCommand(v library.View) string {
	switch v {
	case library.ViewBooks:
		return "list books"
	case library.ViewUsers:
		return "list users"
	case library.ViewStats:
		return "stats"
	case views.ActionAccount:
		return "account"
	default:
		return string(v)
	}
}

func formatYear(y int) string {
	if y == 0 {
		return "-"
	}
	return fmt.Sprint(y)
}

func formatTime(t *library.Timestamp) string {
	if t == nil || t.IsZero() {
		return "Never"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
