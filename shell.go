package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"library-client/library"
)

// shellCommand is one line the REPL understands. view gates it by role
// (empty means any signed-in user); public commands work signed out.
type shellCommand struct {
	name   string
	help   string
	view   library.View
	public bool
	run    func(ctx context.Context, a *app)
}

func shellCommands() []shellCommand {
	return []shellCommand{
		{name: "login", help: "sign in", public: true, run: handleLogin},
		{name: "register", help: "create an account", public: true, run: handleRegister},
		{name: "logout", help: "sign out", run: handleLogout},
		{name: "account", help: "show account settings", run: handleAccount},
		{name: "dashboard", help: "overview and quick actions", view: library.ViewDashboard, run: handleDashboard},
		{name: "list books", help: "show the catalog", view: library.ViewBooks, run: handleListBooks},
		{name: "search book", help: "filter by title or author", view: library.ViewBooks, run: handleSearchBooks},
		{name: "add book", help: "librarians and above", view: library.ViewBooks, run: handleAddBook},
		{name: "edit book", help: "librarians and above", view: library.ViewBooks, run: handleEditBook},
		{name: "delete book", help: "librarians and above", view: library.ViewBooks, run: handleDeleteBook},
		{name: "list users", help: "show all accounts", view: library.ViewUsers, run: handleListUsers},
		{name: "search users", help: "filter by name, email and role", view: library.ViewUsers, run: handleSearchUsers},
		{name: "activate user", view: library.ViewUsers, run: handleSetStatus(true)},
		{name: "deactivate user", view: library.ViewUsers, run: handleSetStatus(false)},
		{name: "change role", help: "super admins only", view: library.ViewUsers, run: handleChangeRole},
		{name: "make admin", help: "super admins only", view: library.ViewUsers, run: handleMakeAdmin},
		{name: "stats", help: "library statistics", view: library.ViewStats, run: handleStats},
	}
}

// aliases map alternative spellings onto command names.
var aliases = map[string]string{
	"whoami":       "account",
	"books":        "list books",
	"users":        "list users",
	"search books": "search book",
	"update book":  "edit book",
	"search user":  "search users",
}

func runShell(ctx context.Context, a *app) error {
	cmds := shellCommands()
	byName := make(map[string]shellCommand, len(cmds))
	for _, c := range cmds {
		byName[c.name] = c
	}

	fmt.Fprintln(a.out, "Welcome to the Library Management System!")
	if s, ok := a.session.Current(); ok {
		fmt.Fprintf(a.out, "Signed in as %s (%s).\n", s.User.Username, s.User.Role.Label())
	} else {
		fmt.Fprintln(a.out, "You are not signed in. Type 'login' or 'register'.")
	}
	fmt.Fprintln(a.out, "Type 'help' for the available commands.")

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fmt.Fprint(a.out, "\n> ")
		if !a.sc.Scan() {
			return a.sc.Err()
		}
		line := strings.ToLower(strings.Join(strings.Fields(a.sc.Text()), " "))
		if alias, ok := aliases[line]; ok {
			line = alias
		}

		switch line {
		case "":
			continue
		case "help":
			printHelp(a, cmds)
			continue
		case "exit", "quit":
			fmt.Fprintln(a.out, "Goodbye!")
			return nil
		}

		cmd, ok := byName[line]
		if !ok {
			fmt.Fprintln(a.out, "Unknown command. Type 'help' to see the available commands.")
			continue
		}
		if !cmd.public && !a.session.IsAuthenticated() {
			fmt.Fprintln(a.out, "Please log in first.")
			continue
		}
		if cmd.view != "" && !library.CanView(a.session.Role(), cmd.view) {
			fmt.Fprintln(a.out, "Access denied.")
			continue
		}

		cmdCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		cmd.run(cmdCtx, a)
		stop()
	}
}

func printHelp(a *app, cmds []shellCommand) {
	role := a.session.Role()
	signedIn := a.session.IsAuthenticated()

	fmt.Fprintln(a.out, "Available commands:")
	for _, c := range cmds {
		if signedIn == c.public {
			continue
		}
		if c.view != "" && !library.CanView(role, c.view) {
			continue
		}
		if c.help != "" {
			fmt.Fprintf(a.out, "  %-16s %s\n", c.name, c.help)
		} else {
			fmt.Fprintf(a.out, "  %s\n", c.name)
		}
	}
	fmt.Fprintf(a.out, "  %-16s %s\n", "help", "show this list")
	fmt.Fprintf(a.out, "  %-16s %s\n", "exit", "leave the shell")
}

// ------------------ Session ------------------

func handleLogin(ctx context.Context, a *app) {
	username, ok := a.ask("Username: ")
	if !ok {
		return
	}
	password, err := a.password("Password: ")
	if err != nil {
		fmt.Fprintf(a.out, "Error reading password: %v\n", err)
		return
	}

	res := a.session.Login(ctx, library.Credentials{Username: username, Password: password})
	if !res.Success {
		fmt.Fprintf(a.out, "Error: %s\n", res.Error)
		return
	}
	afterSignIn(ctx, a)
}

func handleRegister(ctx context.Context, a *app) {
	username, ok := a.ask("Username: ")
	if !ok {
		return
	}
	email, ok := a.ask("Email: ")
	if !ok {
		return
	}
	password, err := a.password("Password: ")
	if err != nil {
		fmt.Fprintf(a.out, "Error reading password: %v\n", err)
		return
	}
	if password == "" {
		fmt.Fprintln(a.out, "Error: Password cannot be empty")
		return
	}

	res := a.session.Register(ctx, library.Registration{Username: username, Email: email, Password: password})
	if !res.Success {
		fmt.Fprintf(a.out, "Error: %s\n", res.Error)
		return
	}
	afterSignIn(ctx, a)
}

func afterSignIn(ctx context.Context, a *app) {
	s, _ := a.session.Current()
	fmt.Fprintf(a.out, "Signed in as %s (%s).\n\n", s.User.Username, s.User.Role.Label())
	handleDashboard(ctx, a)
}

func handleLogout(_ context.Context, a *app) {
	a.session.Logout()
	fmt.Fprintln(a.out, "Signed out.")
}

func handleAccount(_ context.Context, a *app) {
	p, ok := a.dashboard.Account()
	if !ok {
		fmt.Fprintln(a.out, "Not signed in.")
		return
	}
	printAccount(a.out, p)
}

// ------------------ Dashboard & stats ------------------

func handleDashboard(ctx context.Context, a *app) {
	a.dashboard.Load(ctx)
	printDashboard(a.out, a.dashboard)
}

func handleStats(ctx context.Context, a *app) {
	if n := a.stats.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	if s, ok := a.stats.Snapshot(); ok {
		printStats(a.out, s)
	}
}

// ------------------ Books ------------------

func handleListBooks(ctx context.Context, a *app) {
	if n := a.books.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	printBooks(a.out, a.books.Snapshot(), a.books.Page().TotalElements)
}

func handleSearchBooks(ctx context.Context, a *app) {
	term, ok := a.ask("Search: ")
	if !ok {
		return
	}
	if n := a.books.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}

	books := a.books.Filtered(term)
	if len(books) == 0 {
		fmt.Fprintf(a.out, "No books found matching '%s'.\n", term)
		return
	}
	fmt.Fprintf(a.out, "Found %d book(s) matching '%s':\n", len(books), term)
	printBooks(a.out, books, 0)
}

func handleAddBook(ctx context.Context, a *app) {
	if !a.books.CanEdit() {
		fmt.Fprintln(a.out, "Access denied: librarian role required.")
		return
	}
	in, ok := askBook(a, library.Book{})
	if !ok {
		return
	}
	printNotification(a.out, a.books.Save(ctx, nil, in))
}

func handleEditBook(ctx context.Context, a *app) {
	if !a.books.CanEdit() {
		fmt.Fprintln(a.out, "Access denied: librarian role required.")
		return
	}
	id, ok := a.askID("Book ID: ")
	if !ok {
		return
	}
	if n := a.books.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	current, found := a.books.Find(id)
	if !found {
		fmt.Fprintf(a.out, "Book %d not found.\n", id)
		return
	}

	fmt.Fprintln(a.out, "Press Enter to keep the current value.")
	in, ok := askBook(a, current)
	if !ok {
		return
	}
	printNotification(a.out, a.books.Save(ctx, &id, in))
}

func handleDeleteBook(ctx context.Context, a *app) {
	if !a.books.CanEdit() {
		fmt.Fprintln(a.out, "Access denied: librarian role required.")
		return
	}
	id, ok := a.askID("Book ID: ")
	if !ok {
		return
	}
	if !a.confirm("Are you sure you want to delete this book?") {
		fmt.Fprintln(a.out, "Cancelled.")
		return
	}
	printNotification(a.out, a.books.Delete(ctx, id))
}

// askBook prompts for each field, defaulting to current. A book without a
// year defaults to this year.
func askBook(a *app, current library.Book) (library.BookInput, bool) {
	in := library.BookInput{Title: current.Title, Author: current.Author, Year: current.Year}
	if in.Year == 0 {
		in.Year = time.Now().Year()
	}

	title, ok := a.ask(fieldPrompt("Title", current.Title))
	if !ok {
		return in, false
	}
	if title != "" {
		in.Title = title
	}
	author, ok := a.ask(fieldPrompt("Author", current.Author))
	if !ok {
		return in, false
	}
	if author != "" {
		in.Author = author
	}
	year, ok := a.askYear(fieldPrompt("Year", formatYear(in.Year)))
	if !ok {
		return in, false
	}
	if year != 0 {
		in.Year = year
	}

	if in.Title == "" || in.Author == "" {
		fmt.Fprintln(a.out, "Error: Title and author are required")
		return in, false
	}
	return in, true
}

func fieldPrompt(name, current string) string {
	if current == "" {
		return name + ": "
	}
	return fmt.Sprintf("%s [%s]: ", name, current)
}

// ------------------ Users ------------------

func handleListUsers(ctx context.Context, a *app) {
	if n := a.users.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	printUsers(a.out, a.users.Snapshot())
}

func handleSearchUsers(ctx context.Context, a *app) {
	term, ok := a.ask("Search: ")
	if !ok {
		return
	}
	roleStr, ok := a.ask("Role (ALL, USER, LIBRARIAN, ADMIN, SUPER_ADMIN) [ALL]: ")
	if !ok {
		return
	}
	role := library.RoleAll
	if roleStr != "" && !strings.EqualFold(roleStr, string(library.RoleAll)) {
		parsed, err := library.ParseRole(roleStr)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
			return
		}
		role = parsed
	}

	if n := a.users.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	printUsers(a.out, a.users.Filtered(term, role))
}

func handleSetStatus(active bool) func(context.Context, *app) {
	return func(ctx context.Context, a *app) {
		id, ok := a.askID("User ID: ")
		if !ok {
			return
		}
		printNotification(a.out, a.users.SetStatus(ctx, id, active))
	}
}

func handleChangeRole(ctx context.Context, a *app) {
	if !a.users.CanChangeRole() {
		fmt.Fprintln(a.out, "Access denied: super admin role required.")
		return
	}
	id, ok := a.askID("User ID: ")
	if !ok {
		return
	}
	roleStr, ok := a.ask("New role (USER, LIBRARIAN, ADMIN, SUPER_ADMIN): ")
	if !ok {
		return
	}
	role, err := library.ParseRole(roleStr)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printNotification(a.out, a.users.ChangeRole(ctx, id, role))
}

func handleMakeAdmin(ctx context.Context, a *app) {
	if !a.users.CanChangeRole() {
		fmt.Fprintln(a.out, "Access denied: super admin role required.")
		return
	}
	id, ok := a.askID("User ID: ")
	if !ok {
		return
	}
	if n := a.users.Load(ctx); n.Failed() {
		printNotification(a.out, n)
		return
	}
	printNotification(a.out, a.users.MakeAdmin(ctx, id))
}
