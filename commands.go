package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"library-client/library"
	"library-client/views"
)

var (
	errNotSignedIn  = errors.New("not signed in, run 'libctl login' first")
	errAccessDenied = errors.New("access denied for your role")
)

// action wraps a one-shot command: Ctrl-C cancels the request, and the
// session (plus the view, when set) is checked first.
func (c *cli) action(view library.View, fn func(ctx context.Context, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a := c.app
		if !a.session.IsAuthenticated() {
			return errNotSignedIn
		}
		if view != "" && !library.CanView(a.session.Role(), view) {
			return errAccessDenied
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return fn(ctx, a, args)
	}
}

// report prints n and turns a failure into a non-zero exit.
func report(a *app, n views.Notification) error {
	if n.Failed() {
		return errors.New(n.Message)
	}
	printNotification(a.out, n)
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid ID: %s", s)
	}
	return id, nil
}

// ------------------ Session ------------------

func newLoginCmd(c *cli) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			if username == "" {
				var ok bool
				if username, ok = a.ask("Username: "); !ok {
					return errors.New("no username given")
				}
			}
			password, err := a.password("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res := a.session.Login(ctx, library.Credentials{Username: username, Password: password})
			if !res.Success {
				return errors.New(res.Error)
			}
			s, _ := a.session.Current()
			fmt.Fprintf(a.out, "Signed in as %s (%s).\n", s.User.Username, s.User.Role.Label())
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	return cmd
}

func newRegisterCmd(c *cli) *cobra.Command {
	var username, email string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := c.app
			password, err := a.password("Password: ")
			if err != nil {
				return fmt.Errorf("read password: %w", err)
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			res := a.session.Register(ctx, library.Registration{Username: username, Email: email, Password: password})
			if !res.Success {
				return errors.New(res.Error)
			}
			fmt.Fprintf(a.out, "Registered and signed in as %s.\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "account name")
	cmd.Flags().StringVarP(&email, "email", "e", "", "contact email")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLogoutCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			c.app.session.Logout()
			fmt.Fprintln(c.app.out, "Signed out.")
			return nil
		},
	}
}

func newWhoamiCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: c.action("", func(_ context.Context, a *app, _ []string) error {
			p, _ := a.dashboard.Account()
			printAccount(a.out, p)
			return nil
		}),
	}
}

func newDashboardCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Overview and quick actions",
		Args:  cobra.NoArgs,
		RunE: c.action(library.ViewDashboard, func(ctx context.Context, a *app, _ []string) error {
			handleDashboard(ctx, a)
			return nil
		}),
	}
}

func newStatsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Library statistics (admins)",
		Args:  cobra.NoArgs,
		RunE: c.action(library.ViewStats, func(ctx context.Context, a *app, _ []string) error {
			if n := a.stats.Load(ctx); n.Failed() {
				return report(a, n)
			}
			s, _ := a.stats.Snapshot()
			printStats(a.out, s)
			return nil
		}),
	}
}

// ------------------ Books ------------------

func newBooksCmd(c *cli) *cobra.Command {
	books := &cobra.Command{
		Use:   "books",
		Short: "List and manage the catalog",
	}

	var search string
	list := &cobra.Command{
		Use:   "list",
		Short: "List books, optionally filtered by title or author",
		Args:  cobra.NoArgs,
		RunE: c.action(library.ViewBooks, func(ctx context.Context, a *app, _ []string) error {
			if n := a.books.Load(ctx); n.Failed() {
				return report(a, n)
			}
			if search == "" {
				printBooks(a.out, a.books.Snapshot(), a.books.Page().TotalElements)
			} else {
				printBooks(a.out, a.books.Filtered(search), 0)
			}
			return nil
		}),
	}
	list.Flags().StringVarP(&search, "search", "s", "", "case-insensitive title or author filter")

	var in library.BookInput
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a book (librarians)",
		Args:  cobra.NoArgs,
		RunE: c.action(library.ViewBooks, func(ctx context.Context, a *app, _ []string) error {
			return report(a, a.books.Save(ctx, nil, in))
		}),
	}
	add.Flags().StringVar(&in.Title, "title", "", "book title")
	add.Flags().StringVar(&in.Author, "author", "", "book author")
	add.Flags().IntVar(&in.Year, "year", time.Now().Year(), "publication year")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	var upd library.BookInput
	update := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a book (librarians); unset flags keep their value",
		Args:  cobra.ExactArgs(1),
		RunE: c.action(library.ViewBooks, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if n := a.books.Load(ctx); n.Failed() {
				return report(a, n)
			}
			current, ok := a.books.Find(id)
			if !ok {
				return fmt.Errorf("book %d not found", id)
			}
			merged := library.BookInput{Title: current.Title, Author: current.Author, Year: current.Year}
			if upd.Title != "" {
				merged.Title = upd.Title
			}
			if upd.Author != "" {
				merged.Author = upd.Author
			}
			if upd.Year != 0 {
				merged.Year = upd.Year
			}
			return report(a, a.books.Save(ctx, &id, merged))
		}),
	}
	update.Flags().StringVar(&upd.Title, "title", "", "new title")
	update.Flags().StringVar(&upd.Author, "author", "", "new author")
	update.Flags().IntVar(&upd.Year, "year", 0, "new publication year")

	var yes bool
	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book (librarians)",
		Args:  cobra.ExactArgs(1),
		RunE: c.action(library.ViewBooks, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !yes && !a.confirm("Are you sure you want to delete this book?") {
				fmt.Fprintln(a.out, "Cancelled.")
				return nil
			}
			return report(a, a.books.Delete(ctx, id))
		}),
	}
	del.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")

	books.AddCommand(list, add, update, del)
	return books
}

// ------------------ Users ------------------

func newUsersCmd(c *cli) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Administer accounts (admins)",
	}

	var search, roleFilter string
	list := &cobra.Command{
		Use:   "list",
		Short: "List users, optionally filtered",
		Args:  cobra.NoArgs,
		RunE: c.action(library.ViewUsers, func(ctx context.Context, a *app, _ []string) error {
			role := library.RoleAll
			if roleFilter != "" && !strings.EqualFold(roleFilter, string(library.RoleAll)) {
				parsed, err := library.ParseRole(roleFilter)
				if err != nil {
					return err
				}
				role = parsed
			}
			if n := a.users.Load(ctx); n.Failed() {
				return report(a, n)
			}
			printUsers(a.out, a.users.Filtered(search, role))
			return nil
		}),
	}
	list.Flags().StringVarP(&search, "search", "s", "", "case-insensitive username or email filter")
	list.Flags().StringVarP(&roleFilter, "role", "r", string(library.RoleAll), "ALL or an exact role")

	role := &cobra.Command{
		Use:   "role <id> <ROLE>",
		Short: "Change a user's role (super admins)",
		Args:  cobra.ExactArgs(2),
		RunE: c.action(library.ViewUsers, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			newRole, err := library.ParseRole(args[1])
			if err != nil {
				return err
			}
			return report(a, a.users.ChangeRole(ctx, id, newRole))
		}),
	}

	var active bool
	status := &cobra.Command{
		Use:   "status <id>",
		Short: "Activate or deactivate a user",
		Args:  cobra.ExactArgs(1),
		RunE: c.action(library.ViewUsers, func(ctx context.Context, a *app, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return report(a, a.users.SetStatus(ctx, id, active))
		}),
	}
	status.Flags().BoolVar(&active, "active", true, "true to activate, false to deactivate")

	users.AddCommand(list, role, status)
	return users
}
