package main

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"library-client/api"
	"library-client/config"
	"library-client/logger"
	"library-client/session"
	"library-client/store"
	"library-client/views"
)

// rootOptions are the persistent flags; non-empty values override config.
type rootOptions struct {
	configPath string
	apiBase    string
	statePath  string
	verbose    bool
}

// app is everything a command needs, built once per process.
type app struct {
	cfg     *config.Config
	log     *zap.Logger
	db      *store.Database
	client  *api.Client
	session *session.Manager

	dashboard *views.Dashboard
	books     *views.Books
	users     *views.Users
	stats     *views.Stats

	sc  *bufio.Scanner
	out io.Writer
	// password reads a secret; it masks input when stdin is a terminal.
	password func(prompt string) (string, error)
}

func newApp(ctx context.Context, opts rootOptions, in io.Reader, out io.Writer) (*app, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.apiBase != "" {
		cfg.API.BaseURL = opts.apiBase
	}
	if opts.statePath != "" {
		cfg.Storage.Path = opts.statePath
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := logger.Init(logger.ParseLevel(cfg.Log.Level), cfg.Log.Path,
		zap.String("run_id", uuid.NewString()),
		zap.String("env", cfg.Env),
	); err != nil {
		return nil, err
	}

	db, err := store.NewDatabase(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open state %s: %w", cfg.Storage.Path, err)
	}

	client := api.NewClient(cfg.API.BaseURL, nil, api.WithLogger(logger.Named("api")))
	sess := session.NewManager(db, client,
		session.WithLogger(logger.Named("session")),
		session.WithRevalidateExpiry(cfg.Session.RevalidateExpiry),
	)
	client.SetTokenSource(sess)
	sess.Restore(ctx)

	viewLog := logger.Named("views")
	a := &app{
		cfg:       cfg,
		log:       logger.Named("libctl"),
		db:        db,
		client:    client,
		session:   sess,
		dashboard: views.NewDashboard(sess, client, viewLog),
		books:     views.NewBooks(client, sess, viewLog),
		users:     views.NewUsers(client, sess, viewLog),
		stats:     views.NewStats(client, viewLog),
		sc:        bufio.NewScanner(in),
		out:       out,
	}
	a.password = passwordReader(in, out, a.sc)

	a.log.Debug("started",
		zap.String("api", client.BaseURL()),
		zap.String("state", cfg.Storage.Path),
		zap.Bool("authenticated", sess.IsAuthenticated()),
	)
	return a, nil
}

func (a *app) Close() error {
	if a.log != nil {
		_ = a.log.Sync()
	}
	return a.db.Close()
}
