package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"library-client/api"
	"library-client/config"
	"library-client/library"
	"library-client/logger"
	"library-client/session"
	"library-client/store"
)

func main() {
	var configPath string
	cmd := &cobra.Command{
		Use:          "import_books <file.csv>",
		Short:        "Create books from a CSV of title,author,year using the saved libctl session",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return run(ctx, configPath, args[0], cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "YAML config file (env vars override it)")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, csvPath string, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logger.Init(logger.ParseLevel(cfg.Log.Level), cfg.Log.Path,
		zap.String("run_id", uuid.NewString()),
		zap.String("tool", "import_books"),
	); err != nil {
		return err
	}

	db, err := store.NewDatabase(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open state %s: %w", cfg.Storage.Path, err)
	}
	defer db.Close()

	client := api.NewClient(cfg.API.BaseURL, nil, api.WithLogger(logger.Named("api")))
	sess := session.NewManager(db, client,
		session.WithLogger(logger.Named("session")),
		session.WithRevalidateExpiry(cfg.Session.RevalidateExpiry),
	)
	client.SetTokenSource(sess)
	if !sess.Restore(ctx) {
		return errors.New("not signed in, run 'libctl login' first")
	}
	if !sess.IsLibrarian() {
		return errors.New("importing books requires the librarian role")
	}

	f, err := os.Open(filepath.Clean(csvPath))
	if err != nil {
		return err
	}
	defer f.Close()

	return importBooks(ctx, client, f, out)
}

// bookCreator is the part of api.Client the importer needs.
type bookCreator interface {
	CreateBook(ctx context.Context, in library.BookInput) error
}

// importBooks reads title,author,year rows and creates each one. A header
// row is skipped; bad rows are counted and reported, never fatal.
func importBooks(ctx context.Context, c bookCreator, r io.Reader, out io.Writer) error {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	fmt.Fprintln(out, "Importing books...")

	successCount := 0
	errorCount := 0
	var imported []library.BookInput

	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			fmt.Fprintf(out, "Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}
		if line == 1 && isHeader(record) {
			continue
		}

		in, err := parseRecord(record)
		if err != nil {
			fmt.Fprintf(out, "Line %d: ERROR - %v\n", line, err)
			errorCount++
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", in.Title, in.Author)
		if err := c.CreateBook(ctx, in); err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			errorCount++
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}
		fmt.Fprintln(out, "SUCCESS")
		successCount++
		imported = append(imported, in)
	}

	fmt.Fprintf(out, "\nImport complete!\n")
	fmt.Fprintf(out, "Successfully imported: %d books\n", successCount)
	fmt.Fprintf(out, "Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Fprintln(out, "\nImported books:")
		fmt.Fprintf(out, "%-50s %-30s %-4s\n", "Title", "Author", "Year")
		fmt.Fprintln(out, strings.Repeat("-", 86))
		for _, b := range imported {
			fmt.Fprintf(out, "%-50s %-30s %-4d\n", truncateString(b.Title, 50), truncateString(b.Author, 30), b.Year)
		}
	}
	return nil
}

func isHeader(record []string) bool {
	return len(record) > 0 && strings.EqualFold(strings.TrimSpace(record[0]), "title")
}

func parseRecord(record []string) (library.BookInput, error) {
	if len(record) < 2 {
		return library.BookInput{}, fmt.Errorf("expected title,author[,year], got %d field(s)", len(record))
	}
	in := library.BookInput{
		Title:  strings.TrimSpace(record[0]),
		Author: strings.TrimSpace(record[1]),
		Year:   time.Now().Year(),
	}
	if in.Title == "" || in.Author == "" {
		return in, errors.New("title and author are required")
	}
	if len(record) > 2 && strings.TrimSpace(record[2]) != "" {
		year, err := strconv.Atoi(strings.TrimSpace(record[2]))
		if err != nil {
			return in, fmt.Errorf("invalid year %q", record[2])
		}
		in.Year = year
	}
	return in, nil
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
