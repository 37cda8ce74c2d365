package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// cli carries the flag values and the app built from them to every command.
type cli struct {
	opts rootOptions
	in   io.Reader
	out  io.Writer
	app  *app
}

func main() {
	c := &cli{in: os.Stdin, out: os.Stdout}
	err := newRootCmd(c).ExecuteContext(context.Background())
	c.close()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "libctl",
		Short:        "Terminal client for the library management API",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.opts, c.in, c.out)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		// With no subcommand the interactive shell starts.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runShell(cmd.Context(), c.app)
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)

	flags := root.PersistentFlags()
	flags.StringVarP(&c.opts.configPath, "config", "c", "", "YAML config file (env vars override it)")
	flags.StringVar(&c.opts.apiBase, "api", "", "API base URL, overrides LIBRARY_API_BASE")
	flags.StringVar(&c.opts.statePath, "state", "", "session state file, overrides LIBRARY_STATE_PATH")
	flags.BoolVarP(&c.opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "shell",
			Short: "Start the interactive shell",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runShell(cmd.Context(), c.app)
			},
		},
		newLoginCmd(c),
		newRegisterCmd(c),
		newLogoutCmd(c),
		newWhoamiCmd(c),
		newDashboardCmd(c),
		newBooksCmd(c),
		newUsersCmd(c),
		newStatsCmd(c),
	)
	return root
}

func (c *cli) close() {
	if c.app != nil {
		_ = c.app.Close()
		c.app = nil
	}
}
