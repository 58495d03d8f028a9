package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"toggl-freee/internal/app"
	"toggl-freee/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, &cli{}, os.Args[1:])
	stop()
	os.Exit(code)
}

// run executes the command line and always releases the app, including when
// the command fails.
func run(ctx context.Context, c *cli, args []string) int {
	root := newRootCmd(c)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := c.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		attrs := []any{slog.String("error", err.Error())}
		var re *app.RunError
		if errors.As(err, &re) {
			attrs = append(attrs, slog.String("run_id", re.RunID))
		}
		slog.Error("command failed", attrs...)
		return 1
	}
	return 0
}

type cli struct {
	verbose bool
	log     *slog.Logger
	cfg     config.Config
	app     *app.App
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:               "toggl-freee",
		Short:             "Move Toggl Track time entries into freee 工数管理",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(
		c.reportCmd(),
		c.taxonomyCmd(),
		c.togglTaxonomyCmd(),
		c.submitCmd(),
		c.workspacesCmd(),
		c.companiesCmd(),
		c.statusCmd(),
		c.serveCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}
	// stdout carries command output.
	c.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(c.log)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c.cfg = cfg

	a, err := app.New(c.log, cfg)
	if err != nil {
		return fmt.Errorf("initialize app: %w", err)
	}
	c.app = a
	return nil
}

func (c *cli) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

func (c *cli) reportCmd() *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the monthly report table from Toggl",
		Long: `Fetch every grouped time entry of the month from the Toggl Reports API,
resolve project and tag names, look up freee destinations in the mapping
table and write the result to the report table.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, m, err := app.ParseMonth(month, time.Now(), c.app.Location())
			if err != nil {
				return err
			}
			res, err := c.app.RunReport(cmd.Context(), year, m)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "Month to report as YYYY-MM (default: current month in FREEE_TZ)")
	return cmd
}

func (c *cli) taxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "taxonomy",
		Short: "Export freee projects, tag groups and tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.ExportTaxonomy(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func (c *cli) togglTaxonomyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggl-taxonomy",
		Short: "Export Toggl projects and tags for filling in the mapping table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.ExportTogglTaxonomy(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
}

func (c *cli) submitCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Register table rows as freee workloads",
		Long: `Post one freee workload per row of the table, in order. The first row
that fails stops the batch; rows before it stay registered.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := c.app.Submit(cmd.Context(), name)
			if err != nil {
				return err
			}
			return printJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&name, "table", "", "Table to submit (default: the report table)")
	return cmd
}

func (c *cli) workspacesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List Toggl workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws, err := c.app.Workspaces(cmd.Context())
			if err != nil {
				return err
			}
			for _, w := range ws {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", w.ID, w.Name)
			}
			return nil
		},
	}
}

func (c *cli) companiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "companies",
		Short: "List freee companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cs, err := c.app.Companies(cmd.Context())
			if err != nil {
				return err
			}
			for _, co := range cs {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", co.ID, co.Name)
			}
			return nil
		},
	}
}

func (c *cli) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the freee session is authorised",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := c.app.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, st)
		},
	}
}

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP trigger server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = c.cfg.HTTP.Addr
			}
			srv := c.app.HTTPServer(addr)
			errCh := make(chan error, 1)
			go func() {
				c.log.Info("starting http trigger server", slog.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}
			c.log.Info("shutting down")
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: HTTP_ADDR)")
	return cmd
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
