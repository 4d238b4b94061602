package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/medsys/clinic/internal/config"
	"github.com/medsys/clinic/internal/platform/db"
	"github.com/medsys/clinic/migrations"
)

func main() {
	os.Exit(run(os.Args[1:], config.Load, os.Stdin, os.Stdout))
}

// run executes one command line and returns the process exit code. Errors
// the workspace already reported are not printed twice.
func run(args []string, load func() (*config.Config, error), in io.Reader, out io.Writer) int {
	c := &cli{loadConfig: load, term: newTerminal(in, out)}
	rootCmd := c.rootCmd()
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		if !c.term.reported(err) {
			fmt.Fprintln(out, "Error:", err)
		}
		return 1
	}
	return 0
}

// cli carries what every subcommand shares: how to load the configuration
// and the terminal it talks to.
type cli struct {
	loadConfig func() (*config.Config, error)
	term       *terminal
	out        io.Writer
}

func (c *cli) rootCmd() *cobra.Command {
	c.out = c.term.out

	rootCmd := &cobra.Command{
		Use:           "medsys",
		Short:         "Patient records, prescriptions and medication inventory for a single clinic",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(c.out)
	rootCmd.SetErr(c.out)
	rootCmd.PersistentFlags().BoolVarP(&c.term.assumeYes, "yes", "y", false, "Answer yes to confirmation prompts")

	rootCmd.AddCommand(c.serveCmd())
	rootCmd.AddCommand(c.migrateCmd())
	rootCmd.AddCommand(c.loginCmd())
	rootCmd.AddCommand(c.logoutCmd())
	rootCmd.AddCommand(c.viewCmd())
	rootCmd.AddCommand(c.patientCmd())
	rootCmd.AddCommand(c.medicationCmd())
	rootCmd.AddCommand(c.prescriptionCmd())
	rootCmd.AddCommand(c.evolutionCmd())
	rootCmd.AddCommand(c.alertsCmd())
	rootCmd.AddCommand(c.prefsCmd())
	return rootCmd
}

// withApp loads the configuration, builds the app and closes it after fn.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.logger.WithContext(ctx), a)
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, runServer)
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	var schema string
	migrator := func(a *app) (*db.Migrator, error) {
		if a.pool == nil {
			return nil, fmt.Errorf("migrations need STORAGE_BACKEND=postgres")
		}
		return db.NewMigrator(a.pool, migrations.Files, schema), nil
	}

	// migrate up
	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				m, err := migrator(a)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.out, "Running migrations on schema: %s\n", schema)
				count, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				fmt.Fprintf(c.out, "Applied %d migration(s) successfully.\n", count)
				return nil
			})
		},
	}

	// migrate status
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				m, err := migrator(a)
				if err != nil {
					return err
				}
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				fmt.Fprintf(c.out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
				for _, s := range statuses {
					status, appliedAt := "pending", ""
					if s.Applied {
						status = "applied"
						if s.AppliedAt != nil {
							appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
						}
					}
					fmt.Fprintf(c.out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
				}
				return nil
			})
		},
	}

	cmd.PersistentFlags().StringVar(&schema, "schema", "public", "Target schema for migrations")
	cmd.AddCommand(upCmd, statusCmd)
	return cmd
}
