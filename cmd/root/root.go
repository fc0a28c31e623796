// Package root contains the root command for the application
package root

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"fjacquet/church-ledger/internal/config"
	"fjacquet/church-ledger/internal/container"
	"fjacquet/church-ledger/internal/models"

	"github.com/spf13/cobra"
)

// DefaultTimeout bounds every command.
const DefaultTimeout = 2 * time.Minute

var (
	// ConfigFile is an explicit config file path; empty searches the defaults.
	ConfigFile string
	// Timeout bounds the whole command.
	Timeout time.Duration

	app *container.Container

	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "church-ledger",
		Short: "Reconcile church bank statements and track member dues.",
		Long: `church-ledger imports bank statement exports, reconciles pending bank rows
into posted contributions and ledger entries, tracks the running account
balance and computes per-member dues for a year.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app == nil {
				return
			}
			if err := app.Close(); err != nil {
				app.GetLogger().WithError(err).Warn("Failed to close container")
			}
			app = nil
		},
	}
)

// Init initializes the root command flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&ConfigFile, "config", "c", "", "Config file (default searches $HOME/.church-ledger, .church-ledger and .)")
	Cmd.PersistentFlags().DurationVar(&Timeout, "timeout", DefaultTimeout, "Maximum duration of the command")
}

func setup(cmd *cobra.Command, args []string) error {
	config.LoadEnv()
	cfg, err := config.InitializeConfig(ConfigFile)
	if err != nil {
		return err
	}
	c, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	app = c
	return nil
}

// App returns the container built for the running command.
func App() *container.Container {
	return app
}

// Context returns a context bounded by the --timeout flag.
func Context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	if Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, Timeout)
}

// Collector resolves the member acting as collector from its id.
func Collector(ctx context.Context, id uint) (*models.Member, error) {
	if id == 0 {
		return nil, fmt.Errorf("--collector is required")
	}
	return app.GetStore().FindMemberByID(ctx, id)
}

// ParseID parses a positional record id.
func ParseID(raw string) (uint, error) {
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return uint(v), nil
}

// SetApp installs c as the command container. Tests use it to bypass setup.
func SetApp(c *container.Container) {
	app = c
}
