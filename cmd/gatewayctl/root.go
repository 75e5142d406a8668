package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/dmehra2102/sokinpay-gateway/internal/config"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/application"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/domain"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/audit"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/host"
	gatewaypg "github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/postgres"
	"github.com/dmehra2102/sokinpay-gateway/internal/gateway/infrastructure/sokin"
	"github.com/dmehra2102/sokinpay-gateway/pkg/logging"
)

var (
	configFile string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Operate the Sokin Pay gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (defaults to $CONFIG_FILE)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")

	root.AddCommand(newMigrateCmd(), newPollCmd(), newRefundCmd(), newCountryCmd())
	return root
}

func loadConfig() (config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func newLogger(w io.Writer) *slog.Logger {
	if verbose {
		return logging.NewWithWriter(w, "debug")
	}
	return logging.NewWithWriter(w, "warn")
}

// core is the gateway wired against the configured database and Sokin API.
type core struct {
	cfg        config.Config
	log        *slog.Logger
	pool       *pgxpool.Pool
	repo       *gatewaypg.Repository
	reconciler *application.Reconciler
	refunds    *application.RefundCoordinator
	closeAudit io.Closer
}

func openCore(ctx context.Context, stderr io.Writer) (*core, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	status, _ := cfg.Status()
	log := newLogger(stderr)

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	repo := gatewaypg.NewRepository(log, pool)
	client := sokin.NewClient(log, cfg.APIURL, cfg.APIKey, cfg.RemoteTimeout)
	auditLog, auditFile := audit.Open(audit.DefaultSource, cfg.AuditLog, stderr)
	settings := application.Settings{
		PaymentMethod:    domain.PaymentMethodSokin,
		CheckoutURL:      cfg.CheckoutURL,
		CheckoutStatus:   status,
		OrderPayURL:      cfg.Host.OrderPayURL,
		OrderReceivedURL: cfg.Host.OrderReceivedURL,
	}
	return &core{
		cfg:        cfg,
		log:        log,
		pool:       pool,
		repo:       repo,
		reconciler: application.NewReconciler(log, repo, client, host.NewRequests(log, repo), auditLog, settings),
		refunds:    application.NewRefundCoordinator(log, repo, client),
		closeAudit: auditFile,
	}, nil
}

func (c *core) Close() {
	_ = c.closeAudit.Close()
	c.pool.Close()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the gateway tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			pool, err := pgxpool.New(cmd.Context(), cfg.PGURL)
			if err != nil {
				return err
			}
			defer pool.Close()
			if err := gatewaypg.Migrate(cmd.Context(), pool); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}
