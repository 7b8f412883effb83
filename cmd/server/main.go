package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"webHostingPortal/internal/checkout"
	"webHostingPortal/internal/config"
	"webHostingPortal/internal/db"
	grpcserver "webHostingPortal/internal/grpc"
	"webHostingPortal/internal/httpapi"
	"webHostingPortal/internal/ipinfo"
	"webHostingPortal/internal/logging"
	"webHostingPortal/internal/mailer"
	"webHostingPortal/internal/portal"
	"webHostingPortal/internal/provisioning"
	"webHostingPortal/internal/review"
	"webHostingPortal/internal/settings"
	"webHostingPortal/internal/telemetry"
	"webHostingPortal/repository"
)

var version = "dev" // set by the linker

const shutdownTimeout = 5 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logging.Errorf("%v", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "portal",
		Short:         "Web hosting storefront and customer portal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the admin gRPC service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format); err != nil {
				return err
			}
			logging.Infof("configuration loaded: %v", cfg)
			return serve(cmd.Context(), cfg)
		},
	}
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending migrations",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			v, err := db.AppliedVersion(d)
			if err != nil {
				return err
			}
			logging.Infof("schema at version %d", v)
			return nil
		},
	}
	migrate.AddCommand(&cobra.Command{
		Use:   "rollback",
		Short: "Revert the most recent migration",
		RunE: func(_ *cobra.Command, _ []string) error {
			d, err := openDB()
			if err != nil {
				return err
			}
			defer d.Close()
			if err := db.RollbackLast(d); err != nil {
				return fmt.Errorf("rollback: %w", err)
			}
			v, err := db.AppliedVersion(d)
			if err != nil {
				return err
			}
			logging.Infof("rolled back, schema now at version %d", v)
			return nil
		},
	})
	return migrate
}

func newSeedCmd() *cobra.Command {
	var domain string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create default plans, the first admin and default settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithDefaults()
			if err != nil {
				return err
			}
			d, err := db.Open(cfg.Database.Driver, cfg.Database.Source())
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer d.Close()
			st := settings.NewStore(repository.NewSettingsRepository(d), nil, 0)
			res, err := portal.Seed(cmd.Context(), repository.NewPlanRepository(d), repository.NewAdminRepository(d), st, portal.SeedInput{
				AdminEmail:    cfg.Seed.AdminEmail,
				AdminPassword: cfg.Seed.AdminPassword,
				Domain:        domain,
			})
			if err != nil {
				return err
			}
			logging.Infof("seeded %d plans, admin created: %t, settings written: %v", res.Plans, res.AdminCreated, res.SettingsWritten)
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "root domain for default DNS settings")
	return cmd
}

func openDB() (*db.DB, error) {
	cfg, err := config.LoadWithDefaults()
	if err != nil {
		return nil, err
	}
	d, err := db.Open(cfg.Database.Driver, cfg.Database.Source())
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return d, nil
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	stopTracing, err := telemetry.Setup(ctx, cfg.Telemetry.Endpoint, cfg.Telemetry.ServiceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	d, err := db.Open(cfg.Database.Driver, cfg.Database.Source())
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() {
		if err := d.Close(); err != nil {
			logging.Errorf("close db: %v", err)
		}
	}()

	users := repository.NewUserRepository(d)
	admins := repository.NewAdminRepository(d)
	plans := repository.NewPlanRepository(d)
	svcs := repository.NewServiceRepository(d)
	subs := repository.NewSubdomainRepository(d)
	tickets := repository.NewTicketRepository(d)
	st := settings.NewStore(repository.NewSettingsRepository(d), clock.WallClock, 30*time.Second)

	var names review.NameReviewer = review.NewBlocklist()
	var priority review.Prioritizer = review.Heuristic{}
	if cfg.Review.OpenAIAPIKey != "" {
		llm := review.NewLLM(review.LLMConfig{
			APIKey:  cfg.Review.OpenAIAPIKey,
			Model:   cfg.Review.Model,
			Timeout: cfg.Review.Timeout,
		}, names, priority)
		names, priority = llm, llm
	} else {
		logging.Warnf("OPENAI_API_KEY not set, using rule-based name review and ticket triage")
	}

	metrics := telemetry.NewCollector()
	reg := prometheus.NewRegistry()
	reg.MustRegister(metrics, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	panelHTTP := &http.Client{Timeout: cfg.Cpanel.Timeout}
	if cfg.Cpanel.InsecureSkipVerify {
		panelHTTP.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // opt-in for self-signed panels
	}

	audit := portal.NewAudit(repository.NewAuthLogRepository(d), metrics)
	mail := &mailer.SMTPSender{AppName: cfg.AppName, Settings: st.SMTP}
	accounts := portal.NewAccounts(users, admins, audit, st, mail, ipinfo.New(), portal.AccountsConfig{
		AppName:   cfg.AppName,
		JWTSecret: cfg.Auth.JWTSecret,
		TokenTTL:  cfg.Auth.TokenTTL,
	}, clock.WallClock, metrics)
	services := portal.NewServices(svcs, users, subs)
	support := portal.NewSupport(tickets, svcs, priority)
	dashboard := portal.NewDashboard(users, tickets, plans, svcs)
	provisioner := provisioning.New(st, names, subs, svcs, provisioning.CpanelFactory(panelHTTP), metrics)

	api := httpapi.New(httpapi.Deps{
		Accounts:       accounts,
		Catalog:        portal.NewCatalog(plans, st),
		Services:       services,
		Support:        support,
		Dashboard:      dashboard,
		Audit:          audit,
		Checkout:       checkout.New(d, repository.NewCheckoutRepository(d), plans, svcs, st, metrics),
		Provisioner:    provisioner,
		Settings:       st,
		Admins:         admins,
		Metrics:        metrics,
		Gatherer:       reg,
		Limiter:        httpapi.NewLimiter(clock.WallClock),
		JWTSecret:      cfg.Auth.JWTSecret,
		TrustProxy:     cfg.HTTP.TrustProxy,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           api,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}
	httpErr := make(chan error, 1)
	go func() {
		logging.Infof("HTTP API listening on %s", cfg.HTTP.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
		close(httpErr)
	}()

	stopGRPC, err := grpcserver.StartGRPC(cfg.GRPC.Address, cfg.Auth.JWTSecret, &grpcserver.AdminServer{
		Admins:      admins,
		Dashboard:   dashboard,
		Services:    services,
		Support:     support,
		Settings:    st,
		Provisioner: provisioner,
	})
	if err != nil {
		_ = httpSrv.Close()
		return fmt.Errorf("start grpc: %w", err)
	}
	logging.Infof("gRPC admin service listening on %s", cfg.GRPC.Address)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-sigc:
		logging.Infof("received %s, shutting down", sig)
	case err, ok := <-httpErr:
		if ok {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logging.Errorf("http shutdown: %v", err)
	}
	if err := stopGRPC(shutdownCtx); err != nil {
		logging.Errorf("grpc shutdown: %v", err)
	}
	if err := stopTracing(shutdownCtx); err != nil {
		logging.Errorf("tracing shutdown: %v", err)
	}
	return runErr
}
