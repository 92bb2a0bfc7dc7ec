// syncsession - account, server and capability tool for a sync client.
//
// Sub-commands:
//
//	syncsession server info <url>          Negotiate a server
//	syncsession accounts list|add|select|remove
//	syncsession capabilities [--stored]    Show server capabilities
//	syncsession quota [--stored]           Show account quota
//	syncsession user                       Show the account's user
//	syncsession avatar                     Download the account's avatar
//	syncsession sharees <search>           Search share recipients
//	syncsession refresh [--all]            Refresh cached capabilities and quota
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fruitsalade/syncsession/internal/account"
	"github.com/fruitsalade/syncsession/internal/config"
	"github.com/fruitsalade/syncsession/internal/errs"
	"github.com/fruitsalade/syncsession/internal/localstore"
	"github.com/fruitsalade/syncsession/internal/logging"
	"github.com/fruitsalade/syncsession/internal/metrics"
	"github.com/fruitsalade/syncsession/internal/remote"
	"github.com/fruitsalade/syncsession/internal/repository"
	"github.com/fruitsalade/syncsession/internal/retry"
	"github.com/fruitsalade/syncsession/internal/server"
	"github.com/fruitsalade/syncsession/internal/session"
)

// app holds everything a command needs. It is built in the root command's
// PersistentPreRunE.
type app struct {
	cfg *config.Config

	accountStore *account.FileStore
	prefs        *account.FilePreferences
	accounts     *account.Manager

	cache    localstore.Store
	client   *remote.Client
	sessions *session.Manager

	servers *repository.ServerInfoRepository
	caps    *repository.CapabilityRepository
	users   *repository.UserRepository
	sharees *repository.ShareeRepository

	retry   retry.Config
	metrics *http.Server
}

var (
	configPath  string
	accountName string
	logLevel    string
	attempts    int

	a = &app{}
)

var rootCmd = &cobra.Command{
	Use:           "syncsession",
	Short:         "Resolve accounts, negotiate servers and cache capabilities",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return a.init()
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return a.close()
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file (default: first of the standard search paths)")
	flags.StringVarP(&accountName, "account", "a", "", "Account name (default: selected account)")
	flags.StringVar(&logLevel, "log-level", "", "Override the configured log level")
	flags.IntVar(&attempts, "retries", 3, "Attempts for calls that fail on connectivity (1 disables retries)")
}

func (a *app) init() error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	a.cfg = cfg

	if err := logging.Init(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: "stderr",
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}

	a.accountStore = account.NewFileStore(cfg.AccountsFile)
	a.prefs = account.NewFilePreferences(cfg.PreferencesFile)
	a.accounts = account.NewManager(a.accountStore, a.prefs)

	a.cache, err = localstore.Open(cfg.CacheDriver, cfg.CacheDSN)
	if err != nil {
		return err
	}

	a.client = remote.New(remote.Config{
		Timeout:            cfg.HTTPTimeout,
		UserAgent:          cfg.UserAgent,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	a.sessions = session.NewManager(a.accounts, a.client)

	a.servers = repository.NewServerInfoRepository(server.NewNegotiator(a.client))
	a.caps = repository.NewCapabilityRepository(a.sessions, a.cache)
	a.users = repository.NewUserRepository(a.sessions, a.cache)
	a.sharees = repository.NewShareeRepository(a.sessions)

	a.retry = retry.DefaultConfig()
	a.retry.MaxAttempts = attempts
	if a.retry.MaxAttempts < 1 {
		a.retry.MaxAttempts = 1
	}

	if cfg.MetricsAddr != "" {
		a.startMetrics(cfg.MetricsAddr)
	}

	logging.Debug("syncsession initialized",
		logging.String("data_dir", cfg.DataDir),
		logging.String("cache_driver", cfg.CacheDriver))
	return nil
}

func (a *app) startMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metrics = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logging.Info("metrics listening", logging.String("addr", addr))
		if err := a.metrics.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("metrics server failed", logging.Err(err))
		}
	}()
}

func stopMetrics(ctx context.Context, srv *http.Server) {
	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("metrics server shutdown failed", logging.Err(err))
	}
}

func (a *app) close() error {
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopMetrics(ctx, a.metrics)
	}
	var err error
	if a.cache != nil {
		err = a.cache.Close()
	}
	logging.Sync()
	return err
}

// resolveAccount returns the name of the --account flag's account, the
// selected account or the first one, and ErrNoAccount if none exist.
func (a *app) resolveAccount(ctx context.Context) (string, error) {
	acct, err := a.accounts.Get(ctx, accountName)
	if err != nil {
		return "", err
	}
	if acct == nil {
		return "", fmt.Errorf("%w: add one with 'syncsession accounts add'", errs.ErrNoAccount)
	}
	return acct.Name, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(serverCmd(), accountsCmd(), capabilitiesCmd(), quotaCmd(),
		userCmd(), avatarCmd(), shareesCmd(), refreshCmd())

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errs.IsUnauthorized(err) {
			fmt.Fprintln(os.Stderr, "The server rejected the credentials; update the account's secret.")
		}
		stop()
		os.Exit(1)
	}
}
