package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kellertobias/calsync/config"
	"github.com/kellertobias/calsync/internal/clients/caldav"
	"github.com/kellertobias/calsync/internal/notify"
	"github.com/kellertobias/calsync/internal/scheduler"
	"github.com/kellertobias/calsync/internal/service"
	"github.com/kellertobias/calsync/internal/storage"
)

var (
	configFile string
	debug      bool
)

func main() {
	root := &cobra.Command{
		Use:           "calsync",
		Short:         "One-way CalDAV calendar synchronization",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "calsync.yaml", "config file path")
	root.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")

	root.AddCommand(newSyncCmd(), newDaemonCmd(), newPurgeCmd(), newCalendarsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app holds everything the commands share: loaded config, open database,
// one connected CalDAV client per account.
type app struct {
	cfg     *config.Config
	store   *storage.Storage
	clients map[string]*caldav.Client
	log     zerolog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}

	log := newLogger(cfg.LogLevel)

	store, err := storage.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	clients := make(map[string]*caldav.Client, len(cfg.Accounts))
	for name, acc := range cfg.Accounts {
		clients[name] = caldav.NewClient(acc.URL, acc.Username, acc.Password)
	}

	return &app{cfg: cfg, store: store, clients: clients, log: log}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.log.Error().Err(err).Msg("close database")
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger().Level(lvl)
}

func (a *app) notifier() notify.Notifier {
	tg := a.cfg.Telegram
	if tg == nil || tg.Token == "" || tg.ChatID == 0 {
		return notify.Nop{}
	}
	n, err := notify.NewTelegram(tg.Token, tg.ChatID)
	if err != nil {
		a.log.Error().Err(err).Msg("telegram unavailable, notifications disabled")
		return notify.Nop{}
	}
	return n
}

func (a *app) serviceFor(sync *config.Sync, notifier notify.Notifier) (*service.SyncService, error) {
	source, ok := a.clients[sync.SourceAccount]
	if !ok {
		return nil, fmt.Errorf("sync %q: no client for account %q", sync.ID, sync.SourceAccount)
	}
	target, ok := a.clients[sync.TargetAccount]
	if !ok {
		return nil, fmt.Errorf("sync %q: no client for account %q", sync.ID, sync.TargetAccount)
	}
	return service.New(sync,
		caldav.NewProvider(source),
		caldav.NewProvider(target),
		a.store, notifier, a.cfg.Location, a.log), nil
}

// selectSyncs resolves --sync: empty means every configured sync.
func (a *app) selectSyncs(id string) ([]*config.Sync, error) {
	if id == "" {
		return a.cfg.Syncs, nil
	}
	sync, ok := a.cfg.FindSync(id)
	if !ok {
		return nil, fmt.Errorf("unknown sync %q", id)
	}
	return []*config.Sync{sync}, nil
}

func newSyncCmd() *cobra.Command {
	var syncID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run the configured syncs once",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			syncs, err := a.selectSyncs(syncID)
			if err != nil {
				return err
			}

			notifier := a.notifier()
			var failed int
			for _, sync := range syncs {
				svc, err := a.serviceFor(sync, notifier)
				if err != nil {
					return err
				}
				run, err := svc.Run(dryRun)
				if err != nil {
					failed++
					continue
				}
				fmt.Println(run.Summary())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d syncs failed", failed, len(syncs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&syncID, "sync", "", "run only this sync id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan only, change nothing")
	return cmd
}

func newDaemonCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "daemon",
		Short: "Run all syncs on their intervals until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			notifier := a.notifier()
			sched := scheduler.New(a.cfg.Location, a.log)
			for _, sync := range a.cfg.Syncs {
				svc, err := a.serviceFor(sync, notifier)
				if err != nil {
					return err
				}
				if err := sched.Add(sync.ID, sync.IntervalMinutes, svc); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return sched.Start(ctx)
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var syncID string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete every managed event a sync has created",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			syncs, err := a.selectSyncs(syncID)
			if err != nil {
				return err
			}

			notifier := a.notifier()
			for _, sync := range syncs {
				svc, err := a.serviceFor(sync, notifier)
				if err != nil {
					return err
				}
				run, err := svc.Purge(dryRun)
				if err != nil {
					return err
				}
				fmt.Println(run.Summary())
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&syncID, "sync", "", "purge only this sync id")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be deleted")
	return cmd
}

func newCalendarsCmd() *cobra.Command {
	var account string

	cmd := &cobra.Command{
		Use:   "calendars",
		Short: "List the calendars an account can see",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			client, ok := a.clients[account]
			if !ok {
				return fmt.Errorf("unknown account %q", account)
			}
			calendars, err := client.DiscoverCalendars()
			if err != nil {
				return err
			}
			for _, cal := range calendars {
				fmt.Printf("%s\t%s\n", cal.ID, cal.DisplayName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "account name from the config file")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}
