// main wires the services together: the federation list fetcher and
// classifier, the directory resolver, the permissions engine, the invite
// authorizer, the room lifecycle scanner, and the HTTP surface. Business
// logic lives in the internal packages.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"timgate/internal/accountdata"
	"timgate/internal/audit"
	"timgate/internal/contacts"
	"timgate/internal/federation"
	"timgate/internal/httpapi"
	"timgate/internal/invite"
	jwttoken "timgate/internal/jwt_token"
	"timgate/internal/lifecycle"
	"timgate/internal/localization"
	"timgate/internal/permissions"
	"timgate/internal/platform/config"
	"timgate/internal/platform/httpclient"
	"timgate/internal/platform/httpserver"
	"timgate/internal/platform/logger"
	"timgate/internal/platform/metrics"
	platformredis "timgate/internal/platform/redis"
	"timgate/internal/roomstate"
	"timgate/internal/scheduler"
)

const version = "1.0.0"

// staticAdmins answers admin checks from the configured list.
type staticAdmins map[string]struct{}

func (s staticAdmins) IsAdmin(_ context.Context, userID string) (bool, error) {
	_, ok := s[userID]
	return ok, nil
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()

	client, err := httpclient.New(cfg.Federation.ClientCert, cfg.Federation.ClientKey)
	if err != nil {
		log.Error("outbound client setup failed", "error", err)
		os.Exit(1)
	}

	var pool *pgxpool.Pool
	if cfg.Storage.PostgresDSN != "" {
		pool, err = pgxpool.New(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			log.Error("postgres setup failed", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
	}
	redisClient, err := platformredis.New(ctx, cfg.Storage.RedisURL)
	if err != nil {
		log.Error("redis setup failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var accountStore accountdata.Store
	var contactStore contacts.Store
	if pool != nil {
		pgAccounts := accountdata.NewPostgresStore(pool)
		pgContacts := contacts.NewPostgresStore(pool)
		if err := pgAccounts.EnsureSchema(ctx); err != nil {
			log.Error("account data schema setup failed", "error", err)
			os.Exit(1)
		}
		if err := pgContacts.EnsureSchema(ctx); err != nil {
			log.Error("contacts schema setup failed", "error", err)
			os.Exit(1)
		}
		accountStore, contactStore = pgAccounts, pgContacts
	} else {
		accountStore = accountdata.NewMemoryStore()
		contactStore = contacts.NewMemoryStore()
	}

	var tasks scheduler.TaskScheduler
	if redisClient != nil {
		tasks = scheduler.NewRedisScheduler(redisClient.Client)
	} else {
		tasks = scheduler.NewMemoryScheduler()
	}

	fetcher, err := federation.NewFetcher(cfg.Federation.ListURL, cfg.Federation.TrustBaseURL,
		federation.WithHTTPClient(client),
		federation.WithLogger(log),
		federation.WithMetrics(m.Federation),
	)
	if err != nil {
		log.Error("federation fetcher setup failed", "error", err)
		os.Exit(1)
	}
	classifier := federation.NewClassifier(fetcher)

	resolver, err := localization.NewResolver(cfg.Localization.LookupURL,
		localization.WithHTTPClient(client),
		localization.WithLogger(log),
	)
	if err != nil {
		log.Error("directory resolver setup failed", "error", err)
		os.Exit(1)
	}

	fallback := permissions.SlotPro
	if cfg.Mode == "epa" {
		fallback = permissions.SlotEPA
	}
	engine, err := permissions.NewEngine(accountStore, classifier, fallback,
		permissions.Config{DefaultSetting: permissions.Default(cfg.Permissions.DefaultSetting)},
		permissions.WithLogger(log),
	)
	if err != nil {
		log.Error("permissions engine setup failed", "error", err)
		os.Exit(1)
	}

	roomStore := roomstate.NewMemoryStore()
	auditPublisher := audit.NewPublisher(audit.NewMemoryStore())
	auditInbox := make(chan audit.Event, 256)

	admins := make(staticAdmins, len(cfg.Server.Admins))
	for _, a := range cfg.Server.Admins {
		admins[a] = struct{}{}
	}

	authorizer, err := invite.NewAuthorizer(
		cfg.Server.ServerName,
		invite.Mode(cfg.Mode),
		cfg.Rooms.AllowedVersions,
		cfg.Rooms.DefaultVersion,
		classifier, engine, resolver, roomStore, admins,
		invite.WithLogger(log),
		invite.WithMetrics(m.Invite),
		invite.WithAudit(auditInbox),
	)
	if err != nil {
		log.Error("authorizer setup failed", "error", err)
		os.Exit(1)
	}

	scanner, err := lifecycle.NewScanner(lifecycle.Config{
		Interval:           cfg.Rooms.ScanInterval.Std(),
		InsuredOnlyEnabled: cfg.Rooms.InsuredOnlyEnabled,
		InsuredOnlyGrace:   cfg.Rooms.InsuredOnlyGrace.Std(),
		InactiveEnabled:    cfg.Rooms.InactiveEnabled,
		InactiveGrace:      cfg.Rooms.InactiveGrace.Std(),
	}, roomStore, classifier, tasks,
		lifecycle.WithLogger(log),
		lifecycle.WithMetrics(m.Lifecycle),
	)
	if err != nil {
		log.Error("lifecycle scanner setup failed", "error", err)
		os.Exit(1)
	}

	validator := jwttoken.NewService(cfg.API.BearerSecret, cfg.Server.ServerName)
	handler := httpapi.NewHandler(log, contactStore, engine, classifier, authorizer,
		cfg.Server.ServerName, version)
	router := httpapi.NewRouter(handler, cfg.API.Prefix, validator, m.Registry)
	srv := httpserver.New(cfg.Server.Addr, router)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("starting server", "addr", cfg.Server.Addr, "mode", cfg.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		err := scanner.Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		err := audit.NewWorker(auditPublisher, auditInbox, log).Run(groupCtx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
