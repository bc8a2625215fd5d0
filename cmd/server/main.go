package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	modauth "github.com/isaacmorgado/splice-core/modules/auth"
	modbilling "github.com/isaacmorgado/splice-core/modules/billing"
	"github.com/isaacmorgado/splice-core/pkg/billing"
	"github.com/isaacmorgado/splice-core/pkg/config"
	"github.com/isaacmorgado/splice-core/pkg/httpserver"
	"github.com/isaacmorgado/splice-core/pkg/lockout"
	"github.com/isaacmorgado/splice-core/pkg/logger"
	"github.com/isaacmorgado/splice-core/pkg/pg"
	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
	appredis "github.com/isaacmorgado/splice-core/pkg/redis"
	"github.com/isaacmorgado/splice-core/pkg/referral"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/usage"
	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

type appConfig struct {
	HTTP      httpserver.Config
	PG        pg.Config
	Redis     appredis.Config
	Paddle    subscription.PaddleConfig
	RateLimit ratelimit.Config
	Lockout   lockout.Config

	PlansPath     string        `env:"PLANS_PATH" envDefault:"config/plans.yaml"`
	UseRedisStore bool          `env:"RATE_LIMIT_USE_REDIS" envDefault:"false"`
	SweepInterval time.Duration `env:"WEBHOOK_SWEEP_INTERVAL" envDefault:"1m"`
	TrialInterval time.Duration `env:"TRIAL_SWEEP_INTERVAL" envDefault:"1h"`
	LogFormat     string        `env:"LOG_FORMAT" envDefault:"json"`
}

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(
		logger.WithFormat(logger.Format(cfg.LogFormat)),
		logger.WithAttr(slog.String("service", "splice-core")),
	)
	logger.SetAsDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg appConfig, log *slog.Logger) error {
	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, log); err != nil {
		return err
	}

	// The rate limiter can run off Redis when request volume outgrows
	// the relational store; everything else stays on Postgres.
	var limitStore ratelimit.Store = ratelimit.NewPostgresStore(pool)
	if cfg.UseRedisStore {
		client, err := appredis.Connect(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		limitStore = ratelimit.NewRedisStore(client)
	}
	limiter, err := ratelimit.New(limitStore, cfg.RateLimit, log)
	if err != nil {
		return err
	}

	guard, err := lockout.NewGuard(lockout.NewPostgresStore(pool), cfg.Lockout, log)
	if err != nil {
		return err
	}

	catalog, err := subscription.NewYAMLFileSource(cfg.PlansPath).Load(ctx)
	if err != nil {
		return err
	}

	provider, err := subscription.NewPaddleProvider(cfg.Paddle)
	if err != nil {
		return err
	}

	subs := subscription.NewPostgresStore(pool)

	referrals, err := referral.NewService(referral.NewPostgresStore(pool), subs,
		referral.WithLogger(log))
	if err != nil {
		return err
	}

	meter, err := usage.NewMeter(usage.NewPostgresStore(pool), subs, catalog,
		usage.WithLogger(log))
	if err != nil {
		return err
	}

	failedStore := webhook.NewPostgresFailedStore(pool)
	engine, err := webhook.NewEngine(webhook.NewPostgresProcessedStore(pool), failedStore,
		webhook.WithEngineLogger(log))
	if err != nil {
		return err
	}

	handlers, err := billing.NewHandlers(subs, catalog, provider, referrals,
		billing.WithLogger(log))
	if err != nil {
		return err
	}
	handlers.Register(engine)

	retrier, err := webhook.NewRetrier(engine, failedStore,
		webhook.WithSweepInterval(cfg.SweepInterval),
		webhook.WithRetrierLogger(log))
	if err != nil {
		return err
	}

	sweeper, err := subscription.NewTrialSweeper(subs, cfg.TrialInterval, log)
	if err != nil {
		return err
	}

	router := chi.NewRouter()
	router.Get("/healthz", httpserver.HealthCheckHandler(ctx, log))
	router.Get("/readyz", httpserver.HealthCheckHandler(ctx, log, pg.Healthcheck(pool)))
	router.Mount("/auth", modauth.Router(modauth.RouterOptions{
		Lockout: modauth.NewLockoutService(guard, log),
	}))
	router.Mount("/billing", modbilling.Router(modbilling.RouterOptions{
		Webhook:  modbilling.NewWebhookService(provider, engine, limiter, log),
		Usage:    modbilling.NewUsageService(meter, bearerUserID, limiter, log),
		Referral: modbilling.NewReferralService(referrals, bearerUserID, limiter, log),
	}))

	srv := httpserver.New(cfg.HTTP, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(retrier.Run(ctx))
	g.Go(sweeper.Run(ctx))
	g.Go(func() error { return srv.Run(ctx, router) })

	return g.Wait()
}

// bearerUserID resolves the authenticated user from the upstream auth
// proxy's identity header. Token verification happens at the edge; this
// service only sees the already validated identity.
func bearerUserID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.Header.Get("X-User-ID"))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
