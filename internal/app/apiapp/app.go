package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/chain"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/config"
	pgrepo "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/repo/postgres"
	redrepo "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/repo/redis"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	credsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/credential"
	identitysvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/identity"
	ratesvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/rate"
	repsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/reputation"
	verifsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/verification"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	chainClient, err := chain.NewClient(chain.Config{
		RPCURL:             cfg.Chain.RPCURL,
		CallTimeout:        cfg.Chain.CallTimeout,
		IdentityRegistry:   cfg.Chain.IdentityRegistry,
		ReputationScore:    cfg.Chain.ReputationScore,
		CredentialVerifier: cfg.Chain.CredentialVerifier,
	})
	if err != nil {
		return nil, fmt.Errorf("create chain client: %w", err)
	}

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	sessionRepo := redrepo.NewSessionRepo(redisClient)
	nonceRepo := redrepo.NewNonceRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)

	identityRepo := pgrepo.NewIdentityRepo(pool)
	credentialRepo := pgrepo.NewCredentialRepo(pool)
	verificationRepo := pgrepo.NewVerificationRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, nonceRepo, chainClient, authsvc.Config{
		RefreshTTL:      cfg.Auth.RefreshTTL,
		ChallengeTTL:    cfg.Auth.ChallengeTTL,
		IssuerAddresses: cfg.Auth.IssuerAddresses,
		AdminAddresses:  cfg.Auth.AdminAddresses,
	})
	identityService := identitysvc.NewService(chainClient, identityRepo, identityRepo)
	credentialService := credsvc.NewService(chainClient, credentialRepo)
	reputationService := repsvc.NewService(chainClient)
	verificationService := verifsvc.NewService(chainClient, verificationRepo)

	rateLimiter := ratesvc.NewLimiter(rateRepo, map[string]ratesvc.ScopeLimit{
		ratesvc.ScopeGeneral:  {Max: cfg.RateLimit.General.Max, Window: cfg.RateLimit.General.Window},
		ratesvc.ScopeAuth:     {Max: cfg.RateLimit.Auth.Max, Window: cfg.RateLimit.Auth.Window},
		ratesvc.ScopeIdentity: {Max: cfg.RateLimit.Identity.Max, Window: cfg.RateLimit.Identity.Window},
		ratesvc.ScopeRead:     {Max: cfg.RateLimit.Read.Max, Window: cfg.RateLimit.Read.Window},
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		IdentityService:     identityService,
		CredentialService:   credentialService,
		ReputationService:   reputationService,
		VerificationService: verificationService,
		RateLimiter:         rateLimiter,
		Logger:              log,
		Config:              cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
