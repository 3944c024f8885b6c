package apiapp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/config"
	authsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/auth"
	credsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/credential"
	identitysvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/identity"
	ratesvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/rate"
	repsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/reputation"
	verifsvc "github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/services/verification"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/envelope"
	"github.com/Humphrey-Steinbeck/TrustKey-sub001/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	IdentityService     *identitysvc.Service
	CredentialService   *credsvc.Service
	ReputationService   *repsvc.Service
	VerificationService *verifsvc.Service
	RateLimiter         *ratesvc.Limiter
	Logger              *zap.Logger
	Config              config.Config
}

var availableEndpoints = []string{
	"GET /health",
	"POST /api/auth/challenge",
	"POST /api/auth/login",
	"POST /api/auth/register",
	"POST /api/auth/refresh",
	"POST /api/auth/logout",
	"POST /api/auth/logout_all",
	"GET /api/auth/me",
	"GET /api/identity/{address}",
	"POST /api/identity/register",
	"POST /api/identity/batch",
	"GET /api/identity/stats",
	"POST /api/credential/generate",
	"POST /api/credential/verify",
	"POST /api/credential/revoke",
	"GET /api/reputation/{address}",
	"POST /api/reputation/event",
	"POST /api/reputation/batch",
	"POST /api/verification/request",
	"GET /api/verification/{id}",
	"GET /api/verification/stats",
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	authHandler := handlers.NewAuthHandler(deps.AuthService, deps.IdentityService)
	identityHandler := handlers.NewIdentityHandler(deps.IdentityService)
	credentialHandler := handlers.NewCredentialHandler(deps.CredentialService)
	reputationHandler := handlers.NewReputationHandler(deps.ReputationService)
	verificationHandler := handlers.NewVerificationHandler(deps.VerificationService)
	healthHandler := handlers.NewHealthHandler(deps.Config.Version)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	issuerMW := RequireRole(authsvc.RoleIssuer, authsvc.RoleAdmin)
	adminMW := RequireRole(authsvc.RoleAdmin)
	generalRL := RateLimit(deps.RateLimiter, ratesvc.ScopeGeneral, deps.Logger)
	authRL := RateLimit(deps.RateLimiter, ratesvc.ScopeAuth, deps.Logger)
	identityRL := RateLimit(deps.RateLimiter, ratesvc.ScopeIdentity, deps.Logger)
	readRL := RateLimit(deps.RateLimiter, ratesvc.ScopeRead, deps.Logger)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		envelope.Write(w, http.StatusNotFound, envelope.Envelope{
			Success: false,
			Error:   "Endpoint not found",
			Data:    map[string]any{"availableEndpoints": availableEndpoints},
		})
	})

	r.Get("/health", healthHandler.Handle)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(authRL).Post("/challenge", authHandler.Challenge)
		r.With(authRL).Post("/login", authHandler.Login)
		r.With(authRL).Post("/register", authHandler.Register)
		r.With(authRL).Post("/refresh", authHandler.Refresh)
		r.With(generalRL, authMW).Post("/logout", authHandler.Logout)
		r.With(generalRL, authMW).Post("/logout_all", authHandler.LogoutAll)
		r.With(generalRL, authMW).Get("/me", authHandler.Me)
	})

	r.Route("/api/identity", func(r chi.Router) {
		r.With(identityRL, authMW).Post("/register", identityHandler.Register)
		r.With(identityRL, authMW).Post("/batch", identityHandler.Batch)
		r.With(generalRL, authMW, adminMW).Get("/stats", identityHandler.Stats)
		r.With(readRL).Get("/{address}", identityHandler.Get)
	})

	r.Route("/api/credential", func(r chi.Router) {
		r.With(generalRL, authMW, issuerMW).Post("/generate", credentialHandler.Generate)
		r.With(generalRL).Post("/verify", credentialHandler.Verify)
		r.With(generalRL, authMW, issuerMW).Post("/revoke", credentialHandler.Revoke)
	})

	r.Route("/api/reputation", func(r chi.Router) {
		r.With(generalRL, authMW, issuerMW).Post("/event", reputationHandler.IssueEvent)
		r.With(generalRL, authMW, issuerMW).Post("/batch", reputationHandler.Batch)
		r.With(readRL).Get("/{address}", reputationHandler.Score)
	})

	r.Route("/api/verification", func(r chi.Router) {
		r.With(generalRL, authMW).Post("/request", verificationHandler.Create)
		r.With(generalRL, authMW, adminMW).Get("/stats", verificationHandler.Stats)
		r.With(generalRL, authMW).Get("/{id}", verificationHandler.Get)
	})
}
