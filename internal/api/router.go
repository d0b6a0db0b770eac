package api

import (
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sfdfinance/finance-core/internal/api/handler"
	"github.com/sfdfinance/finance-core/internal/api/middleware"
	"github.com/sfdfinance/finance-core/internal/core/domain"
	"github.com/sfdfinance/finance-core/internal/core/ports"
)

// Deps carries everything the router needs; services are wired in main.
type Deps struct {
	Ledger    ports.LedgerService
	Loans     ports.LoanService
	Subsidies ports.SubsidyService
	Auth      ports.AuthService
	Audit     ports.AuditRepository

	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string
	Logger    zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	ledgerHandler := handler.NewLedgerHandler(d.Ledger)
	loanHandler := handler.NewLoanHandler(d.Loans)
	subsidyHandler := handler.NewSubsidyHandler(d.Subsidies)
	auditHandler := handler.NewAuditHandler(d.Audit)

	authMW := middleware.Auth(d.JWTSecret)
	adminOnly := middleware.RBAC(domain.RoleAdmin)
	anyStaff := middleware.RBAC(domain.RoleAdmin, domain.RoleOfficer)

	// --- Auth routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Mongo, d.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness: is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness: are dependencies up?

	// --- Metrics ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// --- Authenticated API ---
	v1 := e.Group("/v1", authMW)

	v1.POST("/transfers", ledgerHandler.Transfer, anyStaff)
	v1.GET("/accounts/:id", ledgerHandler.Get, anyStaff)
	v1.GET("/accounts/:id/balance", ledgerHandler.Balance, anyStaff)
	v1.POST("/accounts/:id/freeze", ledgerHandler.Freeze, adminOnly)
	v1.POST("/accounts/:id/unfreeze", ledgerHandler.Unfreeze, adminOnly)
	v1.POST("/institutions/:institution_id/accounts", ledgerHandler.OpenAccounts, adminOnly)

	v1.POST("/loan-requests", loanHandler.Submit, anyStaff)
	v1.GET("/loan-requests/:id", loanHandler.Get, anyStaff)
	v1.POST("/loan-requests/:id/transitions", loanHandler.Transition, anyStaff)
	v1.POST("/loan-requests/:id/documents/verify", loanHandler.VerifyDocument, anyStaff)

	v1.POST("/subsidy-pools", subsidyHandler.Create, adminOnly)
	v1.GET("/subsidy-pools/:id", subsidyHandler.Get, anyStaff)
	v1.POST("/subsidy-pools/:id/consume", subsidyHandler.Consume, adminOnly)
	v1.POST("/subsidy-pools/:id/revoke", subsidyHandler.Revoke, adminOnly)

	v1.GET("/audit/:entity_type/:entity_id", auditHandler.Query, anyStaff)

	return e
}
