package handler

import (
	"referral-rewards-backend/internal/adapter/http/middleware"
	"referral-rewards-backend/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	SpendSvc       ports.SpendService
	BillingSvc     ports.BillingService
	LedgerSvc      ports.LedgerService
	WalletRepo     ports.WalletRepository
	TxRepo         ports.TransactionRepository
	Charity        ports.CharityCounter
	TokenSvc       ports.TokenService
	RateLimitStore ports.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.WalletRepo, deps.TxRepo, deps.LedgerSvc)
	paymentHandler := NewPaymentHandler(deps.SpendSvc, deps.BillingSvc, deps.TxRepo, deps.Charity)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl("wallet"), walletHandler.GetWallet)
		wallet.GET("/transactions", rl("wallet"), walletHandler.ListTransactions)
		wallet.POST("/transfer", rl("wallet"), walletHandler.Transfer)
	}

	payments := v1.Group("/payments", jwtAuth)
	{
		payments.POST("/spend", rl("spend"), paymentHandler.Spend)
		payments.POST("/topup", rl("billing"), paymentHandler.Topup)
		payments.POST("/vip", rl("billing"), paymentHandler.PurchaseVIP)
		payments.GET("/:id", rl("wallet"), paymentHandler.GetTransaction)
	}

	v1.GET("/charity", paymentHandler.CharityTotal)

	return r
}
