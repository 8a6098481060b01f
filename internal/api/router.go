package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	adminCredit "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/credit"
	adminPricing "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/pricing"
	adminScheduler "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/scheduler"
	adminTransaction "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/transaction"
	adminUser "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/user"
	adminVoucher "github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/admin/voucher"
	"github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/auth"
	"github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/billing"
	"github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/subscription"
	"github.com/mahalbangetid-beep/scb-sub002/internal/api/v1/voucher"
	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
)

// Deps bundles everything the HTTP layer needs. Handlers receive their
// services here instead of reaching for globals, so tests can wire fakes.
type Deps struct {
	Config        *config.Config
	Logger        *zap.Logger
	Users         *services.UserService
	Denylist      *services.TokenDenylistService
	Credit        *services.CreditService
	Rates         *services.RateService
	Ledger        *services.LedgerService
	Vouchers      *services.VoucherService
	Subscriptions *services.SubscriptionService
	Scheduler     *services.RenewalScheduler
}

func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(d.Logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authMiddleware := middleware.NewAuth(d.Users, d.Denylist, d.Config.JWTSecret)

	authHandler := auth.NewHandler(d.Users, d.Denylist, d.Config.JWTSecret)
	billingHandler := billing.NewHandler(d.Credit, d.Rates, d.Ledger)
	voucherHandler := voucher.NewHandler(d.Vouchers)
	subscriptionHandler := subscription.NewHandler(d.Subscriptions)

	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1, authHandler, authMiddleware)

		authorized := v1.Group("/")
		authorized.Use(authMiddleware.Required())
		{
			billing.RegisterRoutes(authorized, billingHandler)
			voucher.RegisterRoutes(authorized, voucherHandler)
			subscription.RegisterRoutes(authorized, subscriptionHandler)
		}

		admin := v1.Group("/admin")
		admin.Use(authMiddleware.AdminOnly())
		{
			adminUser.RegisterRoutes(admin, adminUser.NewHandler(d.Users))
			adminCredit.RegisterRoutes(admin, adminCredit.NewHandler(d.Credit))
			adminTransaction.RegisterRoutes(admin, adminTransaction.NewHandler(d.Ledger))
			adminVoucher.RegisterRoutes(admin, adminVoucher.NewHandler(d.Vouchers))
			adminPricing.RegisterRoutes(admin, adminPricing.NewHandler(d.Rates))
			adminScheduler.RegisterRoutes(admin, adminScheduler.NewHandler(d.Scheduler))
		}
	}

	return router
}
