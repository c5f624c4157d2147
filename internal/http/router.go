package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/property-shares/backend/internal/config"
	"github.com/property-shares/backend/internal/http/handlers"
	"github.com/property-shares/backend/internal/middleware"
	"github.com/property-shares/backend/internal/rbac"
)

type Handlers struct {
	Meta       *handlers.MetaHandler
	Property   *handlers.PropertyHandler
	Sale       *handlers.SaleHandler
	Market     *handlers.MarketHandler
	Rent       *handlers.RentHandler
	Governance *handlers.GovernanceHandler
	Admin      *handlers.AdminHandler
	Holder     *handlers.HolderHandler
	Ops        *handlers.OpsHandler
	WS         *handlers.WSHub
}

// SetupRouter mounts the API. rdb may be nil, which disables rate limiting.
func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	perms middleware.PermissionChecker,
	h Handlers,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api/v1")

	// Rate-limited public endpoints
	if rdb != nil {
		api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log))
	}

	// Meta (public, no auth required)
	api.Get("/meta/currencies", h.Meta.GetCurrencies)
	api.Get("/meta/statuses", h.Meta.GetStatuses)
	api.Get("/meta/roles", h.Meta.GetRoles)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Holder
	protected.Get("/me", h.Holder.GetMe)
	protected.Get("/me/events", h.Holder.MyEvents)
	protected.Post("/me/claims", h.Sale.ClaimAll)

	// Property requests
	protected.Post("/requests", h.Property.SubmitRequest)
	protected.Get("/requests", h.Property.ListRequests)
	protected.Get("/requests/:id", h.Property.GetRequest)
	protected.Get("/requests/:id/preview", h.Property.RequestPreview)
	protected.Post("/requests/:id/resolve", h.Property.ResolveRequest)

	// Properties
	protected.Get("/properties", h.Property.ListProperties)
	protected.Get("/properties/:id", h.Property.GetProperty)
	protected.Get("/properties/:id/preview", h.Property.PropertyPreview)
	protected.Get("/properties/:id/holders", h.Property.Holders)
	protected.Get("/properties/:id/holders/:holder", h.Property.Balance)
	protected.Get("/properties/:id/events", h.Holder.PropertyEvents)

	// Primary sale
	protected.Get("/properties/:id/quote", h.Sale.Quote)
	protected.Get("/properties/:id/sale", h.Sale.GetSale)
	protected.Post("/properties/:id/orders", h.Sale.Buy)
	protected.Post("/properties/:id/conclude", h.Sale.Conclude)
	protected.Get("/properties/:id/claim", h.Sale.PendingClaim)
	protected.Post("/properties/:id/claim", h.Sale.Claim)

	// Secondary market
	protected.Get("/properties/:id/listings", h.Market.ListListings)
	protected.Post("/listings", h.Market.CreateListing)
	protected.Get("/listings/:id", h.Market.GetListing)
	protected.Post("/listings/:id/buy", h.Market.BuyListing)
	protected.Delete("/listings/:id", h.Market.CancelListing)

	// Rent
	protected.Get("/properties/:id/rent", h.Rent.Periods)
	protected.Post("/properties/:id/rent", h.Rent.Deposit)
	protected.Get("/properties/:id/rent/summary", h.Rent.Summary)
	protected.Get("/properties/:id/rent/claimable", h.Rent.Claimable)
	protected.Post("/properties/:id/rent/withdraw", h.Rent.Withdraw)

	// Governance
	protected.Get("/proposals/fee", h.Governance.Fee)
	protected.Post("/proposals", h.Governance.CreateProposal)
	protected.Get("/proposals/:id", h.Governance.GetProposal)
	protected.Post("/proposals/:id/votes", h.Governance.Vote)
	protected.Post("/proposals/:id/finalize", h.Governance.Finalize)
	protected.Get("/properties/:id/proposals", h.Governance.ListProposals)

	// Admin
	protected.Get("/admin/settings", h.Admin.GetSettings)
	protected.Post("/admin/pause", h.Admin.SetPaused)
	protected.Put("/admin/fees/proposal", h.Admin.SetProposalFee)
	protected.Put("/admin/fees/registration", h.Admin.SetRegistrationFee)
	protected.Post("/admin/ownership", h.Admin.TransferOwnership)
	protected.Post("/admin/roles", h.Admin.GrantRole)
	protected.Delete("/admin/roles", h.Admin.RevokeRole)
	protected.Post("/admin/identity", middleware.RequirePermission(perms, rbac.PermManageRoles), h.Admin.SetVerified)
	protected.Put("/properties/:id/apr", h.Admin.SetAPR)
	protected.Post("/properties/:id/delist", h.Admin.Delist)

	// Settlement worker
	settlement := middleware.RequirePermission(perms, rbac.PermTriggerSettlement)
	protected.Get("/due", settlement, h.Ops.Due)
	protected.Get("/invariants", settlement, h.Ops.Invariants)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(h.WS.HandleWS))
}
