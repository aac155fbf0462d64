package wallet_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/handler"
	"github.com/virtualnum-wallet-ledger/internal/wallet_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	customerHandler *handler.CustomerHandler,
	rechargeHandler *handler.RechargeHandler,
	webhookHandler *handler.WebhookHandler,
	auditHandler *handler.AuditHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Provider callbacks
		webhooks := v1.Group("/webhooks")
		{
			webhooks.POST("/pix", webhookHandler.Pix)
			webhooks.POST("/card", webhookHandler.Card)
		}

		// Customer and wallet operations
		customers := v1.Group("/customers")
		{
			customers.POST("", customerHandler.Create)
			customers.GET("", customerHandler.GetByPIN)
			customers.GET("/:id", customerHandler.GetByID)
			customers.POST("/:id/purchases", customerHandler.Purchase)
			customers.POST("/:id/refunds", customerHandler.Refund)
			customers.POST("/:id/recharges", rechargeHandler.Create)
			customers.GET("/:id/recharges", rechargeHandler.GetByCustomerID)
			customers.GET("/:id/transactions", customerHandler.GetTransactions)
		}

		// Recharge checkout assets
		v1.GET("/recharges/:txid/qrcode", rechargeHandler.QRCode)

		// Admin operations
		admin := v1.Group("/admin")
		{
			admin.POST("/customers/:id/adjustments", customerHandler.Adjust)
			admin.DELETE("/customers/:id", customerHandler.Deactivate)
			admin.GET("/customers/:id/audit", auditHandler.AuditCustomer)
			admin.GET("/audit/divergent", auditHandler.ListDivergent)
			admin.GET("/audit/reports", auditHandler.ReportHistory)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
