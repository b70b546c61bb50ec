package main

import (
	"venueops-platform/internal/httpapi"
	"venueops-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// AUTH routes (token issuance).
	// NOTE: This is a placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	v1.Use(rbac.RequireClub())
	{
		// DETECTION routes. Floor staff (dj) cannot trigger sweeps.
		detectGroup := v1.Group("/detect")
		detectGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager, rbac.RoleSecurity))
		{
			detectGroup.POST("/run", h.RunDetection)
			detectGroup.GET("/summary", h.SweepSummary)
		}

		// AUDIT routes. The chain is append-only; this surface is read-only.
		audit := v1.Group("/audit")
		audit.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager, rbac.RoleSecurity))
		{
			audit.GET("", h.ListAudit)
			audit.GET("/verify", h.VerifyAudit)
		}

		// ALERT routes. Owner-only visibility is applied inside the
		// handler based on the caller's role.
		alertsGroup := v1.Group("/alerts")
		alertsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager, rbac.RoleSecurity))
		{
			alertsGroup.GET("", h.ListAlerts)
			alertsGroup.POST("/:alert_id/acknowledge", h.AcknowledgeAlert)
			alertsGroup.POST("/:alert_id/resolve", h.ResolveAlert)
			alertsGroup.POST("/:alert_id/dismiss", h.DismissAlert)
		}

		// REPORT routes.
		reportsGroup := v1.Group("/reports")
		reportsGroup.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleManager))
		{
			reportsGroup.GET("", h.ListReports)
			reportsGroup.POST("/generate", h.GenerateReport)
			// Only the owner's view matters for the viewed flag.
			reportsGroup.POST("/:report_id/viewed",
				rbac.RequireAnyRole(rbac.RoleOwner), h.MarkReportViewed)
		}
	}
}
