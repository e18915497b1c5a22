package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"accessos/cmd/middleware"
	"accessos/internal/service"
)

type Routers struct {
	Service service.Service
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	app.Use(middleware.ActorMiddleware())

	apiGroup := app.Group("/v1")

	apiGroup.POST("/events", r.Service.CreateEvent)
	apiGroup.GET("/events", r.Service.GetAllEvents)
	apiGroup.GET("/events/:id", r.Service.GetEvent)

	apiGroup.POST("/events/:id/zones", r.Service.CreateZone)
	apiGroup.GET("/events/:id/zones", r.Service.GetZones)
	apiGroup.DELETE("/zones/:id", r.Service.DeleteZone)

	apiGroup.POST("/events/:id/tiers", r.Service.CreateTier)
	apiGroup.GET("/events/:id/tiers", r.Service.GetTiers)
	apiGroup.POST("/events/:id/tiers/ensure", r.Service.EnsureStandardTiers)
	apiGroup.DELETE("/tiers/:id", r.Service.DeleteTier)
	apiGroup.GET("/events/:id/tier-zones", r.Service.GetTierZones)
	apiGroup.PUT("/tiers/:id/zones", r.Service.ReplaceTierZones)

	apiGroup.POST("/events/:id/groups", r.Service.CreateStakeholderGroup)
	apiGroup.GET("/events/:id/groups", r.Service.GetStakeholderGroups)
	apiGroup.POST("/groups/:id/allocations", r.Service.CreateAllocation)
	apiGroup.GET("/events/:id/allocations", r.Service.GetAllocations)
	apiGroup.PATCH("/allocations/:id", r.Service.UpdateAllocation)

	apiGroup.POST("/events/:id/guests", r.Service.CreateGuest)
	apiGroup.GET("/events/:id/guests", r.Service.SearchGuests)
	apiGroup.DELETE("/guests/:id", r.Service.DeleteGuest)
	apiGroup.POST("/events/:id/guests/:guestId/checkin", r.Service.CheckInGuest)
	apiGroup.POST("/guests/:id/deny", r.Service.DenyGuest)
	apiGroup.POST("/guests/:id/revoke", r.Service.RevokeGuest)
	apiGroup.POST("/events/:id/defaults", r.Service.EnsureGuestDefaults)
	apiGroup.GET("/events/:id/scans", r.Service.GetScanLogs)
	apiGroup.GET("/guests/:id/scans", r.Service.GetGuestScanLogs)

	return app
}
