package router

import (
	"context"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/specs-nexus-api/internal/handler"
	"github.com/noah-isme/specs-nexus-api/internal/middleware"
	"github.com/noah-isme/specs-nexus-api/internal/models"
	"github.com/noah-isme/specs-nexus-api/internal/service"
	"github.com/noah-isme/specs-nexus-api/pkg/config"
	"github.com/noah-isme/specs-nexus-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/specs-nexus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/specs-nexus-api/pkg/middleware/requestid"
)

// TokenValidator resolves a bearer token into caller claims.
type TokenValidator interface {
	ValidateToken(tokenString string) (*models.JWTClaims, error)
}

// AuditWriter persists audit entries.
type AuditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// Handlers groups every HTTP handler the API serves.
type Handlers struct {
	Auth         *handler.AuthHandler
	Officer      *handler.OfficerHandler
	Event        *handler.EventHandler
	Announcement *handler.AnnouncementHandler
	Membership   *handler.MembershipHandler
	Analytics    *handler.AnalyticsHandler
	Chat         *handler.ChatHandler
	Metrics      *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the route table.
type Options struct {
	Env            string
	APIPrefix      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Tokens         TokenValidator
	Audit          AuditWriter
	ChatLimiter    *middleware.RateLimiter
	StaticURL      string
	StaticDir      string
}

// New builds the gin engine with the full route table.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/metrics"))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}
	if opts.StaticURL != "" && opts.StaticDir != "" {
		r.Static(opts.StaticURL, opts.StaticDir)
	}

	api := r.Group(opts.APIPrefix)
	authn := middleware.JWT(opts.Tokens)
	user := middleware.RequireUser()
	officer := middleware.RequireOfficer()
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(opts.Audit, opts.Logger, action, resource)
	}

	auth := api.Group("/auth")
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)
	auth.GET("/profile", authn, user, h.Auth.Profile)
	auth.PUT("/profile", authn, user, h.Auth.UpdateProfile)

	officers := api.Group("/officers")
	officers.POST("/login", h.Officer.Login)
	officers.GET("", authn, h.Officer.List)
	officers.GET("/users", authn, officer, h.Officer.ListUsers)
	officers.POST("", authn, officer, audit(models.AuditActionOfficerCreate, "officer"), h.Officer.Create)
	officers.POST("/bulk", authn, officer, audit(models.AuditActionOfficerCreate, "officer"), h.Officer.BulkCreate)
	officers.PUT("/:id", authn, officer, audit(models.AuditActionOfficerUpdate, "officer"), h.Officer.Update)
	officers.DELETE("/:id", authn, officer, audit(models.AuditActionOfficerDelete, "officer"), h.Officer.Delete)

	events := api.Group("/events", authn)
	events.GET("", user, h.Event.List)
	events.POST("/join/:id", user, h.Event.Join)
	events.POST("/leave/:id", user, h.Event.Leave)
	events.GET("/officer/list", officer, h.Event.OfficerList)
	events.POST("/officer/create", officer, audit(models.AuditActionEventCreate, "event"), h.Event.Create)
	events.PUT("/officer/update/:id", officer, audit(models.AuditActionEventUpdate, "event"), h.Event.Update)
	events.DELETE("/officer/delete/:id", officer, audit(models.AuditActionEventArchive, "event"), h.Event.Delete)
	events.GET("/:id/participants", officer, h.Event.Participants)

	announcements := api.Group("/announcements", authn)
	announcements.GET("", user, h.Announcement.List)
	announcements.GET("/officer/list", officer, h.Announcement.OfficerList)
	announcements.POST("/officer/create", officer, audit(models.AuditActionAnnouncementCreate, "announcement"), h.Announcement.Create)
	announcements.PUT("/officer/update/:id", officer, audit(models.AuditActionAnnouncementUpdate, "announcement"), h.Announcement.Update)
	announcements.DELETE("/officer/delete/:id", officer, audit(models.AuditActionAnnouncementArchive, "announcement"), h.Announcement.Delete)

	membership := api.Group("/membership", authn)
	membership.GET("/qrcode", h.Membership.QRCode)
	membership.GET("/memberships/:user_id", user, h.Membership.ListForUser)
	membership.POST("/upload_receipt_file", user, h.Membership.UploadReceiptFile)
	membership.PUT("/update_receipt", user, h.Membership.UpdateReceipt)
	membership.GET("/receipt/:membership_id", h.Membership.Receipt)
	membership.POST("/officer/upload_qrcode", officer, audit(models.AuditActionQRCodeUpload, "qrcode"), h.Membership.UploadQRCode)
	membership.GET("/officer/list", officer, h.Membership.OfficerList)
	membership.POST("/officer/create", officer, audit(models.AuditActionClearanceCreate, "clearance"), h.Membership.Create)
	membership.PUT("/officer/verify/:membership_id", officer, audit(models.AuditActionClearanceVerify, "clearance"), h.Membership.Verify)
	membership.GET("/officer/requirements", officer, h.Membership.Requirements)
	membership.POST("/officer/requirement/create", officer, audit(models.AuditActionRequirementCreate, "requirement"), h.Membership.CreateRequirement)
	membership.PUT("/officer/requirements/:requirement", officer, audit(models.AuditActionRequirementUpdate, "requirement"), h.Membership.UpdateRequirement)
	membership.DELETE("/officer/requirements/:requirement", officer, audit(models.AuditActionRequirementArchive, "requirement"), h.Membership.ArchiveRequirement)
	membership.GET("/officer/export", officer, h.Membership.Export)

	api.GET("/clearance/:user_id", authn, user, h.Membership.ClearanceStatus)

	analytics := api.Group("/analytics", authn, officer)
	analytics.GET("/dashboard", h.Analytics.Dashboard)
	analytics.GET("/dashboard/export", h.Analytics.Export)

	chat := []gin.HandlerFunc{authn, user}
	if opts.ChatLimiter != nil {
		chat = append(chat, opts.ChatLimiter.Handler())
	}
	api.POST("/chat", append(chat, h.Chat.Chat)...)

	return r
}
