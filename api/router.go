package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/medvault"
	"github.com/MrEthical07/medvault/middleware"
	"github.com/MrEthical07/medvault/model"
	"github.com/MrEthical07/medvault/permission"
	"github.com/MrEthical07/medvault/records"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Options wires the router. Engine and Records are required.
type Options struct {
	Engine  *medvault.Engine
	Records *records.Service
	Logger  *zap.Logger

	// Optional plumbing. Nil values disable the corresponding middleware.
	Metrics        *middleware.HTTPMetrics
	MetricsHandler http.Handler
	Throttle       *middleware.Throttle
	Health         func(ctx context.Context) error

	TracerName     string
	TrustedProxies []string
	HSTS           bool
}

type handler struct {
	engine  *medvault.Engine
	records *records.Service
	cookie  medvault.CookieConfig
	ttl     time.Duration
	errors  errorResponder
}

func (h *handler) fail(c *gin.Context, err error) {
	h.errors.respond(c, err)
}

// NewRouter builds the gin engine serving the MedVault API.
func NewRouter(opts Options) (*gin.Engine, error) {
	if opts.Engine == nil || opts.Records == nil {
		return nil, errors.New("api: engine and records service are required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TracerName == "" {
		opts.TracerName = "github.com/MrEthical07/medvault/api"
	}

	cfg := opts.Engine.Config()
	h := &handler{
		engine:  opts.Engine,
		records: opts.Records,
		cookie:  cfg.Cookie,
		ttl:     cfg.JWT.TTL,
		errors:  errorResponder{logger: opts.Logger.Named("api")},
	}
	onError := h.errors.respond

	r := gin.New()
	if err := r.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, fmt.Errorf("api: trusted proxies: %w", err)
	}
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		onError(c, fmt.Errorf("panic: %v", recovered))
	}))
	r.Use(middleware.RequestID(), middleware.ClientContext(), middleware.SecurityHeaders(opts.HSTS))
	r.Use(middleware.Tracing(opts.TracerName))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(middleware.Logger(opts.Logger.Named("http")))

	r.GET("/healthz", healthz(opts.Health))
	if opts.MetricsHandler != nil {
		r.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}
	r.NoRoute(func(c *gin.Context) {
		respondFail(c, http.StatusNotFound, "route not found")
	})

	root := r.Group("/api")
	if opts.Throttle != nil {
		root.Use(opts.Throttle.Middleware(onError))
	}

	authed := middleware.Guard(opts.Engine, cfg.Cookie.Name, onError)
	roles := func(allowed ...model.Role) gin.HandlerFunc {
		return middleware.RequireRoles(onError, allowed...)
	}

	auth := root.Group("/auth")
	auth.POST("/register", h.register)
	auth.POST("/login", h.login)
	auth.POST("/forgotpassword", h.forgotPassword)
	auth.PUT("/resetpassword/:token", h.resetPassword)
	auth.GET("/verifyemail/:token", h.verifyEmail)
	auth.GET("/me", authed, h.me)
	auth.PUT("/updatedetails", authed, h.updateDetails)
	auth.PUT("/updatepassword", authed, h.updatePassword)
	auth.POST("/verifyemail/resend", authed, h.resendVerification)
	auth.POST("/logout", authed, h.logout)
	auth.POST("/logout-all", authed, h.logoutAll)
	auth.POST("/refresh", authed, h.refresh)

	users := root.Group("/users", authed)
	users.GET("/role/doctors", h.listDoctors)
	users.GET("/role/patients", roles(model.RoleDoctor, model.RoleAdmin), h.listPatientUsers)
	admin := users.Group("", middleware.RequirePermission(opts.Engine, permission.UserManage, onError))
	admin.GET("", h.listUsers)
	admin.GET("/:id", h.getUser)
	admin.PUT("/:id", h.updateUser)
	admin.DELETE("/:id", h.deactivateUser)

	patients := root.Group("/patients", authed)
	patients.GET("", roles(model.RoleDoctor, model.RoleAdmin), h.listPatients)
	patients.GET("/me", roles(model.RolePatient), h.myChart)
	patients.GET("/:id", h.getPatient)
	patients.PUT("/:id", h.updatePatient)
	patients.POST("/:id/assign-doctor", roles(model.RoleAdmin), h.assignDoctor)
	patients.DELETE("/:id/doctors/:doctorId", roles(model.RoleAdmin), h.unassignDoctor)
	patients.POST("/:id/medications", h.addMedication)
	patients.POST("/:id/vitals", h.addVitals)
	patients.GET("/:id/history", h.patientHistory)

	recs := root.Group("/records", authed)
	recs.GET("", roles(model.RoleDoctor, model.RoleAdmin), h.listRecords)
	recs.POST("", roles(model.RoleDoctor), h.createRecord)
	recs.GET("/search", roles(model.RoleDoctor, model.RoleAdmin), h.search)
	recs.GET("/patient/:patientId", h.patientRecords)
	recs.GET("/:id", h.getRecord)
	recs.PUT("/:id", h.updateRecord)
	recs.DELETE("/:id", h.deleteRecord)
	recs.POST("/:id/share", h.shareRecord)
	recs.POST("/:id/attachments", h.addAttachment)
	recs.GET("/:id/attachments/:attachmentId", h.getAttachment)
	recs.DELETE("/:id/attachments/:attachmentId", h.removeAttachment)

	return r, nil
}

func healthz(check func(ctx context.Context) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if check != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				respondFail(c, http.StatusServiceUnavailable, "unhealthy", err.Error())
				return
			}
		}
		respondOK(c, "ok", nil)
	}
}
