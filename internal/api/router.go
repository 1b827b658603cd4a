package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/adiwibawa/emailgate/internal/auth"
	"github.com/adiwibawa/emailgate/internal/gateway"
	"github.com/adiwibawa/emailgate/internal/handlers"
	"github.com/adiwibawa/emailgate/internal/middleware"
	"github.com/adiwibawa/emailgate/internal/services"
)

// Deps bundles the long-lived collaborators the router wires into handlers.
// Verifier is optional: without Google credentials the SSO routes are not
// mounted and the gate runs on its token / auto-verify paths alone.
type Deps struct {
	DB          *gorm.DB
	Admission   *services.AdmissionService
	Reports     *services.ReportService
	Credentials *services.CredentialLogService
	Sessions    *auth.SessionService
	Redirector  *gateway.Redirector
	Verifier    auth.IdentityVerifier

	AdminPassword  string
	MetricsEnabled bool
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Deps) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, errors.New("router: database handle must be provided")
	}
	if deps.Admission == nil {
		return nil, errors.New("router: admission service must be provided")
	}
	if deps.Redirector == nil {
		return nil, errors.New("router: redirector must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.CORS())

	r.SetHTMLTemplate(handlers.DashboardTemplates())

	// Health endpoint (public)
	r.GET("/health", handlers.Health(deps.DB))

	if deps.MetricsEnabled {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	admissionHandler, err := handlers.NewAdmissionHandler(deps.Admission, deps.Redirector)
	if err != nil {
		return nil, err
	}

	r.POST("/save_trial_email", admissionHandler.SaveTrialEmail)
	r.POST("/check_email", admissionHandler.CheckEmail)
	r.GET("/verify", admissionHandler.Verify)

	if deps.Verifier != nil {
		ssoHandler, err := handlers.NewSSOHandler(deps.Verifier, deps.Admission, deps.Redirector)
		if err != nil {
			return nil, err
		}
		google := r.Group("/auth/google")
		{
			google.GET("/login", ssoHandler.Login)
			google.GET("/callback", ssoHandler.Callback)
		}
	}

	if deps.Reports != nil && deps.Sessions != nil {
		dashboardHandler, err := handlers.NewDashboardHandler(deps.Reports, deps.Sessions, deps.AdminPassword)
		if err != nil {
			return nil, err
		}
		dashboard := r.Group("/dashboard")
		{
			dashboard.GET("", dashboardHandler.Show)
			dashboard.POST("", dashboardHandler.Login)
			dashboard.GET("/logout", dashboardHandler.Logout)
			dashboard.GET("/download", dashboardHandler.Download)
		}
	}

	if deps.Credentials != nil {
		credentialHandler, err := handlers.NewCredentialHandler(deps.Credentials, deps.Redirector)
		if err != nil {
			return nil, err
		}
		r.POST("/save_credentials", credentialHandler.SaveCredentials)
	}

	return r, nil
}
