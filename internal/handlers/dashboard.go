package handlers

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adiwibawa/emailgate/internal/auth"
	"github.com/adiwibawa/emailgate/internal/services"
	"github.com/adiwibawa/emailgate/pkg/crypto"
	appErrors "github.com/adiwibawa/emailgate/pkg/errors"
	"github.com/adiwibawa/emailgate/pkg/logger"
	"github.com/adiwibawa/emailgate/pkg/response"
)

const dashboardCookie = "dashboard_session"

// DashboardHandler gates the reporting view behind the shared admin password
// and a signed session cookie.
type DashboardHandler struct {
	reports  *services.ReportService
	sessions *auth.SessionService
	password string
}

// NewDashboardHandler wires the reporting service and session signer.
func NewDashboardHandler(reports *services.ReportService, sessions *auth.SessionService, password string) (*DashboardHandler, error) {
	if reports == nil {
		return nil, errors.New("dashboard handler: report service is required")
	}
	if sessions == nil {
		return nil, errors.New("dashboard handler: session service is required")
	}
	if password == "" {
		return nil, errors.New("dashboard handler: admin password is required")
	}
	return &DashboardHandler{reports: reports, sessions: sessions, password: password}, nil
}

// Show handles GET /dashboard: the listing for a live session, the login
// form otherwise.
func (h *DashboardHandler) Show(c *gin.Context) {
	if !h.authenticated(c) {
		c.HTML(http.StatusOK, "dashboard_login.html", gin.H{})
		return
	}

	records, err := h.reports.List(c.Request.Context())
	if err != nil {
		logger.WithModule("dashboard").Error("list failed", zap.Error(err))
		response.Error(c, appErrors.ErrStoreUnavailable.WithInternal(err))
		return
	}

	c.HTML(http.StatusOK, "dashboard_list.html", gin.H{"Records": records})
}

// Login handles POST /dashboard: full comparison of the submitted password
// against the configured shared secret.
func (h *DashboardHandler) Login(c *gin.Context) {
	submitted := c.PostForm("password")
	if !crypto.SecureCompare(submitted, h.password) {
		c.HTML(http.StatusUnauthorized, "dashboard_login.html", gin.H{"Error": "Wrong password"})
		return
	}

	token, err := h.sessions.Issue()
	if err != nil {
		response.Error(c, appErrors.ErrInternalServer.WithInternal(err))
		return
	}

	maxAge := int(h.sessions.TTL().Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(dashboardCookie, token, maxAge, "/", "", false, true)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Logout handles GET /dashboard/logout.
func (h *DashboardHandler) Logout(c *gin.Context) {
	c.SetCookie(dashboardCookie, "", -1, "/", "", false, true)
	c.Redirect(http.StatusFound, "/dashboard")
}

// Download handles GET /dashboard/download, streaming the collected records
// as a CSV attachment. Unauthenticated requests bounce to the login form.
func (h *DashboardHandler) Download(c *gin.Context) {
	if !h.authenticated(c) {
		c.Redirect(http.StatusFound, "/dashboard")
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="collected_emails.csv"`)
	c.Status(http.StatusOK)

	if _, err := h.reports.WriteCSV(c.Request.Context(), c.Writer); err != nil {
		logger.WithModule("dashboard").Error("export failed", zap.Error(err))
	}
}

func (h *DashboardHandler) authenticated(c *gin.Context) bool {
	token, err := c.Cookie(dashboardCookie)
	if err != nil {
		return false
	}
	return h.sessions.Validate(token)
}

// DashboardTemplates returns the HTML templates for the reporting view.
func DashboardTemplates() *template.Template {
	return template.Must(template.New("").Parse(dashboardHTML))
}

const dashboardHTML = `
{{define "dashboard_login.html"}}
<!DOCTYPE html>
<html>
  <head>
    <title>Email Dashboard</title>
    <style>
      body { font-family: Arial, sans-serif; background: #f9f9f9; padding: 40px; }
      form { max-width: 320px; margin: 0 auto; background: white; padding: 20px; border: 1px solid #ddd; }
      input { width: 100%; padding: 8px; margin-top: 8px; box-sizing: border-box; }
      button { margin-top: 12px; padding: 8px 16px; background: #667eea; color: white; border: none; cursor: pointer; }
      .error { color: #c0392b; }
    </style>
  </head>
  <body>
    <form method="POST" action="/dashboard">
      <h2>Dashboard Login</h2>
      {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
      <input type="password" name="password" placeholder="Password" autofocus>
      <button type="submit">Sign in</button>
    </form>
  </body>
</html>
{{end}}

{{define "dashboard_list.html"}}
<!DOCTYPE html>
<html>
  <head>
    <title>Email Dashboard</title>
    <style>
      body { font-family: Arial, sans-serif; background: #f9f9f9; padding: 20px; }
      h1 { text-align: center; }
      .actions { text-align: right; margin-top: 10px; }
      table { width: 100%; border-collapse: collapse; margin-top: 20px; background: white; }
      th, td { border: 1px solid #ddd; padding: 10px; text-align: left; }
      th { background: #667eea; color: white; }
      tr:nth-child(even) { background: #f2f2f2; }
    </style>
  </head>
  <body>
    <h1>Collected Emails</h1>
    <div class="actions">
      <a href="/dashboard/download">Download CSV</a> &middot;
      <a href="/dashboard/logout">Logout</a>
    </div>
    <table>
      <tr><th>Email</th><th>Created At</th></tr>
      {{range .Records}}
      <tr><td>{{.Email}}</td><td>{{.CreatedAt.Format "2006-01-02"}}</td></tr>
      {{end}}
    </table>
  </body>
</html>
{{end}}
`
