package handlers_test

import (
	"encoding/csv"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adiwibawa/emailgate/internal/handlers/testutil"
)

func TestDashboardRequiresLogin(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.Get("/dashboard")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dashboard Login")
	require.NotContains(t, rec.Body.String(), "Collected Emails")
}

func TestDashboardRejectsWrongPassword(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.PostForm("/dashboard", url.Values{"password": {"not-the-password"}})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "Wrong password")
}

func TestDashboardListsCollectedEmails(t *testing.T) {
	env := testutil.NewEnv(t)

	env.PostJSON("/save_trial_email", map[string]string{"email": "first@example.com"})
	env.PostJSON("/save_trial_email", map[string]string{"email": "second@example.com"})

	session := env.DashboardLogin()

	rec := env.Get("/dashboard", session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Collected Emails")
	require.Contains(t, rec.Body.String(), "first@example.com")
	require.Contains(t, rec.Body.String(), "second@example.com")
}

func TestDashboardRejectsForgedSession(t *testing.T) {
	env := testutil.NewEnv(t)

	forged := &http.Cookie{Name: "dashboard_session", Value: "not-a-signed-token"}
	rec := env.Get("/dashboard", forged)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Dashboard Login")
}

func TestDashboardDownloadUnauthenticated(t *testing.T) {
	env := testutil.NewEnv(t)

	rec := env.Get("/dashboard/download")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestDashboardDownloadCSV(t *testing.T) {
	env := testutil.NewEnv(t)

	env.PostJSON("/save_trial_email", map[string]string{"email": "export@example.com"})

	session := env.DashboardLogin()

	rec := env.Get("/dashboard/download", session)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	require.Contains(t, rec.Header().Get("Content-Disposition"), "collected_emails.csv")

	rows, err := csv.NewReader(strings.NewReader(rec.Body.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, []string{"Email", "Created At"}, rows[0])
	require.Equal(t, "export@example.com", rows[1][0])
}

func TestDashboardLogoutClearsSession(t *testing.T) {
	env := testutil.NewEnv(t)

	session := env.DashboardLogin()

	rec := env.Get("/dashboard/logout", session)
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/dashboard", rec.Header().Get("Location"))

	res := rec.Result()
	defer res.Body.Close()

	var cleared bool
	for _, cookie := range res.Cookies() {
		if cookie.Name == "dashboard_session" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	require.True(t, cleared, "expected session cookie to be expired")
}
