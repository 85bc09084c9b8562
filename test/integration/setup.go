package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"opinionhub/internal/db"
	"opinionhub/internal/models"
	"opinionhub/internal/router"
	"opinionhub/internal/services"
	"opinionhub/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "test-password"
)

type TestApp struct {
	Gorm        *gorm.DB
	Server      *httptest.Server
	Client      *http.Client
	Tokens      services.TokenStore
	Category    models.Category
	DBContainer testcontainers.Container
}

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pg, err := pgcontainer.Run(ctx, "postgres:15-alpine",
		pgcontainer.WithDatabase("testdb"),
		pgcontainer.WithUsername("user"),
		pgcontainer.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}
	return pg, connStr, nil
}

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()

	dbContainer, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	gdb, err := gorm.Open(gormpg.Open(connStr), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	// Handlers go through the package-level connection.
	db.DB = gdb
	db.Migrate(gdb)
	utils.GetCache().Purge()

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, gdb.Create(&models.Admin{
		Email:    testAdminEmail,
		Password: string(hash),
	}).Error)

	category := models.Category{Name: "Tech"}
	require.NoError(t, gdb.Create(&category).Error)

	tokens := services.NewMemoryTokenStore()

	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("opinionhub_session", store))
	router.RegisterRoutes(r, tokens, services.NewMailService())

	server := httptest.NewServer(r)

	return &TestApp{
		Gorm:        gdb,
		Server:      server,
		Client:      server.Client(),
		Tokens:      tokens,
		Category:    category,
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.Tokens.Stop()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

// createPoll inserts a poll directly, bypassing the admin API.
func (app *TestApp) createPoll(t *testing.T, name string) models.Poll {
	t.Helper()
	poll := models.Poll{
		ProductName:   name,
		Statement:     "Would you use " + name + "?",
		ProductImage:  "https://example.com/image.png",
		YesButtonText: "Yes",
		NoButtonText:  "No",
		CategoryID:    app.Category.ID,
	}
	require.NoError(t, app.Gorm.Create(&poll).Error)
	return poll
}

// voter is one simulated browser: its identity headers stay fixed so the
// dedup signals behave like a real repeat visitor.
type voter struct {
	DeviceID    string
	Fingerprint string
	UserAgent   string
	IP          string
}

func newVoter(n int) voter {
	return voter{
		DeviceID:    fmt.Sprintf("dev-%d", n),
		Fingerprint: fmt.Sprintf("fp-%d", n),
		UserAgent:   fmt.Sprintf("TestBrowser/%d.0", n),
		IP:          fmt.Sprintf("203.0.113.%d", n%250+1),
	}
}

func (app *TestApp) storeToken(t *testing.T, token string) {
	t.Helper()
	resp := app.request(t, app.Client, http.MethodPut, "/api/captcha/verify",
		map[string]interface{}{"token": token}, voter{UserAgent: "setup"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func (app *TestApp) castVote(t *testing.T, v voter, pollID, vote, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp := app.request(t, app.Client, http.MethodPost, "/api/polls/vote", map[string]interface{}{
		"pollId":            pollID,
		"vote":              vote,
		"captchaToken":      token,
		"deviceId":          v.DeviceID,
		"deviceFingerprint": v.Fingerprint,
	}, v)
	return resp, decode(t, resp)
}

func (app *TestApp) request(t *testing.T, client *http.Client, method, path string, payload interface{}, v voter) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(method, app.Server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if v.UserAgent != "" {
		req.Header.Set("User-Agent", v.UserAgent)
	}
	if v.IP != "" {
		req.Header.Set("X-Forwarded-For", v.IP)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// adminClient logs in and returns a cookie-carrying client.
func (app *TestApp) adminClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{Jar: jar}

	resp := app.request(t, client, http.MethodPost, "/api/admin/login", map[string]interface{}{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}, voter{UserAgent: "admin"})
	body := decode(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode, "login failed: %v", body)
	return client
}
