package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/akeren/clothiq-api/config"
	"github.com/akeren/clothiq-api/config/router"
	"github.com/akeren/clothiq-api/domain"
	"github.com/akeren/clothiq-api/internal/log"
	"github.com/akeren/clothiq-api/internal/models"
	"github.com/akeren/clothiq-api/pkg/mailer"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// recordingSender captures outgoing mail and can be told to fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) reset(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = nil
	s.err = err
}

func (s *recordingSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

func newTestDatabase(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get SQL DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(models.ModelRegistry...); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

func newTestServer(db *gorm.DB, sender mailer.Sender, authConfig *config.AuthConfig) *httptest.Server {
	logger := log.NewLoggerWithJSONOutput()

	appConfig := &config.ApplicationConfig{
		DB:          db,
		Logger:      logger,
		EmailConfig: &config.EmailConfig{From: config.DefaultEmailFrom, SendTimeout: 5 * time.Second},
		AuthConfig:  authConfig,
		EmailSender: sender,
	}

	appConfig.RouterService = router.CreateRouterService(logger, nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    30 * time.Second,
	})

	domain.SetupCoreDomain(appConfig)

	return httptest.NewServer(appConfig.RouterService.GetEngine())
}

func postJSON(url string, body any, headers ...string) (*http.Response, map[string]any, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	return doRequest(req)
}

func doRequest(req *http.Request) (*http.Response, map[string]any, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	var response map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return resp, nil, err
	}
	return resp, response, nil
}

type WaitlistAPITestSuite struct {
	suite.Suite
	db      *gorm.DB
	server  *httptest.Server
	baseURL string
	sender  *recordingSender
}

func (suite *WaitlistAPITestSuite) SetupSuite() {
	suite.db = newTestDatabase(suite.T())
	suite.sender = &recordingSender{}
	suite.server = newTestServer(suite.db, suite.sender, nil)
	suite.baseURL = suite.server.URL
}

func (suite *WaitlistAPITestSuite) TearDownSuite() {
	if suite.server != nil {
		suite.server.Close()
	}
	if suite.db != nil {
		sqlDB, _ := suite.db.DB()
		sqlDB.Close()
	}
}

func (suite *WaitlistAPITestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM waitlist_entries")
	suite.sender.reset(nil)
}

func (suite *WaitlistAPITestSuite) countEntries(email string) int64 {
	var count int64
	suite.Require().NoError(suite.db.Model(&models.WaitlistEntry{}).Where("email = ?", email).Count(&count).Error)
	return count
}

func (suite *WaitlistAPITestSuite) TestHealthCheck() {
	resp, err := http.Get(suite.baseURL + "/health")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	suite.Equal(http.StatusOK, resp.StatusCode)

	var response map[string]any
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&response))

	suite.Contains(response["message"], "health check completed")

	data := response["data"].(map[string]any)
	suite.Equal(float64(1), data["database"])
	suite.Equal(float64(1), data["email"])
	suite.Contains(data, "uptime")
}

func (suite *WaitlistAPITestSuite) TestSubmitNewEmail() {
	resp, body, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{"email": "new@example.com"})
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("registered", body["message"])
	suite.Equal("registered", body["data"].(map[string]any)["status"])
	suite.NotContains(body, "error")

	suite.Equal(int64(1), suite.countEntries("new@example.com"))

	sent := suite.sender.messages()
	suite.Require().Len(sent, 1)
	suite.Equal([]string{"new@example.com"}, sent[0].To)
	suite.Equal("Welcome to ClothIQ Early Access!", sent[0].Subject)
	suite.Equal(config.DefaultEmailFrom, sent[0].From)
}

func (suite *WaitlistAPITestSuite) TestSubmitDuplicateEmail() {
	_, _, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{"email": "dup@example.com"})
	suite.Require().NoError(err)

	resp, body, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{"email": "DUP@example.com"})
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("already registered", body["message"])
	suite.Equal("already_registered", body["data"].(map[string]any)["status"])

	suite.Equal(int64(1), suite.countEntries("dup@example.com"))
	suite.Len(suite.sender.messages(), 1, "duplicates do not trigger a second welcome email")
}

func (suite *WaitlistAPITestSuite) TestSubmitHoneypot() {
	resp, body, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{
		"email":    "bot@spam.example",
		"honeypot": "I am a bot",
	})
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("registered", body["message"])

	suite.Zero(suite.countEntries("bot@spam.example"))
	suite.Empty(suite.sender.messages())
}

func (suite *WaitlistAPITestSuite) TestSubmitInvalidEmail() {
	for _, email := range []string{"", "not-an-email", "user@localhost", "  padded@example.com "} {
		resp, body, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{"email": email})
		suite.Require().NoError(err)

		suite.Equal(http.StatusBadRequest, resp.StatusCode, email)
		suite.Equal("invalid email", body["error"], email)
	}

	var total int64
	suite.Require().NoError(suite.db.Model(&models.WaitlistEntry{}).Count(&total).Error)
	suite.Zero(total)
}

func (suite *WaitlistAPITestSuite) TestSubmitSurvivesEmailFailure() {
	suite.sender.reset(errors.New("provider unavailable"))

	resp, body, err := postJSON(suite.baseURL+"/v1/waitlist", map[string]string{"email": "stored@example.com"})
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)
	suite.Equal("registered", body["message"])
	suite.Equal(int64(1), suite.countEntries("stored@example.com"))
}

func (suite *WaitlistAPITestSuite) TestCount() {
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		suite.Require().NoError(suite.db.Create(&models.WaitlistEntry{Email: email}).Error)
	}

	resp, body, err := doRequest(mustRequest(http.MethodGet, suite.baseURL+"/v1/waitlist/count"))
	suite.Require().NoError(err)

	suite.Equal(http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	suite.Equal(float64(3), data["count"])
	suite.Equal("+3", data["display"])
}

func (suite *WaitlistAPITestSuite) TestAuthRoutesNotMountedWithoutSecret() {
	resp, _, _ := postJSON(suite.baseURL+"/v1/auth/signup", map[string]string{"email": "a@b.co", "password": "password123"})
	suite.Require().NotNil(resp)

	suite.Equal(http.StatusNotFound, resp.StatusCode)
}

func mustRequest(method, url string) *http.Request {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		panic(err)
	}
	return req
}

func TestWaitlistWithoutEmailProvider(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests. Set RUN_INTEGRATION_TESTS=true to run them")
	}

	db := newTestDatabase(t)
	server := newTestServer(db, nil, nil)
	defer server.Close()

	resp, body, err := postJSON(server.URL+"/v1/waitlist", map[string]string{"email": "new@example.com"})
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if body["error"] != "Email configuration missing on server." {
		t.Fatalf("unexpected error message: %v", body["error"])
	}

	var count int64
	db.Model(&models.WaitlistEntry{}).Count(&count)
	if count != 0 {
		t.Fatalf("expected no stored entries, got %d", count)
	}
}

func TestWaitlistAPISuite(t *testing.T) {
	if os.Getenv("RUN_INTEGRATION_TESTS") != "true" {
		t.Skip("Skipping integration tests. Set RUN_INTEGRATION_TESTS=true to run them")
	}

	suite.Run(t, new(WaitlistAPITestSuite))
}
