package billing

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mahalbangetid-beep/scb-sub002/config"
	"github.com/mahalbangetid-beep/scb-sub002/internal/middleware"
	"github.com/mahalbangetid-beep/scb-sub002/internal/models"
	"github.com/mahalbangetid-beep/scb-sub002/internal/services"
	"github.com/mahalbangetid-beep/scb-sub002/internal/utils"
)

const testSecret = "test-secret"

type testServer struct {
	router *gin.Engine
	db     *gorm.DB
	credit *services.CreditService
	users  *services.UserService
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		panic("failed to connect database")
	}
	db.Migrator().DropTable(&models.User{}, &models.Account{}, &models.LedgerEntry{}, &models.Setting{})
	db.AutoMigrate(&models.User{}, &models.Account{}, &models.LedgerEntry{}, &models.Setting{})

	cfg := &config.Config{
		JWTSecret:           testSecret,
		LedgerSecret:        testSecret,
		DefaultMessageRate:  0.01,
		LowBalanceThreshold: 1.0,
		PricingCacheTTL:     10 * time.Second,
	}

	logger := zap.NewNop()
	users := services.NewUserService(db, nil, logger)
	denylist := services.NewTokenDenylistService(nil)
	activity := services.NewActivityLogger(logger)
	rates := services.NewRateService(db, cfg, logger)
	credit := services.NewCreditService(db, rates, activity, cfg, logger)
	ledger := services.NewLedgerService(db)

	// The first registration takes the admin role; absorb it so the users
	// the tests register are regular, billable accounts.
	if _, err := users.Register("root-admin", "secret123"); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	auth := middleware.NewAuth(users, denylist, testSecret)
	handler := NewHandler(credit, rates, ledger)

	router := gin.New()
	v1 := router.Group("/api/v1")
	authorized := v1.Group("/")
	authorized.Use(auth.Required())
	RegisterRoutes(authorized, handler)

	return &testServer{router: router, db: db, credit: credit, users: users}
}

func (s *testServer) registerUser(t *testing.T, username string) (*models.User, string) {
	t.Helper()

	user, err := s.users.Register(username, "secret123")
	assert.NoError(t, err)

	token, err := utils.GenerateToken(testSecret, user.ID, user.Role)
	assert.NoError(t, err)
	return user, token
}

func (s *testServer) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestGetBalanceEndpoint(t *testing.T) {
	s := setupServer(t)
	user, token := s.registerUser(t, "balance-user")

	_, err := s.credit.Add(user.ID, 25.50, "top up", "", "test")
	assert.NoError(t, err)

	w := s.request(http.MethodGet, "/api/v1/billing/balance", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.InDelta(t, 25.50, data["balance"].(float64), 1e-9)
}

func TestGetBalanceRequiresAuth(t *testing.T) {
	s := setupServer(t)

	w := s.request(http.MethodGet, "/api/v1/billing/balance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChargeMessageEndpoint(t *testing.T) {
	s := setupServer(t)
	user, token := s.registerUser(t, "charge-user")

	_, err := s.credit.Add(user.ID, 5.00, "top up", "", "test")
	assert.NoError(t, err)

	w := s.request(http.MethodPost, "/api/v1/billing/charge", token, ChargeMessageInput{
		Platform: "whatsapp",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.True(t, data["charged"].(bool))
	assert.InDelta(t, 4.99, data["new_balance"].(float64), 1e-9)
}

func TestChargeMessageInsufficientBalanceEndpoint(t *testing.T) {
	s := setupServer(t)
	_, token := s.registerUser(t, "broke-user")

	// A registered user starts at zero; the charge is refused but the
	// request itself succeeds.
	w := s.request(http.MethodPost, "/api/v1/billing/charge", token, ChargeMessageInput{
		Platform: "telegram",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.False(t, data["charged"].(bool))
	assert.Equal(t, "insufficient_balance", data["reason"])
}

func TestChargeMessageValidation(t *testing.T) {
	s := setupServer(t)
	_, token := s.registerUser(t, "validation-user")

	w := s.request(http.MethodPost, "/api/v1/billing/charge", token, map[string]string{
		"platform": "carrier-pigeon",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListTransactionsEndpoint(t *testing.T) {
	s := setupServer(t)
	user, token := s.registerUser(t, "history-user")
	other, _ := s.registerUser(t, "other-user")

	_, err := s.credit.Add(user.ID, 10.00, "top up", "", "test")
	assert.NoError(t, err)
	_, err = s.credit.Add(other.ID, 7.00, "top up", "", "test")
	assert.NoError(t, err)

	w := s.request(http.MethodGet, "/api/v1/billing/transactions", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp utils.Response
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["total"], "only the caller's own entries are listed")
}
