package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"moneta/internal/clock"
	"moneta/internal/logger"
	"moneta/internal/testutil"
	"moneta/internal/validator"
)

// testApp holds the full application stack for end-to-end flows.
type testApp struct {
	DB     *gorm.DB
	Router *gin.Engine
}

var flowToday = time.Date(2024, time.May, 20, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	validator.Register()
}

// setupApp creates the application backed by an isolated in-memory SQLite.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.TeardownTestDB(t, db) })

	router := NewRouter(Options{
		DB:                    db,
		Clock:                 clock.Fixed(flowToday),
		DefaultPeriodStartDay: 1,
		ReconcileTolerance:    decimal.Zero,
	})
	return &testApp{DB: db, Router: router}
}

// request makes an HTTP request to the test router and returns the recorder.
func (app *testApp) request(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.Router.ServeHTTP(rec, req)
	return rec
}

// mustRequest is request that fails the test on an unexpected status.
func (app *testApp) mustRequest(t *testing.T, method, path, body, token string, want int) map[string]interface{} {
	t.Helper()
	rec := app.request(method, path, body, token)
	if rec.Code != want {
		t.Fatalf("%s %s: expected %d, got %d: %s", method, path, want, rec.Code, rec.Body.String())
	}
	return parseJSON(t, rec)
}

// parseJSON parses the response body into a map.
func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// registerUser registers a new user and returns the access token and user ID.
func (app *testApp) registerUser(t *testing.T, email, password string) (token, userID string) {
	t.Helper()
	body := fmt.Sprintf(`{"email":%q,"password":%q,"first_name":"Test","last_name":"User"}`, email, password)
	result := app.mustRequest(t, "POST", "/api/v1/auth/register", body, "", http.StatusCreated)
	user := result["user"].(map[string]interface{})
	return result["token"].(string), user["id"].(string)
}

// createAccount creates an account and returns its id.
func (app *testApp) createAccount(t *testing.T, token, name, initialBalance string) string {
	t.Helper()
	body := fmt.Sprintf(`{"name":%q,"type":"bank","initial_balance":%q}`, name, initialBalance)
	result := app.mustRequest(t, "POST", "/api/v1/accounts", body, token, http.StatusCreated)
	return result["account"].(map[string]interface{})["id"].(string)
}

// balance fetches an account and returns its stored balance.
func (app *testApp) balance(t *testing.T, token, accountID string) decimal.Decimal {
	t.Helper()
	result := app.mustRequest(t, "GET", "/api/v1/accounts/"+accountID, "", token, http.StatusOK)
	return decimalField(t, result["account"].(map[string]interface{}), "balance")
}

// decimalField reads a decimal encoded as a JSON string.
func decimalField(t *testing.T, obj map[string]interface{}, key string) decimal.Decimal {
	t.Helper()
	s, ok := obj[key].(string)
	if !ok {
		t.Fatalf("expected %q to be a decimal string, got %v", key, obj[key])
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid decimal %q for %q: %v", s, key, err)
	}
	return d
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	testutil.AssertDecimal(t, name, got, want)
}
