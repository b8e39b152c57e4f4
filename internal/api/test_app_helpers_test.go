package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/terraincognita07/mealplans/internal/db"
	"github.com/terraincognita07/mealplans/internal/i18n"
	"github.com/terraincognita07/mealplans/internal/locks"
	"github.com/terraincognita07/mealplans/internal/logging"
	"github.com/terraincognita07/mealplans/internal/models"
	"github.com/terraincognita07/mealplans/internal/services"
)

const (
	testPassword  = "Passw0rd!"
	testSecretKey = "api-test-secret-key-with-32-characters"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingDispatcher struct {
	mu   sync.Mutex
	sent []services.NotificationMessage
}

func (dispatcher *recordingDispatcher) Send(_ context.Context, message services.NotificationMessage) error {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	dispatcher.sent = append(dispatcher.sent, message)
	return nil
}

func (dispatcher *recordingDispatcher) count() int {
	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	return len(dispatcher.sent)
}

type testApp struct {
	app        *fiber.App
	repos      *db.Repositories
	dispatcher *recordingDispatcher
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	database, err := db.OpenSQLite(filepath.Join(t.TempDir(), "mealplans-api-test.db"), logging.Discard())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("open sql db: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})

	catalog, err := i18n.NewManager()
	if err != nil {
		t.Fatalf("init i18n: %v", err)
	}

	repos := db.NewRepositories(database)
	dispatcher := &recordingDispatcher{}
	engine := services.NewEngine(services.EngineDependencies{
		Plans:         repos.Plans,
		Mirrors:       repos.Mirrors,
		Reminders:     repos.Reminders,
		Clients:       repos.Clients,
		Notifications: repos.Notifications,
		Dispatcher:    dispatcher,
		Catalog:       catalog,
		Locker:        locks.NewLocalLocker(),
	}, services.EngineOptions{CallTimeout: 5 * time.Second})

	handler, err := NewHandler(HandlerDependencies{
		Engine:  engine,
		Auth:    services.NewAuthService(repos.Dietitians, testSecretKey, time.Hour),
		Clients: repos.Clients,
		Clock:   func() time.Time { return testNow },
	})
	if err != nil {
		t.Fatalf("init handler: %v", err)
	}

	app := fiber.New()
	RegisterRoutes(app, handler)
	return &testApp{app: app, repos: repos, dispatcher: dispatcher}
}

func (fixture *testApp) seedDietitian(t *testing.T, email string, mustChange bool) models.Dietitian {
	t.Helper()
	hash, err := services.HashPassword(testPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	dietitian := models.Dietitian{
		Email:              services.NormalizeEmail(email),
		PasswordHash:       hash,
		MustChangePassword: mustChange,
	}
	if err := fixture.repos.Dietitians.Create(context.Background(), &dietitian); err != nil {
		t.Fatalf("create dietitian: %v", err)
	}
	return dietitian
}

func (fixture *testApp) seedClient(t *testing.T, code string, ownerID uint) models.Client {
	t.Helper()
	client := models.Client{Code: code, Language: models.LangEnglish, Channel: models.ChannelLog, OwnerID: ownerID}
	if err := fixture.repos.Clients.Create(context.Background(), &client); err != nil {
		t.Fatalf("create client: %v", err)
	}
	return client
}

func (fixture *testApp) login(t *testing.T, email string) string {
	t.Helper()
	response, body := fixture.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    email,
		"password": testPassword,
	})
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("login expected 200, got %d: %s", response.StatusCode, body)
	}
	payload := struct {
		Token string `json:"token"`
	}{}
	decodeBody(t, body, &payload)
	if payload.Token == "" {
		t.Fatal("expected login token")
	}
	return payload.Token
}

// createPlan stores a draft through the API and returns its id.
func (fixture *testApp) createPlan(t *testing.T, token string, clientCode string, name string) uint {
	t.Helper()
	response, body := fixture.do(t, http.MethodPost, "/api/plans", token, map[string]any{
		"client_code":           clientCode,
		"name":                  name,
		"content":               map[string]any{"breakfast": "oats"},
		"daily_target_calories": 1800,
	})
	if response.StatusCode != fiber.StatusCreated {
		t.Fatalf("create plan expected 201, got %d: %s", response.StatusCode, body)
	}
	plan := models.MealPlan{}
	decodeBody(t, body, &plan)
	return plan.ID
}

func (fixture *testApp) do(t *testing.T, method string, path string, token string, payload any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode payload: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	request := httptest.NewRequest(method, path, reader)
	if payload != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := fixture.app.Test(request, -1)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		t.Fatalf("%s %s read body failed: %v", method, path, err)
	}
	return response, body
}

func decodeBody(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode response body %s: %v", body, err)
	}
}

func readAPIError(t *testing.T, body []byte) string {
	t.Helper()
	payload := map[string]any{}
	decodeBody(t, body, &payload)
	message, _ := payload["error"].(string)
	return message
}

func responseCookie(cookies []*http.Cookie, name string) *http.Cookie {
	for _, cookie := range cookies {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}
