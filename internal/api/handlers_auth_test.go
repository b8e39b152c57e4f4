package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestHealthIsPublic(t *testing.T) {
	fixture := newTestApp(t)

	response, body := fixture.do(t, http.MethodGet, "/healthz", "", nil)
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", response.StatusCode, body)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	fixture := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
	}{
		{name: "no token", method: http.MethodGet, path: "/api/plans"},
		{name: "garbage token", method: http.MethodGet, path: "/api/clients", token: "not-a-jwt"},
		{name: "maintenance", method: http.MethodPost, path: "/api/maintenance/expire"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, body := fixture.do(t, tt.method, tt.path, tt.token, nil)
			if response.StatusCode != fiber.StatusUnauthorized {
				t.Fatalf("expected status 401, got %d: %s", response.StatusCode, body)
			}
		})
	}
}

func TestLoginIssuesTokenAndCookie(t *testing.T) {
	fixture := newTestApp(t)
	fixture.seedDietitian(t, "dietitian@example.com", false)

	response, body := fixture.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email":    "Dietitian@Example.com",
		"password": testPassword,
	})
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", response.StatusCode, body)
	}
	cookie := responseCookie(response.Cookies(), authCookieName)
	if cookie == nil || cookie.Value == "" {
		t.Fatal("expected auth cookie in login response")
	}
	if !cookie.HttpOnly {
		t.Fatal("expected auth cookie to be HttpOnly")
	}

	request := httptest.NewRequest(http.MethodGet, "/api/clients", nil)
	request.Header.Set("Cookie", authCookieName+"="+cookie.Value)
	cookieResponse, err := fixture.app.Test(request, -1)
	if err != nil {
		t.Fatalf("cookie request failed: %v", err)
	}
	defer cookieResponse.Body.Close()
	if cookieResponse.StatusCode != fiber.StatusOK {
		t.Fatalf("expected cookie session to authorize, got %d", cookieResponse.StatusCode)
	}
}

func TestLoginRejectsInvalidCredentials(t *testing.T) {
	fixture := newTestApp(t)
	fixture.seedDietitian(t, "dietitian@example.com", false)

	tests := []struct {
		name     string
		payload  map[string]string
		expected int
	}{
		{name: "wrong password", payload: map[string]string{"email": "dietitian@example.com", "password": "Wrong123"}, expected: fiber.StatusUnauthorized},
		{name: "unknown email", payload: map[string]string{"email": "nobody@example.com", "password": testPassword}, expected: fiber.StatusUnauthorized},
		{name: "malformed email", payload: map[string]string{"email": "not-an-email", "password": testPassword}, expected: fiber.StatusBadRequest},
		{name: "missing password", payload: map[string]string{"email": "dietitian@example.com"}, expected: fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, body := fixture.do(t, http.MethodPost, "/api/auth/login", "", tt.payload)
			if response.StatusCode != tt.expected {
				t.Fatalf("expected status %d, got %d: %s", tt.expected, response.StatusCode, body)
			}
		})
	}
}

func TestLoginIsRateLimitedAfterRepeatedFailures(t *testing.T) {
	fixture := newTestApp(t)
	fixture.seedDietitian(t, "dietitian@example.com", false)

	bad := map[string]string{"email": "dietitian@example.com", "password": "Wrong123"}
	for attempt := 0; attempt < loginAttemptLimit; attempt++ {
		response, _ := fixture.do(t, http.MethodPost, "/api/auth/login", "", bad)
		if response.StatusCode != fiber.StatusUnauthorized {
			t.Fatalf("attempt %d: expected status 401, got %d", attempt, response.StatusCode)
		}
	}

	good := map[string]string{"email": "dietitian@example.com", "password": testPassword}
	response, body := fixture.do(t, http.MethodPost, "/api/auth/login", "", good)
	if response.StatusCode != fiber.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d: %s", response.StatusCode, body)
	}
}

func TestForcedPasswordChangeGatesAPI(t *testing.T) {
	fixture := newTestApp(t)
	fixture.seedDietitian(t, "reset@example.com", true)
	token := fixture.login(t, "reset@example.com")

	response, body := fixture.do(t, http.MethodGet, "/api/plans", token, nil)
	if response.StatusCode != fiber.StatusForbidden {
		t.Fatalf("expected status 403, got %d: %s", response.StatusCode, body)
	}
	if message := readAPIError(t, body); message != "password change required" {
		t.Fatalf("unexpected error %q", message)
	}

	response, body = fixture.do(t, http.MethodPost, "/api/auth/change-password", token, map[string]string{
		"current_password": testPassword,
		"new_password":     "Fresh1Passw0rd",
		"confirm_password": "Fresh1Passw0rd",
	})
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected change-password 200, got %d: %s", response.StatusCode, body)
	}

	response, body = fixture.do(t, http.MethodGet, "/api/plans", token, nil)
	if response.StatusCode != fiber.StatusOK {
		t.Fatalf("expected plans 200 after password change, got %d: %s", response.StatusCode, body)
	}
}

func TestChangePasswordValidation(t *testing.T) {
	fixture := newTestApp(t)
	fixture.seedDietitian(t, "dietitian@example.com", false)
	token := fixture.login(t, "dietitian@example.com")

	tests := []struct {
		name     string
		payload  map[string]string
		expected int
	}{
		{name: "wrong current", payload: map[string]string{"current_password": "Nope1234", "new_password": "Fresh1Passw0rd", "confirm_password": "Fresh1Passw0rd"}, expected: fiber.StatusUnauthorized},
		{name: "mismatch", payload: map[string]string{"current_password": testPassword, "new_password": "Fresh1Passw0rd", "confirm_password": "Other1Passw0rd"}, expected: fiber.StatusBadRequest},
		{name: "weak", payload: map[string]string{"current_password": testPassword, "new_password": "weak", "confirm_password": "weak"}, expected: fiber.StatusBadRequest},
		{name: "missing fields", payload: map[string]string{"current_password": testPassword}, expected: fiber.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, body := fixture.do(t, http.MethodPost, "/api/auth/change-password", token, tt.payload)
			if response.StatusCode != tt.expected {
				t.Fatalf("expected status %d, got %d: %s", tt.expected, response.StatusCode, body)
			}
		})
	}
}
