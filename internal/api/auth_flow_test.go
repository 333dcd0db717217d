package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskhub/internal/auth"

	"github.com/gin-gonic/gin"
)

func TestRegisterLoginFlow(t *testing.T) {
	s := newTestServer(t)

	res := registerUser(t, s, "Ann", "ann@example.com", "secret1")
	uid, err := auth.VerifyToken(res.Token, []byte(s.cfg.Security.JWTSecret), time.Now())
	if err != nil {
		t.Fatalf("verify register token: %v", err)
	}
	if uid != res.User.ID {
		t.Fatalf("token subject %d, expected user id %d", uid, res.User.ID)
	}

	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ann@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var login sessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.User.ID != res.User.ID {
		t.Fatalf("login returned user %d, expected %d", login.User.ID, res.User.ID)
	}
	uid, err = auth.VerifyToken(login.Token, []byte(s.cfg.Security.JWTSecret), time.Now())
	if err != nil || uid != res.User.ID {
		t.Fatalf("verify login token: uid=%d err=%v", uid, err)
	}
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)

	cases := []gin.H{
		{"name": "Ann", "password": "secret1"},
		{"name": "Ann", "email": "not-an-email", "password": "secret1"},
		{"name": "Ann", "email": "ann@example.com", "password": "short"},
		{"email": "ann@example.com", "password": "secret1"},
	}
	for i, body := range cases {
		w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("case %d: expected 400, got %d body=%s", i, w.Code, w.Body.String())
		}
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := newTestServer(t)

	registerUser(t, s, "Ann", "ann@example.com", "secret1")

	w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Imposter",
		"email":    "Ann@Example.com",
		"password": "another1",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d body=%s", w.Code, w.Body.String())
	}

	// 原账号不受影响
	w = doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ann@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login after duplicate attempt: expected 200, got %d", w.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s := newTestServer(t)

	registerUser(t, s, "Ann", "ann@example.com", "secret1")

	w := doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "ann@example.com",
		"password": "wrongpass",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: expected 401, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPost, "/api/auth/login", "", gin.H{
		"email":    "nobody@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unknown email: expected 401, got %d", w.Code)
	}
}

func TestPasswordHashNeverSerialized(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     "Ann",
		"email":    "ann@example.com",
		"password": "secret1",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("register response leaks password material: %s", w.Body.String())
	}

	var res sessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	w = doJSON(t, s, http.MethodGet, "/api/auth/profile", res.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile: expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "password") || strings.Contains(w.Body.String(), "$2a$") {
		t.Fatalf("profile response leaks password material: %s", w.Body.String())
	}
}

func TestProfileUpdate(t *testing.T) {
	s := newTestServer(t)

	res := registerUser(t, s, "Ann", "ann@example.com", "secret1")
	registerUser(t, s, "Bob", "bob@example.com", "secret2")

	w := doJSON(t, s, http.MethodPut, "/api/auth/profile", res.Token, gin.H{
		"name":  "Ann Lee",
		"email": "ann.lee@example.com",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update profile: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	var body struct {
		User struct {
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Name != "Ann Lee" || body.User.Email != "ann.lee@example.com" {
		t.Fatalf("unexpected profile after update: %+v", body.User)
	}

	// 不能改成别人的邮箱
	w = doJSON(t, s, http.MethodPut, "/api/auth/profile", res.Token, gin.H{
		"email": "bob@example.com",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("conflicting email: expected 409, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodPut, "/api/auth/profile", res.Token, gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty update: expected 400, got %d", w.Code)
	}
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)

	w := doJSON(t, s, http.MethodGet, "/api/auth/profile", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no token: expected 401, got %d", w.Code)
	}

	w = doJSON(t, s, http.MethodGet, "/api/tasks", "garbage.token.here", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("garbage token: expected 401, got %d", w.Code)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	s := newTestServer(t)

	res := registerUser(t, s, "Ann", "ann@example.com", "secret1")
	expired, err := auth.IssueToken([]byte(s.cfg.Security.JWTSecret), res.User.ID, -time.Hour, time.Now())
	if err != nil {
		t.Fatalf("issue expired token: %v", err)
	}

	w := doJSON(t, s, http.MethodGet, "/api/auth/profile", expired, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "token expired") {
		t.Fatalf("expected expiry message, got %s", w.Body.String())
	}
}

func TestCookieAuth(t *testing.T) {
	s := newTestServer(t)

	res := registerUser(t, s, "Ann", "ann@example.com", "secret1")

	req := httptest.NewRequest(http.MethodGet, "/api/auth/profile", nil)
	req.AddCookie(&http.Cookie{Name: "token", Value: res.Token})
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("cookie auth: expected 200, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newTestServer(t)

	res := registerUser(t, s, "Ann", "ann@example.com", "secret1")

	w := doJSON(t, s, http.MethodPost, "/api/auth/logout", res.Token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", w.Code)
	}
	cleared := false
	for _, c := range w.Result().Cookies() {
		if c.Name == "token" && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not clear token cookie: %v", w.Result().Cookies())
	}
}
