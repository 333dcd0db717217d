package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"taskhub/internal/config"
	"taskhub/internal/model"
	"taskhub/internal/pkg/dedup"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	metrics.InitMetrics()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})

	cfg := &config.Config{
		App: config.AppConfig{Env: "test", DedupWindow: 10},
		Security: config.SecurityConfig{
			JWTSecret: "test-secret",
			TokenTTL:  24 * time.Hour,
		},
	}

	s := &Server{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		db:      db,
		rdb:     rdb,
		router:  gin.New(),
		users:   store.NewUserStore(db),
		tasks:   store.NewTaskStore(db),
		deduper: dedup.NewDeduplicator(rdb, 10*time.Second),
	}
	s.registerRoutes()
	return s
}

func doJSON(t *testing.T, s *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type sessionResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

func registerUser(t *testing.T, s *Server, name, email, password string) sessionResult {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    email,
		"password": password,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: expected 201, got %d body=%s", email, w.Code, w.Body.String())
	}
	var res sessionResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if res.Token == "" || res.User.ID == 0 {
		t.Fatalf("register response missing token or user: %s", w.Body.String())
	}
	return res
}

func createTask(t *testing.T, s *Server, token string, body gin.H) model.Task {
	t.Helper()
	w := doJSON(t, s, http.MethodPost, "/api/tasks", token, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create task: expected 201, got %d body=%s", w.Code, w.Body.String())
	}
	var task model.Task
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("decode task: %v", err)
	}
	return task
}
