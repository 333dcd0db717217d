package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"taskhub/internal/api/middleware"
	"taskhub/internal/config"
	"taskhub/internal/model"
	"taskhub/internal/pkg/dedup"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/pkg/notify"
	"taskhub/internal/pkg/ratelimit"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Server 封装了 API 服务所需的依赖和路由处理。
//
// 它持有数据库连接、Redis 客户端、存储层对象以及 Gin 路由引擎。
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      *gorm.DB
	rdb     *redis.Client
	router  *gin.Engine
	users   UserStore
	tasks   TaskStore
	deduper Deduper
	limiter *ratelimit.Limiter
	mailer  notify.Notifier
}

// UserStore 是用户存储层的能力集合。
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id uint) (*model.User, error)
	Update(ctx context.Context, userID uint, updates map[string]interface{}) (*model.User, error)
}

// TaskStore 是任务存储层的能力集合，所有操作都按归属用户过滤。
type TaskStore interface {
	Create(ctx context.Context, task *model.Task) error
	Count(ctx context.Context, ownerID uint) (int64, error)
	List(ctx context.Context, ownerID uint, filter store.TaskFilter) ([]model.Task, error)
	Get(ctx context.Context, ownerID, taskID uint) (*model.Task, error)
	Update(ctx context.Context, ownerID, taskID uint, updates map[string]interface{}) (*model.Task, error)
	Delete(ctx context.Context, ownerID, taskID uint) error
}

// Deduper 在时间窗口内识别重复提交。
type Deduper interface {
	IsDuplicate(ctx context.Context, fingerprint string) (bool, error)
	Delete(ctx context.Context, fingerprint string) error
}

// NewServer 初始化 API 服务器。
//
// 它负责：
// 1. 连接 MySQL 数据库并执行自动迁移
// 2. 连接 Redis
// 3. 初始化存储层、限流器与邮件通知器
// 4. 初始化 Gin 路由引擎
func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := gorm.Open(mysql.Open(cfg.MySQL.DSN), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&model.User{}, &model.Task{}); err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	metrics.InitMetrics()

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(logger))

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		rdb:     rdb,
		router:  r,
		users:   store.NewUserStore(db),
		tasks:   store.NewTaskStore(db),
		deduper: dedup.NewDeduplicator(rdb, time.Duration(cfg.App.DedupWindow)*time.Second),
		limiter: ratelimit.NewRedisLimiter(rdb, logger, "taskhub:ratelimit:login:", cfg.App.LoginRateLimit, cfg.App.LoginRateBurst),
		mailer:  notify.NewEmailNotifier(&cfg.Email, logger),
	}
	s.registerRoutes()
	return s, nil
}

// Run 启动 HTTP 服务器并开始监听请求。
func (s *Server) Run() error {
	s.logger.Info("api server listening", slog.String("addr", s.cfg.App.HTTPAddr))
	return s.router.Run(s.cfg.App.HTTPAddr)
}

// Router 返回 HTTP 路由处理器。
func (s *Server) Router() http.Handler {
	return s.router
}

// Close 关闭数据库与缓存连接。
func (s *Server) Close() error {
	var firstErr error
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			firstErr = err
		}
	}
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
		} else {
			if closeErr := sqlDB.Close(); closeErr != nil {
				if firstErr == nil {
					firstErr = closeErr
				}
			}
		}
	}
	return firstErr
}

// registerRoutes 注册所有的 API 路由。
func (s *Server) registerRoutes() {
	// Prometheus metrics 端点
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := s.router.Group("/api")
	apiGroup.GET("/health", s.handleHealth)

	loginLimit := middleware.LoginRateLimit(s.limiter, s.logger)
	apiGroup.POST("/auth/register", loginLimit, s.handleRegister)
	apiGroup.POST("/auth/login", loginLimit, s.handleLogin)

	authed := apiGroup.Group("/")
	authed.Use(middleware.AuthMiddleware(s.cfg.Security.JWTSecret))
	authed.POST("/auth/logout", s.handleLogout)
	authed.GET("/auth/profile", s.handleGetProfile)
	authed.PUT("/auth/profile", s.handleUpdateProfile)
	authed.GET("/tasks", s.handleListTasks)
	authed.POST("/tasks", s.handleCreateTask)
	authed.GET("/tasks/:id", s.handleGetTask)
	authed.PUT("/tasks/:id", s.handleUpdateTask)
	authed.DELETE("/tasks/:id", s.handleDeleteTask)
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db == nil || s.rdb == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	var one int
	if err := s.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now()})
}

func getUserID(c *gin.Context) uint {
	v, ok := c.Get("userID")
	if !ok {
		return 0
	}
	id, _ := v.(uint)
	return id
}
