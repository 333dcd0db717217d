package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"taskhub/internal/api/middleware"
	"taskhub/internal/auth"
	"taskhub/internal/model"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email" binding:"omitempty,email"`
}

type sessionResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// handleRegister 创建新用户并直接签发 JWT。
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "hash password failed"})
		return
	}

	user := &model.User{
		Email:    store.NormalizeEmail(req.Email),
		Name:     strings.TrimSpace(req.Name),
		Password: hash,
	}
	if err := s.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		s.logger.Error("create user failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create user failed"})
		return
	}

	token, err := s.issueSession(c, user.ID)
	if err != nil {
		s.logger.Error("sign token failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	if s.mailer != nil {
		go func(email, name string) {
			if err := s.mailer.SendWelcome(email, name); err != nil {
				s.logger.Warn("send welcome email failed", slog.String("email", email), slog.String("error", err.Error()))
			}
		}(user.Email, user.Name)
	}

	s.logger.Info("user registered", slog.String("email", user.Email))
	c.JSON(http.StatusCreated, sessionResponse{Token: token, User: user})
}

// handleLogin 校验凭证并签发 JWT。
//
// 邮箱不存在和密码错误返回相同的响应，避免区分两种失败原因。
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			metrics.LoginFailureTotal.Inc()
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}

	if !auth.CheckPassword(req.Password, user.Password) {
		metrics.LoginFailureTotal.Inc()
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.issueSession(c, user.ID)
	if err != nil {
		s.logger.Error("sign token failed", slog.String("email", user.Email), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign token failed"})
		return
	}

	s.logger.Info("user logged in", slog.String("email", user.Email))
	c.JSON(http.StatusOK, sessionResponse{Token: token, User: user})
}

// handleLogout 处理注销请求。
//
// 会话是无状态的，服务端只负责清掉 Cookie；Token 本身到期前仍然有效。
func (s *Server) handleLogout(c *gin.Context) {
	c.SetCookie(middleware.TokenCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// handleGetProfile 返回当前用户资料。
func (s *Server) handleGetProfile(c *gin.Context) {
	user, err := s.users.GetByID(c.Request.Context(), getUserID(c))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		s.logger.Error("query user failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query user failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// handleUpdateProfile 更新当前用户的名称/邮箱。
func (s *Server) handleUpdateProfile(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid name"})
			return
		}
		updates["name"] = name
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updates"})
		return
	}

	user, err := s.users.Update(c.Request.Context(), getUserID(c), updates)
	if err != nil {
		if errors.Is(err, store.ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}
		s.logger.Error("update profile failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update profile failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// issueSession 签发 JWT 并同时写入 HttpOnly Cookie。
func (s *Server) issueSession(c *gin.Context, userID uint) (string, error) {
	ttl := s.cfg.Security.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := auth.IssueToken([]byte(s.cfg.Security.JWTSecret), userID, ttl, time.Now())
	if err != nil {
		return "", err
	}
	secure := s.cfg.App.Env == "prod"
	c.SetCookie(middleware.TokenCookieName, token, int(ttl.Seconds()), "/", "", secure, true)
	return token, nil
}
