package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"taskhub/internal/model"
	"taskhub/internal/pkg/dedup"
	"taskhub/internal/pkg/metrics"
	"taskhub/internal/store"

	"github.com/gin-gonic/gin"
)

// createTaskRequest 创建任务的请求参数。
type createTaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// updateTaskRequest 部分更新任务的请求参数，未提供的字段保持不变。
type updateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *string    `json:"status"`
	Priority    *string    `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
}

// handleCreateTask 处理创建任务的请求。
//
// POST /api/tasks
func (s *Server) handleCreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	userID := getUserID(c)

	title := strings.TrimSpace(req.Title)
	if title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title"})
		return
	}
	status := req.Status
	if status == "" {
		status = model.StatusPending
	}
	if !model.ValidStatus(status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}
	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}
	if !model.ValidPriority(priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	if maxTasks := s.cfg.App.MaxTasksPerUser; maxTasks > 0 {
		taskCount, err := s.tasks.Count(c.Request.Context(), userID)
		if err != nil {
			s.logger.Error("count tasks failed", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "count tasks failed"})
			return
		}
		if taskCount >= int64(maxTasks) {
			c.JSON(http.StatusForbidden, gin.H{"error": "task limit reached"})
			return
		}
	}

	fingerprint := taskFingerprint(userID, title, req.Description, status, priority, req.DueDate)
	dup, err := s.deduper.IsDuplicate(c.Request.Context(), fingerprint)
	if err != nil {
		s.logger.Error("dedup check failed", slog.String("error", err.Error()))
	} else if dup {
		s.logger.Info("task creation deduplicated", slog.Uint64("user_id", uint64(userID)))
		metrics.TaskDuplicatePreventedTotal.Inc()
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate task"})
		return
	}

	task := &model.Task{
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     req.DueDate,
	}
	if err := s.tasks.Create(c.Request.Context(), task); err != nil {
		s.logger.Error("create task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create task failed"})
		return
	}

	metrics.TaskCreatedTotal.Inc()
	c.JSON(http.StatusCreated, task)
}

// handleListTasks 返回当前用户的任务列表。
//
// GET /api/tasks?status=&priority=&search=
func (s *Server) handleListTasks(c *gin.Context) {
	filter := store.TaskFilter{
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
		Search:   c.Query("search"),
	}

	tasks, err := s.tasks.List(c.Request.Context(), getUserID(c), filter)
	if err != nil {
		s.logger.Error("list tasks failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list tasks failed"})
		return
	}
	c.JSON(http.StatusOK, tasks)
}

// handleGetTask 返回单条任务。
//
// GET /api/tasks/:id
func (s *Server) handleGetTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	task, err := s.tasks.Get(c.Request.Context(), getUserID(c), taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.logger.Error("get task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get task failed"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleUpdateTask 部分更新任务字段。
//
// PUT /api/tasks/:id
func (s *Server) handleUpdateTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]interface{}{}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid title"})
			return
		}
		updates["title"] = title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Status != nil {
		if !model.ValidStatus(*req.Status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
			return
		}
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		if !model.ValidPriority(*req.Priority) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
			return
		}
		updates["priority"] = *req.Priority
	}
	if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no updates"})
		return
	}

	task, err := s.tasks.Update(c.Request.Context(), getUserID(c), taskID, updates)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.logger.Error("update task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update task failed"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// handleDeleteTask 删除任务并释放重复提交占位。
//
// DELETE /api/tasks/:id
func (s *Server) handleDeleteTask(c *gin.Context) {
	taskID, ok := parseTaskID(c)
	if !ok {
		return
	}
	userID := getUserID(c)

	task, err := s.tasks.Get(c.Request.Context(), userID, taskID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.logger.Error("get task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete task failed"})
		return
	}

	if err := s.tasks.Delete(c.Request.Context(), userID, taskID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
			return
		}
		s.logger.Error("delete task failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete task failed"})
		return
	}

	fingerprint := taskFingerprint(userID, task.Title, task.Description, task.Status, task.Priority, task.DueDate)
	if err := s.deduper.Delete(c.Request.Context(), fingerprint); err != nil {
		s.logger.Warn("dedup delete failed", slog.String("error", err.Error()))
	}

	c.Status(http.StatusNoContent)
}

// taskFingerprint 生成任务内容指纹，用于识别重复提交。
func taskFingerprint(ownerID uint, title, description, status, priority string, dueDate *time.Time) string {
	due := ""
	if dueDate != nil {
		due = dueDate.UTC().Format(time.RFC3339)
	}
	return dedup.Fingerprint(ownerID, title, description, status, priority, due)
}

func parseTaskID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return uint(id), true
}
