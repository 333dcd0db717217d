package store

import (
	"context"
	"errors"
	"strings"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// TaskFilter 任务列表的过滤条件，零值字段不参与过滤。
type TaskFilter struct {
	Status   string // 精确匹配任务状态
	Priority string // 精确匹配优先级
	Search   string // 标题/描述的大小写不敏感子串匹配
}

// TaskStore 负责任务记录的持久化。
//
// 所有查询都带 user_id 条件：任务只能被其归属用户读取和修改。
// 访问他人的任务与访问不存在的任务表现一致（ErrNotFound）。
type TaskStore struct {
	db *gorm.DB
}

// NewTaskStore 创建 TaskStore。
func NewTaskStore(db *gorm.DB) *TaskStore {
	return &TaskStore{db: db}
}

// Create 创建任务。
func (s *TaskStore) Create(ctx context.Context, task *model.Task) error {
	return s.db.WithContext(ctx).Create(task).Error
}

// Count 统计指定用户的任务数。
func (s *TaskStore) Count(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ?", ownerID).Count(&count).Error
	return count, err
}

// List 返回指定用户的任务列表，按创建顺序倒序。
func (s *TaskStore) List(ctx context.Context, ownerID uint, filter TaskFilter) ([]model.Task, error) {
	tasks := []model.Task{}
	query := s.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", pattern, pattern)
	}
	if err := query.Order("id DESC").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Get 按归属读取单条任务。
func (s *TaskStore) Get(ctx context.Context, ownerID, taskID uint) (*model.Task, error) {
	var task model.Task
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, ownerID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Update 按归属更新任务字段并返回更新后的记录。
//
// user_id 不在可更新字段之列，归属在创建后不可变。
func (s *TaskStore) Update(ctx context.Context, ownerID, taskID uint, updates map[string]interface{}) (*model.Task, error) {
	if _, err := s.Get(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.Task{}).
			Where("id = ? AND user_id = ?", taskID, ownerID).
			Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, ownerID, taskID)
}

// Delete 按归属删除任务。
func (s *TaskStore) Delete(ctx context.Context, ownerID, taskID uint) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, ownerID).Delete(&model.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
