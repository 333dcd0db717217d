package store

import (
	"context"
	"errors"
	"strings"

	"taskhub/internal/model"

	"gorm.io/gorm"
)

// UserStore 负责用户记录的持久化。
type UserStore struct {
	db *gorm.DB
}

// NewUserStore 创建 UserStore。
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

// Create 创建用户，邮箱冲突时返回 ErrEmailTaken。
//
// 邮箱在写入前统一小写。唯一索引仍然兜底并发下的重复写入。
func (s *UserStore) Create(ctx context.Context, user *model.User) error {
	user.Email = NormalizeEmail(user.Email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrEmailTaken
	}
	return s.db.WithContext(ctx).Create(user).Error
}

// GetByEmail 按邮箱（小写后）查找用户。
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID 按 ID 查找用户。
func (s *UserStore) GetByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Update 更新用户资料字段并返回更新后的记录。
//
// 若 updates 中包含 email，会先做小写归一化，并在与其他用户冲突时返回 ErrEmailTaken。
func (s *UserStore) Update(ctx context.Context, userID uint, updates map[string]interface{}) (*model.User, error) {
	if email, ok := updates["email"].(string); ok {
		email = NormalizeEmail(email)
		updates["email"] = email

		var count int64
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("email = ? AND id <> ?", email, userID).Count(&count).Error; err != nil {
			return nil, err
		}
		if count > 0 {
			return nil, ErrEmailTaken
		}
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&model.User{}).
			Where("id = ?", userID).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return s.GetByID(ctx, userID)
}

// NormalizeEmail 统一邮箱写法：去空白并转小写。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
