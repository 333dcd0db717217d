package api

import (
	"context"
	"errors"
	"time"

	"taskhub/internal/auth"
	"taskhub/internal/model"

	"gorm.io/gorm"
)

// SeedDemoData 初始化本地演示账号与示例任务，可重复执行。
func (s *Server) SeedDemoData(ctx context.Context) error {
	const demoEmail = "demo@taskhub.local"

	var user model.User
	err := s.db.WithContext(ctx).Where("email = ?", demoEmail).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		hash, hashErr := auth.HashPassword("demo-password")
		if hashErr != nil {
			return hashErr
		}
		user = model.User{
			Email:    demoEmail,
			Name:     "Demo",
			Password: hash,
		}
		if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
			return err
		}
	}

	var taskCount int64
	if err := s.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ?", user.ID).Count(&taskCount).Error; err != nil {
		return err
	}
	if taskCount > 0 {
		return nil
	}

	due := time.Now().Add(72 * time.Hour).Truncate(time.Hour)
	samples := []model.Task{
		{UserID: user.ID, Title: "Explore the dashboard", Description: "Filters support status, priority and free text search.", Status: model.StatusPending, Priority: model.PriorityMedium},
		{UserID: user.ID, Title: "Plan the week", Description: "Break big goals into small tasks.", Status: model.StatusInProgress, Priority: model.PriorityHigh, DueDate: &due},
		{UserID: user.ID, Title: "Read the welcome email", Status: model.StatusCompleted, Priority: model.PriorityLow},
	}
	return s.db.WithContext(ctx).Create(&samples).Error
}
