package model

import "time"

// 任务状态取值。
const (
	StatusPending    = "pending"
	StatusInProgress = "in-progress"
	StatusCompleted  = "completed"
)

// 任务优先级取值。
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task 表示一条用户任务。
//
// 每条任务归属唯一的用户（UserID，创建后不可变），所有读写都必须按归属用户过滤。
// 状态之间没有流转图限制，任意状态可以直接改成任意其他状态。
type Task struct {
	ID        uint      `gorm:"primaryKey" json:"id"` // 任务唯一标识
	CreatedAt time.Time `json:"createdAt"`            // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`            // 更新时间

	UserID      uint       `gorm:"not null;index" json:"userId"`                    // 所属用户 ID
	Title       string     `gorm:"type:varchar(191);not null" json:"title"`         // 标题
	Description string     `gorm:"type:text" json:"description"`                    // 描述
	Status      string     `gorm:"type:varchar(16);default:pending" json:"status"`  // pending / in-progress / completed
	Priority    string     `gorm:"type:varchar(16);default:medium" json:"priority"` // low / medium / high
	DueDate     *time.Time `json:"dueDate,omitempty"`                               // 截止时间（可选）
}

// ValidStatus 判断任务状态取值是否合法。
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// ValidPriority 判断任务优先级取值是否合法。
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
