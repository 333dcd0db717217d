package model

import "time"

// User 表示系统用户。
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`                                // 用户 ID
	Email     string    `gorm:"type:varchar(191);uniqueIndex;not null" json:"email"` // 邮箱（唯一，统一小写存储）
	Password  string    `gorm:"not null" json:"-"`                                   // bcrypt 哈希，永不序列化
	Name      string    `gorm:"type:varchar(64);not null" json:"name"`               // 显示名称
	CreatedAt time.Time `json:"createdAt"`                                           // 创建时间
	UpdatedAt time.Time `json:"updatedAt"`                                           // 更新时间

	Tasks []Task `gorm:"foreignKey:UserID" json:"-"`
}
