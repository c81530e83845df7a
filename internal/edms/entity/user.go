package entity

import (
	"time"
)

// User 用户实体
type User struct {
	ID         string     `json:"id" gorm:"primaryKey;size:32"`
	Email      string     `json:"email" gorm:"size:254;not null;uniqueIndex"`
	Name       string     `json:"name" gorm:"size:64;not null"`
	CategoryID string     `json:"category_id" gorm:"size:32"`
	IsActive   bool       `json:"is_active" gorm:"not null;default:true"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u User) String() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
