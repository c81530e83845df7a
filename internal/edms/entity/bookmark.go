package entity

import "time"

// Bookmark 用户保存的链接
type Bookmark struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	UserID    string    `json:"user_id" gorm:"size:32;not null;index"`
	Name      string    `json:"name" gorm:"size:50;not null"`
	URL       string    `json:"url" gorm:"size:200;not null"`
	CreatedOn time.Time `json:"created_on" gorm:"type:date;not null"`
}

func (Bookmark) TableName() string {
	return "bookmarks"
}

func (b Bookmark) String() string {
	return b.Name
}
