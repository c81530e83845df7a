package entity

import "time"

// DistributionList 审阅分发列表：负责人、批准人、审阅人
type DistributionList struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	Name       string    `json:"name" gorm:"size:250;not null"`
	CategoryID string    `json:"category_id" gorm:"size:32;not null;index"`
	LeaderID   string    `json:"leader_id" gorm:"size:32;not null"`
	ApproverID *string   `json:"approver_id" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`

	// 关联
	Leader    *User  `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`
	Approver  *User  `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
	Reviewers []User `json:"reviewers,omitempty" gorm:"many2many:distribution_list_reviewers;"`
}

func (DistributionList) TableName() string {
	return "distribution_lists"
}

func (l DistributionList) String() string {
	return l.Name
}

// CanBeReviewed 负责人、批准人、至少一个审阅人齐备，且尚未启动审阅
func (r DocumentRevision) CanBeReviewed() bool {
	return r.LeaderID != nil && *r.LeaderID != "" &&
		r.ApproverID != nil && *r.ApproverID != "" &&
		len(r.Reviewers) > 0 &&
		r.ReviewStartDate == nil
}

// IsUnderReview 是否处于审阅中
func (r DocumentRevision) IsUnderReview() bool {
	return r.UnderReview != nil && *r.UnderReview
}

// IsOverdue 审阅中且已超过截止日期
func (r DocumentRevision) IsOverdue(today time.Time) bool {
	if !r.IsUnderReview() || r.ReviewDueDate == nil {
		return false
	}
	return r.ReviewDueDate.Before(truncateDay(today))
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
