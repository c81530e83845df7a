package entity

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// 操作动词
const (
	VerbCreated = "created"
	VerbUpdated = "updated"
	VerbDeleted = "deleted"
	VerbJoined  = "joined"
)

// VerbLabels 动词显示文本
var VerbLabels = map[string]string{
	VerbCreated: "created",
	VerbUpdated: "updated",
	VerbDeleted: "deleted",
	VerbJoined:  "joined Phase",
}

// SystemActor 非数据库用户的操作者
const SystemActor = "System"

// ErrActivityImmutable 审计记录只允许追加
var ErrActivityImmutable = errors.New("activity records are append-only")

// Activity 审计记录。三个引用各自保存类型、ID和创建时的字符串快照
type Activity struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	ActorType *string `json:"actor_type" gorm:"size:64"`
	ActorID   *string `json:"actor_id" gorm:"size:36"`
	ActorStr  string  `json:"actor_str" gorm:"size:254"`

	Verb string `json:"verb" gorm:"size:128;not null;default:joined"`

	ActionObjectType *string `json:"action_object_type" gorm:"size:64"`
	ActionObjectID   *string `json:"action_object_id" gorm:"size:36"`
	ActionObjectStr  string  `json:"action_object_str" gorm:"size:255"`

	TargetType *string `json:"target_type" gorm:"size:64"`
	TargetID   *string `json:"target_id" gorm:"size:36"`
	TargetStr  string  `json:"target_str" gorm:"size:255"`

	CreatedOn time.Time `json:"created_on" gorm:"not null;index:idx_activities_created_on,sort:desc"`
}

func (Activity) TableName() string {
	return "activities"
}

func (a *Activity) BeforeUpdate(tx *gorm.DB) error {
	return ErrActivityImmutable
}

func (a *Activity) BeforeDelete(tx *gorm.DB) error {
	return ErrActivityImmutable
}

// VerbLabel 动词显示文本，未知动词原样返回
func (a Activity) VerbLabel() string {
	if label, ok := VerbLabels[a.Verb]; ok {
		return label
	}
	return a.Verb
}
