package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// ActivityRepository 审计记录仓库，只有新增和查询
type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// CreateActivity 写入审计记录
func (r *ActivityRepository) CreateActivity(ctx context.Context, activity *entity.Activity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// List 按时间倒序分页
func (r *ActivityRepository) List(ctx context.Context, page, pageSize int) ([]entity.Activity, int64, error) {
	var items []entity.Activity
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Activity{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.
		Order("created_on DESC, id DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&items).Error
	return items, total, err
}

// FindByTarget 某个实体作为目标的记录
func (r *ActivityRepository) FindByTarget(ctx context.Context, targetType, targetID string) ([]entity.Activity, error) {
	var items []entity.Activity
	err := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_on DESC, id DESC").
		Find(&items).Error
	return items, err
}
