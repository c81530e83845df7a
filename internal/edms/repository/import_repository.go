package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// ImportRepository 导入批次仓库
type ImportRepository struct {
	db *gorm.DB
}

func NewImportRepository(db *gorm.DB) *ImportRepository {
	return &ImportRepository{db: db}
}

// Create 创建批次
func (r *ImportRepository) Create(ctx context.Context, batch *entity.ImportBatch) error {
	return r.db.WithContext(ctx).Omit("Lines").Create(batch).Error
}

// FindByUID 查找批次及明细行
func (r *ImportRepository) FindByUID(ctx context.Context, uid string) (*entity.ImportBatch, error) {
	var batch entity.ImportBatch
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("line_number ASC")
		}).
		Where("uid = ?", uid).
		First(&batch).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &batch, nil
}

// ListByOwner 用户的导入批次
func (r *ImportRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.ImportBatch, error) {
	var items []entity.ImportBatch
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_on DESC").
		Find(&items).Error
	return items, err
}

// UpdateStatus 更新批次状态及统计
func (r *ImportRepository) UpdateStatus(ctx context.Context, batch *entity.ImportBatch) error {
	return r.db.WithContext(ctx).
		Model(&entity.ImportBatch{}).
		Where("uid = ?", batch.UID).
		Updates(map[string]interface{}{
			"status":      batch.Status,
			"message":     batch.Message,
			"total":       batch.Total,
			"succeeded":   batch.Succeeded,
			"failed":      batch.Failed,
			"finished_on": batch.FinishedOn,
		}).Error
}

// CreateLine 写入一行导入结果
func (r *ImportRepository) CreateLine(ctx context.Context, line *entity.ImportLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}
