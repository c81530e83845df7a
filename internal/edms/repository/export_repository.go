package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// ExportRepository 导出任务仓库
type ExportRepository struct {
	db *gorm.DB
}

func NewExportRepository(db *gorm.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create 创建导出任务
func (r *ExportRepository) Create(ctx context.Context, export *entity.Export) error {
	return r.db.WithContext(ctx).Create(export).Error
}

// FindByID 根据ID查找
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*entity.Export, error) {
	var export entity.Export
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&export).Error; err != nil {
		return nil, notFound(err)
	}
	return &export, nil
}

// ListByOwner 用户的导出任务
func (r *ExportRepository) ListByOwner(ctx context.Context, ownerID string) ([]entity.Export, error) {
	var items []entity.Export
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_on DESC").
		Find(&items).Error
	return items, err
}

// UpdateStatus 更新状态、文件路径
func (r *ExportRepository) UpdateStatus(ctx context.Context, export *entity.Export) error {
	return r.db.WithContext(ctx).
		Model(&entity.Export{}).
		Where("id = ?", export.ID).
		Updates(map[string]interface{}{
			"status":      export.Status,
			"file_path":   export.FilePath,
			"message":     export.Message,
			"finished_on": export.FinishedOn,
		}).Error
}
