package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// DistributionListRepository 分发列表仓库
type DistributionListRepository struct {
	db *gorm.DB
}

func NewDistributionListRepository(db *gorm.DB) *DistributionListRepository {
	return &DistributionListRepository{db: db}
}

// ListByCategory 分类下的分发列表
func (r *DistributionListRepository) ListByCategory(ctx context.Context, categoryID string) ([]entity.DistributionList, error) {
	var items []entity.DistributionList
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Approver").
		Preload("Reviewers").
		Where("category_id = ?", categoryID).
		Order("name ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找
func (r *DistributionListRepository) FindByID(ctx context.Context, id string) (*entity.DistributionList, error) {
	var list entity.DistributionList
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Approver").
		Preload("Reviewers").
		Where("id = ?", id).
		First(&list).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &list, nil
}

// Create 创建分发列表及审阅人
func (r *DistributionListRepository) Create(ctx context.Context, list *entity.DistributionList) error {
	return r.db.WithContext(ctx).Omit("Leader", "Approver", "Reviewers.*").Create(list).Error
}
