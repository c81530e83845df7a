package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// CategoryRepository 分类仓库
type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

// FindByID 查找分类及所属组织
func (r *CategoryRepository) FindByID(ctx context.Context, id string) (*entity.Category, error) {
	var category entity.Category
	err := r.db.WithContext(ctx).
		Preload("Organisation").
		Where("id = ?", id).
		First(&category).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

// List 分类列表
func (r *CategoryRepository) List(ctx context.Context) ([]entity.Category, error) {
	var categories []entity.Category
	err := r.db.WithContext(ctx).
		Preload("Organisation").
		Order("code ASC").
		Find(&categories).Error
	return categories, err
}

// Create 创建分类
func (r *CategoryRepository) Create(ctx context.Context, category *entity.Category) error {
	return r.db.WithContext(ctx).Create(category).Error
}

// CreateOrganisation 创建组织
func (r *CategoryRepository) CreateOrganisation(ctx context.Context, org *entity.Organisation) error {
	return r.db.WithContext(ctx).Create(org).Error
}
