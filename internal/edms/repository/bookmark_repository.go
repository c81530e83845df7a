package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// BookmarkRepository 书签仓库
type BookmarkRepository struct {
	db *gorm.DB
}

func NewBookmarkRepository(db *gorm.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// ListByUser 用户的书签
func (r *BookmarkRepository) ListByUser(ctx context.Context, userID string) ([]entity.Bookmark, error) {
	var items []entity.Bookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_on DESC, name ASC").
		Find(&items).Error
	return items, err
}

// FindByID 根据ID查找书签
func (r *BookmarkRepository) FindByID(ctx context.Context, id string) (*entity.Bookmark, error) {
	var b entity.Bookmark
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

// Create 创建书签
func (r *BookmarkRepository) Create(ctx context.Context, b *entity.Bookmark) error {
	return r.db.WithContext(ctx).Create(b).Error
}

// Delete 删除书签
func (r *BookmarkRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Bookmark{}).Error
}
