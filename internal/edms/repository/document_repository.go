package repository

import (
	"context"
	"time"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/grid"
	"gorm.io/gorm"
)

// DocumentRepository 文档仓库
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&entity.Document{}).Where("deleted_at IS NULL")
}

func orderRevisions(db *gorm.DB) *gorm.DB {
	return db.Order("revision ASC, revision_date ASC")
}

// FindByID 根据ID查找文档
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	var doc entity.Document
	err := r.active(ctx).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// FindByNumber 根据文档编号查找，带分类和全部版本
func (r *DocumentRepository) FindByNumber(ctx context.Context, number string) (*entity.Document, error) {
	var doc entity.Document
	err := r.active(ctx).
		Preload("Category.Organisation").
		Preload("Revisions", orderRevisions).
		Where("document_number = ?", number).
		First(&doc).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &doc, nil
}

// FindByNumbers 批量查找（打包下载用），不存在的编号忽略
func (r *DocumentRepository) FindByNumbers(ctx context.Context, numbers []string) ([]entity.Document, error) {
	var docs []entity.Document
	if len(numbers) == 0 {
		return docs, nil
	}
	err := r.active(ctx).
		Preload("Revisions", orderRevisions).
		Where("document_number IN ?", numbers).
		Order("document_number ASC").
		Find(&docs).Error
	return docs, err
}

// ExistsNumber 编号是否已被占用（含已删除）
func (r *DocumentRepository) ExistsNumber(ctx context.Context, number string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Document{}).
		Where("document_number = ?", number).
		Count(&count).Error
	return count > 0, err
}

// CreateWithRevision 同一事务内创建文档和首个版本
func (r *DocumentRepository) CreateWithRevision(ctx context.Context, doc *entity.Document, rev *entity.DocumentRevision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category", "Revisions").Create(doc).Error; err != nil {
			return err
		}
		if rev == nil {
			return nil
		}
		rev.DocumentID = doc.ID
		return tx.Omit("Document", "Leader", "Approver", "Reviewers").Create(rev).Error
	})
}

// UpdateWithRevision 更新文档，rev 非空时同时创建新版本
func (r *DocumentRepository) UpdateWithRevision(ctx context.Context, doc *entity.Document, rev *entity.DocumentRevision) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category", "Revisions").Save(doc).Error; err != nil {
			return err
		}
		if rev == nil {
			return nil
		}
		rev.DocumentID = doc.ID
		return tx.Omit("Document", "Leader", "Approver", "Reviewers").Create(rev).Error
	})
}

// Delete 软删除文档
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Document{}).
		Where("id = ?", id).
		Update("deleted_at", time.Now()).Error
}

// Count 未删除文档总数
func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.active(ctx).Count(&total).Error
	return total, err
}

// Filter 表格查询：返回当前页、总数、过滤后条数
func (r *DocumentRepository) Filter(ctx context.Context, q grid.Query) ([]entity.Document, int64, int64, error) {
	var docs []entity.Document
	var total, display int64

	if err := r.active(ctx).Count(&total).Error; err != nil {
		return nil, 0, 0, err
	}
	if err := r.active(ctx).Scopes(q.Filter).Count(&display).Error; err != nil {
		return nil, 0, 0, err
	}

	query := r.active(ctx).Scopes(q.Filter, q.Page)
	if q.Order == "" {
		query = query.Order(grid.DefaultSortColumn + " ASC")
	}
	if err := query.Find(&docs).Error; err != nil {
		return nil, 0, 0, err
	}
	return docs, total, display, nil
}

// FilterAll 表格查询的全部结果（导出用），categoryID 为空时不限分类
func (r *DocumentRepository) FilterAll(ctx context.Context, categoryID string, q grid.Query) ([]entity.Document, error) {
	var docs []entity.Document
	query := r.active(ctx).Scopes(q.Filter)
	if categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}
	if q.Order == "" {
		query = query.Order(grid.DefaultSortColumn + " ASC")
	}
	err := query.Find(&docs).Error
	return docs, err
}

// ListRevisions 文档的全部版本
func (r *DocumentRepository) ListRevisions(ctx context.Context, documentID string) ([]entity.DocumentRevision, error) {
	var revs []entity.DocumentRevision
	err := r.db.WithContext(ctx).
		Preload("Leader").
		Preload("Approver").
		Preload("Reviewers").
		Where("document_id = ?", documentID).
		Scopes(orderRevisions).
		Find(&revs).Error
	return revs, err
}

// FindRevision 按版本号查找
func (r *DocumentRepository) FindRevision(ctx context.Context, documentID string, revision int) (*entity.DocumentRevision, error) {
	var rev entity.DocumentRevision
	err := r.db.WithContext(ctx).
		Preload("Document").
		Preload("Leader").
		Preload("Approver").
		Preload("Reviewers").
		Where("document_id = ? AND revision = ?", documentID, revision).
		First(&rev).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rev, nil
}

// FindRevisionByID 根据ID查找版本
func (r *DocumentRepository) FindRevisionByID(ctx context.Context, id string) (*entity.DocumentRevision, error) {
	var rev entity.DocumentRevision
	err := r.db.WithContext(ctx).
		Preload("Document").
		Where("id = ?", id).
		First(&rev).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rev, nil
}

// UpdateRevision 保存版本字段（不含审阅人）
func (r *DocumentRepository) UpdateRevision(ctx context.Context, rev *entity.DocumentRevision) error {
	return r.db.WithContext(ctx).
		Omit("Document", "Leader", "Approver", "Reviewers").
		Save(rev).Error
}

// ReplaceReviewers 替换版本的审阅人
func (r *DocumentRepository) ReplaceReviewers(ctx context.Context, rev *entity.DocumentRevision, reviewers []entity.User) error {
	return r.db.WithContext(ctx).Model(rev).Association("Reviewers").Replace(reviewers)
}

// UpdateOverdue 把已过期的审阅标记为 overdue，返回更新条数
func (r *DocumentRepository) UpdateOverdue(ctx context.Context, today time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&entity.DocumentRevision{}).
		Where("under_review = ? AND review_due_date < ?", true, today).
		Where("overdue IS NULL OR overdue = ?", false).
		Update("overdue", true)
	return res.RowsAffected, res.Error
}
