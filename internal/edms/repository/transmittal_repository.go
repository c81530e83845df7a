package repository

import (
	"context"

	"github.com/bitfantasy/phase/internal/edms/entity"
	"gorm.io/gorm"
)

// TransmittalRepository 传送单仓库
type TransmittalRepository struct {
	db *gorm.DB
}

func NewTransmittalRepository(db *gorm.DB) *TransmittalRepository {
	return &TransmittalRepository{db: db}
}

// FindByDocument 文档对应的传送单，含所有导出版本
func (r *TransmittalRepository) FindByDocument(ctx context.Context, documentID string) (*entity.Transmittal, error) {
	var trs entity.Transmittal
	err := r.db.WithContext(ctx).
		Preload("Document.Category.Organisation").
		Preload("ExportedRevisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("sort_order ASC")
		}).
		Preload("ExportedRevisions.Document").
		Where("document_id = ?", documentID).
		First(&trs).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &trs, nil
}

// Create 同一事务内创建传送单文档、首版本、传送单及导出版本
func (r *TransmittalRepository) Create(ctx context.Context, doc *entity.Document, rev *entity.DocumentRevision, trs *entity.Transmittal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Category", "Revisions").Create(doc).Error; err != nil {
			return err
		}
		rev.DocumentID = doc.ID
		if err := tx.Omit("Document", "Leader", "Approver", "Reviewers").Create(rev).Error; err != nil {
			return err
		}
		trs.DocumentID = doc.ID
		if err := tx.Omit("Document", "ExportedRevisions").Create(trs).Error; err != nil {
			return err
		}
		for i := range trs.ExportedRevisions {
			trs.ExportedRevisions[i].TransmittalID = trs.ID
			if err := tx.Omit("Document").Create(&trs.ExportedRevisions[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
