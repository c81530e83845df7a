package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	User             *UserRepository
	Category         *CategoryRepository
	Document         *DocumentRepository
	Activity         *ActivityRepository
	Bookmark         *BookmarkRepository
	Import           *ImportRepository
	Export           *ExportRepository
	Transmittal      *TransmittalRepository
	DistributionList *DistributionListRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:               db,
		User:             NewUserRepository(db),
		Category:         NewCategoryRepository(db),
		Document:         NewDocumentRepository(db),
		Activity:         NewActivityRepository(db),
		Bookmark:         NewBookmarkRepository(db),
		Import:           NewImportRepository(db),
		Export:           NewExportRepository(db),
		Transmittal:      NewTransmittalRepository(db),
		DistributionList: NewDistributionListRepository(db),
	}
}

// DB 底层连接，供健康检查使用
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
