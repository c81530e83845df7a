package entity

import (
	"fmt"
	"time"
)

// 导出状态
const (
	ExportStatusNew        = "new"
	ExportStatusProcessing = "processing"
	ExportStatusDone       = "done"
	ExportStatusError      = "error"
)

// 导出格式
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// Export 文档列表导出任务
type Export struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	OwnerID     string     `json:"owner_id" gorm:"size:32;not null;index"`
	CategoryID  string     `json:"category_id" gorm:"size:32"`
	Querystring string     `json:"querystring" gorm:"type:text"`
	Format      string     `json:"format" gorm:"size:8;not null;default:csv"`
	Status      string     `json:"status" gorm:"size:16;not null;default:new"`
	FilePath    string     `json:"file_path" gorm:"size:512"`
	Message     string     `json:"message" gorm:"type:text"`
	CreatedOn   time.Time  `json:"created_on"`
	FinishedOn  *time.Time `json:"finished_on"`
}

func (Export) TableName() string {
	return "exports"
}

// GetFilename export_20150101_<uuid>.csv
func (e Export) GetFilename() string {
	format := e.Format
	if format == "" {
		format = ExportFormatCSV
	}
	return fmt.Sprintf("export_%s_%s.%s", e.CreatedOn.Format("20060102"), e.ID, format)
}
