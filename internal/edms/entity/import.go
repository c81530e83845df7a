package entity

import (
	"time"

	"gorm.io/datatypes"
)

// 导入批次状态
const (
	ImportStatusNew            = "new"
	ImportStatusStarted        = "started"
	ImportStatusSuccess        = "success"
	ImportStatusPartialSuccess = "partial_success"
	ImportStatusError          = "error"
)

// ImportBatch 一次文件导入
type ImportBatch struct {
	UID        string     `json:"uid" gorm:"primaryKey;size:36"`
	FileName   string     `json:"file_name" gorm:"size:256;not null"`
	FilePath   string     `json:"file_path" gorm:"size:512;not null"`
	CategoryID string     `json:"category_id" gorm:"size:32;not null"`
	OwnerID    string     `json:"owner_id" gorm:"size:32;not null;index"`
	Status     string     `json:"status" gorm:"size:16;not null;default:new"`
	Message    string     `json:"message" gorm:"type:text"`
	Total      int        `json:"total" gorm:"not null;default:0"`
	Succeeded  int        `json:"succeeded" gorm:"not null;default:0"`
	Failed     int        `json:"failed" gorm:"not null;default:0"`
	CreatedOn  time.Time  `json:"created_on"`
	FinishedOn *time.Time `json:"finished_on"`

	// 关联
	Lines []ImportLine `json:"lines,omitempty" gorm:"foreignKey:BatchUID"`
}

func (ImportBatch) TableName() string {
	return "import_batches"
}

func (b ImportBatch) String() string {
	return b.FileName
}

// ImportLine 导入文件中的一行
type ImportLine struct {
	ID         string            `json:"id" gorm:"primaryKey;size:32"`
	BatchUID   string            `json:"batch_uid" gorm:"size:36;not null;index"`
	LineNumber int               `json:"line_number" gorm:"not null"`
	Status     string            `json:"status" gorm:"size:16;not null"`
	Errors     string            `json:"errors" gorm:"type:text"`
	Data       datatypes.JSONMap `json:"data" gorm:"type:jsonb"`
	DocumentID string            `json:"document_id" gorm:"size:32"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (ImportLine) TableName() string {
	return "import_lines"
}
