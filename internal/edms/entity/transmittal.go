package entity

import "time"

// 传送方式
const (
	TransmissionEDMS  = "edms"
	TransmissionEmail = "email"
	TransmissionUSB   = "usb"
	TransmissionPost  = "post"
	TransmissionOther = "other"
)

// TransmissionWays 传送方式（传送单上的勾选顺序）
var TransmissionWays = []string{
	TransmissionEDMS,
	TransmissionEmail,
	TransmissionUSB,
	TransmissionPost,
	TransmissionOther,
}

// Transmittal 传送单元数据，挂在一个文档上
type Transmittal struct {
	ID                string     `json:"id" gorm:"primaryKey;size:32"`
	DocumentID        string     `json:"document_id" gorm:"size:32;not null;uniqueIndex"`
	ContractNumber    string     `json:"contract_number" gorm:"size:50;not null"`
	Sender            string     `json:"sender" gorm:"size:128"`
	Addressee         string     `json:"addressee" gorm:"size:128"`
	WayOfTransmission string     `json:"way_of_transmission" gorm:"size:16;not null;default:edms"`
	TransmittalDate   *time.Time `json:"transmittal_date" gorm:"type:date"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	// 关联
	Document          *Document          `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
	ExportedRevisions []ExportedRevision `json:"exported_revisions,omitempty" gorm:"foreignKey:TransmittalID"`
}

func (Transmittal) TableName() string {
	return "transmittals"
}

// ExportedRevision 传送单包含的文档版本，标题/状态/返回码在加入时快照
type ExportedRevision struct {
	ID            string    `json:"id" gorm:"primaryKey;size:32"`
	TransmittalID string    `json:"transmittal_id" gorm:"size:32;not null;index"`
	DocumentID    string    `json:"document_id" gorm:"size:32;not null"`
	RevisionID    string    `json:"revision_id" gorm:"size:32;not null"`
	Revision      int       `json:"revision" gorm:"not null"`
	Title         string    `json:"title" gorm:"size:256;not null"`
	Status        string    `json:"status" gorm:"size:8"`
	ReturnCode    string    `json:"return_code" gorm:"size:4"`
	SortOrder     int       `json:"sort_order" gorm:"not null;default:0"`
	CreatedAt     time.Time `json:"created_at"`

	// 关联
	Document *Document `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
}

func (ExportedRevision) TableName() string {
	return "exported_revisions"
}
