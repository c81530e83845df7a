package entity

import (
	"sort"
	"time"
)

// Organisation 组织（传送单抬头）
type Organisation struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Name      string    `json:"name" gorm:"size:128;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Organisation) TableName() string {
	return "organisations"
}

func (o Organisation) String() string {
	return o.Name
}

// Category 文档分类，隶属于某个组织
type Category struct {
	ID             string    `json:"id" gorm:"primaryKey;size:32"`
	Code           string    `json:"code" gorm:"size:32;not null;uniqueIndex"`
	Name           string    `json:"name" gorm:"size:64;not null"`
	OrganisationID string    `json:"organisation_id" gorm:"size:32"`
	CreatedAt      time.Time `json:"created_at"`

	// 关联
	Organisation *Organisation `json:"organisation,omitempty" gorm:"foreignKey:OrganisationID"`
}

func (Category) TableName() string {
	return "categories"
}

func (c Category) String() string {
	if c.Organisation != nil {
		return c.Organisation.Name + " / " + c.Name
	}
	return c.Name
}

// Document 文档主记录
type Document struct {
	ID                  string     `json:"id" gorm:"primaryKey;size:32"`
	DocumentNumber      string     `json:"document_number" gorm:"size:64;not null;uniqueIndex"`
	Title               string     `json:"title" gorm:"size:256;not null"`
	CategoryID          string     `json:"category_id" gorm:"size:32;index"`
	Status              string     `json:"status" gorm:"size:8"`
	CurrentRevision     int        `json:"current_revision" gorm:"not null;default:0"`
	CurrentRevisionDate *time.Time `json:"current_revision_date" gorm:"type:date"`
	Unit                string     `json:"unit" gorm:"size:8"`
	Discipline          string     `json:"discipline" gorm:"size:8"`
	DocumentType        string     `json:"document_type" gorm:"size:8"`
	Klass               int        `json:"klass" gorm:"not null;default:1"`
	IsTransmittal       bool       `json:"is_transmittal" gorm:"not null;default:false"`
	CreatedBy           string     `json:"created_by" gorm:"size:32"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty" gorm:"index"`

	// 关联
	Category  *Category          `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Revisions []DocumentRevision `json:"revisions,omitempty" gorm:"foreignKey:DocumentID"`
}

func (Document) TableName() string {
	return "documents"
}

func (d Document) String() string {
	return d.DocumentNumber
}

// LatestRevision 返回最新版本，没有版本时返回nil
func (d Document) LatestRevision() *DocumentRevision {
	return LatestRevision(d.Revisions)
}

// DocumentRevision 文档版本
type DocumentRevision struct {
	ID           string    `json:"id" gorm:"primaryKey;size:32"`
	DocumentID   string    `json:"document_id" gorm:"size:32;not null;uniqueIndex:idx_revision_document"`
	Revision     int       `json:"revision" gorm:"not null;uniqueIndex:idx_revision_document"`
	RevisionDate time.Time `json:"revision_date" gorm:"type:date;not null"`
	NativeFile   string    `json:"native_file" gorm:"size:512"`
	PDFFile      string    `json:"pdf_file" gorm:"size:512"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// 审阅
	ReviewStartDate  *time.Time `json:"review_start_date" gorm:"type:date"`
	ReviewDueDate    *time.Time `json:"review_due_date" gorm:"type:date"`
	UnderReview      *bool      `json:"under_review"`
	Overdue          *bool      `json:"overdue"`
	LeaderID         *string    `json:"leader_id" gorm:"size:32"`
	ApproverID       *string    `json:"approver_id" gorm:"size:32"`
	LeaderComments   string     `json:"leader_comments" gorm:"size:512"`
	ApproverComments string     `json:"approver_comments" gorm:"size:512"`

	// 关联
	Document  *Document `json:"document,omitempty" gorm:"foreignKey:DocumentID"`
	Leader    *User     `json:"leader,omitempty" gorm:"foreignKey:LeaderID"`
	Approver  *User     `json:"approver,omitempty" gorm:"foreignKey:ApproverID"`
	Reviewers []User    `json:"reviewers,omitempty" gorm:"many2many:revision_reviewers;"`
}

func (DocumentRevision) TableName() string {
	return "document_revisions"
}

// Label 版本显示名，如 "01"
func (r DocumentRevision) Label() string {
	return FormatRevision(r.Revision)
}

func (r DocumentRevision) String() string {
	if r.Document != nil {
		return r.Document.DocumentNumber + " rev. " + r.Label()
	}
	return "rev. " + r.Label()
}

// LatestRevision 按版本号、版本日期取最新的一条
func LatestRevision(revisions []DocumentRevision) *DocumentRevision {
	if len(revisions) == 0 {
		return nil
	}
	sorted := SortRevisions(revisions)
	return &sorted[len(sorted)-1]
}

// SortRevisions 返回按版本从旧到新排序的副本
func SortRevisions(revisions []DocumentRevision) []DocumentRevision {
	sorted := make([]DocumentRevision, len(revisions))
	copy(sorted, revisions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Revision != sorted[j].Revision {
			return sorted[i].Revision < sorted[j].Revision
		}
		return sorted[i].RevisionDate.Before(sorted[j].RevisionDate)
	})
	return sorted
}
