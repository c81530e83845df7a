package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/report"
	"github.com/bitfantasy/phase/internal/edms/repository"
)

// TransmittalService 传送单
type TransmittalService struct {
	repos    *repository.Repositories
	renderer *report.Renderer
	recorder *audit.Recorder
}

func NewTransmittalService(repos *repository.Repositories, renderer *report.Renderer, recorder *audit.Recorder) *TransmittalService {
	return &TransmittalService{repos: repos, renderer: renderer, recorder: recorder}
}

// ExportedRevisionRequest 传送单中的一个版本
type ExportedRevisionRequest struct {
	DocumentNumber string `json:"document_number" binding:"required"`
	Revision       int    `json:"revision"`
	ReturnCode     string `json:"return_code"`
}

// TransmittalRequest 创建传送单
type TransmittalRequest struct {
	DocumentNumber    string                    `json:"document_number" binding:"required"`
	Title             string                    `json:"title" binding:"required"`
	CategoryID        string                    `json:"category_id"`
	ContractNumber    string                    `json:"contract_number" binding:"required"`
	Sender            string                    `json:"sender"`
	Addressee         string                    `json:"addressee"`
	WayOfTransmission string                    `json:"way_of_transmission"`
	Revisions         []ExportedRevisionRequest `json:"revisions"`
}

func (r *TransmittalRequest) validate() error {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.Title = strings.TrimSpace(r.Title)
	r.ContractNumber = strings.TrimSpace(r.ContractNumber)
	if r.DocumentNumber == "" || r.Title == "" {
		return invalid("document_number and title are required")
	}
	if r.ContractNumber == "" || len(r.ContractNumber) > 50 {
		return invalid("contract_number must be 1 to 50 characters")
	}
	if r.WayOfTransmission == "" {
		r.WayOfTransmission = entity.TransmissionEDMS
	}
	if !oneOf(r.WayOfTransmission, entity.TransmissionWays) {
		return invalid("unknown way of transmission %q", r.WayOfTransmission)
	}
	for _, rev := range r.Revisions {
		if rev.ReturnCode != "" && !oneOf(rev.ReturnCode, []string{
			entity.ReturnCodeApproved,
			entity.ReturnCodeApprovedComments,
			entity.ReturnCodeRejected,
			entity.ReturnCodeInformationOnly,
		}) {
			return invalid("unknown return code %q", rev.ReturnCode)
		}
	}
	return nil
}

// Create 创建传送单文档，导出版本的标题和状态在此时快照
func (s *TransmittalService) Create(ctx context.Context, userID string, req *TransmittalRequest) (*entity.Transmittal, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	exists, err := s.repos.Document.ExistsNumber(ctx, req.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("check document number: %w", err)
	}
	if exists {
		return nil, invalid("document %s already exists", req.DocumentNumber)
	}

	issued := today()
	doc := &entity.Document{
		ID:                  newID(),
		DocumentNumber:      req.DocumentNumber,
		Title:               req.Title,
		CategoryID:          req.CategoryID,
		CurrentRevisionDate: &issued,
		Klass:               1,
		IsTransmittal:       true,
		CreatedBy:           userID,
	}
	rev := &entity.DocumentRevision{ID: newID(), RevisionDate: issued}
	trs := &entity.Transmittal{
		ID:                newID(),
		ContractNumber:    req.ContractNumber,
		Sender:            req.Sender,
		Addressee:         req.Addressee,
		WayOfTransmission: req.WayOfTransmission,
		TransmittalDate:   &issued,
	}

	for i, item := range req.Revisions {
		exported, err := s.repos.Document.FindByNumber(ctx, item.DocumentNumber)
		if err != nil {
			return nil, fmt.Errorf("find exported document %s: %w", item.DocumentNumber, err)
		}
		r := findRevision(exported.Revisions, item.Revision)
		if r == nil {
			return nil, fmt.Errorf("find revision %s of %s: %w", entity.FormatRevision(item.Revision), item.DocumentNumber, ErrNotFound)
		}
		trs.ExportedRevisions = append(trs.ExportedRevisions, entity.ExportedRevision{
			ID:         newID(),
			DocumentID: exported.ID,
			RevisionID: r.ID,
			Revision:   r.Revision,
			Title:      exported.Title,
			Status:     exported.Status,
			ReturnCode: item.ReturnCode,
			SortOrder:  i,
		})
	}

	if err := s.repos.Transmittal.Create(ctx, doc, rev, trs); err != nil {
		return nil, fmt.Errorf("create transmittal: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(audit.Entity(audit.TagTransmittal, trs.ID, doc.DocumentNumber)),
		audit.WithTarget(documentRef(doc)),
	)
	return trs, nil
}

// PDF 渲染传送单某个版本，返回内容和文件名
func (s *TransmittalService) PDF(ctx context.Context, number string, revision int) ([]byte, string, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, "", fmt.Errorf("find document: %w", err)
	}
	if !doc.IsTransmittal {
		return nil, "", fmt.Errorf("document %s is not a transmittal: %w", number, ErrNotFound)
	}
	rev := findRevision(doc.Revisions, revision)
	if rev == nil {
		return nil, "", fmt.Errorf("find revision: %w", ErrNotFound)
	}
	trs, err := s.repos.Transmittal.FindByDocument(ctx, doc.ID)
	if err != nil {
		return nil, "", fmt.Errorf("find transmittal: %w", err)
	}

	data, err := s.renderer.Render(Sheet(doc, trs))
	if err != nil {
		return nil, "", fmt.Errorf("render transmittal: %w", err)
	}
	return data, fmt.Sprintf("%s_%s.pdf", doc.DocumentNumber, rev.Label()), nil
}

// Sheet 把传送单实体转换为渲染数据
func Sheet(doc *entity.Document, trs *entity.Transmittal) report.Transmittal {
	t := report.Transmittal{
		ContractNumber:    trs.ContractNumber,
		TransmittalNumber: doc.DocumentNumber,
		IssueDate:         doc.CreatedAt,
		Sender:            trs.Sender,
		Addressee:         trs.Addressee,
		WayOfTransmission: trs.WayOfTransmission,
	}
	if doc.Category != nil && doc.Category.Organisation != nil {
		t.OrganisationName = doc.Category.Organisation.Name
	}
	for _, er := range trs.ExportedRevisions {
		line := report.Line{
			Title:      er.Title,
			Revision:   entity.FormatRevision(er.Revision),
			Status:     er.Status,
			ReturnCode: er.ReturnCode,
		}
		if er.Document != nil {
			line.DocumentNumber = er.Document.DocumentNumber
		}
		t.Lines = append(t.Lines, line)
	}
	return t
}
