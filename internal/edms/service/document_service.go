package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bitfantasy/phase/internal/edms/audit"
	"github.com/bitfantasy/phase/internal/edms/entity"
	"github.com/bitfantasy/phase/internal/edms/grid"
	"github.com/bitfantasy/phase/internal/edms/packager"
	"github.com/bitfantasy/phase/internal/edms/repository"
	"github.com/bitfantasy/phase/internal/shared/storage"
	"go.uber.org/zap"
)

// DateLayout 日期参数格式
const DateLayout = "2006-01-02"

// DocumentService 文档服务
type DocumentService struct {
	repos    *repository.Repositories
	store    storage.FileStore
	packager *packager.Packager
	recorder *audit.Recorder
	grid     grid.Config
	logger   *zap.Logger
}

func NewDocumentService(repos *repository.Repositories, store storage.FileStore, pack *packager.Packager, recorder *audit.Recorder, logger *zap.Logger) *DocumentService {
	return &DocumentService{
		repos:    repos,
		store:    store,
		packager: pack,
		recorder: recorder,
		grid:     grid.DocumentConfig(),
		logger:   logger.With(zap.String("service", "document")),
	}
}

// DocumentRequest 创建/编辑文档
type DocumentRequest struct {
	DocumentNumber      string `json:"document_number" form:"document_number"`
	Title               string `json:"title" form:"title"`
	CategoryID          string `json:"category_id" form:"category_id"`
	Status              string `json:"status" form:"status"`
	CurrentRevision     int    `json:"current_revision" form:"current_revision"`
	CurrentRevisionDate string `json:"current_revision_date" form:"current_revision_date"`
	Unit                string `json:"unit" form:"unit"`
	Discipline          string `json:"discipline" form:"discipline"`
	DocumentType        string `json:"document_type" form:"document_type"`
	Klass               int    `json:"klass" form:"klass"`
}

// Upload 上传的文件
type Upload struct {
	Filename    string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// RevisionFiles 版本附件
type RevisionFiles struct {
	Native *Upload
	PDF    *Upload
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

func oneOf(v string, choices []string) bool {
	for _, c := range choices {
		if c == v {
			return true
		}
	}
	return false
}

// Validate 校验字段取值
func (r *DocumentRequest) Validate() error {
	r.DocumentNumber = strings.TrimSpace(r.DocumentNumber)
	r.Title = strings.TrimSpace(r.Title)
	if r.DocumentNumber == "" {
		return invalid("document_number is required")
	}
	if len(r.DocumentNumber) > 64 {
		return invalid("document_number is too long")
	}
	if r.Title == "" {
		return invalid("title is required")
	}
	if r.Status != "" && !oneOf(r.Status, entity.DocumentStatuses) {
		return invalid("unknown status %q", r.Status)
	}
	if r.Unit != "" && !oneOf(r.Unit, entity.DocumentUnits) {
		return invalid("unknown unit %q", r.Unit)
	}
	if r.Discipline != "" && !oneOf(r.Discipline, entity.DocumentDisciplines) {
		return invalid("unknown discipline %q", r.Discipline)
	}
	if r.DocumentType != "" && !oneOf(r.DocumentType, entity.DocumentTypes) {
		return invalid("unknown document type %q", r.DocumentType)
	}
	if r.Klass == 0 {
		r.Klass = 1
	}
	if r.Klass < 1 || r.Klass > len(entity.DocumentClasses) {
		return invalid("unknown class %d", r.Klass)
	}
	if r.CurrentRevision < 0 || r.CurrentRevision > entity.MaxRevision {
		return invalid("revision must be between 0 and %d", entity.MaxRevision)
	}
	if _, err := r.revisionDate(); err != nil {
		return err
	}
	return nil
}

func (r *DocumentRequest) revisionDate() (time.Time, error) {
	if r.CurrentRevisionDate == "" {
		return today(), nil
	}
	d, err := time.ParseInLocation(DateLayout, r.CurrentRevisionDate, time.Local)
	if err != nil {
		return time.Time{}, invalid("current_revision_date must be YYYY-MM-DD")
	}
	return d, nil
}

func (r *DocumentRequest) apply(doc *entity.Document, revDate time.Time) {
	doc.Title = r.Title
	doc.Status = r.Status
	doc.CurrentRevision = r.CurrentRevision
	doc.CurrentRevisionDate = &revDate
	doc.Unit = r.Unit
	doc.Discipline = r.Discipline
	doc.DocumentType = r.DocumentType
	doc.Klass = r.Klass
	if r.CategoryID != "" {
		doc.CategoryID = r.CategoryID
	}
}

// GridConfig 表格列和筛选下拉选项
func (s *DocumentService) GridConfig() map[string]interface{} {
	return map[string]interface{}{
		"fields":                 s.grid.Fields,
		"searchable":             s.grid.Searchable,
		"status_choices":         entity.DocumentStatuses,
		"revisions_choices":      entity.DocumentRevisions(),
		"units_choices":          entity.DocumentUnits,
		"disciplines_choices":    entity.DocumentDisciplines,
		"document_types_choices": entity.DocumentTypes,
		"classes_choices":        entity.DocumentClasses,
	}
}

// Filter 表格查询
func (s *DocumentService) Filter(ctx context.Context, values url.Values) (*grid.Response, error) {
	params := grid.ParseParams(values)
	q := s.grid.Translate(params)

	docs, total, display, err := s.repos.Document.Filter(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter documents: %w", err)
	}

	rows := make([]interface{}, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, s.grid.Row(grid.DocumentValues(doc)))
	}
	return &grid.Response{
		Echo:                params.Echo,
		TotalRecords:        total,
		TotalDisplayRecords: display,
		Data:                rows,
	}, nil
}

// Get 文档详情
func (s *DocumentService) Get(ctx context.Context, number string) (*entity.Document, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// Revisions 文档版本列表（含审阅信息）
func (s *DocumentService) Revisions(ctx context.Context, number string) ([]entity.DocumentRevision, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	revs, err := s.repos.Document.ListRevisions(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	return revs, nil
}

// Create 创建文档及当前版本
func (s *DocumentService) Create(ctx context.Context, userID string, req *DocumentRequest, files RevisionFiles) (*entity.Document, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.repos.Document.ExistsNumber(ctx, req.DocumentNumber)
	if err != nil {
		return nil, fmt.Errorf("check document number: %w", err)
	}
	if exists {
		return nil, invalid("document %s already exists", req.DocumentNumber)
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	revDate, _ := req.revisionDate()
	doc := &entity.Document{
		ID:             newID(),
		DocumentNumber: req.DocumentNumber,
		CreatedBy:      userID,
	}
	req.apply(doc, revDate)

	rev := &entity.DocumentRevision{
		ID:           newID(),
		Revision:     req.CurrentRevision,
		RevisionDate: revDate,
	}
	if err := s.storeFiles(ctx, doc, rev, files); err != nil {
		return nil, err
	}

	if err := s.repos.Document.CreateWithRevision(ctx, doc, rev); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.recorder.Try(ctx, actor(userID), entity.VerbCreated,
		audit.WithActionObject(revisionRef(doc, rev)),
		audit.WithTarget(documentRef(doc)),
	)
	s.logger.Info("document created", zap.String("document_number", doc.DocumentNumber), zap.String("user_id", userID))
	return s.Get(ctx, doc.DocumentNumber)
}

// Update 编辑文档。当前版本号不存在时自动创建该版本，已存在时只替换上传的附件
func (s *DocumentService) Update(ctx context.Context, userID, number string, req *DocumentRequest, files RevisionFiles) (*entity.Document, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	req.DocumentNumber = doc.DocumentNumber
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	revDate, _ := req.revisionDate()
	existing := findRevision(doc.Revisions, req.CurrentRevision)
	req.apply(doc, revDate)

	var created *entity.DocumentRevision
	if existing == nil {
		created = &entity.DocumentRevision{
			ID:           newID(),
			Revision:     req.CurrentRevision,
			RevisionDate: revDate,
		}
		if err := s.storeFiles(ctx, doc, created, files); err != nil {
			return nil, err
		}
	} else if files.Native != nil || files.PDF != nil {
		if err := s.storeFiles(ctx, doc, existing, files); err != nil {
			return nil, err
		}
		if err := s.repos.Document.UpdateRevision(ctx, existing); err != nil {
			return nil, fmt.Errorf("update revision: %w", err)
		}
	}

	revisions := doc.Revisions
	doc.Revisions = nil
	if err := s.repos.Document.UpdateWithRevision(ctx, doc, created); err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}
	doc.Revisions = revisions
	s.recorder.Registry().Forget(audit.TagDocument, doc.ID)

	opts := []audit.Option{audit.WithTarget(documentRef(doc))}
	if created != nil {
		opts = append(opts, audit.WithActionObject(revisionRef(doc, created)))
	}
	s.recorder.Try(ctx, actor(userID), entity.VerbUpdated, opts...)
	return s.Get(ctx, doc.DocumentNumber)
}

// Delete 软删除文档
func (s *DocumentService) Delete(ctx context.Context, userID, number string) error {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("find document: %w", err)
	}
	if err := s.repos.Document.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	s.recorder.Registry().Forget(audit.TagDocument, doc.ID)
	s.recorder.Try(ctx, actor(userID), entity.VerbDeleted, audit.WithTarget(documentRef(doc)))
	return nil
}

// ImportRow 导入一行：编号已存在则编辑，否则创建
func (s *DocumentService) ImportRow(ctx context.Context, userID, categoryID string, values map[string]string) (*entity.Document, error) {
	req := &DocumentRequest{
		DocumentNumber:      values["document_number"],
		Title:               values["title"],
		CategoryID:          categoryID,
		Status:              values["status"],
		CurrentRevisionDate: values["current_revision_date"],
		Unit:                values["unit"],
		Discipline:          values["discipline"],
		DocumentType:        values["document_type"],
	}
	var err error
	if req.CurrentRevision, err = atoiDefault(values["current_revision"], 0); err != nil {
		return nil, invalid("current_revision must be a number")
	}
	if req.Klass, err = atoiDefault(values["klass"], 1); err != nil {
		return nil, invalid("klass must be a number")
	}

	_, err = s.repos.Document.FindByNumber(ctx, strings.TrimSpace(req.DocumentNumber))
	switch {
	case err == nil:
		return s.Update(ctx, userID, strings.TrimSpace(req.DocumentNumber), req, RevisionFiles{})
	case errors.Is(err, repository.ErrNotFound):
		return s.Create(ctx, userID, req, RevisionFiles{})
	default:
		return nil, fmt.Errorf("find document: %w", err)
	}
}

func atoiDefault(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// 文件类型
const (
	FileNative = "native"
	FilePDF    = "pdf"
)

// OpenFile 打开某个版本的原生文件或PDF
func (s *DocumentService) OpenFile(ctx context.Context, number string, revision int, kind string) (io.ReadCloser, string, error) {
	doc, err := s.repos.Document.FindByNumber(ctx, number)
	if err != nil {
		return nil, "", fmt.Errorf("find document: %w", err)
	}
	rev := findRevision(doc.Revisions, revision)
	if rev == nil {
		return nil, "", fmt.Errorf("find revision: %w", ErrNotFound)
	}

	var key string
	switch kind {
	case FileNative:
		key = rev.NativeFile
	case FilePDF:
		key = rev.PDFFile
	default:
		return nil, "", invalid("unknown file kind %q", kind)
	}
	if key == "" {
		return nil, "", fmt.Errorf("revision has no %s file: %w", kind, ErrNotFound)
	}

	rc, err := s.store.Open(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, "", fmt.Errorf("open file: %w", ErrNotFound)
		}
		return nil, "", fmt.Errorf("open file: %w", err)
	}
	return rc, filepath.Base(key), nil
}

// DownloadRequest 打包下载参数
type DownloadRequest struct {
	DocumentNumbers []string `form:"document_numbers"`
	Format          string   `form:"format"`
	Revisions       string   `form:"revisions"`
}

// Download 打包下载。参数不合法返回 ErrInvalidDownload
func (s *DocumentService) Download(ctx context.Context, req DownloadRequest) (*packager.Archive, error) {
	if len(req.DocumentNumbers) == 0 {
		return nil, fmt.Errorf("%w: no documents selected", ErrInvalidDownload)
	}
	format, err := packager.ParseFormat(req.Format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDownload, err)
	}
	revisions, err := packager.ParseRevisions(req.Revisions)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDownload, err)
	}

	docs, err := s.repos.Document.FindByNumbers(ctx, req.DocumentNumbers)
	if err != nil {
		return nil, fmt.Errorf("find documents: %w", err)
	}

	archive, err := s.packager.Package(ctx, docs, packager.Options{Format: format, Revisions: revisions})
	if err != nil {
		return nil, fmt.Errorf("package documents: %w", err)
	}
	if len(archive.Failures) > 0 {
		s.logger.Warn("archive built with missing files", zap.Int("failures", len(archive.Failures)))
	}
	return archive, nil
}

func (s *DocumentService) checkCategory(ctx context.Context, categoryID string) error {
	if categoryID == "" {
		return nil
	}
	if _, err := s.repos.Category.FindByID(ctx, categoryID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return invalid("unknown category %s", categoryID)
		}
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

// storeFiles 上传附件，key 为 documents/<编号>/<版本>/<编号>_<版本><扩展名>
func (s *DocumentService) storeFiles(ctx context.Context, doc *entity.Document, rev *entity.DocumentRevision, files RevisionFiles) error {
	if files.Native != nil {
		key := fileKey(doc, rev, FileNative, files.Native.Filename)
		if err := s.store.Put(ctx, key, files.Native.Reader, files.Native.Size, files.Native.ContentType); err != nil {
			return fmt.Errorf("store native file: %w", err)
		}
		rev.NativeFile = key
	}
	if files.PDF != nil {
		key := fileKey(doc, rev, FilePDF, files.PDF.Filename)
		if err := s.store.Put(ctx, key, files.PDF.Reader, files.PDF.Size, "application/pdf"); err != nil {
			return fmt.Errorf("store pdf file: %w", err)
		}
		rev.PDFFile = key
	}
	return nil
}

// fileKey 存储路径 documents/<编号>/<版本>/<kind>/<编号>_<版本><扩展名>
// 原生文件也是 .pdf 时加 _native 后缀，打包时两个文件名不重复
func fileKey(doc *entity.Document, rev *entity.DocumentRevision, kind, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	base := doc.DocumentNumber + "_" + rev.Label()
	if kind == FilePDF {
		ext = ".pdf"
	} else if ext == ".pdf" {
		base += "_native"
	}
	return fmt.Sprintf("documents/%s/%s/%s/%s%s", doc.DocumentNumber, rev.Label(), kind, base, ext)
}

func findRevision(revs []entity.DocumentRevision, revision int) *entity.DocumentRevision {
	for i := range revs {
		if revs[i].Revision == revision {
			return &revs[i]
		}
	}
	return nil
}

func documentRef(doc *entity.Document) audit.Ref {
	return audit.Entity(audit.TagDocument, doc.ID, doc.DocumentNumber)
}

func revisionRef(doc *entity.Document, rev *entity.DocumentRevision) audit.Ref {
	return audit.Entity(audit.TagRevision, rev.ID, doc.DocumentNumber+" rev. "+rev.Label())
}
